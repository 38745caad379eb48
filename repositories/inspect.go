package repositories

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/mama165/sdk-go/database"
)

// InspectMapper renders stored records in the Badger debug inspector.
// Password hashes and file contents are never displayed.
func InspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	switch {
	case strings.HasPrefix(key, "conv:"):
		var disk DiskConversation
		if err := cbor.Unmarshal(val, &disk); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "CONVERSATION"
		row.Detail = fmt.Sprintf("%s <-> %s (%d messages, unseen %v)", disk.A, disk.B, disk.LastSeq, disk.Unseen)
	case strings.HasPrefix(key, "msg:"):
		var disk DiskMessage
		if err := cbor.Unmarshal(val, &disk); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "MESSAGE"
		row.Detail = fmt.Sprintf("#%d %s -> %s: %s", disk.Seq, disk.SenderID, disk.ReceiverID, disk.Text)
		if disk.IsFile {
			row.Type = "FILE"
			row.Detail = fmt.Sprintf("#%d %s -> %s: %s (%s, %d bytes)",
				disk.Seq, disk.SenderID, disk.ReceiverID, disk.FileName, disk.FileType, len(disk.FileData))
		}
	case strings.HasPrefix(key, "user:"):
		var disk DiskUser
		if err := cbor.Unmarshal(val, &disk); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "USER"
		row.Detail = disk.Email
	}
	return row
}
