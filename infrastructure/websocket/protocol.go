// Package websocket is the client-facing transport: one WebSocket per connection,
// JSON text frames shaped as {"event": "<name>", "data": {...}}.
package websocket

import (
	"direct-chat/domain"
	"direct-chat/domain/event"
	"direct-chat/errors"
	"encoding/json"
	"fmt"
)

// Frame is the envelope of every message exchanged on the socket, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeFrame parses the envelope only; Command decodes the payload.
func DecodeFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("%w: malformed frame: %v", errors.ErrValidation, err)
	}
	if frame.Event == "" {
		return Frame{}, fmt.Errorf("%w: missing event name", errors.ErrValidation)
	}
	return frame, nil
}

// Command turns the frame into its client command. Required fields are not checked here.
func (f Frame) Command() (domain.Command, error) {
	switch domain.CommandName(f.Event) {
	case domain.CommandTyping:
		return decodeData[domain.TypingCommand](f)
	case domain.CommandStopTyping:
		return decodeData[domain.StopTypingCommand](f)
	case domain.CommandSendFile:
		return decodeData[domain.SendFileCommand](f)
	case domain.CommandSendMessage:
		return decodeData[domain.SendMessageCommand](f)
	case domain.CommandMarkAsSeen:
		return decodeData[domain.MarkAsSeenCommand](f)
	case domain.CommandDisconnect:
		return domain.DisconnectCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, f.Event)
	}
}

func decodeData[T domain.Command](f Frame) (domain.Command, error) {
	var cmd T
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return cmd, nil
	}
	if err := json.Unmarshal(f.Data, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrValidation, f.Event, err)
	}
	return cmd, nil
}

// EncodeEvent builds the text frame of a server event.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: string(e.EventName()), Data: data})
}
