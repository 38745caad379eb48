package runtime

import (
	"direct-chat/domain"
	"slices"

	"github.com/samber/lo"
)

// Presence is the set of users holding at least one bound connection.
// It is not safe for concurrent use, the Registry guards it.
type Presence map[domain.UserID]struct{}

func (p Presence) Add(userID domain.UserID) {
	p[userID] = struct{}{}
}

func (p Presence) Remove(userID domain.UserID) {
	delete(p, userID)
}

func (p Presence) Contains(userID domain.UserID) bool {
	_, ok := p[userID]
	return ok
}

// Snapshot returns the online users sorted, without the excluded ones.
func (p Presence) Snapshot(exclude ...domain.UserID) []domain.UserID {
	users := make([]domain.UserID, 0, len(p))
	for userID := range p {
		if lo.Contains(exclude, userID) {
			continue
		}
		users = append(users, userID)
	}
	slices.Sort(users)
	return users
}
