package services

import (
	"direct-chat/domain"
	"direct-chat/errors"
	"direct-chat/repositories"
	"fmt"
)

type IHistoryService interface {
	GetMessages(userID, peerID domain.UserID, cursor *string) ([]domain.Message, *string, error)
}

// HistoryService reads the stored conversation between the caller and one peer.
type HistoryService struct {
	conversations repositories.IConversationRepository
}

func NewHistoryService(conversations repositories.IConversationRepository) *HistoryService {
	return &HistoryService{conversations: conversations}
}

// GetMessages returns a page of the conversation, newest first.
// The next cursor is nil on the last page.
func (s *HistoryService) GetMessages(userID, peerID domain.UserID, cursor *string) ([]domain.Message, *string, error) {
	if userID == "" || peerID == "" {
		return nil, nil, fmt.Errorf("%w: both participants are required", errors.ErrValidation)
	}
	return s.conversations.GetMessages(domain.NewConversationKey(userID, peerID), cursor)
}
