package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"askcampus/backend/internal/model"
	"askcampus/backend/internal/repository"
)

// ArchiveService persists conversation snapshots and the active conversation
// pointer. It is the in-process implementation of the session engine's
// conversation storage collaborator.
type ArchiveService struct {
	repo repository.Repository
}

func NewArchiveService(repo repository.Repository) *ArchiveService {
	return &ArchiveService{repo: repo}
}

func (s *ArchiveService) SaveConversations(ctx context.Context, userID string, convs map[string]*model.Conversation) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	return s.repo.SaveConversations(ctx, userID, convs)
}

func (s *ArchiveService) LoadConversations(ctx context.Context, userID string) (map[string]*model.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.LoadConversations(ctx, userID)
}

func (s *ArchiveService) SaveActiveID(ctx context.Context, userID, conversationID string) error {
	return s.repo.SetActiveConversation(ctx, userID, conversationID)
}

// LoadActiveID returns an empty id without error when the user has never
// saved one; a fresh session is not a failure.
func (s *ArchiveService) LoadActiveID(ctx context.Context, userID string) (string, error) {
	id, err := s.repo.GetActiveConversation(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}

// DeleteConversation removes the stored conversation together with its
// feedback rows, so a deleted conversation leaves no orphaned ratings.
func (s *ArchiveService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if err := s.repo.DeleteConversation(ctx, userID, conversationID); err != nil {
		return fmt.Errorf("could not delete conversation: %w", err)
	}
	if err := s.repo.DeleteFeedbackByConversation(ctx, conversationID); err != nil {
		slog.Warn("could not cascade feedback delete", "conversation_id", conversationID, "error", err)
	}
	return nil
}
