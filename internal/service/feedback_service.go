package service

import (
	"context"
	"fmt"
	"log/slog"

	app_errors "askcampus/backend/internal/errors"
	"askcampus/backend/internal/model"
	"askcampus/backend/internal/repository"
)

// FeedbackService records answer ratings. Each submission appends a feedback
// row; resubmitting a rating for the same answer appends another row, and
// readers take the latest. The embedded feedback map of the owning stored
// conversation is updated as well so a later load reflects the rating even
// if the client never pushes another snapshot.
type FeedbackService struct {
	repo repository.Repository
}

func NewFeedbackService(repo repository.Repository) *FeedbackService {
	return &FeedbackService{repo: repo}
}

func (s *FeedbackService) Submit(ctx context.Context, entry model.FeedbackEntry) error {
	if entry.AnswerID == "" {
		return fmt.Errorf("%w: query_id is required", app_errors.ErrValidation)
	}
	if entry.Rating != model.RatingPositive && entry.Rating != model.RatingNegative {
		return fmt.Errorf("%w: rating must be positive or negative", app_errors.ErrValidation)
	}
	if err := s.repo.SaveFeedback(ctx, entry); err != nil {
		return err
	}
	s.updateStoredConversation(ctx, entry)
	return nil
}

// updateStoredConversation mirrors the rating into the stored conversation's
// feedback map. Best effort: the feedback row already landed.
func (s *FeedbackService) updateStoredConversation(ctx context.Context, entry model.FeedbackEntry) {
	if entry.UserID == "" || entry.ConversationID == "" {
		return
	}
	convs, err := s.repo.LoadConversations(ctx, entry.UserID)
	if err != nil {
		slog.Warn("could not load conversations for feedback update", "user_id", entry.UserID, "error", err)
		return
	}
	conv, ok := convs[entry.ConversationID]
	if !ok {
		return
	}
	if conv.Feedback == nil {
		conv.Feedback = map[string]model.Rating{}
	}
	conv.Feedback[entry.AnswerID] = entry.Rating
	if err := s.repo.SaveConversations(ctx, entry.UserID, convs); err != nil {
		slog.Warn("could not persist feedback map update", "user_id", entry.UserID, "error", err)
	}
}
