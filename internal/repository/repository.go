package repository

import (
	"context"
	"time"

	"askcampus/backend/internal/model"
)

// Repository defines the gateway's storage operations. Conversations are
// stored as whole documents keyed by user and conversation id: the client
// owns the canonical in-memory state and pushes full snapshots, so the
// store never needs to reason about individual messages.
type Repository interface {
	// SaveConversations replaces the user's entire persisted conversation
	// set with the given snapshot.
	SaveConversations(ctx context.Context, userID string, convs map[string]*model.Conversation) error
	LoadConversations(ctx context.Context, userID string) (map[string]*model.Conversation, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	SetActiveConversation(ctx context.Context, userID, conversationID string) error
	GetActiveConversation(ctx context.Context, userID string) (string, error)

	SaveFeedback(ctx context.Context, entry model.FeedbackEntry) error
	DeleteFeedbackByConversation(ctx context.Context, conversationID string) error

	UpsertGuest(ctx context.Context, userID string, ts time.Time) error
}
