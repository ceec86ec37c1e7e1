// Package interfaces holds the service contracts the API layer depends on.
// Handlers are written against these instead of the concrete services, which
// keeps the HTTP layer testable with plain fakes.
package interfaces

import (
	"context"
	"time"

	"askcampus/backend/internal/assistant"
	"askcampus/backend/internal/model"
)

// AnswerRelay forwards one chat query to the answer provider.
type AnswerRelay interface {
	Query(ctx context.Context, req *assistant.QueryRequest) (*assistant.QueryResponse, error)
}

// ConversationArchive is the persistence contract behind the conversation
// endpoints: full-snapshot saves, loads, the active pointer and deletes.
type ConversationArchive interface {
	SaveConversations(ctx context.Context, userID string, convs map[string]*model.Conversation) error
	LoadConversations(ctx context.Context, userID string) (map[string]*model.Conversation, error)
	SaveActiveID(ctx context.Context, userID, conversationID string) error
	LoadActiveID(ctx context.Context, userID string) (string, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

// FeedbackRecorder stores one answer rating.
type FeedbackRecorder interface {
	Submit(ctx context.Context, entry model.FeedbackEntry) error
}

// GuestRegistry upserts guest identities.
type GuestRegistry interface {
	RegisterGuest(ctx context.Context, guestID string, ts time.Time) error
}
