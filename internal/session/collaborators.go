package session

import (
	"context"
	"time"

	"askcampus/backend/internal/assistant"
	"askcampus/backend/internal/model"
)

// The session engine never talks to the outside world directly; it goes
// through the four collaborator contracts below. Depending on interfaces
// instead of concrete implementations lets the same engine run against the
// in-process gateway services or against a remote gateway over HTTP, and
// keeps tests free of network and database setup.

// AnswerService produces an assistant answer for one user query.
type AnswerService interface {
	Query(ctx context.Context, req *assistant.QueryRequest) (*assistant.QueryResponse, error)
}

// ConversationStorage is the remote persistence collaborator. It stores the
// non-incognito conversation set and the active conversation id per user.
// DeleteConversation also cascades persisted feedback rows for that
// conversation; that cascade is the collaborator's responsibility.
type ConversationStorage interface {
	SaveConversations(ctx context.Context, userID string, convs map[string]*model.Conversation) error
	LoadConversations(ctx context.Context, userID string) (map[string]*model.Conversation, error)
	SaveActiveID(ctx context.Context, userID, conversationID string) error
	LoadActiveID(ctx context.Context, userID string) (string, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

// FeedbackSink records one rating against a server-issued answer id.
type FeedbackSink interface {
	Submit(ctx context.Context, entry model.FeedbackEntry) error
}

// GuestRegistrar registers a locally minted guest identity, once per
// session, off the mutation critical path.
type GuestRegistrar interface {
	RegisterGuest(ctx context.Context, guestID string, ts time.Time) error
}
