package model

import (
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Tab is the pane of a bot message the UI shows by default.
type Tab string

const (
	TabAnswer  Tab = "answer"
	TabSources Tab = "sources"
)

// Rating is a thumbs-up/down value attached to one assistant answer.
// The zero value means "no feedback", which is distinct from negative.
type Rating string

const (
	RatingNone     Rating = ""
	RatingPositive Rating = "positive"
	RatingNegative Rating = "negative"
)

// WelcomeText is the fixed greeting seeded into every new conversation.
const WelcomeText = "Hi! I am the Campus Assistant. What can I help with?"

// DefaultConversationID is the well-known id the store falls back to when
// the active id no longer resolves to an existing conversation.
const DefaultConversationID = "new"

// DefaultTitle is the title of a conversation before its first user message.
const DefaultTitle = "New Chat"

const (
	titleMaxRunes = 30
	titleEllipsis = "..."
)

// Message is a single entry in a conversation. AnswerID carries the
// server-issued correlation key for bot messages; user messages have none.
type Message struct {
	Sender             Sender    `json:"sender"`
	Text               string    `json:"text"`
	Timestamp          time.Time `json:"timestamp"`
	AnswerID           AnswerKey `json:"query_id,omitzero"`
	Sources            string    `json:"sources,omitempty"`
	SearchMode         string    `json:"searchMode,omitempty"`
	ResponseNamespace  string    `json:"responseNamespace,omitempty"`
	ActiveTab          Tab       `json:"activeTab,omitempty"`
	ShowInitialMessage bool      `json:"showInitialMessage,omitempty"`
}

// Conversation is one chat thread. Feedback maps answer ids to ratings and
// is the durable source of truth for ratings inside this conversation.
type Conversation struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Messages  []Message         `json:"messages"`
	Date      time.Time         `json:"date"`
	Feedback  map[string]Rating `json:"feedback,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	Incognito bool              `json:"isIncognito,omitempty"`
}

// FeedbackEntry is the record sent to the feedback persistence collaborator.
type FeedbackEntry struct {
	AnswerID       string    `json:"query_id"`
	Rating         Rating    `json:"rating"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"chatId"`
	Timestamp      time.Time `json:"timestamp,omitzero"`
}

// Groups partitions conversations by recency for the sidebar listing.
type Groups struct {
	Today   []*Conversation `json:"today"`
	Earlier []*Conversation `json:"earlier"`
}

// NewWelcomeMessage builds the fixed greeting that seeds a new conversation.
func NewWelcomeMessage(now time.Time) Message {
	return Message{
		Sender:             SenderBot,
		Text:               WelcomeText,
		Timestamp:          now,
		AnswerID:           WelcomeKey(),
		ActiveTab:          TabAnswer,
		ShowInitialMessage: true,
	}
}

// NewConversation builds an empty conversation seeded with the welcome
// message.
func NewConversation(id, userID string, incognito bool, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     DefaultTitle,
		Messages:  []Message{NewWelcomeMessage(now)},
		Date:      now,
		Feedback:  map[string]Rating{},
		UserID:    userID,
		Incognito: incognito,
	}
}

// DeriveTitle truncates the first user message into a conversation title.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes]) + titleEllipsis
}

// LastActivity is the timestamp of the most recent message, falling back to
// the conversation's creation date when the message slice is empty.
func (c *Conversation) LastActivity() time.Time {
	if len(c.Messages) == 0 {
		return c.Date
	}
	ts := c.Messages[len(c.Messages)-1].Timestamp
	if ts.IsZero() {
		return c.Date
	}
	return ts
}

// Clone returns a deep copy, so snapshots handed to the sync engine cannot
// observe later mutations.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	if c.Feedback != nil {
		cp.Feedback = make(map[string]Rating, len(c.Feedback))
		for k, v := range c.Feedback {
			cp.Feedback[k] = v
		}
	}
	return &cp
}
