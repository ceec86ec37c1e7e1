package session

import (
	"sort"
	"time"

	"askcampus/backend/internal/model"
)

// Store owns the in-memory conversation map, the active conversation id and
// the privacy mode flag. It is a plain data structure: all methods mutate
// synchronously and the Manager serializes access to it. Exactly one
// conversation is active at any time; when the active id stops resolving,
// Active repairs it instead of failing.
type Store struct {
	userID        string
	conversations map[string]*model.Conversation
	activeID      string
	privacy       bool

	now func() time.Time
}

// NewStore builds a store seeded with the well-known default conversation.
func NewStore(userID string) *Store {
	s := &Store{
		userID:        userID,
		conversations: make(map[string]*model.Conversation),
		now:           time.Now,
	}
	s.seedDefault()
	return s
}

func (s *Store) seedDefault() *model.Conversation {
	conv := model.NewConversation(model.DefaultConversationID, s.userID, s.privacy, s.now())
	s.conversations[conv.ID] = conv
	s.activeID = conv.ID
	return conv
}

// UserID returns the identity the store was created for.
func (s *Store) UserID() string { return s.userID }

// Len reports the number of conversations, incognito ones included.
func (s *Store) Len() int { return len(s.conversations) }

// PrivacyMode reports whether the store is in incognito mode.
func (s *Store) PrivacyMode() bool { return s.privacy }

// SetPrivacyMode flips the incognito flag. Mode transitions (creating or
// dropping incognito conversations) are the Manager's job.
func (s *Store) SetPrivacyMode(on bool) { s.privacy = on }

// ActiveID returns the current active conversation id.
func (s *Store) ActiveID() string { return s.activeID }

// Get looks up a conversation by id.
func (s *Store) Get(id string) (*model.Conversation, bool) {
	conv, ok := s.conversations[id]
	return conv, ok
}

// Create allocates a fresh conversation seeded with the welcome message and
// makes it active.
func (s *Store) Create(incognito bool) string {
	id := NewConversationID()
	s.conversations[id] = model.NewConversation(id, s.userID, incognito, s.now())
	s.activeID = id
	return id
}

// Active resolves the active conversation.
//
// The active id must always point at an existing conversation; if it does
// not (deleted out from under us, or loaded state referenced a stale id),
// fall back to the well-known default conversation, re-seeding it when even
// that one is gone. A nil message slice is repaired in place rather than
// treated as an error.
func (s *Store) Active() *model.Conversation {
	if conv, ok := s.conversations[s.activeID]; ok {
		repair(conv)
		return conv
	}
	if conv, ok := s.conversations[model.DefaultConversationID]; ok {
		repair(conv)
		s.activeID = conv.ID
		return conv
	}
	return s.seedDefault()
}

// SetActive switches the active conversation. Unknown ids are refused so
// the active-id invariant cannot be broken from outside.
func (s *Store) SetActive(id string) bool {
	if _, ok := s.conversations[id]; !ok {
		return false
	}
	s.activeID = id
	return true
}

// Append adds a message to the given conversation. It reports false when
// the conversation no longer exists, which makes late answer arrivals for
// deleted conversations a silent no-op instead of a resurrection.
//
// Side effects: the first user message derives the conversation title, and
// once the conversation holds more than one message the leading welcome
// message is suppressed.
func (s *Store) Append(conversationID string, msg model.Message) bool {
	conv, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	repair(conv)

	if msg.Sender == model.SenderUser && !hasUserMessage(conv) {
		if conv.Title == "" || conv.Title == model.DefaultTitle {
			conv.Title = model.DeriveTitle(msg.Text)
		}
	}
	conv.Messages = append(conv.Messages, msg)
	s.SuppressLeadingWelcome(conversationID)
	return true
}

// SuppressLeadingWelcome hides the greeting once a conversation has grown
// past it. One-way and idempotent: the flag is never set back to true.
func (s *Store) SuppressLeadingWelcome(conversationID string) {
	conv, ok := s.conversations[conversationID]
	if !ok || len(conv.Messages) < 2 {
		return
	}
	if conv.Messages[0].ShowInitialMessage {
		conv.Messages[0].ShowInitialMessage = false
	}
}

// Delete removes a conversation. When the removed conversation was active,
// the most recently touched remaining visible conversation takes over, or a
// fresh one is created when none remain. Deleting the last incognito
// conversation also turns privacy mode off.
func (s *Store) Delete(id string) bool {
	conv, ok := s.conversations[id]
	if !ok {
		return false
	}
	wasActive := id == s.activeID
	delete(s.conversations, id)

	if conv.Incognito && s.privacy && !s.hasIncognito() {
		s.privacy = false
	}

	if !wasActive {
		return true
	}
	remaining := s.Visible()
	if len(remaining) == 0 {
		s.Create(s.privacy)
		return true
	}
	s.activeID = remaining[0].ID
	return true
}

func (s *Store) hasIncognito() bool {
	for _, conv := range s.conversations {
		if conv.Incognito {
			return true
		}
	}
	return false
}

// Visible returns the conversations that match the current privacy mode,
// most recently touched first.
func (s *Store) Visible() []*model.Conversation {
	visible := make([]*model.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if conv.Incognito == s.privacy {
			visible = append(visible, conv)
		}
	}
	sortByActivity(visible)
	return visible
}

// Groups partitions the visible conversations into "today" and "earlier"
// buckets relative to the given time, each most recently touched first.
// Conversations without any messages are skipped.
func (s *Store) Groups(now time.Time) model.Groups {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	groups := model.Groups{
		Today:   []*model.Conversation{},
		Earlier: []*model.Conversation{},
	}
	for _, conv := range s.Visible() {
		if len(conv.Messages) == 0 {
			continue
		}
		if !conv.LastActivity().Before(startOfDay) {
			groups.Today = append(groups.Today, conv)
		} else {
			groups.Earlier = append(groups.Earlier, conv)
		}
	}
	return groups
}

// Snapshot deep-copies the persist-eligible state: every non-incognito
// conversation, plus the active id when the active conversation is itself
// non-incognito. Incognito conversations never appear in a snapshot, which
// is what keeps them out of durable storage.
func (s *Store) Snapshot() (map[string]*model.Conversation, string) {
	convs := make(map[string]*model.Conversation)
	for id, conv := range s.conversations {
		if conv.Incognito {
			continue
		}
		convs[id] = conv.Clone()
	}
	activeID := ""
	if conv, ok := s.conversations[s.activeID]; ok && !conv.Incognito {
		activeID = conv.ID
	}
	return convs, activeID
}

// Replace swaps in a conversation set loaded from the remote store. When
// the stored active id is not part of the set, the lexically first loaded
// id becomes active so restoration is deterministic.
func (s *Store) Replace(convs map[string]*model.Conversation, activeID string) {
	if len(convs) == 0 {
		return
	}
	s.conversations = make(map[string]*model.Conversation, len(convs))
	ids := make([]string, 0, len(convs))
	for id, conv := range convs {
		repair(conv)
		s.conversations[id] = conv
		ids = append(ids, id)
	}
	if _, ok := s.conversations[activeID]; ok {
		s.activeID = activeID
		return
	}
	sort.Strings(ids)
	s.activeID = ids[0]
}

// DropIncognito removes every incognito conversation, repairing the active
// id if it pointed at one of them. Used when leaving privacy mode.
func (s *Store) DropIncognito() {
	activeWasIncognito := false
	for id, conv := range s.conversations {
		if conv.Incognito {
			if id == s.activeID {
				activeWasIncognito = true
			}
			delete(s.conversations, id)
		}
	}
	if !activeWasIncognito {
		return
	}
	remaining := s.Visible()
	if len(remaining) == 0 {
		s.Create(s.privacy)
		return
	}
	s.activeID = remaining[0].ID
}

func sortByActivity(convs []*model.Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		ai, aj := convs[i].LastActivity(), convs[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return convs[i].Date.After(convs[j].Date)
	})
}

func hasUserMessage(conv *model.Conversation) bool {
	for _, msg := range conv.Messages {
		if msg.Sender == model.SenderUser {
			return true
		}
	}
	return false
}

func repair(conv *model.Conversation) {
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	if conv.Feedback == nil {
		conv.Feedback = map[string]model.Rating{}
	}
}
