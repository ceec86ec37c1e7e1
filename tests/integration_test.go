// End-to-end test wiring a session manager to a real gateway over HTTP:
// Manager -> cloud client -> chi router -> services -> in-memory repository.
// No containers involved; the answer service is the only fake at the edge.
package tests

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askcampus/backend/internal/api"
	"askcampus/backend/internal/assistant"
	"askcampus/backend/internal/cloud"
	"askcampus/backend/internal/model"
	"askcampus/backend/internal/repository"
	"askcampus/backend/internal/service"
	"askcampus/backend/internal/session"
)

// memoryRepository is an in-memory repository.Repository so the whole stack
// runs without a database file.
type memoryRepository struct {
	mu            sync.Mutex
	conversations map[string]map[string]*model.Conversation
	active        map[string]string
	feedback      []model.FeedbackEntry
	guests        map[string]time.Time
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		conversations: map[string]map[string]*model.Conversation{},
		active:        map[string]string{},
		guests:        map[string]time.Time{},
	}
}

func (m *memoryRepository) SaveConversations(_ context.Context, userID string, convs map[string]*model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]*model.Conversation, len(convs))
	for id, conv := range convs {
		cp[id] = conv.Clone()
	}
	m.conversations[userID] = cp
	return nil
}

func (m *memoryRepository) LoadConversations(_ context.Context, userID string) (map[string]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*model.Conversation, len(m.conversations[userID]))
	for id, conv := range m.conversations[userID] {
		out[id] = conv.Clone()
	}
	return out, nil
}

func (m *memoryRepository) DeleteConversation(_ context.Context, userID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations[userID], conversationID)
	return nil
}

func (m *memoryRepository) SetActiveConversation(_ context.Context, userID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[userID] = conversationID
	return nil
}

func (m *memoryRepository) GetActiveConversation(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

func (m *memoryRepository) SaveFeedback(_ context.Context, entry model.FeedbackEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, entry)
	return nil
}

func (m *memoryRepository) DeleteFeedbackByConversation(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.feedback[:0]
	for _, entry := range m.feedback {
		if entry.ConversationID != conversationID {
			kept = append(kept, entry)
		}
	}
	m.feedback = kept
	return nil
}

func (m *memoryRepository) UpsertGuest(_ context.Context, userID string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guests[userID] = ts
	return nil
}

func (m *memoryRepository) feedbackEntries() []model.FeedbackEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.FeedbackEntry(nil), m.feedback...)
}

func (m *memoryRepository) storedConversations(userID string) map[string]*model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*model.Conversation, len(m.conversations[userID]))
	for id, conv := range m.conversations[userID] {
		out[id] = conv.Clone()
	}
	return out
}

type fixedAnswers struct {
	answer  string
	queryID string
}

func (f *fixedAnswers) Query(_ context.Context, _ *assistant.QueryRequest) (*assistant.QueryResponse, error) {
	return &assistant.QueryResponse{Answer: f.answer, QueryID: f.queryID, SearchMode: assistant.SearchModeDirect}, nil
}

type stack struct {
	repo   *memoryRepository
	server *httptest.Server
	remote *cloud.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	repo := newMemoryRepository()
	provider := &fixedAnswers{answer: "Hi there", queryID: "q1"}

	relay := service.NewRelayService(provider, "default")
	archive := service.NewArchiveService(repo)
	feedback := service.NewFeedbackService(repo)
	users := service.NewUserService(repo)

	hub := session.NewHub(func(userID string) *session.Manager {
		return session.NewManager(session.Config{UserID: userID}, relay, archive, feedback, users)
	})
	t.Cleanup(hub.Shutdown)

	router := api.NewRouter(
		api.NewGatewayHandler(relay, archive, feedback, users),
		api.NewSessionHandler(hub),
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &stack{repo: repo, server: server, remote: cloud.NewClient(server.URL)}
}

func newRemoteManager(t *testing.T, s *stack, userID string) *session.Manager {
	t.Helper()
	provider := &fixedAnswers{answer: "Hi there", queryID: "q1"}
	mgr := session.NewManager(session.Config{
		UserID:       userID,
		SyncDebounce: 20 * time.Millisecond,
	}, provider, s.remote, s.remote, s.remote)
	mgr.Init(context.Background())
	t.Cleanup(mgr.Close)
	return mgr
}

func TestEndToEnd_SendSyncReload(t *testing.T) {
	s := newStack(t)
	mgr := newRemoteManager(t, s, "guest_e2e")

	require.NoError(t, mgr.Send(context.Background(), "Hello"))
	mgr.Wait()

	conv := mgr.ActiveConversation()
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "Hi there", conv.Messages[2].Text)
	assert.Equal(t, "q1", conv.Messages[2].AnswerID.String())

	// The debounced sync pushes the snapshot through the HTTP gateway into
	// the repository.
	require.Eventually(t, func() bool {
		stored := s.repo.storedConversations("guest_e2e")
		return len(stored) > 0
	}, 3*time.Second, 25*time.Millisecond)

	stored := s.repo.storedConversations("guest_e2e")
	require.Contains(t, stored, conv.ID)
	assert.Equal(t, "Hello", stored[conv.ID].Title)
	require.Len(t, stored[conv.ID].Messages, 3)

	// A second session for the same user restores the persisted state.
	again := newRemoteManager(t, s, "guest_e2e")
	restored := again.ActiveConversation()
	assert.Equal(t, conv.ID, restored.ID)
	assert.Equal(t, "Hello", restored.Title)
}

func TestEndToEnd_FeedbackReachesRepository(t *testing.T) {
	s := newStack(t)
	mgr := newRemoteManager(t, s, "guest_fb")

	require.NoError(t, mgr.Send(context.Background(), "Hello"))
	mgr.Wait()

	mgr.SubmitFeedback("q1", model.RatingNegative)
	mgr.Wait()

	entries := s.repo.feedbackEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "q1", entries[0].AnswerID)
	assert.Equal(t, model.RatingNegative, entries[0].Rating)
	assert.Equal(t, "guest_fb", entries[0].UserID)
}

func TestEndToEnd_DeleteCascades(t *testing.T) {
	s := newStack(t)
	mgr := newRemoteManager(t, s, "guest_del")

	require.NoError(t, mgr.Send(context.Background(), "Hello"))
	mgr.Wait()
	convID := mgr.ActiveConversation().ID

	mgr.SubmitFeedback("q1", model.RatingPositive)
	mgr.Wait()
	require.Len(t, s.repo.feedbackEntries(), 1)

	require.True(t, mgr.DeleteConversation(convID))
	mgr.Wait()

	assert.NotContains(t, s.repo.storedConversations("guest_del"), convID)
	assert.Empty(t, s.repo.feedbackEntries())
}

func TestEndToEnd_GuestRegistration(t *testing.T) {
	s := newStack(t)
	_ = newRemoteManager(t, s, "guest_reg")

	require.Eventually(t, func() bool {
		s.repo.mu.Lock()
		defer s.repo.mu.Unlock()
		_, ok := s.repo.guests["guest_reg"]
		return ok
	}, 3*time.Second, 25*time.Millisecond)
}

func TestEndToEnd_IncognitoNeverPersisted(t *testing.T) {
	s := newStack(t)
	mgr := newRemoteManager(t, s, "guest_inc")

	require.NoError(t, mgr.Send(context.Background(), "public question"))
	mgr.Wait()
	publicID := mgr.ActiveConversation().ID

	mgr.SetIncognito(context.Background(), true)
	require.NoError(t, mgr.Send(context.Background(), "private question"))
	mgr.Wait()
	secretID := mgr.ActiveConversation().ID

	mgr.SetIncognito(context.Background(), false)
	mgr.Close()

	stored := s.repo.storedConversations("guest_inc")
	assert.Contains(t, stored, publicID)
	assert.NotContains(t, stored, secretID)
}
