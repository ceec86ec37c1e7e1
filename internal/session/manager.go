package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"askcampus/backend/internal/assistant"
	app_errors "askcampus/backend/internal/errors"
	"askcampus/backend/internal/model"
)

// ErrorAnswerText is the fixed user-facing text of the placeholder message
// appended when the answer service cannot be reached.
const ErrorAnswerText = "Could not contact backend. Check connection or try again later."

// DefaultSyncDebounce is the quiet period the sync engine waits for before
// pushing state to the remote store.
const DefaultSyncDebounce = 500 * time.Millisecond

const collaboratorTimeout = 15 * time.Second

// Config carries the per-session knobs for a Manager.
type Config struct {
	// UserID is the identity conversations are stored under. Empty mints
	// a fresh guest id.
	UserID string
	// Namespace is the initial subject-matter partition for queries.
	Namespace string
	// SyncDebounce overrides the debounce delay; zero keeps the default.
	SyncDebounce time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Manager drives one user's conversation session: it owns the Store,
// performs optimistic sends against the answer service, correlates
// feedback, partitions incognito state and schedules debounced pushes to
// the persistence collaborator.
//
// All mutations are serialized by a single mutex; the lock is never held
// across a network call. An in-flight answer carries the id of the
// conversation it was sent from and is resolved against the store's
// current key set when it completes, so replies land in their originating
// conversation (or are discarded when it is gone) no matter what the user
// did in the meantime.
type Manager struct {
	mu    sync.Mutex
	store *Store

	answers  AnswerService
	storage  ConversationStorage
	feedback FeedbackSink
	guests   GuestRegistrar

	// cache is the ephemeral feedback layer, keyed globally by answer id.
	// It is consulted before the per-conversation feedback map.
	cache map[string]model.Rating
	// pending counts in-flight sends per originating conversation id.
	pending map[string]int

	userID          string
	namespace       string
	deepSearch      bool
	initialized     bool
	guestRegistered bool

	debounce time.Duration
	timer    *time.Timer

	wg  *conc.WaitGroup
	log *slog.Logger
	now func() time.Time
}

// NewManager wires a session manager with its four collaborators.
func NewManager(cfg Config, answers AnswerService, storage ConversationStorage, feedback FeedbackSink, guests GuestRegistrar) *Manager {
	userID := cfg.UserID
	if userID == "" {
		userID = NewGuestID()
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = assistant.DefaultNamespace
	}
	debounce := cfg.SyncDebounce
	if debounce <= 0 {
		debounce = DefaultSyncDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     NewStore(userID),
		answers:   answers,
		storage:   storage,
		feedback:  feedback,
		guests:    guests,
		cache:     make(map[string]model.Rating),
		pending:   make(map[string]int),
		userID:    userID,
		namespace: namespace,
		debounce:  debounce,
		wg:        conc.NewWaitGroup(),
		log:       logger,
		now:       time.Now,
	}
}

// UserID returns the identity this session stores conversations under.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Init restores persisted state and marks the session ready. Remote
// failures are logged and treated as "no data": the store keeps its default
// conversation. Sync pushes are suppressed until Init has run.
func (m *Manager) Init(ctx context.Context) {
	m.mu.Lock()
	skipLoad := m.store.PrivacyMode()
	m.mu.Unlock()

	if !skipLoad {
		m.loadPersisted(ctx)
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	m.registerGuestOnce()
}

func (m *Manager) loadPersisted(ctx context.Context) {
	convs, err := m.storage.LoadConversations(ctx, m.userID)
	if err != nil {
		m.log.Warn("could not load conversations, starting fresh", "user_id", m.userID, "error", err)
		return
	}
	if len(convs) == 0 {
		return
	}
	activeID, err := m.storage.LoadActiveID(ctx, m.userID)
	if err != nil {
		m.log.Warn("could not load active conversation id", "user_id", m.userID, "error", err)
		activeID = ""
	}

	m.mu.Lock()
	m.store.Replace(convs, activeID)
	m.mu.Unlock()
}

func (m *Manager) registerGuestOnce() {
	m.mu.Lock()
	if m.guestRegistered || !IsGuestID(m.userID) {
		m.mu.Unlock()
		return
	}
	m.guestRegistered = true
	guestID := m.userID
	m.mu.Unlock()

	m.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()
		if err := m.guests.RegisterGuest(ctx, guestID, m.now()); err != nil {
			m.log.Warn("guest registration failed", "guest_id", guestID, "error", err)
		}
	})
}

// Send runs the optimistic send protocol: the user message is appended to
// the active conversation synchronously, then the answer request proceeds
// in the background and reconciles into the conversation it was sent from.
// Blank input is rejected; everything past that point degrades to an
// in-conversation error message instead of an error return.
func (m *Manager) Send(ctx context.Context, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return fmt.Errorf("%w: empty query", app_errors.ErrValidation)
	}

	m.mu.Lock()
	conv := m.store.Active()
	originID := conv.ID
	namespace := m.namespace
	searchMode := assistant.SearchModeDirect
	if m.deepSearch {
		searchMode = assistant.SearchModeDeep
	}
	userID := m.userID

	m.store.Append(originID, model.Message{
		Sender:    model.SenderUser,
		Text:      query,
		Timestamp: m.now(),
	})
	m.pending[originID]++
	m.scheduleSyncLocked()
	m.mu.Unlock()

	// The request must outlive the caller: switching conversations or
	// returning from an HTTP handler does not cancel an in-flight answer.
	reqCtx := context.WithoutCancel(ctx)
	m.wg.Go(func() {
		resp, err := m.answers.Query(reqCtx, &assistant.QueryRequest{
			Query:      query,
			Namespace:  namespace,
			SearchMode: searchMode,
			UserID:     userID,
		})
		m.resolveAnswer(originID, namespace, searchMode, resp, err)
	})
	return nil
}

// resolveAnswer lands the terminal state of one send in its originating
// conversation. The conversation may have been deleted while the request
// was in flight; the append is then discarded rather than resurrecting it.
func (m *Manager) resolveAnswer(originID, namespace, searchMode string, resp *assistant.QueryResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending[originID] > 1 {
		m.pending[originID]--
	} else {
		delete(m.pending, originID)
	}

	var msg model.Message
	if err != nil {
		m.log.Warn("answer request failed", "conversation_id", originID, "error", err)
		msg = model.Message{
			Sender:    model.SenderBot,
			Text:      ErrorAnswerText,
			Timestamp: m.now(),
			AnswerID:  model.ErrorKey(m.now()),
			ActiveTab: model.TabAnswer,
		}
	} else {
		msg = model.Message{
			Sender:            model.SenderBot,
			Text:              resp.Answer,
			Timestamp:         m.now(),
			AnswerID:          model.RealKey(resp.QueryID),
			Sources:           resp.Sources.Join(),
			SearchMode:        resp.SearchMode,
			ResponseNamespace: namespace,
			ActiveTab:         model.TabAnswer,
		}
	}

	if !m.store.Append(originID, msg) {
		m.log.Debug("discarding answer for deleted conversation", "conversation_id", originID)
		return
	}
	m.scheduleSyncLocked()
}

// AwaitingAnswer reports whether the given conversation has a send in
// flight. The loading indicator clears only once the terminal state of
// every send against that conversation has been reached.
func (m *Manager) AwaitingAnswer(conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[conversationID] > 0
}

// SubmitFeedback records a rating against a server-issued answer id in the
// active conversation. Invalid targets are logged and ignored; the local
// write is never rolled back when the remote call fails.
func (m *Manager) SubmitFeedback(answerID string, rating model.Rating) {
	m.submitFeedback(model.ParseAnswerKey(answerID), rating)
}

// SubmitFeedbackAt resolves a message index within the active conversation
// to its answer id and records the rating against it.
func (m *Manager) SubmitFeedbackAt(index int, rating model.Rating) {
	m.mu.Lock()
	conv := m.store.Active()
	if index < 0 || index >= len(conv.Messages) {
		m.mu.Unlock()
		m.log.Warn("feedback target index out of range", "index", index, "conversation_id", conv.ID)
		return
	}
	key := conv.Messages[index].AnswerID
	m.mu.Unlock()

	m.submitFeedback(key, rating)
}

func (m *Manager) submitFeedback(key model.AnswerKey, rating model.Rating) {
	if !key.FeedbackEligible() {
		m.log.Warn("feedback target is not correlatable, ignoring", "answer_id", key.String())
		return
	}

	m.mu.Lock()
	conv := m.store.Active()
	// Ephemeral cache first: it drives the UI immediately. The embedded
	// map is the durable truth and rides along with the next sync push.
	m.cache[key.String()] = rating
	if conv.Feedback == nil {
		conv.Feedback = map[string]model.Rating{}
	}
	conv.Feedback[key.String()] = rating
	incognito := conv.Incognito
	entry := model.FeedbackEntry{
		AnswerID:       key.String(),
		Rating:         rating,
		UserID:         m.userID,
		ConversationID: conv.ID,
		Timestamp:      m.now(),
	}
	m.scheduleSyncLocked()
	m.mu.Unlock()

	if incognito {
		// Nothing about an incognito conversation ever leaves the process.
		return
	}
	m.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()
		if err := m.feedback.Submit(ctx, entry); err != nil {
			m.log.Warn("feedback submission failed, keeping local state", "answer_id", entry.AnswerID, "error", err)
		}
	})
}

// FeedbackFor reads the rating for an answer id: the ephemeral cache wins,
// the active conversation's embedded map is the fallback (it covers data
// loaded fresh from the remote store), and absence is RatingNone.
func (m *Manager) FeedbackFor(answerID string) model.Rating {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rating, ok := m.cache[answerID]; ok {
		return rating
	}
	conv := m.store.Active()
	if rating, ok := conv.Feedback[answerID]; ok {
		return rating
	}
	return model.RatingNone
}

// NewChat starts a fresh conversation in the current privacy mode and
// makes it active.
func (m *Manager) NewChat() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.store.Create(m.store.PrivacyMode())
	m.scheduleSyncLocked()
	return id
}

// Select switches the active conversation.
func (m *Manager) Select(conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.store.SetActive(conversationID) {
		return false
	}
	m.scheduleSyncLocked()
	return true
}

// DeleteConversation removes a conversation locally and, for persisted
// conversations, asks the storage collaborator to delete it remotely along
// with its feedback rows. The local delete proceeds regardless of the
// remote outcome.
func (m *Manager) DeleteConversation(conversationID string) bool {
	m.mu.Lock()
	conv, ok := m.store.Get(conversationID)
	if !ok {
		m.mu.Unlock()
		return false
	}
	incognito := conv.Incognito
	m.store.Delete(conversationID)
	m.scheduleSyncLocked()
	userID := m.userID
	m.mu.Unlock()

	if !incognito {
		m.wg.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
			defer cancel()
			if err := m.storage.DeleteConversation(ctx, userID, conversationID); err != nil {
				m.log.Warn("remote conversation delete failed", "conversation_id", conversationID, "error", err)
			}
		})
	}
	return true
}

// SetIncognito toggles privacy mode. Entering always starts a fresh
// incognito conversation. Leaving drops every incognito conversation,
// repairs the active id and re-loads the authoritative persisted set.
func (m *Manager) SetIncognito(ctx context.Context, on bool) {
	m.mu.Lock()
	if on == m.store.PrivacyMode() {
		m.mu.Unlock()
		return
	}
	if on {
		m.stopTimerLocked()
		m.store.SetPrivacyMode(true)
		m.store.Create(true)
		m.mu.Unlock()
		return
	}
	m.store.SetPrivacyMode(false)
	m.store.DropIncognito()
	m.mu.Unlock()

	m.loadPersisted(ctx)
}

// Incognito reports the current privacy mode.
func (m *Manager) Incognito() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.PrivacyMode()
}

// SetNamespace selects the subject-matter partition for future queries.
func (m *Manager) SetNamespace(namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if namespace == "" {
		namespace = assistant.DefaultNamespace
	}
	m.namespace = namespace
}

// Namespace returns the partition in effect for the next query.
func (m *Manager) Namespace() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.namespace
}

// SetDeepSearch toggles the extended search strategy for future queries.
func (m *Manager) SetDeepSearch(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deepSearch = on
}

// Groups lists the visible conversations partitioned by recency.
func (m *Manager) Groups() model.Groups {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneGroups(m.store.Groups(m.now()))
}

// ActiveConversation returns a copy of the active conversation.
func (m *Manager) ActiveConversation() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Active().Clone()
}

// Reset tears the session down to a pristine state with a fresh guest
// identity, as on logout. Nothing is pushed remotely.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.userID = NewGuestID()
	m.store = NewStore(m.userID)
	m.cache = make(map[string]model.Rating)
	m.pending = make(map[string]int)
	m.deepSearch = false
	m.guestRegistered = false
}

// Wait blocks until every in-flight collaborator call has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close drains in-flight work and performs a final synchronous push so no
// debounced state is lost on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopTimerLocked()
	m.mu.Unlock()
	m.wg.Wait()
	m.flush()
}

func cloneGroups(g model.Groups) model.Groups {
	out := model.Groups{
		Today:   make([]*model.Conversation, 0, len(g.Today)),
		Earlier: make([]*model.Conversation, 0, len(g.Earlier)),
	}
	for _, conv := range g.Today {
		out.Today = append(out.Today, conv.Clone())
	}
	for _, conv := range g.Earlier {
		out.Earlier = append(out.Earlier, conv.Clone())
	}
	return out
}
