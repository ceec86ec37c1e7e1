package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askcampus/backend/internal/api"
	"askcampus/backend/internal/assistant"
	"askcampus/backend/internal/model"
	"askcampus/backend/internal/session"
)

// The gateway fakes double as session collaborators: they implement the
// same storage, feedback and guest contracts.
func setupSessionHandler(t *testing.T) (*api.SessionHandler, *session.Hub, *gatewayFixture) {
	t.Helper()
	f := setupGatewayHandler(t)

	hub := session.NewHub(func(userID string) *session.Manager {
		return session.NewManager(session.Config{
			UserID:       userID,
			SyncDebounce: 10 * time.Millisecond,
		}, f.relay, f.archive, f.recorder, f.registry)
	})
	t.Cleanup(hub.Shutdown)

	return api.NewSessionHandler(hub), hub, f
}

func decodeConversation(t *testing.T, rec *httptest.ResponseRecorder) api.ConversationResponse {
	t.Helper()
	var resp api.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Conversation)
	return resp
}

func TestSessionHandler_SendMessage(t *testing.T) {
	handler, hub, _ := setupSessionHandler(t)

	body := `{"userId": "guest_a", "text": "Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/session/message", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleSendMessage(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeConversation(t, rec)

	// Optimistic append: the user message is already there even though the
	// answer may still be in flight.
	last := resp.Conversation.Messages[len(resp.Conversation.Messages)-1]
	assert.Equal(t, model.SenderUser, last.Sender)
	assert.Equal(t, "Hello", last.Text)
	assert.Equal(t, "Hello", resp.Conversation.Title)

	hub.Get(req.Context(), "guest_a").Wait()
}

func TestSessionHandler_SendMessageValidation(t *testing.T) {
	handler, _, f := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/session/message", strings.NewReader(`{"userId": "guest_a"}`))
	rec := httptest.NewRecorder()

	handler.HandleSendMessage(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.relay.last())
}

func TestSessionHandler_ActiveConversation(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session/active?userId=guest_a", nil)
	rec := httptest.NewRecorder()

	handler.HandleActiveConversation(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeConversation(t, rec)
	assert.Equal(t, model.DefaultConversationID, resp.Conversation.ID)
	assert.Equal(t, model.WelcomeText, resp.Conversation.Messages[0].Text)
	assert.False(t, resp.Awaiting)
}

func TestSessionHandler_NewSelectDelete(t *testing.T) {
	handler, hub, _ := setupSessionHandler(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	req := httptest.NewRequest(http.MethodPost, "/api/session/conversations/new?userId=guest_a", nil)
	rec := httptest.NewRecorder()
	handler.HandleNewConversation(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeConversation(t, rec).Conversation.ID

	body := `{"userId": "guest_a", "conversationId": "` + model.DefaultConversationID + `"}`
	req = httptest.NewRequest(http.MethodPost, "/api/session/conversations/select", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.HandleSelectConversation(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.DefaultConversationID, decodeConversation(t, rec).Conversation.ID)

	req = httptest.NewRequest(http.MethodDelete, "/api/session/conversations?userId=guest_a&conversationId="+created, nil)
	rec = httptest.NewRecorder()
	handler.HandleDeleteConversation(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/session/conversations?userId=guest_a&conversationId="+created, nil)
	rec = httptest.NewRecorder()
	handler.HandleDeleteConversation(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	hub.Get(ctx, "guest_a").Wait()
}

func TestSessionHandler_SelectUnknownConversation(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	body := `{"userId": "guest_a", "conversationId": "conv_missing"}`
	req := httptest.NewRequest(http.MethodPost, "/api/session/conversations/select", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleSelectConversation(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_IncognitoToggle(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	body := `{"userId": "guest_a", "enabled": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/session/incognito", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleIncognito(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeConversation(t, rec).Conversation.Incognito)

	body = `{"userId": "guest_a", "enabled": false}`
	req = httptest.NewRequest(http.MethodPost, "/api/session/incognito", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.HandleIncognito(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeConversation(t, rec).Conversation.Incognito)
}

func TestSessionHandler_Feedback(t *testing.T) {
	handler, hub, f := setupSessionHandler(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	// Produce an answer with a real query id first.
	req := httptest.NewRequest(http.MethodPost, "/api/session/message", strings.NewReader(`{"userId": "guest_a", "text": "Hello"}`))
	rec := httptest.NewRecorder()
	handler.HandleSendMessage(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	hub.Get(ctx, "guest_a").Wait()

	body := `{"userId": "guest_a", "query_id": "q1", "rating": "positive"}`
	req = httptest.NewRequest(http.MethodPost, "/api/session/feedback", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.HandleSessionFeedback(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	hub.Get(ctx, "guest_a").Wait()
	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "q1", entries[0].AnswerID)
}

func TestSessionHandler_FeedbackRejectsUnknownRating(t *testing.T) {
	handler, _, f := setupSessionHandler(t)

	body := `{"userId": "guest_a", "query_id": "q1", "rating": "meh"}`
	req := httptest.NewRequest(http.MethodPost, "/api/session/feedback", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleSessionFeedback(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.recorder.all())
}

func TestSessionHandler_Settings(t *testing.T) {
	handler, hub, f := setupSessionHandler(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	body := `{"userId": "guest_a", "namespace": "library", "deepSearch": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/session/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleSessionSettings(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/session/message", strings.NewReader(`{"userId": "guest_a", "text": "Hello"}`))
	rec = httptest.NewRecorder()
	handler.HandleSendMessage(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	hub.Get(ctx, "guest_a").Wait()

	last := f.relay.last()
	require.NotNil(t, last)
	assert.Equal(t, "library", last.Namespace)
	assert.Equal(t, assistant.SearchModeDeep, last.SearchMode)
}

func TestSessionHandler_Logout(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session/active?userId=guest_a", nil)
	rec := httptest.NewRecorder()
	handler.HandleActiveConversation(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/session/logout?userId=guest_a", nil)
	rec = httptest.NewRecorder()
	handler.HandleLogout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
