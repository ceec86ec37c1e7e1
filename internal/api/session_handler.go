package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	app_errors "askcampus/backend/internal/errors"
	"askcampus/backend/internal/model"
	"askcampus/backend/internal/session"
)

// SessionHandler exposes the stateful session engine over HTTP. Every
// request names its user; the hub routes it to that user's in-memory
// session manager.
type SessionHandler struct {
	hub *session.Hub
}

func NewSessionHandler(hub *session.Hub) *SessionHandler {
	return &SessionHandler{hub: hub}
}

// SendMessageRequest submits one user query to the active conversation.
type SendMessageRequest struct {
	UserID string `json:"userId" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

// ConversationResponse is a snapshot of the active conversation plus the
// in-flight indicator for it.
type ConversationResponse struct {
	Conversation *model.Conversation `json:"conversation"`
	Awaiting     bool                `json:"awaiting"`
}

// SelectConversationRequest switches or deletes a conversation.
type SelectConversationRequest struct {
	UserID         string `json:"userId" validate:"required"`
	ConversationID string `json:"conversationId" validate:"required"`
}

// IncognitoRequest toggles privacy mode.
type IncognitoRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Enabled bool   `json:"enabled"`
}

// SessionFeedbackRequest rates an answer in the active conversation.
type SessionFeedbackRequest struct {
	UserID  string       `json:"userId" validate:"required"`
	QueryID string       `json:"query_id" validate:"required"`
	Rating  model.Rating `json:"rating" validate:"required,oneof=positive negative"`
}

// SessionSettingsRequest adjusts the query knobs for future sends.
type SessionSettingsRequest struct {
	UserID     string `json:"userId" validate:"required"`
	Namespace  string `json:"namespace"`
	DeepSearch *bool  `json:"deepSearch"`
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return false
	}
	if err := validateRequest(payload); err != nil {
		respondWithError(w, err)
		return false
	}
	return true
}

func (h *SessionHandler) requireUser(w http.ResponseWriter, r *http.Request) (*session.Manager, bool) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondWithError(w, fmt.Errorf("%w: userId query parameter is required", app_errors.ErrValidation))
		return nil, false
	}
	return h.hub.Get(r.Context(), userID), true
}

// HandleSendMessage appends the user message synchronously and returns the
// conversation as it stands; the answer arrives on a later poll.
func (h *SessionHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	mgr := h.hub.Get(r.Context(), req.UserID)
	if err := mgr.Send(r.Context(), req.Text); err != nil {
		respondWithError(w, err)
		return
	}

	conv := mgr.ActiveConversation()
	respondWithJSON(w, http.StatusAccepted, ConversationResponse{
		Conversation: conv,
		Awaiting:     mgr.AwaitingAnswer(conv.ID),
	})
}

// HandleActiveConversation returns the active conversation snapshot.
func (h *SessionHandler) HandleActiveConversation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	conv := mgr.ActiveConversation()
	respondWithJSON(w, http.StatusOK, ConversationResponse{
		Conversation: conv,
		Awaiting:     mgr.AwaitingAnswer(conv.ID),
	})
}

// HandleListConversations lists the visible conversations grouped by
// recency.
func (h *SessionHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, mgr.Groups())
}

// HandleNewConversation starts a fresh conversation and makes it active.
func (h *SessionHandler) HandleNewConversation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	mgr.NewChat()
	respondWithJSON(w, http.StatusCreated, ConversationResponse{Conversation: mgr.ActiveConversation()})
}

func (h *SessionHandler) HandleSelectConversation(w http.ResponseWriter, r *http.Request) {
	var req SelectConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	mgr := h.hub.Get(r.Context(), req.UserID)
	if !mgr.Select(req.ConversationID) {
		respondWithError(w, fmt.Errorf("%w: conversation %s", app_errors.ErrNotFound, req.ConversationID))
		return
	}
	respondWithJSON(w, http.StatusOK, ConversationResponse{Conversation: mgr.ActiveConversation()})
}

func (h *SessionHandler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		respondWithError(w, fmt.Errorf("%w: conversationId query parameter is required", app_errors.ErrValidation))
		return
	}
	if !mgr.DeleteConversation(conversationID) {
		respondWithError(w, fmt.Errorf("%w: conversation %s", app_errors.ErrNotFound, conversationID))
		return
	}
	respondWithJSON(w, http.StatusOK, ConversationResponse{Conversation: mgr.ActiveConversation()})
}

func (h *SessionHandler) HandleIncognito(w http.ResponseWriter, r *http.Request) {
	var req IncognitoRequest
	if !h.decode(w, r, &req) {
		return
	}

	mgr := h.hub.Get(r.Context(), req.UserID)
	mgr.SetIncognito(r.Context(), req.Enabled)
	respondWithJSON(w, http.StatusOK, ConversationResponse{Conversation: mgr.ActiveConversation()})
}

// HandleSessionFeedback records a rating through the session engine, so the
// read-after-write cache and the embedded map stay in step with the rows the
// sink receives.
func (h *SessionHandler) HandleSessionFeedback(w http.ResponseWriter, r *http.Request) {
	var req SessionFeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}

	mgr := h.hub.Get(r.Context(), req.UserID)
	mgr.SubmitFeedback(req.QueryID, req.Rating)
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *SessionHandler) HandleSessionSettings(w http.ResponseWriter, r *http.Request) {
	var req SessionSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	mgr := h.hub.Get(r.Context(), req.UserID)
	if req.Namespace != "" {
		mgr.SetNamespace(req.Namespace)
	}
	if req.DeepSearch != nil {
		mgr.SetDeepSearch(*req.DeepSearch)
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleLogout tears the session down; its guest identity is forgotten.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondWithError(w, fmt.Errorf("%w: userId query parameter is required", app_errors.ErrValidation))
		return
	}
	h.hub.Remove(userID)
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
