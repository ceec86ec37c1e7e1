package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"askcampus/backend/internal/assistant"
	app_errors "askcampus/backend/internal/errors"
	"askcampus/backend/internal/interfaces"
	"askcampus/backend/internal/model"
)

// GatewayHandler serves the storage-facing API: the chat relay, conversation
// snapshots, feedback rows and guest registration. This is the surface the
// cloud client (and the original web client) talks to.
type GatewayHandler struct {
	relay    interfaces.AnswerRelay
	archive  interfaces.ConversationArchive
	feedback interfaces.FeedbackRecorder
	guests   interfaces.GuestRegistry
}

func NewGatewayHandler(relay interfaces.AnswerRelay, archive interfaces.ConversationArchive, feedback interfaces.FeedbackRecorder, guests interfaces.GuestRegistry) *GatewayHandler {
	return &GatewayHandler{relay: relay, archive: archive, feedback: feedback, guests: guests}
}

// ChatRequest is the DTO for the answer relay endpoint.
type ChatRequest struct {
	Query      string `json:"query" validate:"required"`
	Namespace  string `json:"namespace"`
	SearchMode string `json:"search_mode"`
	UserID     string `json:"userId"`
}

// SaveConversationsRequest carries one user's full conversation snapshot.
type SaveConversationsRequest struct {
	UserID        string                         `json:"userId" validate:"required"`
	Conversations map[string]*model.Conversation `json:"conversations"`
}

// LoadConversationsResponse wraps the stored snapshot.
type LoadConversationsResponse struct {
	Conversations map[string]*model.Conversation `json:"conversations"`
}

// ActiveConversationRequest sets or returns the active pointer.
type ActiveConversationRequest struct {
	UserID         string `json:"userId" validate:"required"`
	ConversationID string `json:"conversationId" validate:"required"`
}

// RegisterGuestRequest registers a client-minted guest identity.
type RegisterGuestRequest struct {
	UserID    string    `json:"userId" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleChat godoc
// @Summary  Relay a query to the answer service
// @Tags     chat
// @Accept   json
// @Produce  json
// @Param    request body ChatRequest true "query"
// @Success  200 {object} assistant.QueryResponse
// @Router   /api/chat [post]
func (h *GatewayHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}

	resp, err := h.relay.Query(r.Context(), &assistant.QueryRequest{
		Query:      req.Query,
		Namespace:  req.Namespace,
		SearchMode: req.SearchMode,
		UserID:     req.UserID,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *GatewayHandler) HandleSaveConversations(w http.ResponseWriter, r *http.Request) {
	var req SaveConversationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}

	if err := h.archive.SaveConversations(r.Context(), req.UserID, req.Conversations); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *GatewayHandler) HandleLoadConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondWithError(w, fmt.Errorf("%w: userId query parameter is required", app_errors.ErrValidation))
		return
	}

	convs, err := h.archive.LoadConversations(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, LoadConversationsResponse{Conversations: convs})
}

func (h *GatewayHandler) HandleSetActiveConversation(w http.ResponseWriter, r *http.Request) {
	var req ActiveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}

	if err := h.archive.SaveActiveID(r.Context(), req.UserID, req.ConversationID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *GatewayHandler) HandleGetActiveConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondWithError(w, fmt.Errorf("%w: userId query parameter is required", app_errors.ErrValidation))
		return
	}

	id, err := h.archive.LoadActiveID(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ActiveConversationRequest{UserID: userID, ConversationID: id})
}

// HandleDeleteConversation removes the stored conversation; the archive
// cascades its feedback rows in the same call.
func (h *GatewayHandler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	conversationID := r.URL.Query().Get("conversationId")
	if userID == "" || conversationID == "" {
		respondWithError(w, fmt.Errorf("%w: userId and conversationId query parameters are required", app_errors.ErrValidation))
		return
	}

	if err := h.archive.DeleteConversation(r.Context(), userID, conversationID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleFeedback godoc
// @Summary  Record a rating for an answer
// @Tags     feedback
// @Accept   json
// @Produce  json
// @Param    request body model.FeedbackEntry true "feedback"
// @Success  201 {object} StatusResponse
// @Router   /api/feedback [post]
func (h *GatewayHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var entry model.FeedbackEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}

	if err := h.feedback.Submit(r.Context(), entry); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, StatusResponse{Status: "ok"})
}

func (h *GatewayHandler) HandleRegisterGuest(w http.ResponseWriter, r *http.Request) {
	var req RegisterGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}

	if err := h.guests.RegisterGuest(r.Context(), req.UserID, req.Timestamp); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
