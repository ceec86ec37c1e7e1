package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "askcampus/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures a chi router with all the application's
// routes.
func NewRouter(gateway *GatewayHandler, sessions *SessionHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Serves the auto-generated Swagger UI for API documentation.
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Liveness/readiness probe; the 200 is what matters.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Answer relay.
		r.Post("/chat", gateway.HandleChat)

		// Feedback rows.
		r.Post("/feedback", gateway.HandleFeedback)

		// Conversation snapshots and the active pointer.
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/save", gateway.HandleSaveConversations)
			r.Get("/load", gateway.HandleLoadConversations)
			r.Get("/active", gateway.HandleGetActiveConversation)
			r.Post("/active", gateway.HandleSetActiveConversation)
			r.Delete("/delete", gateway.HandleDeleteConversation)
		})

		// Guest identities.
		r.Post("/users/guest", gateway.HandleRegisterGuest)

		// Stateful session surface, one manager per user.
		r.Route("/session", func(r chi.Router) {
			r.Post("/message", sessions.HandleSendMessage)
			r.Get("/active", sessions.HandleActiveConversation)
			r.Get("/conversations", sessions.HandleListConversations)
			r.Post("/conversations/new", sessions.HandleNewConversation)
			r.Post("/conversations/select", sessions.HandleSelectConversation)
			r.Delete("/conversations", sessions.HandleDeleteConversation)
			r.Post("/incognito", sessions.HandleIncognito)
			r.Post("/feedback", sessions.HandleSessionFeedback)
			r.Post("/settings", sessions.HandleSessionSettings)
			r.Post("/logout", sessions.HandleLogout)
		})
	})

	return r
}
