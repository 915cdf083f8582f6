// Package api provides HTTP handlers for the LearnSpace API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/learnspace-ai/learnspace/internal/ai"
	"github.com/learnspace-ai/learnspace/internal/auth"
	"github.com/learnspace-ai/learnspace/internal/chat"
	"github.com/learnspace-ai/learnspace/internal/directory"
	"github.com/learnspace-ai/learnspace/internal/store"
)

// Handler wires the auth gate and per-login conversation engines to HTTP.
type Handler struct {
	repo     store.Repository
	gate     *auth.Gate
	gen      ai.Generator
	sessions *sessionManager
	hub      *hub
	isDev    bool
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, gen ai.Generator, isDev bool) *Handler {
	return &Handler{
		repo:     repo,
		gate:     auth.NewGate(repo),
		gen:      gen,
		sessions: newSessionManager(),
		hub:      newHub(),
		isDev:    isDev,
	}
}

// RegisterRoutes attaches all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.handleSignUp)
		r.Post("/login", h.handleLogIn)
		r.Post("/logout", h.handleLogOut)
		r.Get("/me", h.handleMe)
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/questionnaire", h.handleQuestionnaire)
		r.Get("/chat/sessions", h.handleListSessions)
		r.Post("/chat/sessions/{id}/select", h.handleSelectSession)
		r.Delete("/chat/sessions/{id}", h.handleDeleteSession)
		r.Post("/chat/new", h.handleNewChat)
		r.Get("/chat/messages", h.handleMessages)
		r.Post("/chat/messages", h.handleSendMessage)
	})
	r.Get("/ws/chat", h.handleChatSocket)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// openEngine builds a fresh directory and conversation engine for a login.
func (h *Handler) openEngine(r *http.Request, username string) (*chat.Engine, error) {
	dir := directory.New(h.repo)
	if err := dir.Open(r.Context(), username); err != nil {
		return nil, err
	}
	engine := chat.NewEngine(dir, h.gen)
	engine.SetReplyHook(func(ev chat.ReplyEvent) {
		h.hub.publish(username, ev)
	})
	return engine, nil
}
