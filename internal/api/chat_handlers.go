package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/learnspace-ai/learnspace/internal/chat"
	"github.com/learnspace-ai/learnspace/internal/domain"
)

// sessionSummary is the sidebar view of a session: no message bodies.
type sessionSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sessionGroup struct {
	Label    string           `json:"label"`
	Sessions []sessionSummary `json:"sessions"`
}

func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (*userSession, bool) {
	us, ok := h.session(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "not logged in")
		return nil, false
	}
	return us, true
}

func (h *Handler) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	us, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := us.engine.CompleteQuestionnaire(r.Context(), req.Answers); err != nil {
		slog.Error("failed to save questionnaire", "username", us.username, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save questionnaire")
		return
	}
	JSON(w, http.StatusOK, toUserResponse(us.engine.Record()))
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	us, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	groups := domain.GroupByRecency(time.Now(), us.engine.Sessions())
	out := make([]sessionGroup, 0, len(groups))
	for _, g := range groups {
		summaries := make([]sessionSummary, 0, len(g.Sessions))
		for _, s := range g.Sessions {
			summaries = append(summaries, sessionSummary{
				ID:        s.ID,
				Title:     s.Title,
				CreatedAt: s.CreatedAt,
				UpdatedAt: s.UpdatedAt,
			})
		}
		out = append(out, sessionGroup{Label: g.Label, Sessions: summaries})
	}
	JSON(w, http.StatusOK, out)
}

func (h *Handler) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	us, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	us.engine.SelectSession(id)
	h.writeMessages(w, us)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	us, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := us.engine.DeleteSession(r.Context(), id); err != nil {
		slog.Error("failed to delete session", "username", us.username, "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNewChat(w http.ResponseWriter, r *http.Request) {
	us, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	us.engine.StartNewChat()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	us, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	h.writeMessages(w, us)
}

func (h *Handler) writeMessages(w http.ResponseWriter, us *userSession) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": us.engine.ActiveSession(),
		"messages":   us.engine.Messages(),
	})
}

// handleSendMessage appends the user message and returns as soon as it is
// durable. The assistant reply settles asynchronously and is pushed over the
// chat websocket.
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	us, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := us.engine.SendMessage(r.Context(), req.Text)
	switch {
	case errors.Is(err, chat.ErrBlankMessage):
		Error(w, http.StatusBadRequest, "message text cannot be blank")
		return
	case errors.Is(err, chat.ErrReplyPending):
		Error(w, http.StatusConflict, "a reply is still pending")
		return
	case err != nil:
		slog.Error("failed to send message", "username", us.username, "error", err)
		Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	JSON(w, http.StatusAccepted, map[string]interface{}{
		"session_id": receipt.SessionID,
		"message":    receipt.UserMessage,
	})
}
