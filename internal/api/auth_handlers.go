package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/learnspace-ai/learnspace/internal/auth"
	"github.com/learnspace-ai/learnspace/internal/domain"
)

// userResponse is the public view of a user record. The credential secret
// never leaves the server.
type userResponse struct {
	Username              string            `json:"username"`
	DisplayName           string            `json:"display_name"`
	CreatedAt             time.Time         `json:"created_at"`
	QuestionnaireComplete bool              `json:"questionnaire_complete"`
	ProfileAnswers        map[string]string `json:"profile_answers"`
}

func toUserResponse(record *domain.UserRecord) userResponse {
	return userResponse{
		Username:              record.Username,
		DisplayName:           record.DisplayName,
		CreatedAt:             record.CreatedAt,
		QuestionnaireComplete: record.QuestionnaireComplete,
		ProfileAnswers:        record.ProfileAnswers,
	}
}

type credentialsRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.gate.SignUp(r.Context(), req.Username, req.Password, req.DisplayName)
	switch {
	case errors.Is(err, auth.ErrMissingField):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		Error(w, http.StatusConflict, "username already exists, please choose another")
		return
	case err != nil:
		slog.Error("signup failed", "username", req.Username, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if !h.startSession(w, r, record.Username) {
		return
	}
	JSON(w, http.StatusCreated, toUserResponse(record))
}

func (h *Handler) handleLogIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.gate.LogIn(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingField):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrWrongPassword):
		Error(w, http.StatusUnauthorized, "invalid username or password")
		return
	case err != nil:
		slog.Error("login failed", "username", req.Username, "error", err)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	if !h.startSession(w, r, record.Username) {
		return
	}
	JSON(w, http.StatusOK, toUserResponse(record))
}

func (h *Handler) handleLogOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		h.sessions.drop(c.Value)
	}
	if err := h.gate.LogOut(r.Context()); err != nil {
		slog.Warn("failed to clear current user pointer", "error", err)
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe resolves the logged-in user, falling back to the persisted
// current-user pointer so a restarted client resumes its login.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if us, ok := h.session(r); ok {
		JSON(w, http.StatusOK, toUserResponse(us.engine.Record()))
		return
	}

	record, err := h.gate.Current(r.Context())
	if err != nil {
		slog.Error("failed to resolve current user", "error", err)
		Error(w, http.StatusInternalServerError, "failed to resolve current user")
		return
	}
	if record == nil {
		Error(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if !h.startSession(w, r, record.Username) {
		return
	}
	JSON(w, http.StatusOK, toUserResponse(record))
}

// startSession opens an engine for the user and issues the session cookie.
// Writes an error response and returns false on failure.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, username string) bool {
	engine, err := h.openEngine(r, username)
	if err != nil {
		slog.Error("failed to open user session", "username", username, "error", err)
		Error(w, http.StatusInternalServerError, "failed to open user session")
		return false
	}
	token, err := h.sessions.create(username, engine)
	if err != nil {
		slog.Error("failed to create session token", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return false
	}
	h.setSessionCookie(w, token)
	return true
}
