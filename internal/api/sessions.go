package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/learnspace-ai/learnspace/internal/chat"
)

const (
	sessionCookieName = "learnspace_session"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// userSession is one logged-in browser session: a token bound to a username
// and its conversation engine.
type userSession struct {
	username string
	engine   *chat.Engine
}

// sessionManager tracks logged-in sessions by opaque token.
type sessionManager struct {
	mu      sync.Mutex
	byToken map[string]*userSession
}

func newSessionManager() *sessionManager {
	return &sessionManager{byToken: make(map[string]*userSession)}
}

func (m *sessionManager) create(username string, engine *chat.Engine) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	m.mu.Lock()
	m.byToken[token] = &userSession{username: username, engine: engine}
	m.mu.Unlock()
	return token, nil
}

func (m *sessionManager) get(token string) (*userSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	us, ok := m.byToken[token]
	return us, ok
}

func (m *sessionManager) drop(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byToken, token)
}

// session resolves the request's cookie to a logged-in session.
func (h *Handler) session(r *http.Request) (*userSession, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return h.sessions.get(c.Value)
}

// setSessionCookie issues the session cookie for a token.
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		Expires:  time.Now().Add(sessionMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !h.isDev,
	})
}

// clearSessionCookie expires the session cookie.
func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !h.isDev,
	})
}
