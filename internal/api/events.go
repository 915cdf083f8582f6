package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/learnspace-ai/learnspace/internal/chat"
)

// hub fans settled assistant replies out to each user's open websockets. A
// reply for a session the user is no longer viewing still arrives here; the
// client decides whether it belongs to the visible list.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[chan chat.ReplyEvent]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[chan chat.ReplyEvent]struct{})}
}

func (h *hub) subscribe(username string) chan chat.ReplyEvent {
	ch := make(chan chat.ReplyEvent, 8)
	h.mu.Lock()
	if h.subs[username] == nil {
		h.subs[username] = make(map[chan chat.ReplyEvent]struct{})
	}
	h.subs[username][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(username string, ch chan chat.ReplyEvent) {
	h.mu.Lock()
	if set := h.subs[username]; set != nil {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, username)
		}
	}
	h.mu.Unlock()
}

func (h *hub) publish(username string, ev chat.ReplyEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[username] {
		select {
		case ch <- ev:
		default:
			// Slow consumer; the reply is already persisted, drop the push.
		}
	}
}

// handleChatSocket streams assistant replies to the client as they settle.
func (h *Handler) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	us, ok := h.session(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "not logged in")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "username", us.username, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("websocket close", "error", closeErr)
		}
	}()

	ch := h.hub.subscribe(us.username)
	defer h.hub.unsubscribe(us.username, ch)

	// The client never sends application data; CloseRead surfaces disconnects.
	ctx := ws.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			if err := wsjson.Write(ctx, ws, ev); err != nil {
				slog.Debug("websocket write failed", "username", us.username, "error", err)
				return
			}
		}
	}
}
