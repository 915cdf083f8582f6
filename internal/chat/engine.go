// Package chat implements the conversation engine: the currently-open session
// cursor, message ordering, and the async round trip to the reply generator.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/learnspace-ai/learnspace/internal/ai"
	"github.com/learnspace-ai/learnspace/internal/directory"
	"github.com/learnspace-ai/learnspace/internal/domain"
)

var (
	// ErrBlankMessage rejects messages that are empty after trimming.
	ErrBlankMessage = errors.New("message text is blank")

	// ErrReplyPending rejects a send while a previous reply is still in flight.
	ErrReplyPending = errors.New("a reply is still pending")
)

// Shown for a reply when the generator call itself failed.
const generatorErrorText = "Something went wrong while generating a response. Please try again."

// noActiveSession is the cursor sentinel for "no session open".
const noActiveSession int64 = 0

// ReplyEvent describes a settled assistant reply, delivered to the optional
// reply hook for push notification.
type ReplyEvent struct {
	SessionID int64          `json:"session_id"`
	Message   domain.Message `json:"message"`
}

// SendReceipt is returned by SendMessage once the user message is durable.
// Reply yields the settled assistant message and is then closed; it is closed
// without a value if the originating session was deleted mid-flight.
type SendReceipt struct {
	SessionID   int64
	UserMessage domain.Message
	Reply       <-chan domain.Message
}

// Engine owns the conversation state for one logged-in user: the active
// session cursor, the visible message list, and the single-flight guard on
// generator calls. All methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	dir     *directory.Directory
	gen     ai.Generator
	cursor  int64
	visible []domain.Message
	pending bool
	lastID  int64
	now     func() time.Time
	onReply func(ReplyEvent)
}

// NewEngine creates an engine over an opened directory.
func NewEngine(dir *directory.Directory, gen ai.Generator) *Engine {
	return &Engine{
		dir: dir,
		gen: gen,
		now: time.Now,
	}
}

// SetReplyHook registers a callback invoked after each assistant reply is
// appended and persisted. Dropped replies do not fire the hook.
func (e *Engine) SetReplyHook(fn func(ReplyEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReply = fn
}

// StartNewChat clears the cursor and the visible message list. No session is
// allocated until the first message of the new conversation arrives.
func (e *Engine) StartNewChat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = noActiveSession
	e.visible = nil
}

// SelectSession opens an existing session: the cursor moves and the visible
// list becomes that session's messages. An unknown id is a silent no-op.
func (e *Engine) SelectSession(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session := e.dir.Record().SessionByID(id)
	if session == nil {
		return
	}
	e.cursor = id
	e.visible = session.Clone().Messages
}

// ActiveSession returns the open session id, or 0 when no session is active.
func (e *Engine) ActiveSession() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Pending reports whether a generator call is in flight.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Messages returns a snapshot of the visible message list.
func (e *Engine) Messages() []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Message, len(e.visible))
	copy(out, e.visible)
	return out
}

// Sessions returns a snapshot of all sessions, most recently touched first.
func (e *Engine) Sessions() []domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir.ListSessions()
}

// CompleteQuestionnaire records the questionnaire answers on the profile.
func (e *Engine) CompleteQuestionnaire(ctx context.Context, answers map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir.CompleteQuestionnaire(ctx, answers)
}

// Record returns the user record snapshot fields the presentation layer needs.
func (e *Engine) Record() *domain.UserRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir.Record()
}

// SendMessage appends a user message to the active session, creating the
// session lazily on the first message, persists it, and issues exactly one
// async generator call. The user message is durable before the call starts;
// the reply is appended to the originating session even if the cursor has
// moved by the time it settles.
func (e *Engine) SendMessage(ctx context.Context, text string) (*SendReceipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrBlankMessage
	}

	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		return nil, ErrReplyPending
	}

	userMsg := domain.Message{
		ID:        e.nextID(),
		Text:      text,
		IsUser:    true,
		Timestamp: e.now(),
	}

	var session domain.Session
	if e.cursor == noActiveSession {
		// A session is born on the first message, not on "new chat".
		session = domain.Session{
			ID:        e.nextID(),
			Title:     domain.DeriveTitle(text),
			CreatedAt: userMsg.Timestamp,
		}
		e.cursor = session.ID
	} else {
		session = e.dir.Record().SessionByID(e.cursor).Clone()
	}

	// History prior to the new user message, snapshotted for the generator.
	history := make([]domain.Message, len(session.Messages))
	copy(history, session.Messages)

	session.Append(userMsg)
	e.visible = session.Clone().Messages
	if err := e.dir.UpsertSession(ctx, session); err != nil {
		// The in-memory append stands; durable state lags until a retry.
		// The generator is not called: the guarantee is that the user
		// message is durable before the round trip begins.
		e.mu.Unlock()
		return nil, err
	}

	answers := make(map[string]string, len(e.dir.Record().ProfileAnswers))
	for k, v := range e.dir.Record().ProfileAnswers {
		answers[k] = v
	}

	e.pending = true
	originID := e.cursor
	reply := make(chan domain.Message, 1)
	e.mu.Unlock()

	// The settlement must outlive the request that triggered it.
	go e.resolve(context.WithoutCancel(ctx), originID, text, answers, history, reply)

	return &SendReceipt{
		SessionID:   originID,
		UserMessage: userMsg,
		Reply:       reply,
	}, nil
}

func (e *Engine) resolve(ctx context.Context, originID int64, prompt string, answers map[string]string, history []domain.Message, reply chan<- domain.Message) {
	defer close(reply)

	result, err := e.gen.Generate(ctx, ai.Request{
		Prompt:         prompt,
		ProfileAnswers: answers,
		History:        history,
	})

	e.mu.Lock()
	e.pending = false

	aiMsg := domain.Message{
		ID:        e.nextID(),
		IsUser:    false,
		Timestamp: e.now(),
	}
	if err != nil {
		slog.Warn("generator call failed", "session_id", originID, "error", err)
		aiMsg.Text = generatorErrorText
		aiMsg.IsError = true
	} else {
		aiMsg.Text = result.Message
		aiMsg.IsError = !result.Success
	}

	existing := e.dir.Record().SessionByID(originID)
	if existing == nil {
		// The originating session was deleted while the reply was in flight.
		e.mu.Unlock()
		slog.Info("dropping reply for deleted session", "session_id", originID)
		return
	}

	session := existing.Clone()
	session.Append(aiMsg)
	if err := e.dir.UpsertSession(ctx, session); err != nil {
		slog.Error("failed to persist assistant reply", "session_id", originID, "error", err)
	}
	if e.cursor == originID {
		e.visible = session.Clone().Messages
	}
	hook := e.onReply
	e.mu.Unlock()

	reply <- aiMsg
	if hook != nil {
		hook(ReplyEvent{SessionID: originID, Message: aiMsg})
	}
}

// DeleteSession removes a session. Deleting an unknown id is a no-op. If the
// active session is deleted, the cursor resets and the visible list clears; a
// reply still in flight for it will be dropped when it settles.
func (e *Engine) DeleteSession(ctx context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.dir.DeleteSession(ctx, id); err != nil {
		return err
	}
	if e.cursor == id {
		e.cursor = noActiveSession
		e.visible = nil
	}
	return nil
}

// nextID returns a unix-millisecond derived id, bumped past the previous one
// so ids stay strictly increasing even within a millisecond. Callers must
// hold e.mu.
func (e *Engine) nextID() int64 {
	id := e.now().UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id
	return id
}
