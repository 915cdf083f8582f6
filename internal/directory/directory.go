// Package directory bridges the durable store and the in-memory working set
// for exactly one logged-in user.
package directory

import (
	"context"
	"fmt"

	"github.com/learnspace-ai/learnspace/internal/domain"
	"github.com/learnspace-ai/learnspace/internal/store"
)

// Directory holds one user's record in memory and persists every mutation as
// a synchronous whole-record write. Instances are created per logged-in
// session; there is no process-wide current user. A Directory is not safe for
// concurrent use on its own — the conversation engine serializes access.
type Directory struct {
	repo   store.Repository
	record *domain.UserRecord
}

// New creates a Directory backed by the given repository.
func New(repo store.Repository) *Directory {
	return &Directory{repo: repo}
}

// Open loads the record for username into memory. Returns store.ErrNotFound
// if the user does not exist.
func (d *Directory) Open(ctx context.Context, username string) error {
	record, err := d.repo.LoadUser(ctx, username)
	if err != nil {
		return fmt.Errorf("open user %q: %w", username, err)
	}
	d.record = record
	return nil
}

// Record returns the in-memory record. Callers must not retain pointers into
// it across mutations.
func (d *Directory) Record() *domain.UserRecord {
	return d.record
}

// Username returns the opened user's name, or "" before Open.
func (d *Directory) Username() string {
	if d.record == nil {
		return ""
	}
	return d.record.Username
}

// ListSessions returns a deep snapshot of the sessions, most recently touched
// or created first. It is not a live view.
func (d *Directory) ListSessions() []domain.Session {
	if d.record == nil {
		return nil
	}
	return d.record.CloneSessions()
}

// UpsertSession replaces the session with a matching id in place, or inserts
// the session at the front if it is new, then persists the whole record.
func (d *Directory) UpsertSession(ctx context.Context, session domain.Session) error {
	if d.record == nil {
		return fmt.Errorf("upsert session: no user opened")
	}

	if existing := d.record.SessionByID(session.ID); existing != nil {
		*existing = session
	} else {
		d.record.Sessions = append([]domain.Session{session}, d.record.Sessions...)
	}
	return d.save(ctx)
}

// DeleteSession removes the session with the given id. Deleting an unknown id
// is a no-op, not an error. The record is persisted either way.
func (d *Directory) DeleteSession(ctx context.Context, id int64) error {
	if d.record == nil {
		return fmt.Errorf("delete session: no user opened")
	}

	kept := d.record.Sessions[:0]
	for _, s := range d.record.Sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	d.record.Sessions = kept
	return d.save(ctx)
}

// CompleteQuestionnaire marks the questionnaire done, merges the answers into
// the profile, and persists.
func (d *Directory) CompleteQuestionnaire(ctx context.Context, answers map[string]string) error {
	if d.record == nil {
		return fmt.Errorf("complete questionnaire: no user opened")
	}

	if d.record.ProfileAnswers == nil {
		d.record.ProfileAnswers = make(map[string]string, len(answers))
	}
	for k, v := range answers {
		d.record.ProfileAnswers[k] = v
	}
	d.record.QuestionnaireComplete = true
	return d.save(ctx)
}

func (d *Directory) save(ctx context.Context) error {
	if err := d.repo.SaveUser(ctx, d.record); err != nil {
		return fmt.Errorf("persist record for %q: %w", d.record.Username, err)
	}
	return nil
}
