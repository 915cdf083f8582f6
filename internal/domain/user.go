// Package domain contains core domain types for the LearnSpace application.
package domain

import (
	"time"
)

// UserRecord is the full persisted state for one user: profile, questionnaire
// answers, and every chat session. Sessions are kept most-recently-touched
// first; the record is always written and reloaded as a whole.
type UserRecord struct {
	Username              string            `json:"username"`
	DisplayName           string            `json:"display_name"`
	CredentialSecret      string            `json:"credential_secret"`
	CreatedAt             time.Time         `json:"created_at"`
	QuestionnaireComplete bool              `json:"questionnaire_complete"`
	ProfileAnswers        map[string]string `json:"profile_answers"`
	Sessions              []Session         `json:"sessions"`
}

// SessionByID returns a pointer into the record's session slice, or nil if no
// session carries the given id.
func (u *UserRecord) SessionByID(id int64) *Session {
	for i := range u.Sessions {
		if u.Sessions[i].ID == id {
			return &u.Sessions[i]
		}
	}
	return nil
}

// CloneSessions returns a deep copy of the record's sessions, safe to hand out
// as a snapshot while the record keeps being mutated.
func (u *UserRecord) CloneSessions() []Session {
	if u.Sessions == nil {
		return nil
	}
	out := make([]Session, len(u.Sessions))
	for i := range u.Sessions {
		out[i] = u.Sessions[i].Clone()
	}
	return out
}
