package model

import (
	"time"

	"github.com/procurebot/relay/internal/nlu"
)

// UserState is the per-user conversation record.
type UserState struct {
	UserID     string      `json:"user_id"`
	Context    nlu.Context `json:"conversation_context,omitempty"`
	LastActive time.Time   `json:"last_active"`
}

func NewUserState(userID string) *UserState {
	return &UserState{UserID: userID, LastActive: time.Now()}
}

// Reset ends the current conversation thread. The record itself is kept.
func (s *UserState) Reset() {
	s.Context = nil
}

// Touch marks the user as active now.
func (s *UserState) Touch() {
	s.LastActive = time.Now()
}
