package whatsapp

import (
	"sync"

	"github.com/mamadbah2/pondwatch/pkg/clients/anthropic"
)

// DefaultMaxHistory is how many messages of a conversation are replayed to
// the assistant.
const DefaultMaxHistory = 20

// SessionManager keeps each farmer's recent conversation with the assistant.
type SessionManager struct {
	sessions   map[string][]anthropic.Message
	maxHistory int
	mu         sync.RWMutex
}

// NewSessionManager creates a new session manager. maxHistory <= 0 uses
// DefaultMaxHistory.
func NewSessionManager(maxHistory int) *SessionManager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &SessionManager{
		sessions:   make(map[string][]anthropic.Message),
		maxHistory: maxHistory,
	}
}

// History returns a copy of the user's conversation.
func (sm *SessionManager) History(userID string) []anthropic.Message {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return append([]anthropic.Message(nil), sm.sessions[userID]...)
}

// Append records new turns and drops the oldest beyond the cap. The kept
// history always starts with a user turn.
func (sm *SessionManager) Append(userID string, msgs ...anthropic.Message) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	history := append(sm.sessions[userID], msgs...)
	if len(history) > sm.maxHistory {
		history = history[len(history)-sm.maxHistory:]
	}
	for len(history) > 0 && history[0].Role != "user" {
		history = history[1:]
	}
	sm.sessions[userID] = history
}

// ClearSession removes a user's session.
func (sm *SessionManager) ClearSession(userID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, userID)
}
