// Package session holds the per-client context shared by every view component:
// who the user is and which room is active.
package session

import (
	"sync"

	"github.com/gosuda/pomchat/prefs"
)

const DefaultUsername = "anonymous"

// Session is the explicit client-session context. At most one room is current.
type Session struct {
	mu       sync.RWMutex
	kv       prefs.KV
	username string
	room     string
}

// New loads the persisted username from kv. A nil kv keeps everything in memory.
func New(kv prefs.KV) *Session {
	if kv == nil {
		kv = prefs.NewMemory()
	}
	return &Session{
		kv:       kv,
		username: prefs.Lookup(kv, prefs.KeyUsername, DefaultUsername),
	}
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// SetUsername updates and persists the username.
func (s *Session) SetUsername(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(prefs.KeyUsername, name); err != nil {
		return err
	}
	s.username = name
	return nil
}

// Room returns the current room id, "" when none is joined.
func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// SwitchRoom makes id current and returns the previously current room.
func (s *Session) SwitchRoom(id string) (prev string) {
	s.mu.Lock()
	prev, s.room = s.room, id
	s.mu.Unlock()
	return prev
}

// Prefs exposes the backing store for components that persist their own keys.
func (s *Session) Prefs() prefs.KV {
	return s.kv
}
