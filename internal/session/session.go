// Package session implements the session table: a linear list of active
// logins guarded by a single mutex. Lookup is a linear scan, acceptable
// because max_users bounds the number of concurrent sessions.
package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/omnifs/omnifs/internal/users"
)

// maxSessionRand bounds each half of a generated session id to a positive
// 63-bit integer.
var maxSessionRand = new(big.Int).Lsh(big.NewInt(1), 63)

// Info is a snapshot of the authenticated user bound to one session id, plus
// when the session was created.
type Info struct {
	ID        string
	User      users.Info
	CreatedAt time.Time
}

// Store is the process-wide session table. Its mutex is distinct from any
// lock the engine holds over the FS tree/bitmap/users index, because reader
// goroutines never touch engine state but a diagnostic/status endpoint may
// legitimately read the session list concurrently with the processor task.
type Store struct {
	mu       sync.Mutex
	sessions []Info
}

// NewID generates an opaque session identifier: two concatenated decimal
// renderings of random 63-bit integers, wide enough that collisions are not
// a design concern.
func NewID() (string, error) {
	a, err := rand.Int(rand.Reader, maxSessionRand)
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	b, err := rand.Int(rand.Reader, maxSessionRand)
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return fmt.Sprintf("%d%d", a, b), nil
}

// Create opens a new session for user and adds it to the table.
func (s *Store) Create(user users.Info) (Info, error) {
	id, err := NewID()
	if err != nil {
		return Info{}, err
	}
	info := Info{ID: id, User: user, CreatedAt: time.Now()}

	s.mu.Lock()
	s.sessions = append(s.sessions, info)
	s.mu.Unlock()

	return info, nil
}

// Find looks up a session by id.
func (s *Store) Find(id string) (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return Info{}, false
}

// Remove ends a session. Returns false if id was not found.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of active sessions, used by the status/metrics
// endpoints.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
