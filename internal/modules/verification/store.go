// Package verification implements the email subscription flow: a
// pending session holding a 6-digit code that the subscriber must echo
// back before their topics enter the registry.
package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dywsy21/Cecilia/internal/models"
)

// ErrSessionNotFound is returned for unknown or already-consumed
// session tokens.
var ErrSessionNotFound = errors.New("verification: session not found")

// SessionStore keeps pending verifications for their short lifetime.
// IncrementAttempts must be atomic so concurrent verify calls cannot
// both pass the attempt cap.
type SessionStore interface {
	Create(ctx context.Context, session models.PendingVerification) error
	Get(ctx context.Context, token string) (models.PendingVerification, error)
	IncrementAttempts(ctx context.Context, token string) (int, error)
	// Update replaces the session, resetting its attempt counter.
	Update(ctx context.Context, session models.PendingVerification) error
	Delete(ctx context.Context, token string) error
	// Sweep drops expired sessions. A no-op for backends with native
	// key expiry.
	Sweep(ctx context.Context, now time.Time) int
}

// MemoryStore is the in-process fallback used when Redis is not
// configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.PendingVerification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.PendingVerification)}
}

func (m *MemoryStore) Create(ctx context.Context, session models.PendingVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := session
	m.sessions[session.Token] = &copied
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (models.PendingVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return models.PendingVerification{}, ErrSessionNotFound
	}
	return *session, nil
}

func (m *MemoryStore) IncrementAttempts(ctx context.Context, token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return 0, ErrSessionNotFound
	}
	session.Attempts++
	return session.Attempts, nil
}

func (m *MemoryStore) Update(ctx context.Context, session models.PendingVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.Token]; !ok {
		return ErrSessionNotFound
	}
	copied := session
	m.sessions[session.Token] = &copied
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *MemoryStore) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}
