// internal/session/store.go
package session

import (
	"context"
	"hash/fnv"
	"sync"

	"loan-desk/internal/models"
)

// ==========================================
// SESSION STORE INTERFACE
// ==========================================

// Store persists application records keyed by session id and provides
// per-session mutual exclusion. Callers must hold the session lock for
// the duration of a turn so steps of the same session never interleave;
// independent sessions proceed concurrently.
type Store interface {
	// Create persists a new record. Overwrites any record with the
	// same session id.
	Create(ctx context.Context, rec *models.ApplicationRecord) error

	// Get returns a copy of the record for the session, or a
	// SESSION_NOT_FOUND error.
	Get(ctx context.Context, sessionID string) (*models.ApplicationRecord, error)

	// Replace commits an updated record for an existing session.
	Replace(ctx context.Context, rec *models.ApplicationRecord) error

	// Lock and Unlock bracket a turn for one session.
	Lock(sessionID string)
	Unlock(sessionID string)
}

// ==========================================
// PER-KEY LOCKING
// ==========================================

const lockStripes = 64

// keyLocker hashes session ids onto a fixed set of mutex stripes so
// distinct sessions almost never contend while the lock table stays
// bounded regardless of session count.
type keyLocker struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocker) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.stripes[h.Sum32()%lockStripes]
}

func (l *keyLocker) Lock(key string)   { l.stripe(key).Lock() }
func (l *keyLocker) Unlock(key string) { l.stripe(key).Unlock() }
