package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Storage keys, shared with web/script.js.
const (
	VisitorKey = "sitepulse_visitor_id"
	SessionKey = "sitepulse_session_id"
)

const (
	VisitorTTL = 365 * 24 * time.Hour
	SessionTTL = 30 * time.Minute
)

// Identity hands out the pseudonymous visitor id and the sliding session id.
type Identity struct {
	mu    sync.Mutex
	store Storage
	newID func() string
}

func NewIdentity(store Storage) *Identity {
	return &Identity{store: store, newID: uuid.NewString}
}

// VisitorID returns the stored visitor id, minting one if none is stored.
func (i *Identity) VisitorID() string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if id, ok := i.store.Get(VisitorKey); ok && id != "" {
		return id
	}
	id := i.newID()
	i.store.Set(VisitorKey, id, VisitorTTL)
	return id
}

// SessionID returns the live session id or starts a new "s"-prefixed one.
func (i *Identity) SessionID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sessionID()
}

func (i *Identity) sessionID() string {
	if id, ok := i.store.Get(SessionKey); ok && id != "" {
		return id
	}
	id := "s" + i.newID()
	i.store.Set(SessionKey, id, SessionTTL)
	return id
}

// RefreshSession restarts the 30 minute inactivity window.
func (i *Identity) RefreshSession() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.store.Set(SessionKey, i.sessionID(), SessionTTL)
}
