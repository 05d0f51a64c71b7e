package crypto

import (
	"sync"
	"time"
)

// DefaultKeyTTL is the idle lifetime of an unlocked session key.
const DefaultKeyTTL = 30 * time.Minute

type keyEntry struct {
	userID  string
	key     []byte
	expires time.Time
}

// Keyring holds unlocked journal keys in memory, per session. Each Get
// extends the entry's lifetime. Keys are zeroed when removed.
type Keyring struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]keyEntry
}

// NewKeyring builds a keyring; a non-positive ttl uses DefaultKeyTTL and a
// nil clock uses time.Now.
func NewKeyring(ttl time.Duration, clock func() time.Time) *Keyring {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Keyring{ttl: ttl, clock: clock, entries: map[string]keyEntry{}}
}

// Put stores a copy of key for sessionID, replacing any previous key.
func (k *Keyring) Put(sessionID, userID string, key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.removeLocked(sessionID)
	k.entries[sessionID] = keyEntry{
		userID:  userID,
		key:     append([]byte(nil), key...),
		expires: k.clock().Add(k.ttl),
	}
}

// Get returns a copy of the session's key when it is held by userID and
// not expired.
func (k *Keyring) Get(sessionID, userID string) ([]byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry, ok := k.entries[sessionID]
	if !ok {
		return nil, false
	}
	now := k.clock()
	if !now.Before(entry.expires) {
		k.removeLocked(sessionID)
		return nil, false
	}
	if entry.userID != userID {
		return nil, false
	}
	entry.expires = now.Add(k.ttl)
	k.entries[sessionID] = entry
	return append([]byte(nil), entry.key...), true
}

// Delete removes the session's key.
func (k *Keyring) Delete(sessionID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.removeLocked(sessionID)
}

// DeleteUser removes every key held for userID except keepSession.
func (k *Keyring) DeleteUser(userID, keepSession string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for sessionID, entry := range k.entries {
		if entry.userID == userID && sessionID != keepSession {
			k.removeLocked(sessionID)
		}
	}
}

// Sweep removes expired keys and returns how many were removed.
func (k *Keyring) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.clock()
	removed := 0
	for sessionID, entry := range k.entries {
		if !now.Before(entry.expires) {
			k.removeLocked(sessionID)
			removed++
		}
	}
	return removed
}

// Len returns the number of held keys.
func (k *Keyring) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *Keyring) removeLocked(sessionID string) {
	entry, ok := k.entries[sessionID]
	if !ok {
		return
	}
	Zero(entry.key)
	delete(k.entries, sessionID)
}
