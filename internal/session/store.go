package session

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// store holds pending sessions. take returns ErrNoSession when nothing is
// pending and ErrStateMismatch when nothing matches; a matched session is
// removed before take returns.
type store interface {
	put(s *AuthSession) (replaced *AuthSession)
	take(state string) (*AuthSession, error)
	len() int
}

// keyedStore keeps every pending session under its state. The cache's own
// expiry only reclaims memory for abandoned attempts; expiry as seen by
// callers is decided by Manager at consume time.
type keyedStore struct {
	mu    sync.Mutex
	items *cache.Cache
}

func newKeyedStore(timeout time.Duration) *keyedStore {
	ttl, cleanup := cache.NoExpiration, time.Duration(0)
	if timeout > 0 {
		ttl, cleanup = 2*timeout, timeout
	}
	return &keyedStore{items: cache.New(ttl, cleanup)}
}

func (k *keyedStore) put(s *AuthSession) *AuthSession {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.items.SetDefault(s.State, s)
	return nil
}

func (k *keyedStore) take(state string) (*AuthSession, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if state != "" {
		if v, ok := k.items.Get(state); ok {
			k.items.Delete(state)
			return v.(*AuthSession), nil
		}
	}

	if len(k.items.Items()) == 0 {
		return nil, ErrNoSession
	}
	return nil, ErrStateMismatch
}

func (k *keyedStore) len() int {
	return len(k.items.Items())
}

// singleSlotStore keeps only the latest session. A new put replaces an
// unconsumed one: last initiation wins.
type singleSlotStore struct {
	mu      sync.Mutex
	current *AuthSession
}

func (s *singleSlotStore) put(sess *AuthSession) *AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.current
	s.current = sess
	return replaced
}

func (s *singleSlotStore) take(state string) (*AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoSession
	}
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(s.current.State)) != 1 {
		return nil, ErrStateMismatch
	}

	sess := s.current
	s.current = nil
	return sess, nil
}

func (s *singleSlotStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return 1
}
