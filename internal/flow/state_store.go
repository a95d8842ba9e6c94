// Package flow provides the in-memory conversation state store.
package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
)

// DefaultIdleTimeout is how long an untouched draft survives before being
// discarded. A draft abandoned mid-flow must not trap the user forever.
const DefaultIdleTimeout = 30 * time.Minute

// janitorInterval is how often expired drafts are swept.
const janitorInterval = time.Minute

// InMemoryStateStore implements StateStore with a mutex-guarded map. State is
// ephemeral: nothing survives a restart.
type InMemoryStateStore struct {
	mu          sync.Mutex
	states      map[string]models.ConversationState
	userLocks   map[string]*sync.Mutex
	idleTimeout time.Duration
	done        chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewInMemoryStateStore creates a state store whose drafts expire after
// idleTimeout without activity. A non-positive timeout disables expiry.
func NewInMemoryStateStore(idleTimeout time.Duration) *InMemoryStateStore {
	slog.Debug("Creating InMemoryStateStore", "idleTimeout", idleTimeout)
	s := &InMemoryStateStore{
		states:      make(map[string]models.ConversationState),
		userLocks:   make(map[string]*sync.Mutex),
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
		now:         time.Now,
	}
	if idleTimeout > 0 {
		go s.janitor()
	}
	return s
}

// Get retrieves the current state for a user. Expired drafts are treated as
// absent and removed.
func (s *InMemoryStateStore) Get(userID string) (models.ConversationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		return models.ConversationState{Kind: models.FlowKindNone}, false
	}
	if s.expired(state) {
		delete(s.states, userID)
		slog.Info("InMemoryStateStore.Get: expired draft discarded", "userID", userID, "kind", state.Kind)
		return models.ConversationState{Kind: models.FlowKindNone}, false
	}
	return state, true
}

// Set replaces the user's state. Starting a new flow fully replaces any prior
// draft.
func (s *InMemoryStateStore) Set(userID string, state models.ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = state
	slog.Debug("InMemoryStateStore.Set: state stored", "userID", userID, "kind", state.Kind)
}

// Clear removes the user's state.
func (s *InMemoryStateStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	slog.Debug("InMemoryStateStore.Clear: state removed", "userID", userID)
}

// WithUser serializes state mutations per user id. The transport may deliver
// events for the same user concurrently; flows assume they never interleave.
func (s *InMemoryStateStore) WithUser(userID string, fn func()) {
	s.mu.Lock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}

// Stop ends the expiry janitor.
func (s *InMemoryStateStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		slog.Info("InMemoryStateStore stopped")
	})
}

func (s *InMemoryStateStore) expired(state models.ConversationState) bool {
	if s.idleTimeout <= 0 {
		return false
	}
	touched := state.Touched()
	if touched.IsZero() {
		return false
	}
	return s.now().Sub(touched) > s.idleTimeout
}

func (s *InMemoryStateStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryStateStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, state := range s.states {
		if s.expired(state) {
			delete(s.states, userID)
			slog.Info("InMemoryStateStore.sweep: expired draft discarded", "userID", userID, "kind", state.Kind)
		}
	}
}
