package wizard

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"piktor/internal/model"
)

var ErrSessionNotFound = errors.New("wizard: session not found")

// Store keeps wizard sessions in memory, keyed per user. Sessions are
// short-lived scratch state; losing them on restart only sends the user
// back to the first step.
type Store struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
	ttl      time.Duration
}

type sessionKey struct {
	userID    string
	sessionID string
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		sessions: make(map[sessionKey]*Session),
		ttl:      ttl,
	}
}

// Create starts a fresh session for the user, optionally scoped to a project.
func (st *Store) Create(userID, projectID string) *Session {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Step:      StepInput,
		Config: model.ProductConfiguration{
			ID:         uuid.NewString(),
			UISettings: defaultSettings(),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.evictExpiredLocked(now)
	st.sessions[sessionKey{userID, session.ID}] = session
	return snapshot(session)
}

// Get returns a copy of the session. Mutations go through Update.
func (st *Store) Get(userID, sessionID string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	session, ok := st.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshot(session), nil
}

// Update applies fn to the session under the store lock, so concurrent
// requests for the same session serialize.
func (st *Store) Update(userID, sessionID string, fn func(*Session) error) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	session, ok := st.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	return snapshot(session), nil
}

// Delete drops a session. Called after a successful generation hand-off.
func (st *Store) Delete(userID, sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, sessionKey{userID, sessionID})
}

func (st *Store) evictExpiredLocked(now time.Time) {
	for key, session := range st.sessions {
		if now.Sub(session.UpdatedAt) > st.ttl {
			delete(st.sessions, key)
		}
	}
}

func snapshot(s *Session) *Session {
	copied := *s
	return &copied
}
