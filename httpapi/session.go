package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const sessionKeyLength = 128

//SessionStore is an interface to an arbitrary session backend.
type SessionStore interface {
	//Create returns a new sessionID with the given User id. If the backend malfunctions,
	//sessionID will be an empty string and err will be non-nil.
	Create(ctx context.Context, userID int64) (sessionID string, err error)

	//Check returns whether or not sessionID is a valid session. A valid session is extended by the store duration.
	//If sessionID is not valid, session will be nil.
	//If the backend malfunctions, session will be nil and err will be non-nil.
	Check(ctx context.Context, sessionID string) (session *Session, err error)

	//Close releases any resources held by the store
	Close() error
}

//Session represents a login session
type Session struct {
	UserID  int64
	Expires time.Time
}

//MemorySessionStore represents a SessionStore that uses an in-memory map
type MemorySessionStore struct {
	store    map[string]*Session
	duration time.Duration
	mu       *sync.Mutex
	cron     *cron.Cron
}

//NewMemorySessionStore returns a new MemorySessionStore with the given expiration duration.
//Stale sessions are removed every hour.
func NewMemorySessionStore(duration time.Duration) *MemorySessionStore {
	m := &MemorySessionStore{
		store:    make(map[string]*Session),
		duration: duration,
		mu:       new(sync.Mutex),
		cron:     cron.New(),
	}
	if _, err := m.cron.AddFunc("@hourly", m.Scavenge); err != nil {
		log.Error().Err(err).Msg("Could not schedule session scavenger")
	}
	m.cron.Start()
	return m
}

//Scavenge removes expired sessions
func (m *MemorySessionStore) Scavenge() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.store {
		if s.Expires.Before(now) {
			delete(m.store, id)
		}
	}
}

//Len returns the number of stored sessions, including expired sessions not yet scavenged
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

//Create returns a new sessionID with the given User id. err will always be nil.
func (m *MemorySessionStore) Create(ctx context.Context, userID int64) (sessionID string, err error) {
	id := randString(sessionKeyLength)
	m.mu.Lock()
	m.store[id] = &Session{
		UserID:  userID,
		Expires: time.Now().Add(m.duration),
	}
	m.mu.Unlock()
	return id, nil
}

//Check returns whether or not sessionID is a valid session. If sessionID is not valid, session will be nil.
//err will always be nil.
func (m *MemorySessionStore) Check(ctx context.Context, sessionID string) (session *Session, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[sessionID]; ok {
		if s.Expires.After(time.Now()) {
			s.Expires = time.Now().Add(m.duration)
			return &Session{UserID: s.UserID, Expires: s.Expires}, nil
		}
		delete(m.store, sessionID)
	}
	return nil, nil
}

//Close stops the scavenger
func (m *MemorySessionStore) Close() error {
	<-m.cron.Stop().Done()
	return nil
}
