package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/taxi-explorer-go/internal/explorer"
	"github.com/jengzang/taxi-explorer-go/internal/models"
)

// ErrNoSession is returned when a session id is unknown or expired.
var ErrNoSession = errors.New("no such session")

// Session is one dashboard session: its own parameter space bound to the
// shared point source, plus the render loop feeding its frame stream.
type Session struct {
	ID        string
	Explorer  *explorer.Explorer
	Loop      *explorer.ViewLoop
	CreatedAt time.Time

	lastSeen time.Time // guarded by the owning service's mutex
}

// SessionService owns the live sessions. Parameter state is in-memory only
// and disappears when the session expires or the server stops.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session

	source explorer.PointSource
	opts   explorer.Options
	ttl    time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionService creates the service and starts the expiry janitor.
func NewSessionService(source explorer.PointSource, opts explorer.Options, ttl time.Duration) *SessionService {
	s := &SessionService{
		sessions: make(map[string]*Session),
		source:   source,
		opts:     opts,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Create builds a fresh session with default parameter values and starts its
// render loop. The loop runs until the session is removed, expired, or the
// service closes; request contexts must not bound it.
func (s *SessionService) Create() (*Session, error) {
	ex, err := explorer.New(s.source, s.opts)
	if err != nil {
		return nil, err
	}
	loop := explorer.NewViewLoop(ex)
	loop.Start(context.Background())

	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		Explorer:  ex,
		Loop:      loop,
		CreatedAt: now,
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	count := len(s.sessions)
	s.mu.Unlock()

	log.Printf("[Session] created %s (%d active)", session.ID, count)
	return session, nil
}

// Get returns a live session and refreshes its idle timer.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	session.lastSeen = time.Now()
	return session, nil
}

// Describe reports session metadata plus the current parameter snapshot.
func (s *SessionService) Describe(id string) (*models.SessionInfo, error) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	session.lastSeen = time.Now()
	info := &models.SessionInfo{
		ID:        session.ID,
		CreatedAt: session.CreatedAt.Unix(),
		LastSeen:  session.lastSeen.Unix(),
	}
	s.mu.Unlock()

	info.Params = session.Explorer.Params().Snapshot()
	return info, nil
}

// Remove drops a session and stops its render loop.
func (s *SessionService) Remove(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if ok {
		session.Loop.Stop()
		log.Printf("[Session] removed %s", id)
	}
}

// Count reports the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor and tears down every session.
func (s *SessionService) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)

		s.mu.Lock()
		sessions := make([]*Session, 0, len(s.sessions))
		for _, session := range s.sessions {
			sessions = append(sessions, session)
		}
		s.sessions = make(map[string]*Session)
		s.mu.Unlock()

		for _, session := range sessions {
			session.Loop.Stop()
		}
	})
}

// janitor evicts sessions idle past the TTL.
func (s *SessionService) janitor() {
	interval := s.ttl
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		now := time.Now()
		var expired []*Session
		s.mu.Lock()
		for id, session := range s.sessions {
			if now.Sub(session.lastSeen) > s.ttl {
				delete(s.sessions, id)
				expired = append(expired, session)
			}
		}
		s.mu.Unlock()

		for _, session := range expired {
			session.Loop.Stop()
			log.Printf("[Session] expired %s", session.ID)
		}
	}
}
