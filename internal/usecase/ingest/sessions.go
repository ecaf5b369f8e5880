package ingest

import (
	"sync"
	"time"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/pipeline/crop"
)

// cropSession is one interactive crop in progress. Sessions live in memory
// only; an abandoned session disappears with the process.
type cropSession struct {
	id        string
	viewport  *crop.Viewport
	format    domain.ImageFormat
	width     int
	height    int
	createdAt time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*cropSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*cropSession)}
}

func (s *sessionStore) put(sess *cropSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *sessionStore) get(id string) (*cropSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *sessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
