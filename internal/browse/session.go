package browse

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"garagesale/internal/clock"
)

// MaxRecentSearches caps the recent-searches list.
const MaxRecentSearches = 5

type counterKind int

const (
	viewCounter counterKind = iota
	searchCounter
)

// Session is the per-buyer state that outlives a single page: which listings
// were already counted and the recent searches. Pass one per browsing session.
type Session struct {
	mu       sync.Mutex
	counted  [2]map[int64]struct{}
	inflight [2]map[int64]struct{}
	recent   []string
}

func NewSession() *Session {
	s := &Session{}
	s.End()
	return s
}

// claim reserves id for counting. It fails when id was already counted in
// this session or another call for it is outstanding.
func (s *Session) claim(k counterKind, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counted[k][id]; ok {
		return false
	}
	if _, ok := s.inflight[k][id]; ok {
		return false
	}
	s.inflight[k][id] = struct{}{}
	return true
}

// settle finishes a claim. Only successful increments are remembered, so a
// failed one may be retried on a later render.
func (s *Session) settle(k counterKind, id int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight[k], id)
	if ok {
		s.counted[k][id] = struct{}{}
	}
}

func (s *Session) Viewed(id int64) bool   { return s.has(viewCounter, id) }
func (s *Session) Searched(id int64) bool { return s.has(searchCounter, id) }

func (s *Session) has(k counterKind, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.counted[k][id]
	return ok
}

// PushRecent records a committed search term, most recent first.
func (s *Session) PushRecent(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, MaxRecentSearches)
	out = append(out, term)
	for _, t := range s.recent {
		if len(out) == MaxRecentSearches {
			break
		}
		if !strings.EqualFold(t, term) {
			out = append(out, t)
		}
	}
	s.recent = out
}

func (s *Session) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recent...)
}

// End forgets everything; counting starts over.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.counted {
		s.counted[k] = map[int64]struct{}{}
		s.inflight[k] = map[int64]struct{}{}
	}
	s.recent = nil
}

// Registry keeps sessions for server-rendered browsing, keyed by an opaque
// id. A session idle for longer than ttl ends and is dropped.
type Registry struct {
	ttl   time.Duration
	clock clock.Clock

	mu       sync.Mutex
	sessions map[string]*registered
}

type registered struct {
	s        *Session
	lastSeen time.Time
}

func NewRegistry(ttl time.Duration, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{ttl: ttl, clock: clk, sessions: map[string]*registered{}}
}

// Acquire returns the session for id, starting a new one under a fresh id
// when id is unknown or expired.
func (r *Registry) Acquire(id string) (string, *Session) {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
	if reg, ok := r.sessions[id]; ok && id != "" {
		reg.lastSeen = now
		return id, reg.s
	}
	id = uuid.NewString()
	reg := &registered{s: NewSession(), lastSeen: now}
	r.sessions[id] = reg
	return id, reg.s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, reg := range r.sessions {
		if now.Sub(reg.lastSeen) > r.ttl {
			reg.s.End()
			delete(r.sessions, id)
		}
	}
}
