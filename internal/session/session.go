// Package session holds the signed-in user for client-side components.
// Components receive a Provider instead of reaching for a global.
package session

import (
	"sync"
	"time"
)

type Session struct {
	UserID       string
	Email        string
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Provider exposes the current session and change notifications.
type Provider interface {
	Current() *Session
	Subscribe(fn func(*Session)) (unsubscribe func())
}

// Token returns the bearer token of the provider's session, or "".
func Token(p Provider) string {
	if p == nil {
		return ""
	}
	if s := p.Current(); s != nil {
		return s.Token
	}
	return ""
}

// Manager is the in-memory Provider. Subscribers are called synchronously,
// outside the lock, in subscription order.
type Manager struct {
	mu      sync.Mutex
	current *Session
	subs    map[int]func(*Session)
	order   []int
	nextID  int

	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		subs: make(map[int]func(*Session)),
		now:  time.Now,
	}
}

// Current returns nil when nobody is signed in or the session expired.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.expired(m.now()) {
		return nil
	}
	s := *m.current
	return &s
}

func (m *Manager) SignIn(s *Session) {
	m.set(s)
}

func (m *Manager) SignOut() {
	m.set(nil)
}

func (m *Manager) Subscribe(fn func(*Session)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.order = append(m.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
		})
	}
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	if s != nil {
		c := *s
		s = &c
	}
	m.current = s

	fns := make([]func(*Session), 0, len(m.subs))
	live := m.order[:0]
	for _, id := range m.order {
		if fn, ok := m.subs[id]; ok {
			fns = append(fns, fn)
			live = append(live, id)
		}
	}
	m.order = live
	m.mu.Unlock()

	for _, fn := range fns {
		if s == nil {
			fn(nil)
			continue
		}
		c := *s
		fn(&c)
	}
}
