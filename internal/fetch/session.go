package fetch

import (
	"math/rand"
	"sync"
)

// Session binds one identity (user-agent, optional proxy) for its lifetime.
type Session struct {
	ID        int
	UserAgent string
	Proxy     string
}

// SessionManager hands out sessions with a user-agent chosen uniformly at
// random from the configured list. Sessions are not pooled; Release exists so
// backends can tear down per-session resources.
type SessionManager struct {
	userAgents []string
	proxy      string

	mu   sync.Mutex
	next int
}

func NewSessionManager(userAgents []string, proxy string) *SessionManager {
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents()
	}
	return &SessionManager{userAgents: userAgents, proxy: proxy}
}

func (m *SessionManager) Acquire() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	return &Session{
		ID:        m.next,
		UserAgent: m.userAgents[rand.Intn(len(m.userAgents))],
		Proxy:     m.proxy,
	}
}

func (m *SessionManager) Release(sess *Session) {
	// No pooled resources yet; identities are cheap to mint.
	_ = sess
}

// DefaultUserAgents is a small, diverse desktop UA set. Override via config.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	}
}
