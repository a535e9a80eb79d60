package ruts

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "RUTS_SESSION"

// SessionManager is the per-request view of a session.
type SessionManager interface {
	SessionID() Optional[string]
	Attribute(key string) Optional[any]
	SetAttribute(key string, value any)
	RemoveAttribute(key string)
	Invalidate()
}

// SessionAttribute returns a typed session attribute.
func SessionAttribute[T any](session SessionManager, key string) Optional[T] {
	raw, ok := session.Attribute(key).Get()
	if !ok {
		return OptionalEmpty[T]()
	}
	value, ok := raw.(T)
	if !ok {
		return OptionalEmpty[T]()
	}
	return OptionalOf(value)
}

// SessionStore keeps session attributes between requests.
type SessionStore interface {
	Load(id string) (map[string]any, bool)
	Save(id string, attributes map[string]any)
	Delete(id string)
}

type memorySession struct {
	attributes map[string]any
	lastAccess time.Time
}

// MemorySessionStore is a process-local SessionStore. Sessions idle for
// longer than the timeout are dropped on access.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	timeout  time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates a store; a zero timeout keeps sessions forever.
func NewMemorySessionStore(timeout time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*memorySession),
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Load(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.timeout > 0 && s.now().Sub(session.lastAccess) > s.timeout {
		delete(s.sessions, id)
		return nil, false
	}
	session.lastAccess = s.now()
	copied := make(map[string]any, len(session.attributes))
	for k, v := range session.attributes {
		copied[k] = v
	}
	return copied, true
}

func (s *MemorySessionStore) Save(id string, attributes map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]any, len(attributes))
	for k, v := range attributes {
		copied[k] = v
	}
	s.sessions[id] = &memorySession{attributes: copied, lastAccess: s.now()}
}

func (s *MemorySessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len is the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// cookieSessionManager binds a store to one request. The session is created
// lazily on the first write.
type cookieSessionManager struct {
	store      SessionStore
	rc         RequestContext
	id         string
	attributes map[string]any
	loaded     bool
}

func newCookieSessionManager(store SessionStore, rc RequestContext) *cookieSessionManager {
	return &cookieSessionManager{store: store, rc: rc}
}

func (m *cookieSessionManager) load() {
	if m.loaded {
		return
	}
	m.loaded = true
	cookie, err := m.rc.Request().Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	if attributes, ok := m.store.Load(cookie.Value); ok {
		m.id = cookie.Value
		m.attributes = attributes
	}
}

func (m *cookieSessionManager) SessionID() Optional[string] {
	m.load()
	if m.id == "" {
		return OptionalEmpty[string]()
	}
	return OptionalOf(m.id)
}

func (m *cookieSessionManager) Attribute(key string) Optional[any] {
	m.load()
	if value, ok := m.attributes[key]; ok {
		return OptionalOf(value)
	}
	return OptionalEmpty[any]()
}

func (m *cookieSessionManager) SetAttribute(key string, value any) {
	m.load()
	if m.id == "" {
		m.id = uuid.NewString()
		m.attributes = make(map[string]any)
		m.rc.Response().SetCookie(Cookie{
			Name:     SessionCookieName,
			Value:    m.id,
			Path:     "/",
			HttpOnly: true,
			SameSite: SameSiteLaxMode,
		})
	}
	m.attributes[key] = value
	m.store.Save(m.id, m.attributes)
}

func (m *cookieSessionManager) RemoveAttribute(key string) {
	m.load()
	if m.id == "" {
		return
	}
	delete(m.attributes, key)
	m.store.Save(m.id, m.attributes)
}

func (m *cookieSessionManager) Invalidate() {
	m.load()
	if m.id == "" {
		return
	}
	m.store.Delete(m.id)
	m.rc.Response().SetCookie(Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	m.id = ""
	m.attributes = nil
}
