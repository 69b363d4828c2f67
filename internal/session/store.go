// Package session keeps one dashboard state per browser, identified by a
// random cookie.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"camdash/internal/dashboard"
)

// CookieName is the session cookie.
const CookieName = "camdash_session"

// Factory creates the state of a new session.
type Factory func() *dashboard.State

// Store holds the live sessions. Every access slides the expiry.
type Store struct {
	cache   *cache.Cache
	ttl     time.Duration
	factory Factory

	mu       sync.Mutex
	onChange func(int)
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
func NewStore(ttl time.Duration, factory Factory) *Store {
	s := &Store{
		cache:   cache.New(ttl, ttl/2+time.Second),
		ttl:     ttl,
		factory: factory,
	}
	s.cache.OnEvicted(func(string, interface{}) { s.changed() })
	return s
}

// OnChange registers a callback receiving the session count after every
// creation or eviction.
func (s *Store) OnChange(fn func(int)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(s.cache.ItemCount())
	}
}

// Get returns the state of the request's session, creating the session and
// setting its cookie when the browser has none or an expired one.
func (s *Store) Get(w http.ResponseWriter, r *http.Request) *dashboard.State {
	if c, err := r.Cookie(CookieName); err == nil {
		if st, ok := s.Lookup(c.Value); ok {
			return st
		}
	}

	id := uuid.NewString()
	st := s.factory()
	s.cache.Set(id, st, cache.DefaultExpiration)
	s.changed()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return st
}

// Current returns the state of the request's session without creating one.
func (s *Store) Current(r *http.Request) (*dashboard.State, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return s.Lookup(c.Value)
}

// Lookup finds a live session and refreshes its expiry.
func (s *Store) Lookup(id string) (*dashboard.State, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	st := v.(*dashboard.State)
	s.cache.Set(id, st, cache.DefaultExpiration)
	return st, true
}

// MarkStale flags every session for a full reload on its next request.
func (s *Store) MarkStale() {
	for _, item := range s.cache.Items() {
		if st, ok := item.Object.(*dashboard.State); ok {
			st.MarkStale()
		}
	}
}

// Count is the number of live sessions.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}

// Flush drops every session.
func (s *Store) Flush() {
	s.cache.Flush()
	s.changed()
}

type contextKey struct{}

// WithState attaches a session state to a request context.
func WithState(ctx context.Context, st *dashboard.State) context.Context {
	return context.WithValue(ctx, contextKey{}, st)
}

// FromContext returns the state attached by WithState.
func FromContext(ctx context.Context) (*dashboard.State, bool) {
	st, ok := ctx.Value(contextKey{}).(*dashboard.State)
	return st, ok
}
