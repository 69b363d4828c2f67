package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"camdash/internal/apiclient/apiclienttest"
	"camdash/internal/dashboard"
	"camdash/internal/model"
	"camdash/internal/service/vision"
)

func newTestStore(t *testing.T, backend *apiclienttest.MockBackend) *Store {
	t.Helper()
	status := vision.NewStatusCache(backend, time.Minute)
	return NewStore(time.Hour, func() *dashboard.State {
		return dashboard.New(dashboard.Deps{Backend: backend, Status: status})
	})
}

func TestGet_CreatesSessionAndCookie(t *testing.T) {
	s := newTestStore(t, &apiclienttest.MockBackend{})
	var counts []int
	s.OnChange(func(n int) { counts = append(counts, n) })

	rec := httptest.NewRecorder()
	st := s.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, st)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, []int{1}, counts)

	// The same browser gets the same state back and no new cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	assert.Same(t, st, s.Get(rec2, req))
	assert.Empty(t, rec2.Result().Cookies())
	assert.Equal(t, 1, s.Count())
}

func TestGet_UnknownOrMalformedCookieStartsOver(t *testing.T) {
	s := newTestStore(t, &apiclienttest.MockBackend{})

	for _, value := range []string{"not-a-uuid", "0b8f8c52-8f7e-4b8e-9d7c-2b5f4f8c9a10"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
		rec := httptest.NewRecorder()
		s.Get(rec, req)
		require.Len(t, rec.Result().Cookies(), 1, value)
		assert.NotEqual(t, value, rec.Result().Cookies()[0].Value)
	}
	assert.Equal(t, 2, s.Count())

	s.Flush()
	assert.Zero(t, s.Count())
}

func TestMarkStale_ReloadsEverySession(t *testing.T) {
	backend := &apiclienttest.MockBackend{}
	backend.On("Stores", mock.Anything).Return([]string{}, nil)
	backend.On("Cameras", mock.Anything).Return([]model.Camera{}, nil)
	backend.On("Stats", mock.Anything).Return(model.Stats{}, nil)
	backend.On("VisionStatus", mock.Anything).Return(model.VisionStatus{}, nil)
	backend.On("VisionCache", mock.Anything).Return(model.ScoreCache{}, nil)

	s := newTestStore(t, backend)
	ctx := context.Background()
	a := s.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	b := s.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	a.EnsureLoaded(ctx)
	b.EnsureLoaded(ctx)
	backend.AssertNumberOfCalls(t, "Cameras", 2)

	a.EnsureLoaded(ctx)
	backend.AssertNumberOfCalls(t, "Cameras", 2)

	s.MarkStale()
	a.EnsureLoaded(ctx)
	b.EnsureLoaded(ctx)
	backend.AssertNumberOfCalls(t, "Cameras", 4)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	st := dashboard.New(dashboard.Deps{Backend: &apiclienttest.MockBackend{}})
	got, ok := FromContext(WithState(context.Background(), st))
	require.True(t, ok)
	assert.Same(t, st, got)
}
