package route

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"camdash/internal/apiclient/apiclienttest"
	"camdash/internal/config"
	"camdash/internal/dashboard"
	"camdash/internal/dto"
	"camdash/internal/export"
	"camdash/internal/logger"
	"camdash/internal/metrics"
	"camdash/internal/model"
	"camdash/internal/render"
	"camdash/internal/service/hub"
	"camdash/internal/service/progress"
	"camdash/internal/service/vision"
	"camdash/internal/session"
)

type fakeDownloads struct {
	snap progress.Snapshot
}

func (f *fakeDownloads) Start(context.Context) error { return nil }
func (f *fakeDownloads) Close()                      {}
func (f *fakeDownloads) Snapshot() progress.Snapshot { return f.snap }

type fakeJournal struct {
	filter  *dto.ActivityFilter
	entries []model.Activity
}

func (f *fakeJournal) Recent(_ context.Context, filter *dto.ActivityFilter) ([]model.Activity, error) {
	f.filter = filter
	return f.entries, nil
}

func (f *fakeJournal) Summary(context.Context) (map[model.ActivityKind]int, error) {
	return map[model.ActivityKind]int{model.ActivityMark: len(f.entries)}, nil
}

type harness struct {
	server   *httptest.Server
	client   *http.Client
	backend  *apiclienttest.MockBackend
	hub      *hub.Hub
	sessions *session.Store
	journal  *fakeJournal
}

func cameras() []model.Camera {
	return []model.Camera{
		{ID: "lojaA_P1_1", BaseID: "lojaA_P1", Loja: "lojaA", Position: model.P1, Path: "cameras/lojaA_P1.jpg", IsLatest: true},
		{ID: "lojaB_P2_1", BaseID: "lojaB_P2", Loja: "lojaB", Position: model.P2, Path: "cameras/lojaB_P2.jpg", IsLatest: true},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := &apiclienttest.MockBackend{}
	backend.On("VisionStatus", mock.Anything).Return(model.VisionStatus{Available: true, ReferencesCount: 2}, nil).Maybe()
	backend.On("Stores", mock.Anything).Return([]string{"lojaA", "lojaB"}, nil).Once()
	backend.On("Cameras", mock.Anything).Return(cameras(), nil).Once()
	backend.On("Stats", mock.Anything).Return(model.Stats{TotalCameras: 2, TotalStores: 2}, nil).Once()
	backend.On("VisionCache", mock.Anything).Return(model.ScoreCache{}, nil).Once()

	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "" {
			http.Error(w, "cookie leaked", http.StatusBadRequest)
			return
		}
		w.Write([]byte("jpeg:" + r.URL.Path))
	}))
	imagesURL, err := url.Parse(images.URL)
	require.NoError(t, err)

	logDir := t.TempDir()
	log, err := logger.New(logger.Options{Dir: logDir, Console: io.Discard})
	require.NoError(t, err)

	renderer, err := render.NewRenderer()
	require.NoError(t, err)
	m, err := metrics.NewMetrics()
	require.NoError(t, err)

	status := vision.NewStatusCache(backend, time.Minute)
	downloads := &fakeDownloads{snap: progress.Snapshot{State: progress.StateIdle}}
	sessions := session.NewStore(time.Hour, func() *dashboard.State {
		return dashboard.New(dashboard.Deps{
			Backend:         backend,
			Status:          status,
			Downloader:      downloads,
			Exporter:        export.New("pt-BR"),
			Logger:          log,
			SaveConcurrency: 2,
		})
	})

	h := hub.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	journal := &fakeJournal{}
	server := httptest.NewServer(SetupRoutes(Deps{
		Config:   &config.Config{LogDirectory: logDir},
		Logger:   log,
		Renderer: renderer,
		Sessions: sessions,
		Hub:      h,
		Monitor:  downloads,
		Journal:  journal,
		Backend:  imagesURL,
		Metrics:  m,
	}))

	t.Cleanup(func() {
		server.Close()
		images.Close()
		cancel()
		log.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		backend:  backend,
		hub:      h,
		sessions: sessions,
		journal:  journal,
	}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *harness) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := h.client.PostForm(h.server.URL+path, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (h *harness) expectReload() {
	h.backend.On("Cameras", mock.Anything).Return(cameras(), nil).Once()
	h.backend.On("Stats", mock.Anything).Return(model.Stats{TotalCameras: 2, TotalStores: 2, MarkedBad: 1}, nil).Once()
}

func TestDashboard_FirstVisitLoadsOnce(t *testing.T) {
	h := newHarness(t)

	resp, body := h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `src="/cameras/lojaA_P1.jpg"`)
	assert.Contains(t, body, `action="/actions/mark/lojaB_P2_1"`)
	assert.Equal(t, 1, h.sessions.Count())

	resp, _ = h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, h.sessions.Count(), "the cookie keeps the session")
	h.backend.AssertExpectations(t)
}

func TestDashboard_MarkFlow(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")

	resp := h.post(t, "/actions/mark/lojaA_P1_1", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := h.get(t, "/")
	assert.Contains(t, body, "Mark lojaA - P1 as bad")

	h.backend.On("Mark", mock.Anything, "lojaA_P1", "lens cracked").Return(nil).Once()
	h.expectReload()
	resp = h.post(t, "/actions/note/save", url.Values{"note": {"  lens cracked "}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = h.get(t, "/")
	assert.Contains(t, body, `<div class="toast success">Camera marked as bad</div>`)
	assert.NotContains(t, body, `id="modal-note"`)
	h.backend.AssertExpectations(t)
}

func TestDashboard_RedirectKeepsFilters(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/?store=lojaB&q=loj")

	h.expectReload()
	resp := h.post(t, "/actions/refresh", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?q=loj&store=lojaB", resp.Header.Get("Location"))

	resp = h.post(t, "/actions/filters/clear", nil)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestDashboard_UnknownCameraIsReported(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")

	h.post(t, "/actions/preview/nope", nil)
	_, body := h.get(t, "/")
	assert.Contains(t, body, "Camera not found")
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")

	h.backend.On("ExportMarked", mock.Anything).Return([]model.MarkedExport{
		{Loja: "lojaA", Position: model.P1, Filename: "a.jpg", MarkedAt: "2024-05-20T10:00:00", Note: "dark, blurry"},
	}, nil).Once()
	resp, body := h.get(t, "/export/marked.csv")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cameras_ruins_")
	assert.Contains(t, body, "lojaA,P1,a.jpg,20/05/2024 10:00:00,dark; blurry")

	h.backend.On("ExportMarked", mock.Anything).Return([]model.MarkedExport{}, nil).Once()
	resp, _ = h.get(t, "/export/marked.csv")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = h.get(t, "/")
	assert.Contains(t, body, "No marked cameras to export")
}

func TestImageProxy(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")

	resp, body := h.get(t, "/cameras/lojaA_P1.jpg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg:/cameras/lojaA_P1.jpg", body)

	_, body = h.get(t, "/data/referencias/lojaA_P1.jpg")
	assert.Equal(t, "jpeg:/data/referencias/lojaA_P1.jpg", body)
}

func TestJSONEndpoints(t *testing.T) {
	h := newHarness(t)
	h.journal.entries = []model.Activity{{ID: 1, Kind: model.ActivityMark, Subject: "lojaA - P1"}}

	resp, body := h.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "idle", health["download"])
	assert.Equal(t, 0, h.sessions.Count(), "JSON endpoints do not create sessions")

	resp, body = h.get(t, "/api/activity?kind=mark&limit=5")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"subject":"lojaA - P1"`)
	require.NotNil(t, h.journal.filter)
	assert.Equal(t, model.ActivityMark, h.journal.filter.Kind)
	assert.Equal(t, 5, h.journal.filter.Limit)

	resp, _ = h.get(t, "/api/activity?limit=zero")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = h.get(t, "/api/activity/summary")
	assert.Contains(t, body, `"mark":1`)

	_, body = h.get(t, "/api/download/progress")
	assert.Contains(t, body, `"state":"idle"`)
}

func TestRouting(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.get(t, "/actions/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = h.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := h.get(t, "/static/dashboard.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".camera-card")

	resp, _ = h.get(t, "/logs/bogus")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = h.post(t, "/logs/info/clear", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStateChangesNeedSameOriginAndSession(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/logs/info/clear", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, h.server.URL+"/logs/info/clear", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", h.server.URL)
	resp, err = h.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.post(t, "/actions/refresh", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp, _ = h.get(t, "/export/marked.csv")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, h.sessions.Count(), "only the page creates sessions")
}

func TestMetricsCountRequests(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/health")

	resp, body := h.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `camdash_http_requests_total{method="GET",status_code="200"}`)
}

func TestProgressWebsocket(t *testing.T) {
	h := newHarness(t)

	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	h.hub.BroadcastSnapshot(progress.Snapshot{State: progress.StateRunning, Percent: 50, Total: 4, Completed: 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap progress.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, progress.StateRunning, snap.State)
	assert.Equal(t, 50, snap.Percent)
}
