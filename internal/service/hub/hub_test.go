package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camdash/internal/logger"
	"camdash/internal/service/progress"
)

func startHub(t *testing.T, onCount func(int)) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(logger.NewDiscard())
	h.OnCount(onCount)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Register(conn)
		defer h.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		cancel()
		<-h.done
		srv.Close()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) progress.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var s progress.Snapshot
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestHub_BroadcastsToEveryClient(t *testing.T) {
	countCh := make(chan int, 10)
	h, srv := startHub(t, func(n int) { countCh <- n })

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	h.BroadcastSnapshot(progress.Snapshot{State: progress.StateRunning, Percent: 30})

	assert.Equal(t, 30, readSnapshot(t, a).Percent)
	assert.Equal(t, 30, readSnapshot(t, b).Percent)

	_ = a.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	var counts []int
	for len(countCh) > 0 {
		counts = append(counts, <-countCh)
	}
	assert.Contains(t, counts, 2)
}

func TestHub_NewClientGetsLastSnapshot(t *testing.T) {
	h, srv := startHub(t, nil)

	h.BroadcastSnapshot(progress.Snapshot{State: progress.StateDone, Percent: 100, Reload: true})

	conn := dial(t, srv)
	s := readSnapshot(t, conn)
	assert.Equal(t, progress.StateDone, s.State)
	assert.True(t, s.Reload)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	h := NewHub(logger.NewDiscard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.Broadcast([]byte("x"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a stopped hub")
	}
}
