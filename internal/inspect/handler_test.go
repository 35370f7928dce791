package inspect

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/naming"
)

var shopOrders = naming.DeploymentUnit{Application: "shop", Module: "orders", Component: "checkout"}

func newEngine(t *testing.T) *naming.Engine {
	t.Helper()

	e, err := naming.New(naming.WithConfig(config.New(config.WithFactoryWaitTimeout(0))))
	require.NoError(t, err)
	require.NoError(t, e.Deploy(context.Background(), shopOrders, naming.Batch{}.
		Add(naming.LevelComponent, "env/url", naming.NewValue("postgres://orders", "string")).
		Add(naming.LevelModule, "queue", naming.NewValue("orders-queue", "Queue"))))
	return e
}

type failingSource struct{}

func (failingSource) Snapshot() naming.Snapshot { return naming.Snapshot{} }

func (failingSource) Dump(io.Writer, naming.DumpOptions) error {
	return errors.New("broken writer")
}

func TestHandler_Routes(t *testing.T) {
	h := NewHandler(newEngine(t), logger.NewTestLogger())

	tests := []struct {
		name        string
		target      string
		status      int
		contentType string
		contains    []string
	}{
		{"health", "/health", http.StatusOK, "application/json", []string{`"ok"`}},
		{"dump", "/dump", http.StatusOK, "text/plain; charset=utf-8", []string{"[module] shop/orders", "module/queue (value, Queue) contributors=1"}},
		{"colored dump", "/dump?color=true", http.StatusOK, "text/plain; charset=utf-8", []string{"\x1b["}},
		{"bad color flag", "/dump?color=maybe", http.StatusBadRequest, "", nil},
		{"snapshot", "/snapshot", http.StatusOK, "application/json", []string{`"owner":"shop/orders"`, `"contributors":1`}},
		{"unknown", "/nope", http.StatusNotFound, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
			for _, want := range tt.contains {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestHandler_SnapshotDecodes(t *testing.T) {
	h := NewHandler(newEngine(t), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap naming.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Scopes, 4)
	assert.Equal(t, "global", snap.Scopes[0].Level)
	assert.Equal(t, 3, snap.Scopes[3].Depth)
}

func TestHandler_DumpFailure(t *testing.T) {
	log := logger.NewTestLogger()
	h := NewHandler(failingSource{}, log)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dump", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, log.Count("dump failed"))
}

// dialWatch connects a watcher and returns a reader that honors any bytes
// buffered during the handshake.
func dialWatch(t *testing.T, addr string) (net.Conn, io.ReadWriter) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, br, _, err := ws.Dial(ctx, "ws://"+addr+"/ws")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var rw io.ReadWriter = conn
	if br != nil {
		rw = struct {
			*bufio.Reader
			io.Writer
		}{br, conn}
	}
	return conn, rw
}

func readSnapshot(t *testing.T, conn net.Conn, rw io.ReadWriter) naming.Snapshot {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	data, err := wsutil.ReadServerText(rw)
	require.NoError(t, err)

	var snap naming.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func TestHandler_Watch(t *testing.T) {
	e := newEngine(t)
	h := NewHandler(e, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	conn, rw := dialWatch(t, addr)

	initial := readSnapshot(t, conn, rw)
	assert.Len(t, initial.Scopes, 4)
	assert.Equal(t, 1, h.hub.count())

	peer := naming.DeploymentUnit{Application: "shop", Module: "orders", Component: "billing"}
	require.NoError(t, e.Deploy(context.Background(), peer, naming.Batch{}.
		Add(naming.LevelModule, "queue", naming.NewValue("orders-queue", "Queue"))))
	h.publish()

	updated := readSnapshot(t, conn, rw)
	assert.Len(t, updated.Scopes, 5)

	for _, s := range updated.Scopes {
		if s.Owner == "shop/orders" {
			require.Len(t, s.Shared, 1)
			assert.Equal(t, 2, s.Shared[0].Contributors)
		}
	}
}

func TestHandler_WatchClosed(t *testing.T) {
	h := NewHandler(newEngine(t), nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	h.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	conn, rw := dialWatch(t, addr)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := wsutil.ReadServerText(rw)
	assert.Error(t, err)
	assert.Equal(t, 0, h.hub.count())
}

func TestServer_StartStop(t *testing.T) {
	h := NewHandler(newEngine(t), nil)
	s := NewServer("127.0.0.1:0", h, logger.NewTestLogger())
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err = http.Get("http://" + s.Addr() + "/health")
	assert.Error(t, err)
}
