package inspect

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/ws"
	jsoniter "github.com/json-iterator/go"

	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/naming"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source is what the handler reports on. *naming.Engine satisfies it.
type Source interface {
	Snapshot() naming.Snapshot
	Dump(w io.Writer, opts naming.DumpOptions) error
}

// Handler serves the introspection routes of a naming engine.
type Handler struct {
	src    Source
	log    logger.Logger
	hub    *hub
	router chi.Router

	mu   sync.Mutex
	last []byte
}

// NewHandler builds the routes for src.
func NewHandler(src Source, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoopLogger()
	}

	h := &Handler{
		src: src,
		log: log,
		hub: newHub(log),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	r.Get("/dump", h.handleDump)
	r.Get("/snapshot", h.handleSnapshot)
	r.Get("/ws", h.handleWatch)
	h.router = r

	return h
}

// Router exposes the route table so callers can mount more endpoints.
func (h *Handler) Router() chi.Router {
	return h.router
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleDump(w http.ResponseWriter, r *http.Request) {
	var opts naming.DumpOptions
	if v := r.URL.Query().Get("color"); v != "" {
		colored, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid color parameter", http.StatusBadRequest)
			return
		}
		opts.Color = colored
	}

	var buf bytes.Buffer
	if err := h.src.Dump(&buf, opts); err != nil {
		h.log.Error("dump failed", logger.Error(err))
		http.Error(w, "dump failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	data, err := h.snapshot()
	if err != nil {
		h.log.Error("snapshot encoding failed", logger.Error(err))
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (h *Handler) snapshot() ([]byte, error) {
	return json.Marshal(h.src.Snapshot())
}

func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.log.Debug("websocket upgrade failed", logger.Error(err))
		return
	}

	data, err := h.snapshot()
	if err != nil {
		h.log.Error("snapshot encoding failed", logger.Error(err))
		_ = conn.Close()
		return
	}
	if !h.hub.add(conn, data) {
		return
	}

	h.hub.drain(conn)
}

// publish broadcasts the current snapshot if it changed since the last one.
func (h *Handler) publish() {
	data, err := h.snapshot()
	if err != nil {
		h.log.Error("snapshot encoding failed", logger.Error(err))
		return
	}

	h.mu.Lock()
	changed := !bytes.Equal(h.last, data)
	h.last = data
	h.mu.Unlock()

	if changed {
		h.hub.broadcast(data)
	}
}

// Watch publishes changed snapshots to WebSocket watchers every interval
// until ctx is done.
func (h *Handler) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.hub.count() == 0 {
				continue
			}
			h.publish()
		}
	}
}

// Close disconnects every watcher.
func (h *Handler) Close() {
	h.hub.closeAll()
}
