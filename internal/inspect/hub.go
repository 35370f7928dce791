package inspect

import (
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/binder/internal/logger"
)

const writeTimeout = 5 * time.Second

// hub tracks snapshot watchers. Writes happen under mu so a connection never
// sees interleaved frames.
type hub struct {
	log logger.Logger

	mu      sync.Mutex
	clients map[net.Conn]struct{}
	closed  bool
}

func newHub(log logger.Logger) *hub {
	return &hub{
		log:     log,
		clients: make(map[net.Conn]struct{}),
	}
}

// add registers conn and sends it the initial snapshot.
func (h *hub) add(conn net.Conn, initial []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		_ = conn.Close()
		return false
	}
	if err := write(conn, initial); err != nil {
		_ = conn.Close()
		return false
	}
	h.clients[conn] = struct{}{}
	return true
}

func (h *hub) remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// drain reads client frames until the client goes away.
func (h *hub) drain(conn net.Conn) {
	for {
		if _, _, err := wsutil.ReadClientData(conn); err != nil {
			break
		}
	}
	h.remove(conn)
}

func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if err := write(c, data); err != nil {
			h.log.Warn("dropping snapshot watcher", logger.String("remote", c.RemoteAddr().String()), logger.Error(err))
			delete(h.clients, c)
			_ = c.Close()
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

func write(conn net.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsutil.WriteServerMessage(conn, ws.OpText, data)
}
