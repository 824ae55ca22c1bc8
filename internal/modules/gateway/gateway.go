package gateway

import (
	"net/http"
	"sync"

	"github.com/classpod/core/internal/modules/registry"
	"github.com/classpod/core/internal/modules/rooms"
	"github.com/classpod/core/internal/modules/submissions"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// Hub owns the socket.io server and the per-connection session state of
// the realtime coordination channel.
type Hub struct {
	sio      *socketio.Server
	registry *registry.Registry
	rooms    *rooms.Manager
	scopes   submissions.ScopeChecker
	intake   *submissions.Service
	logger   *zap.Logger

	mu    sync.RWMutex
	conns map[string]*connState // sid -> joined session
}

// connState is the resolved identity of one admitted connection. It is set
// once on a successful join and immutable afterwards.
type connState struct {
	userID      string
	classroomID string
	room        *rooms.Room
}

func NewHub(reg *registry.Registry, roomMgr *rooms.Manager, scopes submissions.ScopeChecker, intake *submissions.Service, logger *zap.Logger) *Hub {
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		sio:      sio,
		registry: reg,
		rooms:    roomMgr,
		scopes:   scopes,
		intake:   intake,
		logger:   logger,
		conns:    make(map[string]*connState),
	}
	h.registerNamespaces()
	return h
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}

// Close shuts the socket.io server down.
func (h *Hub) Close() {
	h.sio.Close(nil)
}

func (h *Hub) stateOf(sid string) (*connState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.conns[sid]
	return st, ok
}

func (h *Hub) setState(sid string, st *connState) {
	h.mu.Lock()
	h.conns[sid] = st
	h.mu.Unlock()
}

func (h *Hub) dropState(sid string) {
	h.mu.Lock()
	delete(h.conns, sid)
	h.mu.Unlock()
}

// socketClient adapts a socket.io socket to the Sender interfaces consumed
// by the room manager and the signaling session. Delivery is best effort;
// a failed emit to one recipient never affects the others.
type socketClient struct {
	s *socketio.Socket
}

func (c socketClient) ID() string { return string(c.s.Id()) }

func (c socketClient) Send(event string, payload interface{}) {
	_ = c.s.Emit(event, payload)
}
