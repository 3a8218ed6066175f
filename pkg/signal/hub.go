package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/metrics"
)

// catalogWriteTimeout bounds the asynchronous room row updates.
const catalogWriteTimeout = 5 * time.Second

// roomCodeLen is the fixed room code length. It matches the p2p_rooms.code
// column, which is sized for exactly this many characters.
const roomCodeLen = 6

// catalogQueueSize bounds the pending room row writes.
const catalogQueueSize = 128

var (
	peerJoinedMsg = mustMarshal(&Envelope{Type: TypePeerJoined})
	peerLeftMsg   = mustMarshal(&Envelope{Type: TypePeerLeft})
)

// Config holds hub tuning. Zero values select the defaults.
type Config struct {
	// IdleTimeout is the read deadline between client frames; keepalive
	// pings reset it. Default 60s.
	IdleTimeout time.Duration

	// RoomTTL caps both room and connection lifetime. Default 1h.
	RoomTTL time.Duration
}

// room is the in-memory presence slot pair plus the cached file metadata the
// host announced. Guarded by the hub mutex.
type room struct {
	code      string
	hostID    string
	host      *conn
	peer      *conn
	fileName  string
	fileSize  int64
	createdAt time.Time
}

// RoomInfo is a snapshot of one hub room, used by the janitor for
// reconciliation.
type RoomInfo struct {
	Code      string
	CreatedAt time.Time
	HasPeer   bool
}

// Hub is the signaling registry. It is authoritative for live presence; the
// catalog's p2p_rooms rows are a durable mirror written asynchronously, so
// forwarding never blocks on the database.
type Hub struct {
	catalog *catalog.Store
	metrics *metrics.Metrics

	idleTimeout time.Duration
	maxLifetime time.Duration

	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*room

	writes chan func(ctx context.Context)
}

// NewHub creates a signaling hub.
func NewHub(cat *catalog.Store, m *metrics.Metrics, cfg Config) *Hub {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = time.Hour
	}
	h := &Hub{
		catalog:     cat,
		metrics:     m,
		idleTimeout: cfg.IdleTimeout,
		maxLifetime: cfg.RoomTTL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser clients are served from arbitrary origins in
			// front of this service; room codes gate access.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms:  make(map[string]*room),
		writes: make(chan func(ctx context.Context), catalogQueueSize),
	}
	go h.runCatalogWrites()
	return h
}

// ServeHTTP upgrades the request and runs the connection pumps. It returns
// when the connection dies.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.Debug("websocket upgrade failed",
			logger.ClientIP(r.RemoteAddr), logger.Err(err))
		return
	}

	c := newConn(h, ws)
	go c.writePump()
	c.readPump()
}

// handle dispatches one inbound envelope. Returns false when the connection
// must close.
func (h *Hub) handle(c *conn, env *Envelope, raw []byte) bool {
	h.metrics.IncSignalingMessage(env.Type)

	if c.roomCode == "" && env.Type != TypeJoin {
		c.sendError("First message must be join")
		c.terminate(websocket.ClosePolicyViolation, "join required")
		return false
	}

	switch env.Type {
	case TypeJoin:
		h.handleJoin(c, env)
	case TypeOffer, TypeAnswer, TypeICECandidate:
		h.forward(c, raw)
	case TypeFileInfo:
		h.handleFileInfo(c, env, raw)
	default:
		c.sendError("Unknown message type")
	}
	return true
}

// normalizeRoomCode canonicalizes a client-chosen room code: uppercase,
// alphanumeric, exactly roomCodeLen characters.
func normalizeRoomCode(code string) (string, bool) {
	if len(code) != roomCodeLen {
		return "", false
	}
	buf := []byte(code)
	for i, b := range buf {
		switch {
		case b >= 'a' && b <= 'z':
			buf[i] = b - 'a' + 'A'
		case b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		default:
			return "", false
		}
	}
	return string(buf), true
}

func (h *Hub) handleJoin(c *conn, env *Envelope) {
	if c.roomCode != "" {
		c.sendError("Already joined")
		return
	}
	code, ok := normalizeRoomCode(env.RoomCode)
	if !ok {
		c.sendError("Invalid room code")
		return
	}

	if env.HostID != "" {
		h.joinAsHost(c, code, env)
	} else {
		h.joinAsPeer(c, code)
	}
}

func (h *Hub) joinAsHost(c *conn, code string, env *Envelope) {
	var meta filePayload
	if len(env.Payload) > 0 {
		// Bad metadata is not fatal; the host can re-announce via file-info.
		_ = json.Unmarshal(env.Payload, &meta)
	}

	h.mu.Lock()
	if existing, ok := h.rooms[code]; ok && existing.host != nil {
		h.mu.Unlock()
		c.sendError("Room already exists")
		return
	}
	now := time.Now()
	h.rooms[code] = &room{
		code:      code,
		hostID:    env.HostID,
		host:      c,
		fileName:  meta.FileName,
		fileSize:  meta.FileSize,
		createdAt: now,
	}
	c.roomCode = code
	c.role = RoleHost
	count := len(h.rooms)
	h.mu.Unlock()

	h.metrics.SetActiveRooms(count)
	logger.Info("room created",
		logger.RoomCode(code), logger.Role(RoleHost), logger.Size(meta.FileSize))

	h.async(func(ctx context.Context) {
		room := &catalog.Room{
			Code:      code,
			HostID:    env.HostID,
			FileName:  meta.FileName,
			FileSize:  meta.FileSize,
			CreatedAt: now,
			ExpiresAt: now.Add(h.maxLifetime),
		}
		if err := h.catalog.CreateRoom(ctx, room); err != nil && !errors.Is(err, catalog.ErrDuplicateRoom) {
			logger.Warn("room row create failed", logger.RoomCode(code), logger.Err(err))
		}
	})

	payload, _ := json.Marshal(readyPayload{Role: RoleHost})
	c.enqueue(mustMarshal(&Envelope{Type: TypeReady, Payload: payload}))
}

func (h *Hub) joinAsPeer(c *conn, code string) {
	h.mu.Lock()
	rm, ok := h.rooms[code]
	if !ok || rm.host == nil {
		h.mu.Unlock()
		c.sendError("Room not found or host disconnected")
		return
	}
	if rm.peer != nil {
		h.mu.Unlock()
		c.sendError("Room occupied")
		return
	}
	rm.peer = c
	c.roomCode = code
	c.role = RolePeer
	host := rm.host
	fileName, fileSize := rm.fileName, rm.fileSize
	h.mu.Unlock()

	logger.Info("peer joined", logger.RoomCode(code))

	payload, _ := json.Marshal(readyPayload{
		Role:     RolePeer,
		FileName: fileName,
		FileSize: fileSize,
	})
	c.enqueue(mustMarshal(&Envelope{Type: TypeReady, Payload: payload}))
	host.enqueue(peerJoinedMsg)

	h.async(func(ctx context.Context) {
		if err := h.catalog.UpdateRoomStatus(ctx, code, catalog.RoomConnected); err != nil {
			logger.Warn("room status update failed", logger.RoomCode(code), logger.Err(err))
		}
	})
}

// forward relays an envelope verbatim to the counterparty. Without one the
// message is dropped silently, matching trickle semantics: candidates sent
// before the peer arrives are simply never delivered.
func (h *Hub) forward(c *conn, raw []byte) {
	h.mu.Lock()
	rm, ok := h.rooms[c.roomCode]
	var dst *conn
	if ok {
		if c.role == RoleHost {
			dst = rm.peer
		} else {
			dst = rm.host
		}
	}
	h.mu.Unlock()

	if dst != nil {
		dst.enqueue(raw)
	}
}

// handleFileInfo updates the announced metadata and relays it to the peer.
// Only the host may announce; a peer's file-info is silently ignored.
func (h *Hub) handleFileInfo(c *conn, env *Envelope, raw []byte) {
	if c.role != RoleHost {
		return
	}

	var meta filePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &meta); err != nil {
			c.sendError("Malformed file-info payload")
			return
		}
	}

	h.mu.Lock()
	rm, ok := h.rooms[c.roomCode]
	var peer *conn
	if ok {
		rm.fileName = meta.FileName
		rm.fileSize = meta.FileSize
		peer = rm.peer
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	if peer != nil {
		peer.enqueue(raw)
	}

	code := c.roomCode
	h.async(func(ctx context.Context) {
		err := h.catalog.UpdateRoomFileInfo(ctx, code, meta.FileName, meta.FileSize)
		if err != nil && !errors.Is(err, catalog.ErrRoomNotFound) {
			logger.Warn("room file info update failed", logger.RoomCode(code), logger.Err(err))
		}
	})
}

// disconnect detaches a dead connection from its room. A host leaving tears
// the room down; a peer leaving clears the slot and the room returns to
// waiting for the next peer.
func (h *Hub) disconnect(c *conn) {
	if c.roomCode == "" {
		return
	}
	code := c.roomCode

	h.mu.Lock()
	rm, ok := h.rooms[code]
	if !ok {
		h.mu.Unlock()
		return
	}

	switch c {
	case rm.host:
		peer := rm.peer
		delete(h.rooms, code)
		count := len(h.rooms)
		h.mu.Unlock()

		if peer != nil {
			peer.enqueue(peerLeftMsg)
			peer.terminate(websocket.CloseNormalClosure, "host disconnected")
		}
		h.metrics.SetActiveRooms(count)
		logger.Info("room torn down", logger.RoomCode(code))

		h.async(func(ctx context.Context) {
			err := h.catalog.DeleteRoom(ctx, code)
			if err != nil && !errors.Is(err, catalog.ErrRoomNotFound) {
				logger.Warn("room row delete failed", logger.RoomCode(code), logger.Err(err))
			}
		})

	case rm.peer:
		rm.peer = nil
		host := rm.host
		h.mu.Unlock()

		host.enqueue(peerLeftMsg)
		logger.Info("peer left", logger.RoomCode(code))

		h.async(func(ctx context.Context) {
			err := h.catalog.UpdateRoomStatus(ctx, code, catalog.RoomWaiting)
			if err != nil && !errors.Is(err, catalog.ErrRoomNotFound) {
				logger.Warn("room status update failed", logger.RoomCode(code), logger.Err(err))
			}
		})

	default:
		h.mu.Unlock()
	}
}

// ActiveRooms returns a snapshot of the hub's rooms for reconciliation.
func (h *Hub) ActiveRooms() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	infos := make([]RoomInfo, 0, len(h.rooms))
	for _, rm := range h.rooms {
		infos = append(infos, RoomInfo{
			Code:      rm.code,
			CreatedAt: rm.createdAt,
			HasPeer:   rm.peer != nil,
		})
	}
	return infos
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// TearDown force-closes a room's connections and removes it from the hub.
// Used by the janitor for expired or orphaned rooms. Reports whether the
// room was present.
func (h *Hub) TearDown(code string, reason string) bool {
	code, ok := normalizeRoomCode(code)
	if !ok {
		return false
	}

	h.mu.Lock()
	rm, present := h.rooms[code]
	if !present {
		h.mu.Unlock()
		return false
	}
	delete(h.rooms, code)
	count := len(h.rooms)
	h.mu.Unlock()

	for _, c := range []*conn{rm.host, rm.peer} {
		if c != nil {
			c.terminate(websocket.CloseNormalClosure, reason)
		}
	}
	h.metrics.SetActiveRooms(count)
	logger.Info("room torn down", logger.RoomCode(code), "reason", reason)
	return true
}

// async queues a catalog write off the forwarding path. A single writer
// goroutine applies queued writes in submission order, so a status written
// for an earlier event can never overwrite one written for a later event.
func (h *Hub) async(fn func(ctx context.Context)) {
	if h.catalog == nil {
		return
	}
	h.writes <- fn
}

func (h *Hub) runCatalogWrites() {
	for fn := range h.writes {
		ctx, cancel := context.WithTimeout(context.Background(), catalogWriteTimeout)
		fn(ctx)
		cancel()
	}
}
