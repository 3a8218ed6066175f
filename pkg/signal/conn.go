package signal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Maximum message size allowed from a client. Session descriptors with
	// many candidates stay well under this.
	maxMessageSize = 64 << 10

	// Outbound buffer per connection. A client that falls this far behind
	// is closed rather than allowed to stall the sender.
	sendBuffer = 256
)

// conn is one signaling participant. Its identity inside the hub is the room
// code plus role; the hub's room map is the single owner of the pairing, and
// conns never hold a pointer to their counterparty.
type conn struct {
	hub *Hub
	ws  *websocket.Conn

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	closeCode int
	closeText string

	// roomCode and role are set once on a successful join, by readPump.
	roomCode string
	role     string
}

func newConn(hub *Hub, ws *websocket.Conn) *conn {
	return &conn{
		hub:       hub,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		closeCode: websocket.CloseNormalClosure,
	}
}

// enqueue queues an outbound message, closing the connection if the client
// cannot keep up.
func (c *conn) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		logger.Warn("signaling client too slow, closing",
			logger.RoomCode(c.roomCode), logger.Role(c.role))
		c.terminate(websocket.CloseInternalServerErr, "send buffer full")
	}
}

// sendError queues a terminal error envelope. The connection stays open; the
// client decides whether to retry with another message.
func (c *conn) sendError(message string) {
	c.enqueue(errorEnvelope(message))
}

// terminate records the close reason and wakes the write pump, which delivers
// the close frame. Safe to call multiple times; the first reason wins.
func (c *conn) terminate(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = text
		close(c.done)
	})
}

// readPump reads client envelopes until the connection dies, then detaches
// the conn from the hub. Single reader per connection: forwarding from here
// preserves per-sender order.
func (c *conn) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.terminate(websocket.CloseNormalClosure, "")
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.idleTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.hub.idleTimeout))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.hub.idleTimeout))

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("Malformed message")
			continue
		}

		if !c.hub.handle(c, &env, raw) {
			return
		}
	}
}

// writePump delivers queued messages and keepalive pings, and enforces the
// maximum connection lifetime. It owns all writes to the socket.
func (c *conn) writePump() {
	pingPeriod := c.hub.idleTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	lifetime := time.NewTimer(c.hub.maxLifetime)
	defer func() {
		ticker.Stop()
		lifetime.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-lifetime.C:
			c.writeClose(websocket.CloseNormalClosure, "room lifetime exceeded")
			return
		case <-c.done:
			// Drain anything queued ahead of the close frame.
			for {
				select {
				case msg := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					c.writeClose(c.closeCode, c.closeText)
					return
				}
			}
		}
	}
}

func (c *conn) writeClose(code int, text string) {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text))
}
