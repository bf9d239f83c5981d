/*
Package server implements the development chat server: one Chatter per
websocket connection, Rooms as run-loop hubs, and a Manager coordinating
room lifecycles.

This file defines the Chatter struct. It owns the read/write pumps for a
single connection, answers the connection-scoped requests itself
(SET_NICKNAME, GET_NICKNAME, LIST_ROOMS) and routes everything else to the
named room through the Manager.
*/
package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gabber/internal/app/protocol"
	"gabber/internal/pkg/errs"
	"gabber/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = 45 * time.Second

	// maximum allowed size (in bytes) of a request sent by the client.
	maxMessageSize = 8192

	// capacity of the per-chatter response queue.
	responseQueueSize = 256
)

// Chatter represents one connected chat client on the server.
type Chatter struct {
	// ID uniquely identifies this connection for stats and logging.
	ID string

	// the manager this chatter is attached to.
	manager *Manager

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// remote address captured at upgrade time.
	remoteAddr string

	// maximum idle time before the connection is dropped; zero disables it.
	maxIdle time.Duration

	// a buffered channel of marshaled responses waiting to be written.
	responses chan []byte

	// closed exactly once when the chatter shuts down.
	done chan struct{}

	// closeOnce guards the done channel.
	closeOnce sync.Once

	// mu protects nickname and the counters below.
	mu       sync.Mutex
	nickname string
	start    time.Time
	lastReq  time.Time
	lastRsp  time.Time
	reqCount uint64
	rspCount uint64

	// structured logger with chatter context.
	logger zerolog.Logger
}

// NewChatter constructs a Chatter around an upgraded connection. Run must
// be called to start the pumps.
func NewChatter(m *Manager, conn *websocket.Conn, maxIdle time.Duration) *Chatter {
	id := uuid.NewString()

	return &Chatter{
		ID:         id,
		manager:    m,
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		maxIdle:    maxIdle,
		responses:  make(chan []byte, responseQueueSize),
		done:       make(chan struct{}),
		logger: logx.Logger().With().
			Str("chatter_id", id).
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
	}
}

// Run starts the write pump in the background and blocks in the read pump
// until the connection is gone. On return the chatter has been removed
// from all rooms.
func (c *Chatter) Run() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()

	c.manager.addChatter(c)

	go c.writePump()
	c.readPump()

	c.shutDown()
}

// readPump reads requests off the connection until it fails, applying the
// optional idle deadline before every read.
func (c *Chatter) readPump() {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		if c.maxIdle > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.maxIdle)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set read deadline")
				return
			}
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Chatter connection lost")
			} else {
				c.logger.Info().Msg("Chatter disconnected")
			}
			return
		}

		c.mu.Lock()
		c.lastReq = time.Now()
		c.reqCount++
		c.mu.Unlock()

		c.handleRequest(data)
	}
}

// handleRequest parses one inbound frame and dispatches it. Connection
// scoped requests are answered here; room-scoped requests go through the
// manager to the named room's run loop.
func (c *Chatter) handleRequest(data []byte) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		c.logger.Warn().Err(err).Bytes("frame", data).Msg("Chatter sent invalid JSON")
		c.SendError(errs.NewError(protocol.RspErrUnknownRequest))
		return
	}

	c.logger.Debug().Str("request", req.String()).Msg("Request received")

	switch req.ReqType {
	case protocol.ReqSetNickname:
		c.setNickname(req.Content)
	case protocol.ReqGetNickname:
		c.SendResponse(protocol.RspGetNickname, c.Nickname(), nil)
	case protocol.ReqListRooms:
		c.SendResponse(protocol.RspListRooms, "", c.manager.List())
	case protocol.ReqJoin, protocol.ReqListNames, protocol.ReqHide,
		protocol.ReqUnhide, protocol.ReqMsg, protocol.ReqLeave:
		c.routeToRoom(req)
	default:
		c.SendError(errs.NewError(protocol.RspErrUnknownRequest))
	}
}

// setNickname validates and records the chatter's nickname.
func (c *Chatter) setNickname(nickname string) {
	if nickname == "" {
		c.SendError(errs.NewError(protocol.RspErrNicknameMandatory))
		return
	}

	c.mu.Lock()
	c.nickname = nickname
	c.mu.Unlock()

	c.SendResponse(protocol.RspSetNickname, `Nickname set to "`+nickname+`".`, nil)
}

// routeToRoom hands a room-scoped request to the named room, creating the
// room when it does not exist yet.
func (c *Chatter) routeToRoom(req protocol.Request) {
	if req.RoomName == "" {
		c.SendError(errs.NewError(protocol.RspErrRoomMandatory))
		return
	}

	room, chatErr := c.manager.FindCreate(req.RoomName)
	if chatErr != nil {
		c.SendError(chatErr)
		return
	}

	room.Submit(roomRequest{chatter: c, req: req})
}

// writePump drains the response queue onto the connection and keeps the
// heartbeat alive. It owns all writes to the socket.
func (c *Chatter) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Chatter connection close error in write pump")
		}
	}()

	for {
		select {
		case <-c.done:
			deadline := time.Now().Add(writeWait)
			if err := c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing close message")
			}
			return

		case data := <-c.responses:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Info().Err(err).Msg("Error writing response")
				return
			}

			c.mu.Lock()
			c.lastRsp = time.Now()
			c.rspCount++
			c.mu.Unlock()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Info().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// shutDown signals the write pump, removes the chatter from every room it
// joined, and deregisters it from the manager. Safe to call once; Run is
// its only caller.
func (c *Chatter) shutDown() {
	c.closeOnce.Do(func() { close(c.done) })
	c.manager.RemoveChatterAllRooms(c)
	c.manager.removeChatter(c)
}

// Stop forces the chatter down from outside, used during server shutdown.
func (c *Chatter) Stop() {
	c.closeOnce.Do(func() { close(c.done) })
	// Breaks the read pump.
	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Chatter connection close error on stop")
	}
}

// Nickname returns the chatter's current nickname.
func (c *Chatter) Nickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

// SendResponse queues a response for delivery to the remote client.
// Responses for a chatter that is already gone are dropped.
func (c *Chatter) SendResponse(t protocol.ResponseType, content string, list []string) {
	if list == nil {
		list = []string{}
	}

	rsp := protocol.Response{RspType: t, Content: content, List: list}
	data, err := json.Marshal(rsp)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling response")
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.responses <- data:
	default:
		c.logger.Warn().Int("queue_len", len(c.responses)).Msg("Response queue full, dropping response")
	}
}

// SendError queues an ERR_* response built from the error table.
func (c *Chatter) SendError(chatErr *errs.ChatError) {
	c.SendResponse(chatErr.Type, chatErr.Message, nil)
}

// ChatterStats is the per-connection slice of the stats surface.
type ChatterStats struct {
	ID         string    `json:"id"`
	Nickname   string    `json:"nickname"`
	RemoteAddr string    `json:"remoteAddr"`
	Start      time.Time `json:"start"`
	LastReq    time.Time `json:"lastReq"`
	LastRsp    time.Time `json:"lastRsp"`
	ReqCount   uint64    `json:"reqCount"`
	RspCount   uint64    `json:"rspCount"`
}

// Stats snapshots the chatter's counters.
func (c *Chatter) Stats() ChatterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ChatterStats{
		ID:         c.ID,
		Nickname:   c.nickname,
		RemoteAddr: c.remoteAddr,
		Start:      c.start,
		LastReq:    c.lastReq,
		LastRsp:    c.lastRsp,
		ReqCount:   c.reqCount,
		RspCount:   c.rspCount,
	}
}
