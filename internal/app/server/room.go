/*
Package server implements the development chat server.

This file defines the Room struct, the hub for a single chat room. A room
runs one goroutine that serializes every membership change and message, so
roster order and history are consistent without per-field locking in the
hot path.
*/
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gabber/internal/app/history"
	"gabber/internal/app/protocol"
	"gabber/internal/pkg/errs"
	"gabber/internal/pkg/logx"
)

const (
	// capacity of the room's request queue.
	requestQueueSize = 128

	// recordTimeout bounds each archive write.
	recordTimeout = 5 * time.Second
)

// roomRequest pairs an inbound request with the chatter who issued it.
type roomRequest struct {
	chatter *Chatter
	req     protocol.Request
}

// member is a chatter's presence inside one room.
type member struct {
	chatter *Chatter
	hidden  bool
}

// Room is a single chat room: a roster in join order, a bounded message
// history, and a run loop consuming requests.
type Room struct {
	// Name identifies the room on the wire.
	Name string

	// requests feeds the run loop; closed by the manager on shutdown.
	requests chan roomRequest

	// members holds the roster in join order.
	members []*member

	// history holds the most recent broadcast lines, oldest first.
	history    []string
	maxHistory int

	// msgCount counts broadcast chat messages for stats.
	msgCount uint64

	// recorder archives broadcast traffic.
	recorder history.Recorder

	// mu protects members, history and msgCount against stats reads.
	mu sync.RWMutex

	// structured logger with room context.
	logger zerolog.Logger
}

// NewRoom creates a Room. The manager starts its run loop.
func NewRoom(name string, maxHistory int, recorder history.Recorder) *Room {
	return &Room{
		Name:       name,
		requests:   make(chan roomRequest, requestQueueSize),
		maxHistory: maxHistory,
		recorder:   recorder,
		logger:     logx.Logger().With().Str("room", name).Logger(),
	}
}

// Submit queues a request for the room's run loop. A full queue drops the
// request rather than blocking a chatter's read pump.
func (r *Room) Submit(rr roomRequest) {
	defer func() {
		if recover() != nil {
			// Queue closed during shutdown; the request no longer matters.
			r.logger.Debug().Msg("Room request queue closed, dropping request")
		}
	}()

	select {
	case r.requests <- rr:
	default:
		r.logger.Warn().Str("chatter_id", rr.chatter.ID).Msg("Room request queue full, dropping request")
	}
}

// Run consumes requests until the channel is closed. The manager runs it
// on its own goroutine and waits for it during shutdown.
func (r *Room) Run(wg *sync.WaitGroup) {
	defer wg.Done()

	r.logger.Info().Msg("Room run loop started")

	for rr := range r.requests {
		switch rr.req.ReqType {
		case protocol.ReqJoin:
			r.join(rr.chatter)
		case protocol.ReqListNames:
			r.listNames(rr.chatter)
		case protocol.ReqHide:
			r.setHidden(rr.chatter, true)
		case protocol.ReqUnhide:
			r.setHidden(rr.chatter, false)
		case protocol.ReqMsg:
			r.message(rr.chatter, rr.req.Content)
		case protocol.ReqLeave:
			r.leave(rr.chatter)
		default:
			rr.chatter.SendError(errs.NewError(protocol.RspErrUnknownRequest))
		}
	}

	r.logger.Info().Msg("Room run loop finished")
}

// join adds the chatter to the roster, replays history to it and announces
// the arrival to everyone else.
func (r *Room) join(c *Chatter) {
	nickname := c.Nickname()
	if nickname == "" {
		c.SendError(errs.NewError(protocol.RspErrNicknameMandatory))
		return
	}

	r.mu.Lock()
	for _, m := range r.members {
		if m.chatter == c {
			r.mu.Unlock()
			c.SendError(errs.NewError(protocol.RspErrAlreadyJoined, r.Name))
			return
		}
		if m.chatter.Nickname() == nickname {
			r.mu.Unlock()
			c.SendError(errs.NewError(protocol.RspErrNicknameUsed, nickname, r.Name))
			return
		}
	}

	r.members = append(r.members, &member{chatter: c})
	roster := r.visibleNamesLocked()
	replay := make([]string, len(r.history))
	copy(replay, r.history)
	r.mu.Unlock()

	c.SendResponse(protocol.RspJoin, fmt.Sprintf(`You have joined room "%s".`, r.Name), roster)
	for _, line := range replay {
		c.SendResponse(protocol.RspMsg, line, nil)
	}

	r.broadcastExcept(c, protocol.RspJoin, fmt.Sprintf("%s has joined the room.", nickname), roster)

	r.logger.Info().Str("nickname", nickname).Int("members", len(roster)).Msg("Chatter joined room")
}

// leave removes the chatter from the roster and announces the departure.
// Leaving a room it is not in is a no-op; disconnect cleanup routes every
// chatter through here regardless of membership.
func (r *Room) leave(c *Chatter) {
	r.mu.Lock()
	idx := -1
	for i, m := range r.members {
		if m.chatter == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return
	}

	nickname := c.Nickname()
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	roster := r.visibleNamesLocked()
	r.mu.Unlock()

	c.SendResponse(protocol.RspLeave, fmt.Sprintf(`You have left room "%s".`, r.Name), roster)
	r.broadcastExcept(c, protocol.RspLeave, fmt.Sprintf("%s has left the room.", nickname), roster)

	r.logger.Info().Str("nickname", nickname).Int("members", len(roster)).Msg("Chatter left room")
}

// listNames replies with the visible roster. The roster is public; the
// chatter need not be a member to ask.
func (r *Room) listNames(c *Chatter) {
	r.mu.RLock()
	roster := r.visibleNamesLocked()
	r.mu.RUnlock()

	c.SendResponse(protocol.RspListNames, "", roster)
}

// setHidden flips the chatter's visibility in this room.
func (r *Room) setHidden(c *Chatter, hidden bool) {
	r.mu.Lock()
	var target *member
	for _, m := range r.members {
		if m.chatter == c {
			target = m
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		c.SendError(errs.NewError(protocol.RspErrRoomUnavailable, r.Name))
		return
	}
	target.hidden = hidden
	r.mu.Unlock()

	if hidden {
		c.SendResponse(protocol.RspHide, "You are now hidden.", nil)
	} else {
		c.SendResponse(protocol.RspUnhide, "You are now visible.", nil)
	}
}

// message broadcasts a chat line from the chatter to the whole room,
// records it, and appends it to the bounded history.
func (r *Room) message(c *Chatter, content string) {
	r.mu.Lock()
	var sender *member
	for _, m := range r.members {
		if m.chatter == c {
			sender = m
			break
		}
	}
	if sender == nil {
		r.mu.Unlock()
		c.SendError(errs.NewError(protocol.RspErrRoomUnavailable, r.Name))
		return
	}
	if sender.hidden {
		r.mu.Unlock()
		c.SendError(errs.NewError(protocol.RspErrHiddenNickname))
		return
	}

	nickname := c.Nickname()
	line := fmt.Sprintf("%s: %s", nickname, content)

	r.history = append(r.history, line)
	if r.maxHistory > 0 && len(r.history) > r.maxHistory {
		r.history = r.history[len(r.history)-r.maxHistory:]
	}
	r.msgCount++

	recipients := make([]*Chatter, 0, len(r.members))
	for _, m := range r.members {
		recipients = append(recipients, m.chatter)
	}
	r.mu.Unlock()

	for _, recipient := range recipients {
		recipient.SendResponse(protocol.RspMsg, line, nil)
	}

	go r.record(nickname, content)
}

// record archives one message, fire and forget.
func (r *Room) record(sender, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.recorder.Record(ctx, r.Name, sender, content); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to archive message")
	}
}

// broadcastExcept sends a response to every member but one.
func (r *Room) broadcastExcept(exclude *Chatter, t protocol.ResponseType, content string, list []string) {
	r.mu.RLock()
	recipients := make([]*Chatter, 0, len(r.members))
	for _, m := range r.members {
		if m.chatter != exclude {
			recipients = append(recipients, m.chatter)
		}
	}
	r.mu.RUnlock()

	for _, recipient := range recipients {
		recipient.SendResponse(t, content, list)
	}
}

// visibleNamesLocked returns the nicknames of non-hidden members in join
// order. Callers hold r.mu.
func (r *Room) visibleNamesLocked() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if !m.hidden {
			names = append(names, m.chatter.Nickname())
		}
	}
	return names
}

// RoomStats is the per-room slice of the stats surface.
type RoomStats struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	HiddenCount int    `json:"hiddenCount"`
	MsgCount    uint64 `json:"msgCount"`
}

// Stats snapshots the room's counters.
func (r *Room) Stats() RoomStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hidden := 0
	for _, m := range r.members {
		if m.hidden {
			hidden++
		}
	}

	return RoomStats{
		Name:        r.Name,
		MemberCount: len(r.members),
		HiddenCount: hidden,
		MsgCount:    r.msgCount,
	}
}
