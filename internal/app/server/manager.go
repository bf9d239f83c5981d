/*
Package server implements the development chat server.

This file defines the Manager struct, which owns every Room and every
connected Chatter: find-or-create of rooms bounded by the configured
maximum, the room-name listing, disconnect cleanup, and graceful shutdown.
*/
package server

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gabber/internal/app/history"
	"gabber/internal/app/protocol"
	"gabber/internal/configs"
	"gabber/internal/pkg/errs"
	"gabber/internal/pkg/logx"
)

// Manager coordinates all active rooms and chatters.
type Manager struct {
	// rooms maps room name to its Room. Rooms persist until shutdown.
	rooms map[string]*Room

	// chatters maps chatter ID to every live connection, for stats and
	// shutdown.
	chatters map[string]*Chatter

	// config holds the server's read-only settings.
	config *configs.ServerConfig

	// recorder is handed to every room it creates.
	recorder history.Recorder

	// start is when the manager came up, for the stats surface.
	start time.Time

	// mu protects rooms and chatters.
	mu sync.RWMutex

	// wg tracks room run loops for shutdown.
	wg sync.WaitGroup

	// structured logger with manager context.
	logger zerolog.Logger
}

// NewManager constructs a Manager.
func NewManager(cfg *configs.ServerConfig, recorder history.Recorder) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		chatters: make(map[string]*Chatter),
		config:   cfg,
		recorder: recorder,
		start:    time.Now(),
		logger:   logx.Logger().With().Str("component", "manager").Logger(),
	}
}

// FindCreate returns the named room, creating and starting it when it does
// not exist yet. Creation fails once the configured room limit is reached.
func (m *Manager) FindCreate(name string) (*Room, *errs.ChatError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[name]; ok {
		return room, nil
	}

	if m.config.MaxRooms > 0 && len(m.rooms) >= m.config.MaxRooms {
		m.logger.Warn().Str("room", name).Int("max_rooms", m.config.MaxRooms).Msg("Room limit reached")
		return nil, errs.NewError(protocol.RspErrMaxRoomsReached)
	}

	room := NewRoom(name, m.config.MaxHistory, m.recorder)
	m.rooms[name] = room

	m.wg.Add(1)
	go room.Run(&m.wg)

	m.logger.Info().Str("room", name).Int("rooms", len(m.rooms)).Msg("Room created")
	return room, nil
}

// List returns the names of all rooms, sorted for stable output.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.rooms))
	for name := range m.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveChatterAllRooms submits a leave to every room on behalf of the
// chatter. Rooms it never joined treat the leave as a no-op.
func (m *Manager) RemoveChatterAllRooms(c *Chatter) {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.RUnlock()

	for _, room := range rooms {
		room.Submit(roomRequest{chatter: c, req: protocol.Request{RoomName: room.Name, ReqType: protocol.ReqLeave}})
	}
}

// addChatter registers a live connection for stats and shutdown.
func (m *Manager) addChatter(c *Chatter) {
	m.mu.Lock()
	m.chatters[c.ID] = c
	m.mu.Unlock()
}

// removeChatter deregisters a connection once its pumps are gone.
func (m *Manager) removeChatter(c *Chatter) {
	m.mu.Lock()
	delete(m.chatters, c.ID)
	m.mu.Unlock()
}

// Shutdown stops every chatter, closes every room's request queue, and
// waits for the room run loops to drain.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Manager shutting down")

	m.mu.Lock()
	for _, chatter := range m.chatters {
		chatter.Stop()
	}
	m.chatters = make(map[string]*Chatter)

	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, room := range rooms {
		close(room.requests)
	}
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete")
}

// ServerStats is the stats surface served on the stats route.
type ServerStats struct {
	Start    time.Time      `json:"startTime"`
	Rooms    []RoomStats    `json:"roomStats"`
	Chatters []ChatterStats `json:"chatterStats"`
}

// Stats snapshots every room and chatter.
func (m *Manager) Stats() ServerStats {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	chatters := make([]*Chatter, 0, len(m.chatters))
	for _, chatter := range m.chatters {
		chatters = append(chatters, chatter)
	}
	m.mu.RUnlock()

	stats := ServerStats{
		Start:    m.start,
		Rooms:    make([]RoomStats, 0, len(rooms)),
		Chatters: make([]ChatterStats, 0, len(chatters)),
	}
	for _, room := range rooms {
		stats.Rooms = append(stats.Rooms, room.Stats())
	}
	for _, chatter := range chatters {
		stats.Chatters = append(stats.Chatters, chatter.Stats())
	}

	sort.Slice(stats.Rooms, func(i, j int) bool { return stats.Rooms[i].Name < stats.Rooms[j].Name })
	sort.Slice(stats.Chatters, func(i, j int) bool { return stats.Chatters[i].ID < stats.Chatters[j].ID })

	return stats
}
