package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

var (
	ErrRoomFull            = errors.New("room is full")
	ErrUnknownRoomOrPlayer = errors.New("unknown room or player")
)

// JoinResult is what a successful join hands back to the gateway.
type JoinResult struct {
	RoomID    string
	PlayerID  string
	PlayerNum uint64
	Name      string
	Count     int
	Map       MapInfo
}

// LeaveResult describes a completed leave.
type LeaveResult struct {
	Name       string
	Count      int
	RoomClosed bool
}

// TickResult is one room's output for one tick.
type TickResult struct {
	RoomID string
	Events []Event
	State  GameState
}

// RoomRegistry owns every room. Join and leave serialize against TickAll;
// inputs only touch a room's mailbox.
type RoomRegistry struct {
	mu    sync.RWMutex
	cfg   GameConfig
	rooms map[string]*Room
	clock Clock
	ids   IDGenerator
	seq   uint64
	seed  uint64
	made  uint64
}

// NewRoomRegistry creates an empty registry. Room RNGs are derived from seed,
// so the same seed and the same sequence of calls replay identically.
func NewRoomRegistry(cfg GameConfig, clock Clock, ids IDGenerator, seed uint64) *RoomRegistry {
	cfg = cfg.Sanitize()
	return &RoomRegistry{
		cfg:   cfg,
		rooms: make(map[string]*Room),
		clock: clock,
		ids:   ids,
		seed:  seed,
	}
}

// Config returns the sanitized tuning the registry runs with.
func (rr *RoomRegistry) Config() GameConfig {
	return rr.cfg
}

// Join adds a player to roomID, creating the room if needed.
func (rr *RoomRegistry) Join(roomID, name string) (JoinResult, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	room, ok := rr.rooms[roomID]
	if !ok {
		rr.made++
		rng := rand.New(rand.NewPCG(rr.seed, rr.made))
		room = NewRoom(roomID, &rr.cfg, rng, rr.ids, rr.clock.Now())
		rr.rooms[roomID] = room
		log.Printf("room %s: created", roomID)
	}
	if room.PlayerCount() >= rr.cfg.MaxPlayersPerRoom {
		return JoinResult{}, fmt.Errorf("join %q: %w", roomID, ErrRoomFull)
	}

	rr.seq++
	p := room.addPlayer(name, rr.seq)
	return JoinResult{
		RoomID:    roomID,
		PlayerID:  p.ID,
		PlayerNum: p.Seq,
		Name:      p.Name,
		Count:     room.PlayerCount(),
		Map:       room.MapInfo(),
	}, nil
}

// Leave removes a player and drops the room once it is empty.
func (rr *RoomRegistry) Leave(roomID, playerID string) (LeaveResult, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	room, ok := rr.rooms[roomID]
	if !ok {
		return LeaveResult{}, ErrUnknownRoomOrPlayer
	}
	p, ok := room.removePlayer(playerID)
	if !ok {
		return LeaveResult{}, ErrUnknownRoomOrPlayer
	}
	res := LeaveResult{Name: p.Name, Count: room.PlayerCount()}
	if res.Count == 0 {
		delete(rr.rooms, roomID)
		res.RoomClosed = true
		log.Printf("room %s: closed", roomID)
	}
	return res, nil
}

// SetInput stages keys for the player's next tick.
func (rr *RoomRegistry) SetInput(roomID, playerID string, keys Keys) error {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	room, ok := rr.rooms[roomID]
	if !ok {
		return ErrUnknownRoomOrPlayer
	}
	if _, ok := room.players[playerID]; !ok {
		return ErrUnknownRoomOrPlayer
	}
	room.stageInput(playerID, keys)
	return nil
}

// TickAll runs one tick in every room and snapshots each one. A room that
// panics is logged and skipped; the others still tick.
func (rr *RoomRegistry) TickAll() []TickResult {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	now := rr.clock.Now()
	ids := make([]string, 0, len(rr.rooms))
	for id := range rr.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]TickResult, 0, len(ids))
	for _, id := range ids {
		if res, ok := tickRoom(rr.rooms[id], now); ok {
			results = append(results, res)
		}
	}
	return results
}

func tickRoom(room *Room, now time.Time) (res TickResult, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("room %s: tick panic: %v\n%s", room.ID, rec, debug.Stack())
			ok = false
		}
	}()
	events := room.Tick(now)
	return TickResult{RoomID: room.ID, Events: events, State: room.Snapshot(now)}, true
}

// RoomCount returns the number of live rooms
func (rr *RoomRegistry) RoomCount() int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return len(rr.rooms)
}

// ListRooms returns the live rooms ordered by id.
func (rr *RoomRegistry) ListRooms() []RoomInfo {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	list := make([]RoomInfo, 0, len(rr.rooms))
	for _, room := range rr.rooms {
		list = append(list, RoomInfo{
			ID:       room.ID,
			Players:  room.PlayerCount(),
			Capacity: rr.cfg.MaxPlayersPerRoom,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// RoomDetails returns per-player detail for the admin API.
func (rr *RoomRegistry) RoomDetails() []RoomDetail {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	out := make([]RoomDetail, 0, len(rr.rooms))
	for _, room := range rr.rooms {
		d := RoomDetail{
			ID:      room.ID,
			Tick:    room.tick,
			Bullets: len(room.bullets),
			Bombs:   len(room.bombs),
			Players: make([]PlayerDetail, 0, len(room.order)),
		}
		for _, p := range room.order {
			d.Players = append(d.Players, PlayerDetail{
				ID:     p.ID,
				Seq:    p.Seq,
				Name:   p.Name,
				Alive:  p.Alive,
				HP:     p.HP,
				Kills:  p.Kills,
				Deaths: p.Deaths,
			})
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
