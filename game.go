package main

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Room holds the state for one arena. Everything except the input mailbox is
// owned by the tick; callers reach it through RoomRegistry.
type Room struct {
	ID  string
	cfg *GameConfig
	rng *rand.Rand
	ids IDGenerator

	players map[string]*Player
	order   []*Player // players by sequence number

	bullets     []*Bullet
	bombs       []*Bomb
	explosions  []*Explosion
	powerups    []*Powerup
	clouds      []Cloud
	lastPowerup time.Time
	tick        uint64

	grid     *SpatialGrid
	queryBuf []int

	inputMu sync.Mutex
	inputs  map[string]Keys
}

// NewRoom creates an empty room and generates its scenery.
func NewRoom(id string, cfg *GameConfig, rng *rand.Rand, ids IDGenerator, now time.Time) *Room {
	return &Room{
		ID:          id,
		cfg:         cfg,
		rng:         rng,
		ids:         ids,
		players:     make(map[string]*Player),
		clouds:      GenerateClouds(cfg.CloudCount, cfg, rng),
		lastPowerup: now,
		inputs:      make(map[string]Keys),
		grid:        NewSpatialGrid(cfg.ArenaWidth, cfg.ArenaHeight),
	}
}

// addPlayer inserts a new player. seq must be greater than any seq already
// in the room.
func (r *Room) addPlayer(name string, seq uint64) *Player {
	p := NewPlayer(r.ids.NextID(), name, seq, r.cfg, r.rng)
	r.players[p.ID] = p
	r.order = append(r.order, p)
	return p
}

func (r *Room) removePlayer(id string) (*Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	delete(r.players, id)
	for i, q := range r.order {
		if q == p {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.inputMu.Lock()
	delete(r.inputs, id)
	r.inputMu.Unlock()
	return p, true
}

// PlayerCount returns the number of players
func (r *Room) PlayerCount() int {
	return len(r.players)
}

// stageInput records keys for the next tick, replacing anything staged
// before.
func (r *Room) stageInput(playerID string, keys Keys) {
	r.inputMu.Lock()
	r.inputs[playerID] = keys
	r.inputMu.Unlock()
}

func (r *Room) drainInputs() {
	r.inputMu.Lock()
	defer r.inputMu.Unlock()
	for id, keys := range r.inputs {
		if p, ok := r.players[id]; ok {
			p.Keys = keys
		}
	}
	clear(r.inputs)
}

// Tick advances the room by one fixed step and returns what happened.
func (r *Room) Tick(now time.Time) []Event {
	cfg := r.cfg
	dt := cfg.Dt()
	r.tick++
	r.drainInputs()

	var events []Event

	r.maybeSpawnPowerup(now)

	for _, p := range r.order {
		if !p.Alive {
			if !p.RespawnAt.IsZero() && !now.Before(p.RespawnAt) {
				RespawnPlayer(p, cfg, r.rng)
				events = append(events, RespawnEvent{PlayerID: p.ID, PlayerName: p.Name})
			}
			continue
		}

		p.expirePowerup(now)
		p.Fly(cfg, dt)
		r.fireWeapons(p, now)
		events = r.collectPowerups(p, now, events)
	}

	r.indexPlayers()
	events = r.updateBullets(now, dt, events)
	events = r.updateBombs(now, events)
	r.pruneExplosions(now)

	return events
}

func (r *Room) maybeSpawnPowerup(now time.Time) {
	if len(r.powerups) >= r.cfg.MaxPowerups {
		return
	}
	if now.Sub(r.lastPowerup) <= secs(r.cfg.PowerupInterval) {
		return
	}
	r.powerups = append(r.powerups, NewPowerup(r.ids.NextID(), r.cfg, r.rng))
	r.lastPowerup = now
}

// collectPowerups applies and removes every powerup p is touching.
func (r *Room) collectPowerups(p *Player, now time.Time, events []Event) []Event {
	cfg := r.cfg
	rr := cfg.PickupRadius * cfg.PickupRadius
	kept := r.powerups[:0]
	for _, pu := range r.powerups {
		if WrapDistSq(p.X, p.Y, pu.X, pu.Y, cfg.ArenaWidth, cfg.ArenaHeight) >= rr {
			kept = append(kept, pu)
			continue
		}
		pu.Apply(p, cfg, now)
		events = append(events, PickupEvent{PlayerID: p.ID, PlayerName: p.Name, Kind: pu.Kind})
	}
	clear(r.powerups[len(kept):])
	r.powerups = kept
	return events
}

// Snapshot builds the outbound state. It does not mutate the room, so two
// calls without a tick in between differ only in ages.
func (r *Room) Snapshot(now time.Time) GameState {
	state := GameState{
		Room:       r.ID,
		Tick:       r.tick,
		Players:    make([]PlayerState, 0, len(r.order)),
		Bullets:    make([]BulletState, 0, len(r.bullets)),
		Bombs:      make([]BombState, 0, len(r.bombs)),
		Explosions: make([]ExplosionState, 0, len(r.explosions)),
		Powerups:   make([]PowerupState, 0, len(r.powerups)),
	}
	for _, p := range r.order {
		state.Players = append(state.Players, p.ToState(r.cfg.SnapshotTrail))
	}
	for _, b := range r.bullets {
		state.Bullets = append(state.Bullets, b.ToState())
	}
	for _, b := range r.bombs {
		state.Bombs = append(state.Bombs, b.ToState(now))
	}
	for _, e := range r.explosions {
		state.Explosions = append(state.Explosions, e.ToState(now))
	}
	for _, pu := range r.powerups {
		state.Powerups = append(state.Powerups, pu.ToState())
	}
	return state
}

// MapInfo returns the static arena description sent on join.
func (r *Room) MapInfo() MapInfo {
	return MapInfo{
		Width:  r.cfg.ArenaWidth,
		Height: r.cfg.ArenaHeight,
		Clouds: r.clouds,
	}
}
