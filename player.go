package main

import (
	"math"
	"math/rand/v2"
	"time"
)

// Keys is the control state a client last reported. It is replaced whole on
// every input message.
type Keys struct {
	ThrottleUp   bool `json:"throttleUp"`
	ThrottleDown bool `json:"throttleDown"`
	Left         bool `json:"left"`
	Right        bool `json:"right"`
	Shoot        bool `json:"shoot"`
	Bomb         bool `json:"bomb"`
}

// Point is a trail sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player represents a pilot in a room
type Player struct {
	ID    string
	Name  string
	Seq   uint64
	X, Y  float64
	Angle float64
	Speed float64

	HP     int
	Shield int
	Ammo   int
	Alive  bool

	Powerup      PowerupKind
	PowerupUntil time.Time

	LastFired time.Time
	LastBomb  time.Time
	RespawnAt time.Time // zero when no respawn is pending

	Kills   int
	Deaths  int
	Damaged bool
	Trail   []Point
	Keys    Keys
}

// NewPlayer creates a player at a random spawn point
func NewPlayer(id, name string, seq uint64, cfg *GameConfig, rng *rand.Rand) *Player {
	p := &Player{
		ID:   id,
		Name: name,
		Seq:  seq,
	}
	p.resetToSpawn(cfg, rng)
	return p
}

// spawnPoint picks a uniformly random point inside the inset margin.
func spawnPoint(cfg *GameConfig, rng *rand.Rand) (float64, float64) {
	m := cfg.SpawnMargin
	return m + rng.Float64()*(cfg.ArenaWidth-2*m), m + rng.Float64()*(cfg.ArenaHeight-2*m)
}

func (p *Player) resetToSpawn(cfg *GameConfig, rng *rand.Rand) {
	p.X, p.Y = spawnPoint(cfg, rng)
	p.Angle = rng.Float64()*2*math.Pi - math.Pi
	p.Speed = cfg.DefaultSpeed
	p.HP = cfg.MaxHP
	p.Ammo = cfg.MaxAmmo
	p.Shield = 0
	p.Alive = true
	p.Powerup = PowerupNone
	p.PowerupUntil = time.Time{}
	p.RespawnAt = time.Time{}
	p.Damaged = false
	p.Trail = p.Trail[:0]
}

// EffectiveSpeed is the base speed scaled by an active speed power-up.
func (p *Player) EffectiveSpeed(cfg *GameConfig) float64 {
	if p.Powerup == PowerupSpeed {
		return p.Speed * cfg.SpeedBoostMul
	}
	return p.Speed
}

// turnRate grows as the plane slows: TurnRate at MaxSpeed,
// TurnRate*(1+SlowTurnBonus) at MinSpeed.
func (p *Player) turnRate(cfg *GameConfig) float64 {
	span := cfg.MaxSpeed - cfg.MinSpeed
	slowness := 0.0
	if span > 0 {
		slowness = (cfg.MaxSpeed - p.Speed) / span
	}
	return cfg.TurnRate * (1 + cfg.SlowTurnBonus*slowness)
}

// Fly integrates one tick of throttle, turn and forward motion.
func (p *Player) Fly(cfg *GameConfig, dt float64) {
	if p.Keys.ThrottleUp && !p.Keys.ThrottleDown {
		p.Speed += cfg.ThrottleAccel * dt
	} else if p.Keys.ThrottleDown && !p.Keys.ThrottleUp {
		p.Speed -= cfg.ThrottleAccel * dt
	}
	p.Speed = Clamp(p.Speed, cfg.MinSpeed, cfg.MaxSpeed)

	speed := p.EffectiveSpeed(cfg)

	turn := p.turnRate(cfg) * dt
	if p.Keys.Left {
		p.Angle -= turn
	}
	if p.Keys.Right {
		p.Angle += turn
	}
	p.Angle = NormalizeAngle(p.Angle)

	// Planes always fly forward
	p.X = Wrap(p.X+math.Cos(p.Angle)*speed*dt, cfg.ArenaWidth)
	p.Y = Wrap(p.Y+math.Sin(p.Angle)*speed*dt, cfg.ArenaHeight)

	p.pushTrail(cfg.TrailLength)
	p.Damaged = p.HP < cfg.DamagedThreshold
}

func (p *Player) pushTrail(max int) {
	if max <= 0 {
		return
	}
	if len(p.Trail) >= max {
		n := copy(p.Trail, p.Trail[len(p.Trail)-max+1:])
		p.Trail = p.Trail[:n]
	}
	p.Trail = append(p.Trail, Point{X: p.X, Y: p.Y})
}

// expirePowerup drops a timed power-up whose end time has passed.
func (p *Player) expirePowerup(now time.Time) {
	if p.Powerup != PowerupNone && !now.Before(p.PowerupUntil) {
		p.Powerup = PowerupNone
		p.PowerupUntil = time.Time{}
	}
}

// ToState converts to protocol state
func (p *Player) ToState(trailLen int) PlayerState {
	trail := p.Trail
	if len(trail) > trailLen {
		trail = trail[len(trail)-trailLen:]
	}
	out := make([]Point, len(trail))
	for i, pt := range trail {
		out[i] = Point{X: round1(pt.X), Y: round1(pt.Y)}
	}
	return PlayerState{
		ID:      p.ID,
		Seq:     p.Seq,
		Name:    p.Name,
		X:       round1(p.X),
		Y:       round1(p.Y),
		Angle:   round2(p.Angle),
		Speed:   round1(p.Speed),
		HP:      p.HP,
		Alive:   p.Alive,
		Ammo:    p.Ammo,
		Powerup: string(p.Powerup),
		Shield:  p.Shield,
		Kills:   p.Kills,
		Deaths:  p.Deaths,
		Damaged: p.Damaged,
		Trail:   out,
	}
}
