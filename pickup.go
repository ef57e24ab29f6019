package main

import (
	"math/rand/v2"
	"time"
)

// PowerupKind identifies what a pickup does. The empty kind means no active
// power-up on a player.
type PowerupKind string

const (
	PowerupNone    PowerupKind = ""
	PowerupAmmo    PowerupKind = "ammo"
	PowerupRepair  PowerupKind = "repair"
	PowerupSpeed   PowerupKind = "speed"
	PowerupRearGun PowerupKind = "reargun"
	PowerupShield  PowerupKind = "shield"
)

var powerupKinds = []PowerupKind{PowerupAmmo, PowerupRepair, PowerupSpeed, PowerupRearGun, PowerupShield}

// Powerup is a pickup floating in the arena
type Powerup struct {
	ID   string
	X, Y float64
	Kind PowerupKind
}

// NewPowerup spawns a pickup of a random kind at a random position away from
// the edges.
func NewPowerup(id string, cfg *GameConfig, rng *rand.Rand) *Powerup {
	x, y := spawnPoint(cfg, rng)
	return &Powerup{
		ID:   id,
		X:    x,
		Y:    y,
		Kind: powerupKinds[rng.IntN(len(powerupKinds))],
	}
}

// Apply gives the pickup's effect to p.
func (pu *Powerup) Apply(p *Player, cfg *GameConfig, now time.Time) {
	switch pu.Kind {
	case PowerupAmmo:
		p.Ammo = ClampInt(p.Ammo+cfg.AmmoPickup, 0, cfg.MaxAmmo)
	case PowerupRepair:
		p.HP = ClampInt(p.HP+cfg.RepairAmount, 0, cfg.MaxHP)
	case PowerupShield:
		p.Shield = cfg.ShieldAmount
	default:
		p.Powerup = pu.Kind
		p.PowerupUntil = now.Add(secs(cfg.PowerupDuration))
	}
}

// ToState converts to protocol state
func (pu *Powerup) ToState() PowerupState {
	return PowerupState{
		ID:   pu.ID,
		X:    round1(pu.X),
		Y:    round1(pu.Y),
		Kind: string(pu.Kind),
	}
}
