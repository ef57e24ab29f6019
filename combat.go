package main

import (
	"math/rand/v2"
	"time"
)

// ApplyDamage drains shield first, then hit points. It returns true when hit
// points reach zero; the caller is responsible for the death.
func ApplyDamage(p *Player, amount int) bool {
	if amount <= 0 {
		return false
	}
	absorbed := min(p.Shield, amount)
	p.Shield -= absorbed
	amount -= absorbed
	p.HP -= amount
	return p.HP <= 0
}

// KillPlayer marks victim dead and schedules its respawn. The killer is
// credited only if it is still in the room and is not the victim.
func (r *Room) KillPlayer(victim *Player, killerID string, weapon Weapon, now time.Time) KillEvent {
	victim.Alive = false
	victim.HP = 0
	victim.Deaths++
	victim.RespawnAt = now.Add(secs(r.cfg.RespawnTime))
	r.addExplosion(victim.X, victim.Y, ExplosionBig, now)

	ev := KillEvent{
		VictimID:   victim.ID,
		VictimName: victim.Name,
		Weapon:     weapon,
	}
	if killer, ok := r.players[killerID]; ok && killer != victim {
		killer.Kills++
		ev.KillerID = killer.ID
		ev.KillerName = killer.Name
	}
	return ev
}

// RespawnPlayer puts a dead player back at a fresh spawn with full health
// and ammo. Kills, deaths and cooldown timestamps carry over.
func RespawnPlayer(p *Player, cfg *GameConfig, rng *rand.Rand) {
	p.resetToSpawn(cfg, rng)
}
