package main

import (
	"math"
	"time"
)

// fireCooldown is the gap between machine-gun shots. The rear gun rides on
// the forward shot and shares its cooldown.
func fireCooldown(cfg *GameConfig) time.Duration {
	return secs(cfg.FireCooldown)
}

// fireWeapons turns a player's shoot and bomb intent into projectiles.
func (r *Room) fireWeapons(p *Player, now time.Time) {
	cfg := r.cfg
	if p.Keys.Shoot && p.Ammo > 0 && now.Sub(p.LastFired) >= fireCooldown(cfg) {
		p.Ammo--
		p.LastFired = now

		spread := (r.rng.Float64()*2 - 1) * cfg.BulletSpread
		speed := cfg.BulletSpeed + 0.5*p.EffectiveSpeed(cfg)
		r.bullets = append(r.bullets, NewBullet(r.ids.NextID(), p, p.Angle+spread, speed, now))

		if p.Powerup == PowerupRearGun {
			r.bullets = append(r.bullets,
				NewBullet(r.ids.NextID(), p, p.Angle+math.Pi, cfg.BulletSpeed*cfg.RearGunSpeedFactor, now))
		}
	}

	if p.Keys.Bomb && now.Sub(p.LastBomb) >= secs(cfg.BombCooldown) {
		p.LastBomb = now
		r.bombs = append(r.bombs, NewBomb(r.ids.NextID(), p, secs(cfg.BombFuse), now))
	}
}
