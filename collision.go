package main

import (
	"slices"
	"time"
)

// CheckCollision checks if two circles overlap on a w x h torus.
func CheckCollision(x1, y1, r1, x2, y2, r2, w, h float64) bool {
	radSum := r1 + r2
	return WrapDistSq(x1, y1, x2, y2, w, h) <= radSum*radSum
}

// updateBullets moves every bullet, drops expired ones and resolves hits.
// A bullet is consumed by the first living non-owner it overlaps.
func (r *Room) updateBullets(now time.Time, dt float64, events []Event) []Event {
	cfg := r.cfg
	kept := r.bullets[:0]
	for _, b := range r.bullets {
		b.Update(cfg, dt)
		if b.Expired(cfg, now) {
			continue
		}

		// Lowest order index wins, as if players were scanned in order.
		hit := -1
		r.queryBuf = r.grid.QueryBuf(b.X, b.Y, cfg.BulletRadius+cfg.PlaneRadius, r.queryBuf[:0])
		for _, i := range r.queryBuf {
			p := r.order[i]
			if (hit >= 0 && i > hit) || !p.Alive || p.ID == b.OwnerID {
				continue
			}
			if CheckCollision(b.X, b.Y, cfg.BulletRadius, p.X, p.Y, cfg.PlaneRadius, cfg.ArenaWidth, cfg.ArenaHeight) {
				hit = i
			}
		}
		if hit < 0 {
			kept = append(kept, b)
			continue
		}

		victim := r.order[hit]
		died := ApplyDamage(victim, cfg.BulletDamage)
		r.addExplosion(b.X, b.Y, ExplosionSmall, now)
		events = append(events, r.hitEvent(b.OwnerID, victim, WeaponMachineGun, cfg.BulletDamage, died))
		if died {
			events = append(events, r.KillPlayer(victim, b.OwnerID, WeaponMachineGun, now))
		}
	}
	clear(r.bullets[len(kept):])
	r.bullets = kept
	return events
}

// updateBombs detonates every bomb whose fuse has run out. Each bomb damages
// every living player in its radius exactly once, owner included.
func (r *Room) updateBombs(now time.Time, events []Event) []Event {
	cfg := r.cfg
	kept := r.bombs[:0]
	for _, bomb := range r.bombs {
		if !bomb.Due(now) {
			kept = append(kept, bomb)
			continue
		}

		r.addExplosion(bomb.X, bomb.Y, ExplosionBomb, now)
		r.queryBuf = r.grid.QueryBuf(bomb.X, bomb.Y, cfg.BombRadius, r.queryBuf[:0])
		slices.Sort(r.queryBuf)
		for _, i := range r.queryBuf {
			p := r.order[i]
			if !p.Alive {
				continue
			}
			if WrapDistSq(bomb.X, bomb.Y, p.X, p.Y, cfg.ArenaWidth, cfg.ArenaHeight) > cfg.BombRadius*cfg.BombRadius {
				continue
			}
			died := ApplyDamage(p, cfg.BombDamage)
			if p.ID != bomb.OwnerID {
				events = append(events, r.hitEvent(bomb.OwnerID, p, WeaponBomb, cfg.BombDamage, died))
			}
			if died {
				events = append(events, r.KillPlayer(p, bomb.OwnerID, WeaponBomb, now))
			}
		}
	}
	clear(r.bombs[len(kept):])
	r.bombs = kept
	return events
}

// indexPlayers rebuilds the broad-phase grid from current player positions.
func (r *Room) indexPlayers() {
	r.grid.Clear()
	for i, p := range r.order {
		if p.Alive {
			r.grid.Insert(p.X, p.Y, i)
		}
	}
}

func (r *Room) hitEvent(attackerID string, victim *Player, weapon Weapon, damage int, killed bool) HitEvent {
	ev := HitEvent{
		AttackerID: attackerID,
		VictimID:   victim.ID,
		VictimName: victim.Name,
		Weapon:     weapon,
		Damage:     damage,
		Killed:     killed,
	}
	if attacker, ok := r.players[attackerID]; ok {
		ev.AttackerName = attacker.Name
	}
	return ev
}

func (r *Room) addExplosion(x, y float64, size ExplosionSize, now time.Time) {
	r.explosions = append(r.explosions, &Explosion{X: x, Y: y, Size: size, Born: now})
}

func (r *Room) pruneExplosions(now time.Time) {
	life := secs(r.cfg.ExplosionLifetime)
	kept := r.explosions[:0]
	for _, e := range r.explosions {
		if now.Sub(e.Born) <= life {
			kept = append(kept, e)
		}
	}
	clear(r.explosions[len(kept):])
	r.explosions = kept
}
