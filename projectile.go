package main

import (
	"math"
	"time"
)

// Bullet is a machine-gun round. It flies straight and dies on its first hit
// or when its lifetime runs out.
type Bullet struct {
	ID       string
	OwnerID  string
	OwnerSeq uint64
	X, Y     float64
	VX, VY   float64
	Born     time.Time
}

// NewBullet fires from the owner's position along angle at the given speed.
func NewBullet(id string, owner *Player, angle, speed float64, now time.Time) *Bullet {
	return &Bullet{
		ID:       id,
		OwnerID:  owner.ID,
		OwnerSeq: owner.Seq,
		X:        owner.X,
		Y:        owner.Y,
		VX:       math.Cos(angle) * speed,
		VY:       math.Sin(angle) * speed,
		Born:     now,
	}
}

// Update moves the bullet one tick
func (b *Bullet) Update(cfg *GameConfig, dt float64) {
	b.X = Wrap(b.X+b.VX*dt, cfg.ArenaWidth)
	b.Y = Wrap(b.Y+b.VY*dt, cfg.ArenaHeight)
}

// Expired reports whether the bullet has outlived its lifetime.
func (b *Bullet) Expired(cfg *GameConfig, now time.Time) bool {
	return now.Sub(b.Born) > secs(cfg.BulletLifetime)
}

// ToState converts to protocol state
func (b *Bullet) ToState() BulletState {
	return BulletState{
		X:     round1(b.X),
		Y:     round1(b.Y),
		Owner: b.OwnerSeq,
	}
}

// Bomb sits where it was dropped until its fuse burns out.
type Bomb struct {
	ID         string
	OwnerID    string
	X, Y       float64
	Born       time.Time
	DetonateAt time.Time
}

func NewBomb(id string, owner *Player, fuse time.Duration, now time.Time) *Bomb {
	return &Bomb{
		ID:         id,
		OwnerID:    owner.ID,
		X:          owner.X,
		Y:          owner.Y,
		Born:       now,
		DetonateAt: now.Add(fuse),
	}
}

// Due reports whether the fuse has burnt out.
func (b *Bomb) Due(now time.Time) bool {
	return !now.Before(b.DetonateAt)
}

// ToState converts to protocol state
func (b *Bomb) ToState(now time.Time) BombState {
	return BombState{
		X:   round1(b.X),
		Y:   round1(b.Y),
		Age: ageMillis(b.Born, now),
	}
}

// ExplosionSize is a cosmetic size class for clients.
type ExplosionSize string

const (
	ExplosionSmall ExplosionSize = "small"
	ExplosionBomb  ExplosionSize = "bomb"
	ExplosionBig   ExplosionSize = "big"
)

// Explosion is purely visual.
type Explosion struct {
	X, Y float64
	Size ExplosionSize
	Born time.Time
}

func (e *Explosion) ToState(now time.Time) ExplosionState {
	return ExplosionState{
		X:    round1(e.X),
		Y:    round1(e.Y),
		Size: string(e.Size),
		Age:  ageMillis(e.Born, now),
	}
}

func ageMillis(born, now time.Time) int64 {
	return now.Sub(born).Milliseconds()
}
