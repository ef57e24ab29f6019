package main

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// ManualClock only moves when told to. Used for deterministic replays.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// counterIDs produces prefix-1, prefix-2, ... and is safe for concurrent use.
type counterIDs struct {
	prefix string
	n      atomic.Uint64
}

func (c *counterIDs) NextID() string {
	return c.prefix + "-" + strconv.FormatUint(c.n.Add(1), 10)
}

// newTestRoom returns a room with a fixed seed and counter IDs. Powerups are
// pushed far into the future so they don't interfere.
func newTestRoom(t *testing.T) *Room {
	t.Helper()
	cfg := DefaultGameConfig()
	cfg.PowerupInterval = 1e6
	return NewRoom("test", &cfg, rand.New(rand.NewPCG(1, 2)), &counterIDs{prefix: "e"}, testStart)
}

// place adds a player at a fixed position, heading along +X.
func place(r *Room, name string, x, y float64) *Player {
	p := r.addPlayer(name, uint64(len(r.order)+1))
	p.X, p.Y, p.Angle = x, y, 0
	return p
}

func countEvents[T Event](events []Event) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(T); ok {
			n++
		}
	}
	return n
}

func TestRoomAddRemovePlayer(t *testing.T) {
	r := newTestRoom(t)
	p := r.addPlayer("TestPilot", 1)
	if p.Name != "TestPilot" {
		t.Errorf("expected name TestPilot, got %s", p.Name)
	}
	if r.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", r.PlayerCount())
	}

	if _, ok := r.removePlayer(p.ID); !ok {
		t.Fatal("remove should find the player")
	}
	if r.PlayerCount() != 0 || len(r.order) != 0 {
		t.Errorf("expected empty room, got %d players", r.PlayerCount())
	}
	if _, ok := r.removePlayer(p.ID); ok {
		t.Error("second remove should report missing player")
	}
}

func TestRoomGeneratesClouds(t *testing.T) {
	r := newTestRoom(t)
	if len(r.clouds) != r.cfg.CloudCount {
		t.Fatalf("expected %d clouds, got %d", r.cfg.CloudCount, len(r.clouds))
	}
	for _, c := range r.clouds {
		if c.X < 0 || c.X > r.cfg.ArenaWidth || c.Y < 0 || c.Y > r.cfg.ArenaHeight {
			t.Errorf("cloud outside arena: %+v", c)
		}
	}
}

func TestRoomDrainInputsLastWriteWins(t *testing.T) {
	r := newTestRoom(t)
	p := place(r, "A", 500, 500)

	r.stageInput(p.ID, Keys{Left: true, Shoot: true})
	r.stageInput(p.ID, Keys{Right: true})
	r.Tick(testStart.Add(time.Millisecond))

	if p.Keys != (Keys{Right: true}) {
		t.Errorf("expected only the last input, got %+v", p.Keys)
	}
	if len(r.bullets) != 0 {
		t.Error("overwritten shoot intent should not fire")
	}
}

func TestBulletNeverHitsOwner(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 500, 500)

	r.bullets = append(r.bullets, &Bullet{ID: "b1", OwnerID: a.ID, OwnerSeq: a.Seq, X: a.X, Y: a.Y, Born: testStart})
	r.indexPlayers()
	events := r.updateBullets(testStart, r.cfg.Dt(), nil)

	if a.HP != r.cfg.MaxHP {
		t.Errorf("owner took damage from own bullet: hp=%d", a.HP)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if len(r.bullets) != 1 {
		t.Error("bullet should survive overlapping its owner")
	}
}

func TestBulletHitsFirstPlayerOnly(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 100, 100)
	b := place(r, "B", 500, 500)
	c := place(r, "C", 505, 500)

	r.bullets = append(r.bullets, &Bullet{ID: "b1", OwnerID: a.ID, X: 502, Y: 500, Born: testStart})
	r.indexPlayers()
	events := r.updateBullets(testStart, r.cfg.Dt(), nil)

	if b.HP != r.cfg.MaxHP-r.cfg.BulletDamage {
		t.Errorf("B should take one bullet of damage, hp=%d", b.HP)
	}
	if c.HP != r.cfg.MaxHP {
		t.Errorf("a bullet affects at most one player, C hp=%d", c.HP)
	}
	if len(r.bullets) != 0 {
		t.Error("bullet should be consumed")
	}
	if len(r.explosions) != 1 || r.explosions[0].Size != ExplosionSmall {
		t.Errorf("expected one small explosion, got %+v", r.explosions)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	hit, ok := events[0].(HitEvent)
	if !ok || hit.AttackerName != "A" || hit.VictimName != "B" || hit.Weapon != WeaponMachineGun || hit.Killed {
		t.Errorf("unexpected hit event %+v", events[0])
	}
}

func TestBulletHitsAcrossWrap(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 1000, 1000)
	b := place(r, "B", 2, 1000)

	r.bullets = append(r.bullets, &Bullet{ID: "b1", OwnerID: a.ID, X: r.cfg.ArenaWidth - 3, Y: 1000, Born: testStart})
	r.indexPlayers()
	r.updateBullets(testStart, r.cfg.Dt(), nil)

	if b.HP == r.cfg.MaxHP {
		t.Error("bullet near the far edge should hit a plane just across it")
	}
}

func TestBulletExpires(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 100, 100)
	r.bullets = append(r.bullets, &Bullet{ID: "b1", OwnerID: a.ID, X: 1500, Y: 1000, Born: testStart})

	r.indexPlayers()
	r.updateBullets(testStart.Add(secs(r.cfg.BulletLifetime)), r.cfg.Dt(), nil)
	if len(r.bullets) != 1 {
		t.Fatal("bullet should live for its full lifetime")
	}
	r.updateBullets(testStart.Add(secs(r.cfg.BulletLifetime)+time.Millisecond), r.cfg.Dt(), nil)
	if len(r.bullets) != 0 {
		t.Error("bullet should be pruned after its lifetime")
	}
}

func TestBombAreaDamage(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 1000, 1000)
	b := place(r, "B", 1050, 1000)
	c := place(r, "C", 1500, 1000)
	b.Shield = 20

	r.bombs = append(r.bombs, &Bomb{ID: "x", OwnerID: a.ID, X: 1000, Y: 1000, Born: testStart, DetonateAt: testStart})
	r.indexPlayers()
	events := r.updateBombs(testStart, nil)

	if a.HP != r.cfg.MaxHP-r.cfg.BombDamage {
		t.Errorf("owner inside the blast should be damaged, hp=%d", a.HP)
	}
	if b.Shield != 0 || b.HP != r.cfg.MaxHP-(r.cfg.BombDamage-20) {
		t.Errorf("B shield should absorb first: shield=%d hp=%d", b.Shield, b.HP)
	}
	if c.HP != r.cfg.MaxHP {
		t.Errorf("C is outside the radius, hp=%d", c.HP)
	}
	if len(r.bombs) != 0 {
		t.Error("bomb should be consumed")
	}
	if len(r.explosions) != 1 || r.explosions[0].Size != ExplosionBomb {
		t.Errorf("expected one bomb explosion, got %+v", r.explosions)
	}
	// Owner gets no hit/gotHit pair for self damage.
	if len(events) != 1 {
		t.Fatalf("expected 1 hit event, got %d", len(events))
	}
	if hit := events[0].(HitEvent); hit.VictimID != b.ID || hit.Weapon != WeaponBomb {
		t.Errorf("unexpected hit event %+v", hit)
	}
}

func TestBombWaitsForFuse(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 1000, 1000)
	a.Keys.Bomb = true
	r.fireWeapons(a, testStart)
	if len(r.bombs) != 1 {
		t.Fatal("expected a bomb")
	}

	r.indexPlayers()
	r.updateBombs(testStart.Add(secs(r.cfg.BombFuse)-time.Millisecond), nil)
	if len(r.bombs) != 1 || a.HP != r.cfg.MaxHP {
		t.Fatal("bomb should not detonate before its fuse")
	}
	r.updateBombs(testStart.Add(secs(r.cfg.BombFuse)), nil)
	if len(r.bombs) != 0 {
		t.Error("bomb should detonate at its fuse time")
	}
}

func TestSelfBombKillAwardsNoKill(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 1000, 1000)
	a.HP = 10

	r.bombs = append(r.bombs, &Bomb{ID: "x", OwnerID: a.ID, X: 1000, Y: 1000, Born: testStart, DetonateAt: testStart})
	r.indexPlayers()
	events := r.updateBombs(testStart, nil)

	if a.Alive || a.HP != 0 {
		t.Errorf("A should be dead with hp 0, alive=%v hp=%d", a.Alive, a.HP)
	}
	if a.Deaths != 1 || a.Kills != 0 {
		t.Errorf("self kill: deaths=%d kills=%d", a.Deaths, a.Kills)
	}
	if countEvents[KillEvent](events) != 1 {
		t.Fatal("expected one kill event")
	}
	for _, ev := range events {
		if k, ok := ev.(KillEvent); ok && k.KillerID != "" {
			t.Errorf("self kill should have no killer, got %q", k.KillerID)
		}
	}
}

func TestKillCountedOnceForSimultaneousSources(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 100, 100)
	b := place(r, "B", 1000, 1000)
	b.HP = 5

	for i := 0; i < 3; i++ {
		r.bullets = append(r.bullets, &Bullet{ID: "b", OwnerID: a.ID, X: 1000, Y: 1000, Born: testStart})
	}
	r.bombs = append(r.bombs, &Bomb{ID: "x", OwnerID: a.ID, X: 1000, Y: 1000, Born: testStart, DetonateAt: testStart})

	r.indexPlayers()
	events := r.updateBullets(testStart, 0, nil)
	events = r.updateBombs(testStart, events)

	if a.Kills != 1 {
		t.Errorf("expected 1 kill, got %d", a.Kills)
	}
	if b.Deaths != 1 {
		t.Errorf("expected 1 death, got %d", b.Deaths)
	}
	if n := countEvents[KillEvent](events); n != 1 {
		t.Errorf("expected 1 kill event, got %d", n)
	}
	if b.HP != 0 {
		t.Errorf("dead player hp should be 0, got %d", b.HP)
	}
	if len(r.bullets) != 2 {
		t.Errorf("bullets after the kill should pass through, %d left", len(r.bullets))
	}
}

func TestRespawnAfterDelay(t *testing.T) {
	r := newTestRoom(t)
	clock := NewManualClock(testStart)
	a := place(r, "A", 100, 100)
	b := place(r, "B", 1000, 1000)
	b.Shield = 30
	b.Ammo = 3
	b.Powerup = PowerupSpeed
	b.PowerupUntil = testStart.Add(time.Hour)

	r.KillPlayer(b, a.ID, WeaponMachineGun, clock.Now())
	if b.Alive {
		t.Fatal("B should be dead")
	}

	clock.Advance(secs(r.cfg.RespawnTime) - time.Millisecond)
	events := r.Tick(clock.Now())
	if b.Alive {
		t.Fatal("B respawned too early")
	}
	if countEvents[RespawnEvent](events) != 0 {
		t.Error("no respawn event expected yet")
	}

	clock.Advance(time.Millisecond)
	events = r.Tick(clock.Now())
	if !b.Alive {
		t.Fatal("B should respawn once the delay has passed")
	}
	if countEvents[RespawnEvent](events) != 1 {
		t.Error("expected a respawn event")
	}
	if b.HP != r.cfg.MaxHP || b.Ammo != r.cfg.MaxAmmo || b.Shield != 0 {
		t.Errorf("respawn should restore hp/ammo and clear shield: %d/%d/%d", b.HP, b.Ammo, b.Shield)
	}
	if b.Powerup != PowerupNone || !b.RespawnAt.IsZero() || len(b.Trail) != 0 {
		t.Error("respawn should clear powerup, respawn marker and trail")
	}
	if b.Deaths != 1 || a.Kills != 1 {
		t.Errorf("counters should survive respawn: deaths=%d kills=%d", b.Deaths, a.Kills)
	}
}

func TestDeadPlayerDoesNotMove(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 1000, 1000)
	r.KillPlayer(a, "", WeaponBomb, testStart)
	a.Keys.Shoot = true

	r.Tick(testStart.Add(time.Millisecond))
	if a.X != 1000 || a.Y != 1000 {
		t.Error("dead player should not move")
	}
	if len(r.bullets) != 0 {
		t.Error("dead player should not fire")
	}
}

func TestPowerupSpawnCap(t *testing.T) {
	cfg := DefaultGameConfig()
	r := NewRoom("cap", &cfg, rand.New(rand.NewPCG(3, 4)), &counterIDs{prefix: "e"}, testStart)
	now := testStart
	interval := secs(cfg.PowerupInterval)

	r.Tick(now.Add(interval))
	if len(r.powerups) != 0 {
		t.Fatal("spawn needs strictly more than the interval")
	}
	for i := 0; i < 20; i++ {
		now = now.Add(interval + time.Second)
		r.Tick(now)
	}
	if len(r.powerups) != cfg.MaxPowerups {
		t.Errorf("expected cap of %d powerups, got %d", cfg.MaxPowerups, len(r.powerups))
	}
	for _, pu := range r.powerups {
		if pu.X < cfg.SpawnMargin || pu.X > cfg.ArenaWidth-cfg.SpawnMargin {
			t.Errorf("powerup outside spawn margin: %+v", pu)
		}
	}
}

func TestPickupRemovesExactlyOne(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 1000, 1000)
	a.Shield = 80
	r.powerups = []*Powerup{
		{ID: "p1", X: 1005, Y: 1000, Kind: PowerupShield},
		{ID: "p2", X: 1500, Y: 1000, Kind: PowerupAmmo},
	}

	events := r.collectPowerups(a, testStart, nil)

	if len(r.powerups) != 1 || r.powerups[0].ID != "p2" {
		t.Fatalf("expected only p2 to remain, got %d powerups", len(r.powerups))
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 pickup event, got %d", len(events))
	}
	if a.Shield != r.cfg.ShieldAmount {
		t.Errorf("shield should be overwritten to %d, got %d", r.cfg.ShieldAmount, a.Shield)
	}
}

// A long run with everyone shooting and bombing keeps every player inside
// the documented bounds.
func TestTickInvariants(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.PowerupInterval = 0.5
	r := NewRoom("soak", &cfg, rand.New(rand.NewPCG(9, 9)), &counterIDs{prefix: "e"}, testStart)
	for i := 0; i < 8; i++ {
		p := r.addPlayer("P", uint64(i+1))
		p.Keys = Keys{Shoot: true, Bomb: i%2 == 0, Left: i%3 == 0, ThrottleUp: i%2 == 1}
	}

	clock := NewManualClock(testStart)
	for i := 0; i < 60*30; i++ {
		clock.Advance(cfg.TickDuration())
		r.Tick(clock.Now())
		for _, p := range r.order {
			if p.HP < 0 || p.HP > cfg.MaxHP {
				t.Fatalf("tick %d: hp out of range: %d", i, p.HP)
			}
			if p.Ammo < 0 || p.Ammo > cfg.MaxAmmo {
				t.Fatalf("tick %d: ammo out of range: %d", i, p.Ammo)
			}
			if p.Shield < 0 {
				t.Fatalf("tick %d: negative shield", i)
			}
			if p.Speed < cfg.MinSpeed || p.Speed > cfg.MaxSpeed {
				t.Fatalf("tick %d: speed out of range: %f", i, p.Speed)
			}
			if p.X < 0 || p.X >= cfg.ArenaWidth || p.Y < 0 || p.Y >= cfg.ArenaHeight {
				t.Fatalf("tick %d: position outside arena: %f,%f", i, p.X, p.Y)
			}
			if len(p.Trail) > cfg.TrailLength {
				t.Fatalf("tick %d: trail too long: %d", i, len(p.Trail))
			}
			if p.Alive && p.Powerup != PowerupNone && p.Powerup != PowerupSpeed && p.Powerup != PowerupRearGun {
				t.Fatalf("tick %d: unexpected active powerup %q", i, p.Powerup)
			}
		}
		if len(r.powerups) > cfg.MaxPowerups {
			t.Fatalf("tick %d: %d powerups", i, len(r.powerups))
		}
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	r := newTestRoom(t)
	a := place(r, "A", 100, 100)
	place(r, "B", 900, 900)
	a.Keys = Keys{Shoot: true, Bomb: true}
	r.Tick(testStart.Add(time.Second))

	s1 := r.Snapshot(testStart.Add(time.Second))
	s2 := r.Snapshot(testStart.Add(time.Second + 250*time.Millisecond))

	if len(s1.Bombs) != 1 || s2.Bombs[0].Age-s1.Bombs[0].Age != 250 {
		t.Fatalf("bomb age should track the clock: %+v vs %+v", s1.Bombs, s2.Bombs)
	}
	for i := range s1.Bombs {
		s1.Bombs[i].Age, s2.Bombs[i].Age = 0, 0
	}
	for i := range s1.Explosions {
		s1.Explosions[i].Age, s2.Explosions[i].Age = 0, 0
	}
	b1, err := EncodeState(s1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := EncodeState(s2)
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Error("snapshots without a tick in between should match apart from ages")
	}
}

func TestSnapshotPlayersOrderedBySeq(t *testing.T) {
	r := newTestRoom(t)
	place(r, "A", 100, 100)
	place(r, "B", 200, 200)
	place(r, "C", 300, 300)

	s := r.Snapshot(testStart)
	for i := 1; i < len(s.Players); i++ {
		if s.Players[i-1].Seq >= s.Players[i].Seq {
			t.Fatalf("players not ordered by seq: %+v", s.Players)
		}
	}
}
