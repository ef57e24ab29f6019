package main

// Weapon names what caused a hit.
type Weapon string

const (
	WeaponMachineGun Weapon = "machinegun"
	WeaponBomb       Weapon = "bomb"
)

// Event is something a room tick produced that the gateway may want to
// deliver. Ticks never talk to connections themselves.
type Event interface {
	eventType() string
}

// HitEvent is emitted when a bullet or another player's bomb damages a
// player. Self-inflicted bomb damage produces no HitEvent.
type HitEvent struct {
	AttackerID   string
	AttackerName string
	VictimID     string
	VictimName   string
	Weapon       Weapon
	Damage       int
	Killed       bool
}

// KillEvent is emitted once per death. KillerID is empty for self kills.
type KillEvent struct {
	KillerID   string
	KillerName string
	VictimID   string
	VictimName string
	Weapon     Weapon
}

type PickupEvent struct {
	PlayerID   string
	PlayerName string
	Kind       PowerupKind
}

type RespawnEvent struct {
	PlayerID   string
	PlayerName string
}

func (HitEvent) eventType() string     { return "hit" }
func (KillEvent) eventType() string    { return "kill" }
func (PickupEvent) eventType() string  { return "pickup" }
func (RespawnEvent) eventType() string { return "respawn" }
