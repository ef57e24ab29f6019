package main

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Client -> Server message types
const (
	MsgJoin  = "join"
	MsgLeave = "leave"
	MsgInput = "input"
)

// Server -> Client message types
const (
	MsgState        = "state"
	MsgJoined       = "joined"
	MsgFull         = "full"
	MsgPlayerJoined = "playerJoined"
	MsgPlayerLeft   = "playerLeft"
	MsgHit          = "hit"
	MsgGotHit       = "gotHit"
	MsgError        = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent when a player wants to enter a room
type JoinMsg struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

// MapInfo is the static arena description.
type MapInfo struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Clouds []Cloud `json:"clouds"`
}

// JoinedMsg confirms a join to the joining client.
type JoinedMsg struct {
	PlayerID  string  `json:"playerId"`
	PlayerNum uint64  `json:"playerNum"`
	Room      string  `json:"room"`
	Map       MapInfo `json:"map"`
}

// FullMsg tells a client its room is at capacity
type FullMsg struct {
	Message string `json:"message"`
}

// PresenceMsg announces a join or leave to a room.
type PresenceMsg struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HitMsg goes to the attacker.
type HitMsg struct {
	Victim string `json:"victim"`
	Weapon Weapon `json:"weapon"`
	Killed bool   `json:"killed"`
}

// GotHitMsg goes to the victim.
type GotHitMsg struct {
	Attacker string `json:"attacker"`
	Weapon   Weapon `json:"weapon"`
	Killed   bool   `json:"killed"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	ID      string  `json:"id"`
	Seq     uint64  `json:"num"`
	Name    string  `json:"name"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Angle   float64 `json:"angle"`
	Speed   float64 `json:"speed"`
	HP      int     `json:"hp"`
	Alive   bool    `json:"alive"`
	Ammo    int     `json:"ammo"`
	Powerup string  `json:"powerup,omitempty"`
	Shield  int     `json:"shield"`
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Damaged bool    `json:"damaged"`
	Trail   []Point `json:"trail"`
}

// BulletState is broadcast per bullet
type BulletState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Owner uint64  `json:"owner"`
}

// BombState is broadcast per bomb; Age is in milliseconds.
type BombState struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Age int64   `json:"age"`
}

// ExplosionState is broadcast per explosion; Age is in milliseconds.
type ExplosionState struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size string  `json:"size"`
	Age  int64   `json:"age"`
}

// PowerupState is broadcast per powerup
type PowerupState struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Kind string  `json:"kind"`
}

// GameState is the full per-room snapshot
type GameState struct {
	Room       string           `json:"room"`
	Tick       uint64           `json:"tick"`
	Players    []PlayerState    `json:"players"`
	Bullets    []BulletState    `json:"bullets"`
	Bombs      []BombState      `json:"bombs"`
	Explosions []ExplosionState `json:"explosions"`
	Powerups   []PowerupState   `json:"powerups"`
}

// RoomInfo is used in the public room list
type RoomInfo struct {
	ID       string `json:"id"`
	Players  int    `json:"players"`
	Capacity int    `json:"capacity"`
}

// RoomDetail is the admin view of a room.
type RoomDetail struct {
	ID      string         `json:"id"`
	Tick    uint64         `json:"tick"`
	Bullets int            `json:"bullets"`
	Bombs   int            `json:"bombs"`
	Players []PlayerDetail `json:"players"`
}

type PlayerDetail struct {
	ID     string `json:"id"`
	Seq    uint64 `json:"num"`
	Name   string `json:"name"`
	Alive  bool   `json:"alive"`
	HP     int    `json:"hp"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

// EncodeState packs a state envelope as MessagePack, reusing the JSON field
// names so clients see the same keys either way.
func EncodeState(state GameState) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(Envelope{T: MsgState, Data: state}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Binary input frame: [0x01, flags]
const (
	binaryInputTag  = 0x01
	flagThrottleUp  = 1 << 0
	flagThrottleDn  = 1 << 1
	flagLeft        = 1 << 2
	flagRight       = 1 << 3
	flagShoot       = 1 << 4
	flagBomb        = 1 << 5
	binaryInputSize = 2
)

// decodeBinaryKeys unpacks a binary input frame.
func decodeBinaryKeys(msg []byte) (Keys, bool) {
	if len(msg) != binaryInputSize || msg[0] != binaryInputTag {
		return Keys{}, false
	}
	f := msg[1]
	return Keys{
		ThrottleUp:   f&flagThrottleUp != 0,
		ThrottleDown: f&flagThrottleDn != 0,
		Left:         f&flagLeft != 0,
		Right:        f&flagRight != 0,
		Shoot:        f&flagShoot != 0,
		Bomb:         f&flagBomb != 0,
	}, true
}
