package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// GameConfig holds every simulation tunable. Distances are in world units,
// speeds in units/s, durations in seconds.
type GameConfig struct {
	ArenaWidth  float64 `json:"arenaWidth"`
	ArenaHeight float64 `json:"arenaHeight"`
	SpawnMargin float64 `json:"spawnMargin"`
	CloudCount  int     `json:"cloudCount"`

	PlaneRadius      float64 `json:"planeRadius"`
	MinSpeed         float64 `json:"minSpeed"`
	MaxSpeed         float64 `json:"maxSpeed"`
	DefaultSpeed     float64 `json:"defaultSpeed"`
	ThrottleAccel    float64 `json:"throttleAccel"`
	TurnRate         float64 `json:"turnRate"`     // rad/s at MaxSpeed
	SlowTurnBonus    float64 `json:"slowTurnBonus"` // extra turn multiplier at MinSpeed
	MaxHP            int     `json:"maxHP"`
	DamagedThreshold int     `json:"damagedThreshold"`
	TrailLength      int     `json:"trailLength"`
	SnapshotTrail    int     `json:"snapshotTrail"`
	RespawnTime      float64 `json:"respawnTime"`

	BulletSpeed        float64 `json:"bulletSpeed"`
	BulletRadius       float64 `json:"bulletRadius"`
	BulletLifetime     float64 `json:"bulletLifetime"`
	BulletDamage       int     `json:"bulletDamage"`
	BulletSpread       float64 `json:"bulletSpread"` // max deviation, radians
	FireCooldown       float64 `json:"fireCooldown"`
	RearGunSpeedFactor float64 `json:"rearGunSpeedFactor"`
	MaxAmmo            int     `json:"maxAmmo"`

	BombCooldown float64 `json:"bombCooldown"`
	BombFuse     float64 `json:"bombFuse"`
	BombRadius   float64 `json:"bombRadius"`
	BombDamage   int     `json:"bombDamage"`

	ExplosionLifetime float64 `json:"explosionLifetime"`

	PowerupInterval float64 `json:"powerupInterval"`
	PowerupDuration float64 `json:"powerupDuration"`
	MaxPowerups     int     `json:"maxPowerups"`
	PickupRadius    float64 `json:"pickupRadius"`
	AmmoPickup      int     `json:"ammoPickup"`
	RepairAmount    int     `json:"repairAmount"`
	ShieldAmount    int     `json:"shieldAmount"`
	SpeedBoostMul   float64 `json:"speedBoostMul"`

	MaxPlayersPerRoom int `json:"maxPlayersPerRoom"`
	TickRate          int `json:"tickRate"`
}

// DefaultGameConfig returns the shipped tuning.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		ArenaWidth:  3000,
		ArenaHeight: 2000,
		SpawnMargin: 150,
		CloudCount:  14,

		PlaneRadius:      20,
		MinSpeed:         120,
		MaxSpeed:         360,
		DefaultSpeed:     200,
		ThrottleAccel:    240,
		TurnRate:         2.6,
		SlowTurnBonus:    0.6,
		MaxHP:            100,
		DamagedThreshold: 40,
		TrailLength:      30,
		SnapshotTrail:    20,
		RespawnTime:      3,

		BulletSpeed:        720,
		BulletRadius:       4,
		BulletLifetime:     1.2,
		BulletDamage:       8,
		BulletSpread:       0.04,
		FireCooldown:       0.1,
		RearGunSpeedFactor: 0.7,
		MaxAmmo:            150,

		BombCooldown: 1.5,
		BombFuse:     1.5,
		BombRadius:   140,
		BombDamage:   50,

		ExplosionLifetime: 1,

		PowerupInterval: 6,
		PowerupDuration: 10,
		MaxPowerups:     5,
		PickupRadius:    30,
		AmmoPickup:      50,
		RepairAmount:    40,
		ShieldAmount:    50,
		SpeedBoostMul:   1.5,

		MaxPlayersPerRoom: 8,
		TickRate:          60,
	}
}

// Sanitize replaces values the simulation cannot run with by their defaults.
func (c GameConfig) Sanitize() GameConfig {
	d := DefaultGameConfig()
	if c.ArenaWidth <= 0 || c.ArenaHeight <= 0 {
		c.ArenaWidth, c.ArenaHeight = d.ArenaWidth, d.ArenaHeight
	}
	if c.SpawnMargin < 0 || 2*c.SpawnMargin >= c.ArenaWidth || 2*c.SpawnMargin >= c.ArenaHeight {
		c.SpawnMargin = 0
	}
	if c.MinSpeed <= 0 || c.MaxSpeed < c.MinSpeed {
		c.MinSpeed, c.MaxSpeed = d.MinSpeed, d.MaxSpeed
	}
	c.DefaultSpeed = Clamp(c.DefaultSpeed, c.MinSpeed, c.MaxSpeed)
	if c.MaxHP <= 0 {
		c.MaxHP = d.MaxHP
	}
	if c.MaxAmmo < 0 {
		c.MaxAmmo = 0
	}
	if c.TrailLength < 0 {
		c.TrailLength = 0
	}
	if c.SnapshotTrail < 0 || c.SnapshotTrail > c.TrailLength {
		c.SnapshotTrail = c.TrailLength
	}
	if c.MaxPlayersPerRoom <= 0 {
		c.MaxPlayersPerRoom = d.MaxPlayersPerRoom
	}
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.CloudCount < 0 {
		c.CloudCount = 0
	}
	if c.MaxPowerups < 0 {
		c.MaxPowerups = 0
	}
	if c.BulletDamage < 0 {
		c.BulletDamage = d.BulletDamage
	}
	if c.BombDamage < 0 {
		c.BombDamage = d.BombDamage
	}
	if c.AmmoPickup < 0 {
		c.AmmoPickup = d.AmmoPickup
	}
	if c.RepairAmount < 0 {
		c.RepairAmount = d.RepairAmount
	}
	if c.ShieldAmount < 0 {
		c.ShieldAmount = d.ShieldAmount
	}
	if c.SpeedBoostMul <= 0 {
		c.SpeedBoostMul = 1
	}
	return c
}

// TickDuration is the fixed simulation step.
func (c GameConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Dt is the fixed simulation step in seconds.
func (c GameConfig) Dt() float64 {
	return 1.0 / float64(c.TickRate)
}

// secs converts a tuning value in seconds to a Duration.
func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadGameConfig merges a JSON tuning file over the defaults. A missing file
// is not an error.
func LoadGameConfig(path string) (GameConfig, error) {
	cfg := DefaultGameConfig()
	if path == "" {
		return cfg, nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read game config %q: %w", cleanPath, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultGameConfig(), fmt.Errorf("parse game config %q: %w", cleanPath, err)
	}
	return cfg.Sanitize(), nil
}

// ServerConfig is the process-level configuration.
type ServerConfig struct {
	Addr           string
	ClientDir      string
	PublicURL      string
	AdminPassword  string
	GameConfigPath string
	SameOrigin     bool
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// LoadServerConfig reads flags whose defaults come from the environment,
// after loading an optional .env file.
func LoadServerConfig(args []string) (ServerConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	fs := flag.NewFlagSet("dogfight-server", flag.ContinueOnError)
	var cfg ServerConfig
	fs.StringVar(&cfg.Addr, "addr", getEnvOrDefault("ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&cfg.ClientDir, "client", getEnvOrDefault("CLIENT_DIR", "../client"), "Path to client directory")
	fs.StringVar(&cfg.PublicURL, "public-url", getEnvOrDefault("PUBLIC_URL", "http://localhost:8080"), "Base URL used in room share links")
	fs.StringVar(&cfg.AdminPassword, "admin-password", getEnvOrDefault("ADMIN_PASSWORD", ""), "Admin API password (empty disables the admin API)")
	fs.StringVar(&cfg.GameConfigPath, "game-config", getEnvOrDefault("GAME_CONFIG", "configs/game.json"), "Path to game tuning JSON")
	fs.BoolVar(&cfg.SameOrigin, "same-origin", getEnvOrDefault("SAME_ORIGIN", "true") == "true", "Reject websocket upgrades from foreign origins")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}
