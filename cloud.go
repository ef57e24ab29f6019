package main

import "math/rand/v2"

const (
	CloudMinRadius = 60.0
	CloudMaxRadius = 160.0
)

// Cloud is scenery. It is generated once per room and never changes.
type Cloud struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r"`
}

// GenerateClouds scatters n clouds over the whole arena.
func GenerateClouds(n int, cfg *GameConfig, rng *rand.Rand) []Cloud {
	clouds := make([]Cloud, 0, n)
	for range n {
		clouds = append(clouds, Cloud{
			X: round1(rng.Float64() * cfg.ArenaWidth),
			Y: round1(rng.Float64() * cfg.ArenaHeight),
			R: round1(CloudMinRadius + rng.Float64()*(CloudMaxRadius-CloudMinRadius)),
		})
	}
	return clouds
}
