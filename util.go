package main

import (
	"math"

	"github.com/google/uuid"
)

// IDGenerator hands out unique entity identifiers.
type IDGenerator interface {
	NextID() string
}

// uuidGenerator is the production IDGenerator.
type uuidGenerator struct{}

func (uuidGenerator) NextID() string { return uuid.NewString() }

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampInt restricts v to [min, max]
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Wrap maps v into [0, size) on a toroidal axis.
func Wrap(v, size float64) float64 {
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	// -tiny + size rounds to size in float64
	if v >= size {
		v = 0
	}
	return v
}

// WrapDelta returns the shortest signed offset from a to b on an axis of the
// given size.
func WrapDelta(a, b, size float64) float64 {
	d := math.Mod(b-a, size)
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// WrapDistSq returns the squared toroidal distance between two points.
func WrapDistSq(x1, y1, x2, y2, w, h float64) float64 {
	dx := WrapDelta(x1, x2, w)
	dy := WrapDelta(y1, y2, h)
	return dx*dx + dy*dy
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
