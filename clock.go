package main

import "time"

// Clock is the single time source read by the simulation.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
