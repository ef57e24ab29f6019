package main

import (
	"log"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtJoin    = "join"
	EvtLeave   = "leave"
	EvtKill    = "kill"
	EvtPickup  = "pickup"
	EvtRespawn = "respawn"
)

const (
	analyticsBuffer     = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	RoomID    string
	Player    string
	Other     string
	Data      string
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db       *DB
	events   chan AnalyticsEvent
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, roomID, player, other, data string) {
	if a == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		RoomID:    roomID,
		Player:    player,
		Other:     other,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full — drop event rather than blocking the tick
	}
}

// TrackEvents records the domain events of one room tick.
func (a *Analytics) TrackEvents(roomID string, events []Event) {
	for _, ev := range events {
		switch e := ev.(type) {
		case KillEvent:
			a.Track(EvtKill, roomID, e.KillerName, e.VictimName, string(e.Weapon))
		case PickupEvent:
			a.Track(EvtPickup, roomID, e.PlayerName, "", string(e.Kind))
		case RespawnEvent:
			a.Track(EvtRespawn, roomID, e.PlayerName, "", "")
		}
	}
}

// Stop flushes pending events and shuts down the writer. Safe to call twice.
func (a *Analytics) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain what is already queued; Track may still race in, so
			// the channel stays open.
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.Printf("analytics: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (event_type, room_id, player_name, other_name, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("analytics: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		_, err := stmt.Exec(evt.Type, evt.RoomID, evt.Player, evt.Other, evt.Data, evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			log.Printf("analytics: insert error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("analytics: commit error: %v", err)
	}
}
