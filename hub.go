package main

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub owns the connections and the single tick driver. It is the only place
// where simulation output meets the network.
type Hub struct {
	registry  *RoomRegistry
	analytics *Analytics

	mu      sync.RWMutex
	clients map[*Client]bool
	members map[string]map[string]*Client // roomID -> playerID -> client

	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a Hub around a registry. analytics may be nil.
func NewHub(registry *RoomRegistry, analytics *Analytics) *Hub {
	return &Hub{
		registry:   registry,
		analytics:  analytics,
		clients:    make(map[*Client]bool),
		members:    make(map[string]map[string]*Client),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		ipConns:    make(map[string]int),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run drives the simulation at the configured tick rate and processes
// register/unregister events until ctx is cancelled. Ticks never overlap.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	ticker := time.NewTicker(h.registry.Config().TickDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if client.gone {
				// Unregister won the race; the client never becomes live.
				close(client.send)
			} else {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.leave(client)
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			} else {
				client.gone = true
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.step()
		}
	}
}

// Register hands a new connection to Run. It gives up once Run has stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister hands a closed connection to Run. It gives up once Run has
// stopped, so read pumps never block during shutdown.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// step runs one tick for every room and delivers the results.
func (h *Hub) step() {
	for _, res := range h.registry.TickAll() {
		h.analytics.TrackEvents(res.RoomID, res.Events)

		frame, err := EncodeState(res.State)
		if err != nil {
			log.Printf("hub: encode state for room %s: %v", res.RoomID, err)
			continue
		}

		h.mu.RLock()
		room := h.members[res.RoomID]
		for _, ev := range res.Events {
			if hit, ok := ev.(HitEvent); ok {
				dispatchHit(room, hit)
			}
		}
		for _, c := range room {
			c.SendBinary(frame)
		}
		h.mu.RUnlock()
	}
}

// dispatchHit tells the attacker and the victim about a hit. Either side may
// already be gone.
func dispatchHit(room map[string]*Client, hit HitEvent) {
	if c, ok := room[hit.AttackerID]; ok {
		c.SendJSON(Envelope{T: MsgHit, Data: HitMsg{
			Victim: hit.VictimName,
			Weapon: hit.Weapon,
			Killed: hit.Killed,
		}})
	}
	if c, ok := room[hit.VictimID]; ok {
		c.SendJSON(Envelope{T: MsgGotHit, Data: GotHitMsg{
			Attacker: hit.AttackerName,
			Weapon:   hit.Weapon,
			Killed:   hit.Killed,
		}})
	}
}

// join puts c into a room, leaving any room it was in first.
func (h *Hub) join(c *Client, roomID, name string) (JoinResult, error) {
	if c.roomID != "" {
		h.leave(c)
	}
	res, err := h.registry.Join(roomID, name)
	if err != nil {
		return res, err
	}

	h.mu.Lock()
	room, ok := h.members[roomID]
	if !ok {
		room = make(map[string]*Client)
		h.members[roomID] = room
	}
	room[res.PlayerID] = c
	c.roomID = roomID
	c.playerID = res.PlayerID
	h.mu.Unlock()

	h.analytics.Track(EvtJoin, roomID, res.Name, "", "")
	log.Printf("room %s: %s joined (%d/%d)", roomID, res.Name, res.Count, h.registry.Config().MaxPlayersPerRoom)
	return res, nil
}

// leave removes c's player from its room and tells the rest of the room.
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	roomID, playerID := c.roomID, c.playerID
	if roomID == "" {
		h.mu.Unlock()
		return
	}
	if room, ok := h.members[roomID]; ok {
		delete(room, playerID)
		if len(room) == 0 {
			delete(h.members, roomID)
		}
	}
	c.roomID, c.playerID = "", ""
	h.mu.Unlock()

	res, err := h.registry.Leave(roomID, playerID)
	if err != nil {
		if !errors.Is(err, ErrUnknownRoomOrPlayer) {
			log.Printf("hub: leave %s/%s: %v", roomID, playerID, err)
		}
		return
	}
	h.analytics.Track(EvtLeave, roomID, res.Name, "", "")
	if !res.RoomClosed {
		h.BroadcastRoom(roomID, Envelope{T: MsgPlayerLeft, Data: PresenceMsg{Name: res.Name, Count: res.Count}})
	}
}

// BroadcastRoom sends a JSON message to every client in a room
func (h *Hub) BroadcastRoom(roomID string, msg Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.members[roomID] {
		c.SendJSON(msg)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
