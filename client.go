package main

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
	maxNameLen        = 16
	defaultName       = "Pilot"
	defaultRoom       = "lobby"
	maxRoomIDLen      = 32
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	msgCount   int
	msgResetAt time.Time

	// Written under hub.mu.
	roomID   string
	playerID string
	gone     bool // unregistered before its register was processed
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if msgType == websocket.BinaryMessage {
			if keys, ok := decodeBinaryKeys(message); ok {
				c.setInput(keys)
			}
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgLeave:
		c.hub.leave(c)
	}
}

// cleanName trims a display name and caps it at maxNameLen runes.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	return name
}

func cleanRoomID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return defaultRoom
	}
	if len(id) > maxRoomIDLen {
		id = id[:maxRoomIDLen]
	}
	return id
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "bad join payload"}})
			return
		}
	}
	roomID := cleanRoomID(msg.Room)

	res, err := c.hub.join(c, roomID, cleanName(msg.Name))
	if errors.Is(err, ErrRoomFull) {
		c.SendJSON(Envelope{T: MsgFull, Data: FullMsg{Message: "room " + roomID + " is full"}})
		return
	}
	if err != nil {
		log.Printf("join %s: %v", roomID, err)
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "join failed"}})
		return
	}

	c.SendJSON(Envelope{T: MsgJoined, Data: JoinedMsg{
		PlayerID:  res.PlayerID,
		PlayerNum: res.PlayerNum,
		Room:      res.RoomID,
		Map:       res.Map,
	}})
	c.hub.BroadcastRoom(roomID, Envelope{T: MsgPlayerJoined, Data: PresenceMsg{Name: res.Name, Count: res.Count}})
}

func (c *Client) handleInput(data json.RawMessage) {
	var keys Keys
	if err := json.Unmarshal(data, &keys); err != nil {
		return
	}
	c.setInput(keys)
}

// setInput forwards keys to the room. A stale room or player is an expected
// race with leave and is ignored.
func (c *Client) setInput(keys Keys) {
	if c.roomID == "" {
		return
	}
	_ = c.hub.registry.SetInput(c.roomID, c.playerID, keys)
}
