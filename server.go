package main

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const (
	qrSize           = 256
	leaderboardLimit = 20
	maxLoginBody     = 1024
)

// Server bundles what the HTTP handlers need.
type Server struct {
	hub      *Hub
	registry *RoomRegistry
	db       *DB
	auth     *Auth
	cfg      ServerConfig
	upgrader websocket.Upgrader
}

func NewServer(cfg ServerConfig, hub *Hub, db *DB, auth *Auth) *Server {
	s := &Server{
		hub:      hub,
		registry: hub.registry,
		db:       db,
		auth:     auth,
		cfg:      cfg,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if !s.cfg.SameOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Non-browser clients don't send Origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Routes configures HTTP routes
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	if s.cfg.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(s.cfg.ClientDir))
		mux.Handle("GET /", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/rooms", s.handleRooms)
	mux.HandleFunc("GET /api/rooms/{id}/qr", s.handleRoomQR)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("GET /api/admin/rooms", s.requireAdmin(s.handleAdminRooms))
	mux.HandleFunc("GET /api/admin/events", s.requireAdmin(s.handleAdminEvents))

	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	s.hub.TrackConnect(ip)

	client := NewClient(s.hub, conn, ip)
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"rooms":   s.registry.RoomCount(),
		"clients": s.hub.ClientCount(),
		"conns":   s.hub.TotalConns(),
	})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ListRooms())
}

// roomJoinURL is the link a QR code points at.
func (s *Server) roomJoinURL(roomID string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + "/?room=" + url.QueryEscape(roomID)
}

func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	roomID := cleanRoomID(r.PathValue("id"))
	png, err := qrcode.Encode(s.roomJoinURL(roomID), qrcode.Medium, qrSize)
	if err != nil {
		log.Printf("qr %s: %v", roomID, err)
		http.Error(w, "qr encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := leaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := s.db.Leaderboard(limit)
	if err != nil {
		log.Printf("leaderboard: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type adminLoginReq struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, err := s.auth.Login(req.Password, extractIP(r))
	switch {
	case errors.Is(err, ErrAdminDisabled):
		http.NotFound(w, r)
	case errors.Is(err, ErrTooManyAttempts):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case err != nil:
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// requireAdmin rejects requests without a valid bearer token.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled() {
			http.NotFound(w, r)
			return
		}
		tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || s.auth.ValidateToken(tokenStr) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleAdminRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.RoomDetails())
}

func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	counts, err := s.db.EventCounts()
	if err != nil {
		log.Printf("event counts: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
