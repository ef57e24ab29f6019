package main

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := LoadServerConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	gameCfg, err := LoadGameConfig(cfg.GameConfigPath)
	if err != nil {
		log.Fatalf("game config: %v", err)
	}

	db, err := OpenDB()
	if err != nil {
		log.Fatalf("stats db: %v", err)
	}
	analytics := NewAnalytics(db)

	auth, err := NewAuth(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	if !auth.Enabled() {
		log.Println("ADMIN_PASSWORD not set, admin API disabled")
	}

	registry := NewRoomRegistry(gameCfg, realClock{}, uuidGenerator{}, rand.Uint64())
	hub := NewHub(registry, analytics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewServer(cfg, hub, db, auth).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s (%d Hz)", cfg.Addr, registry.Config().TickRate)
		log.Printf("Serving client files from %s", cfg.ClientDir)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	<-hubDone
	analytics.Stop()
	if err := db.Close(); err != nil {
		log.Printf("db close: %v", err)
	}
}
