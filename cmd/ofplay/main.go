package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/247pages/Ofplay/internal/auth"
	"github.com/247pages/Ofplay/internal/config"
	"github.com/247pages/Ofplay/internal/httpapi"
	"github.com/247pages/Ofplay/internal/library"
	"github.com/247pages/Ofplay/internal/mpris"
	"github.com/247pages/Ofplay/internal/prefs"
	"github.com/247pages/Ofplay/internal/provider"
	"github.com/247pages/Ofplay/internal/realtime"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ofplay: pg: %v", err)
	}
	defer pool.Close()
	if err := library.AutoMigrate(ctx, pool); err != nil {
		log.Fatalf("ofplay: migrate: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("ofplay: invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	// Realtime hub + Redis bridge
	hub := realtime.NewHub()
	rt := realtime.NewServer(hub, rdb)
	go hub.Run(ctx)
	go rt.RunRedisSubscriber(ctx)

	yt := provider.NewClient(cfg.ProviderAPIKey, cfg.ProviderBaseURL)
	lib := library.New(rdb, pool)

	srv := httpapi.NewServer(cfg.BaseURL, yt, lib, rt)

	store, err := prefs.NewStore(cfg.PrefsFile)
	if err != nil {
		log.Printf("ofplay: prefs: %v", err)
	}
	srv.SetPreferences(store)

	if cfg.EnableMPRIS {
		conn, err := mpris.New(srv)
		if err != nil {
			log.Printf("ofplay: media session unavailable: %v", err)
		} else {
			defer conn.Close()
			srv.SetMediaSession(conn)
		}
	}

	r := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		auth.Middleware(cfg.JWTSecret),
	)

	log.Printf("ofplay listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("ofplay: %v", err)
	}
}
