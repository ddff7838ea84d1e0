package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"SmartMart/internal/api"
	"SmartMart/internal/auth"
	"SmartMart/internal/config"
	"SmartMart/internal/store"
	"SmartMart/pkg/kit"
)

const service = "smartmart"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.LogLevel, cfg.Development())
	defer func() { _ = log.Sync() }()

	st, backend, err := buildStore(cfg, log)
	if err != nil {
		log.Fatal("store init", zap.Error(err))
	}

	s := &api.Server{
		Store:         st,
		Log:           log,
		Backend:       backend,
		TokenTTL:      cfg.TokenTTL,
		UploadLimiter: kit.NewIPRateLimiter(cfg.UploadRateLimit, cfg.UploadRateWindow),
	}

	if cfg.AuthEnabled() {
		admin, err := auth.NewAdmin(cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			log.Fatal("admin init", zap.Error(err))
		}
		s.Admin = admin
		s.JWT = auth.NewTokenMaker(cfg.JWTSecret)
	}

	h := api.NewHandler(s, api.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		CORSOrigins:    cfg.CORSOrigins,
	})

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func buildStore(cfg *config.Config, log *zap.Logger) (store.Store, string, error) {
	if cfg.PostgresDSN == "" {
		path := filepath.Join(cfg.DataDir, "data.json")
		return store.NewJSONStore(path, log), "json", nil
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return nil, "", err
	}

	pg := store.NewPostgresStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, "", err
	}

	return pg, "postgres", nil
}
