// cmd/server/main.go
package main

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	_ "github.com/joho/godotenv/autoload"

	"github.com/trackline/trackline/internal/catalog"
	"github.com/trackline/trackline/internal/config"
	"github.com/trackline/trackline/internal/handlers"
	"github.com/trackline/trackline/internal/room"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	source := buildCatalogSource(cfg, logger)
	store := room.NewStore(clockwork.NewRealClock(), source, logger, room.DefaultTunables())
	srv := handlers.NewServer(store, logger)

	logger.Infof("Running on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Router(cfg.AllowedOrigins)); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

// buildCatalogSource layers the configured catalog: Postgres when a database
// URL is present, a redis cache in front when redis is configured, and the
// built-in round set as the terminal fallback either way.
func buildCatalogSource(cfg config.Config, logger *logrus.Logger) catalog.Source {
	var primary catalog.Source

	if cfg.DatabaseURL != "" {
		pg, err := catalog.NewPostgresSource(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Warn("Catalog database unavailable, continuing without it")
		} else {
			primary = pg
		}
	}

	if primary != nil && cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		primary = catalog.NewRedisCache(rdb, primary, cfg.CatalogCacheTTL, logger)
	}

	return catalog.WithFallback(primary, logger)
}
