package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/config"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/messaging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/middleware"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/audit"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/client"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/drafts"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/events"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/handlers"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/server"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/service"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"

	natsclient "github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/messaging/nats"
)

func main() {
	configDir := flag.String("config-dir", "", "directory holding config.yaml (overrides ROLLUP_CONFIG_DIR)")
	flag.Parse()

	if *configDir != "" {
		if err := os.Setenv("ROLLUP_CONFIG_DIR", *configDir); err != nil {
			log.Fatalf("Failed to set config dir: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("rollup"))
	logging.SetDefault(logger)

	slog.Info("Starting rollup wizard service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("opensearch_url", cfg.OpenSearch.URL),
	)

	ctx := context.Background()
	checks := map[string]handlers.HealthCheck{}

	osClient, err := client.NewOpenSearchClient(cfg.OpenSearch, logger)
	if err != nil {
		log.Fatalf("Failed to create OpenSearch client: %v", err)
	}
	checks["opensearch"] = osClient.Ping
	resolver := fields.NewResolver(osClient, logger)

	// Drafts
	var (
		store      drafts.Store
		draftStats handlers.StatsFunc
	)
	if cfg.Redis.Enabled {
		rdb, err := drafts.Connect(ctx, cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		redisStore := drafts.NewRedisStore(rdb, cfg.Redis.DraftTTL)
		store = redisStore
		draftStats = redisStore.Stats
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		slog.Info("Draft store enabled", slog.String("backend", "redis"), slog.Duration("ttl", cfg.Redis.DraftTTL))
	} else {
		store = drafts.NewMemoryStore(cfg.Redis.DraftTTL)
		slog.Warn("Redis disabled - drafts are kept in memory and lost on restart")
	}

	var observers []wizard.SubmitObserver

	// Audit trail
	if cfg.Database.Enabled {
		dsn := cfg.Database.Postgres.DSN()
		if err := audit.Migrate(dsn); err != nil {
			log.Fatalf("Failed to migrate audit database: %v", err)
		}
		repo, err := audit.NewPostgresRepository(ctx, dsn)
		if err != nil {
			log.Fatalf("Failed to connect to audit database: %v", err)
		}
		defer repo.Close()
		observers = append(observers, audit.NewObserver(repo))
		checks["postgres"] = repo.Ping
		slog.Info("Submission audit enabled")
	} else {
		slog.Info("Audit database disabled - submissions are only logged")
	}

	// Job events
	var cancelled service.CancelNotifier
	if cfg.NATS.Enabled {
		nc, err := natsclient.NewClient(natsclient.FromConfig(cfg.NATS), logger)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				slog.Warn("NATS drain failed", logging.Error(err))
			}
		}()
		pub := events.NewPublisher(nc, logger)
		observers = append(observers, pub)
		cancelled = pub
		checks["nats"] = func(ctx context.Context) error {
			if st := messaging.CheckClientHealth(ctx, nc); st.Error != "" {
				return errors.New(st.Error)
			}
			return nil
		}
		slog.Info("Job events enabled", slog.String("nats_url", cfg.NATS.URL))
	} else {
		slog.Info("NATS disabled - job events will not be published")
	}

	svc := service.NewWizardService(store, resolver, osClient, service.Config{
		Defaults:   wizardDefaults(cfg.Wizard),
		Normalizer: schedule.NewNormalizer(nil),
		Observers:  observers,
		Cancelled:  cancelled,
		Logger:     logger,
	})

	handler := handlers.NewHandler(svc, checks, logger)
	if draftStats != nil {
		handler.AddStats("drafts", draftStats)
	}
	router := server.NewRouter(handler, middleware.DefaultCORSConfig(cfg.Server.CORSOrigins), logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Rollup wizard service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
	}
	slog.Info("Server stopped")
}

// wizardDefaults maps configured form defaults onto jobspec.Defaults,
// falling back to the plugin's own defaults for unset or bad values.
func wizardDefaults(wc config.WizardConfig) jobspec.Defaults {
	d := jobspec.DefaultDefaults()
	if wc.DefaultPageSize > 0 {
		d.PageSize = wc.DefaultPageSize
	}
	if wc.DefaultTimezone != "" {
		if _, err := time.LoadLocation(wc.DefaultTimezone); err == nil {
			d.Timezone = wc.DefaultTimezone
		} else {
			slog.Warn("Ignoring invalid default timezone", slog.String("timezone", wc.DefaultTimezone))
		}
	}
	if u, err := schedule.ParseUnit(wc.DefaultScheduleUnit); err == nil {
		d.ScheduleUnit = u
	}
	if wc.DefaultPeriod > 0 {
		d.Period = wc.DefaultPeriod
	}
	return d
}
