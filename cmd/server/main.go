/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the admission control server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load YAML config
  2. Initialize SQLite store (":memory:" for the memory driver)
  3. Build the admission guard (Redis when configured, in-process otherwise)
  4. Wire decider, admitter, monitor, rules, compensation ledger
  5. Start the sweep scheduler and HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (optional; defaults apply without it)
  -addr    Listen address, overrides config (e.g. ":8080")
  -db      SQLite database path, overrides config

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sweep scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/admission.db"

  # Run with a config file (Redis guard, sweep schedule, rate limits)
  ./server -config=./config.yaml

SEE ALSO:
  - config/config.go: Configuration schema and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/api"
	"github.com/stayware/admission-engine/compensation"
	"github.com/stayware/admission-engine/config"
	"github.com/stayware/admission-engine/guard"
	"github.com/stayware/admission-engine/rules"
	"github.com/stayware/admission-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config path")
	addr := flag.String("addr", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.Path = *dbPath
	}

	// Storage. The memory driver is SQLite's in-memory mode, so both
	// drivers share one code path.
	path := cfg.Storage.Path
	if cfg.Storage.Driver == "memory" {
		path = ":memory:"
	}
	store, err := sqlite.New(path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Rules: sqlite documents behind a short-TTL cache
	repo := rules.NewRepository(store)
	cached := rules.NewCached(repo, cfg.Rules.CacheTTL.Std())

	// Admission engine
	decider := admission.NewDecider(cached, store, store, store.RoomTypes())

	monitor := &admission.Monitor{
		Resolver:  decider.Resolver,
		Snapshots: decider.Snapshots,
		RoomTypes: store.RoomTypes(),
	}

	// Guard: Redis when configured, otherwise in-process counters
	var g guard.Guard = guard.NewMemory()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
		}
		g = guard.NewRedis(client)
		log.Printf("Using Redis admission guard at %s", cfg.Redis.Addr)
	}
	admitter := guard.NewAdmitter(decider, g, store)

	// Compensation ledger
	ledger := compensation.NewLedger(store, store, cached)

	handler := &api.Handler{
		Decider:      decider,
		Admitter:     admitter,
		Snapshots:    decider.Snapshots,
		Monitor:      monitor,
		Reservations: store,
		RuleStore:    store,
		Factory:      rules.NewFactory(),
		Cache:        cached,
		Ledger:       ledger,
		Sweeps:       store,
	}

	router := api.NewRouter(handler, api.RouterOptions{
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})

	// Scheduled compliance sweeps
	var sweeper *api.Sweeper
	if cfg.Sweep.Enabled && len(cfg.Sweep.Properties) > 0 {
		properties := make([]admission.PropertyID, len(cfg.Sweep.Properties))
		for i, p := range cfg.Sweep.Properties {
			properties[i] = admission.PropertyID(p)
		}
		sweeper = api.NewSweeper(monitor, store, properties)
		if cfg.Sweep.HorizonDays > 0 {
			sweeper.HorizonDays = cfg.Sweep.HorizonDays
		}
		if err := sweeper.Start(cfg.Sweep.Schedule); err != nil {
			log.Fatalf("Failed to start sweep scheduler: %v", err)
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		log.Printf("API available at http://localhost%s/api", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if sweeper != nil {
		sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
