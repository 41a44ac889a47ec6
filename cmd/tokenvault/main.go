package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TokenVault/internal/ingestion"
	"TokenVault/internal/ledger"
	"TokenVault/internal/observability"
	"TokenVault/internal/persistence"
	"TokenVault/internal/query"
	"TokenVault/internal/server"
	"TokenVault/internal/vault"
)

// Config holds all application configuration, loaded from environment
// variables.
type Config struct {
	// Postgres. Empty runs the vault on the in-memory snapshot store.
	PostgresDSN string

	// NATS. Empty disables event publishing and the keeper consumer.
	NATSURL string

	// gRPC/HTTP/Metrics
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string

	// Vault identities
	PoolAddress string
	Controllers []string
	Operator    string

	// Embedded ledger genesis, "asset:amount" comma list.
	SeedBalances string

	// Replay LRU
	IdempotencyCapacity int

	// Migrations
	MigrationsDir string
}

func DefaultConfig() Config {
	return Config{
		PostgresDSN:         os.Getenv("VAULT_POSTGRES_DSN"),
		NATSURL:             os.Getenv("VAULT_NATS_URL"),
		GRPCAddr:            envOrDefault("VAULT_GRPC_ADDR", ":9090"),
		HTTPAddr:            envOrDefault("VAULT_HTTP_ADDR", ":8080"),
		MetricsAddr:         envOrDefault("VAULT_METRICS_ADDR", ":9091"),
		PoolAddress:         os.Getenv("VAULT_POOL_ADDRESS"),
		Controllers:         splitList(os.Getenv("VAULT_CONTROLLERS")),
		Operator:            os.Getenv("VAULT_OPERATOR"),
		SeedBalances:        os.Getenv("VAULT_SEED_BALANCES"),
		IdempotencyCapacity: envIntOrDefault("VAULT_IDEMPOTENCY_CAPACITY", 10_000),
		MigrationsDir:       envOrDefault("VAULT_MIGRATIONS_DIR", "migrations"),
	}
}

// snapshotStore is the full store surface the binary wires: the engine's
// read/write side plus the query service's listing side.
type snapshotStore interface {
	vault.SnapshotStore
	query.SnapshotSource
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("INFO: TokenVault starting...")

	cfg := DefaultConfig()
	if cfg.PoolAddress == "" {
		log.Fatal("FATAL: VAULT_POOL_ADDRESS is required")
	}
	pool := vault.Address(cfg.PoolAddress)

	// --- Context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Snapshot store ---
	var store snapshotStore
	if cfg.PostgresDSN == "" {
		log.Println("WARN: VAULT_POSTGRES_DSN not set, snapshots are in-memory and will not survive a restart")
		store = persistence.NewMemoryStore()
	} else {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("FATAL: postgres open: %v", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("FATAL: postgres ping: %v", err)
		}
		log.Println("INFO: Postgres connected")

		migrator := persistence.NewMigrator(db, cfg.MigrationsDir)
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("FATAL: run migrations: %v", err)
		}
		log.Println("INFO: migrations applied")

		store = persistence.NewPostgresStore(db, metrics)
	}

	// --- Asset ledger ---
	assetLedger := ledger.NewMemoryLedger()
	if err := seedLedger(assetLedger, pool, cfg.SeedBalances); err != nil {
		log.Fatalf("FATAL: seed ledger: %v", err)
	}

	// --- Roles ---
	roles := vault.NewStaticRoles()
	for _, controller := range cfg.Controllers {
		roles.Grant(vault.RoleController, vault.Address(controller))
	}
	if len(cfg.Controllers) == 0 {
		log.Println("WARN: VAULT_CONTROLLERS is empty, every vault operation will be rejected")
	} else {
		log.Printf("INFO: granted controller role to %d address(es)", len(cfg.Controllers))
	}

	// --- NATS ---
	var (
		events vault.EventSink
		js     jetstream.JetStream
	)
	if cfg.NATSURL == "" {
		log.Println("WARN: VAULT_NATS_URL not set, event publishing and the keeper consumer are disabled")
	} else {
		nc, stream, err := ingestion.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("FATAL: nats connect: %v", err)
		}
		defer nc.Close()
		log.Println("INFO: NATS connected")

		if err := ingestion.EnsureEventStream(ctx, stream); err != nil {
			log.Fatalf("FATAL: ensure events stream: %v", err)
		}
		if err := ingestion.EnsureOpsStream(ctx, stream); err != nil {
			log.Fatalf("FATAL: ensure ops stream: %v", err)
		}

		js = stream
		events = ingestion.NewPublisher(stream, metrics)
	}

	// --- Engine ---
	engine := vault.NewEngine(vault.EngineDeps{
		Pool:    pool,
		Ledger:  assetLedger,
		Store:   store,
		Roles:   roles,
		Callers: vault.ContextCallers{},
		Events:  events,
		Metrics: metrics,
		Logger:  observability.NewLogger("engine"),
	})

	// --- Keeper consumer ---
	var subscriber *ingestion.Subscriber
	if js != nil {
		operator := cfg.Operator
		if operator == "" && len(cfg.Controllers) > 0 {
			operator = cfg.Controllers[0]
		}
		if operator == "" {
			log.Println("WARN: no operator address available, keeper consumer disabled")
		} else {
			subscriber = ingestion.NewSubscriber(js, engine, vault.Address(operator), metrics)
			if err := subscriber.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
				log.Fatalf("FATAL: nats subscribe: %v", err)
			}
			log.Printf("INFO: keeper consumer running as %s", operator)
		}
	}

	// --- HTTP + gRPC servers ---
	queries := query.NewService(assetLedger, store, pool, metrics)
	replays := vault.NewReplayCache(cfg.IdempotencyCapacity, metrics)

	gateway, err := server.NewGateway(cfg.HTTPAddr, &server.GatewayDeps{
		Engine:  engine,
		Queries: queries,
		Replays: replays,
		Health:  healthChecker,
	})
	if err != nil {
		log.Fatalf("FATAL: build gateway: %v", err)
	}
	grpcServer := server.NewGRPCServer(cfg.GRPCAddr)

	// --- Start goroutines ---
	errChan := make(chan error, 4)

	// 1. gRPC server
	go func() {
		errChan <- grpcServer.StartGRPC(ctx)
	}()

	// 2. HTTP/JSON gateway
	go func() {
		errChan <- gateway.Start(ctx)
	}()

	// 3. Prometheus metrics server
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metricsMux,
		}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		log.Printf("INFO: Metrics server listening on %s/metrics", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	healthChecker.SetReady(true)
	log.Printf("INFO: TokenVault ready (pool=%s, grpc=%s, http=%s, metrics=%s)",
		cfg.PoolAddress, cfg.GRPCAddr, cfg.HTTPAddr, cfg.MetricsAddr)

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		log.Printf("INFO: received signal %s, shutting down...", sig)
	case err := <-errChan:
		log.Printf("ERROR: goroutine failed: %v, shutting down...", err)
	}

	cancel()
	if subscriber != nil {
		subscriber.Stop()
	}

	log.Println("INFO: TokenVault shutdown complete")
}

// seedLedger credits the pool with the configured genesis balances.
// Entries look like "USDC:1000000,WBTC:5000".
func seedLedger(assetLedger *ledger.MemoryLedger, pool vault.Address, seeds string) error {
	if seeds == "" {
		return nil
	}
	for _, entry := range strings.Split(seeds, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		asset, amount, ok := strings.Cut(entry, ":")
		if !ok {
			return fmt.Errorf("seed entry %q: want asset:amount", entry)
		}
		value, err := uint256.FromDecimal(strings.TrimSpace(amount))
		if err != nil {
			return fmt.Errorf("seed entry %q: %w", entry, err)
		}
		if err := assetLedger.Credit(pool, vault.AssetID(strings.TrimSpace(asset)), value); err != nil {
			return fmt.Errorf("seed entry %q: %w", entry, err)
		}
		log.Printf("INFO: seeded %s with %s %s", pool, value.Dec(), strings.TrimSpace(asset))
	}
	return nil
}

// --- Helpers ---

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var i int
	if _, err := fmt.Sscanf(v, "%d", &i); err != nil {
		return defaultVal
	}
	return i
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
