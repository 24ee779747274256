package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/society-watch/internal/api"
	"github.com/technosupport/society-watch/internal/audit"
	"github.com/technosupport/society-watch/internal/config"
	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/ingest"
	"github.com/technosupport/society-watch/internal/mailer"
	"github.com/technosupport/society-watch/internal/metrics"
	"github.com/technosupport/society-watch/internal/middleware"
	"github.com/technosupport/society-watch/internal/report"
	"github.com/technosupport/society-watch/internal/stats"
	"github.com/technosupport/society-watch/internal/tokens"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "Path to YAML config")
	flag.Parse()

	log.SetPrefix("[societywatch] ")
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret (or SOCIETYWATCH_JWT_SECRET) is required")
	}

	cfgStore := config.NewStore(*configPath, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfgStore.Watch(ctx)

	// 1. Database
	db, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database open failed: %v", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.DB.MaxIdleTime)
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	pingCancel()
	log.Println("Database connected.")

	// 2. Redis (rate limiting); the service runs without it
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unreachable (%v), rate limiting degraded", err)
		}
	}

	// 3. Optional NATS fan-out
	var pub ingest.Publisher
	if cfg.Events.NATSEnabled && cfg.Events.NATSURL != "" {
		nc, err := nats.Connect(cfg.Events.NATSURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Printf("NATS connect failed (%v), fan-out disabled", err)
		} else {
			defer nc.Close()
			pub = ingest.NewNATSPublisher(nc, cfg.Events.NATSSubject, 3)
			log.Printf("NATS fan-out on %s", cfg.Events.NATSSubject)
		}
	}

	// 4. Models and services
	events := data.EventModel{DB: db}
	societies := data.SocietyModel{DB: db}
	cameras := data.CameraModel{DB: db}
	users := data.UserModel{DB: db}

	collector := metrics.NewCollector()
	auditSvc := audit.NewService(db)
	tokenMgr := tokens.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	norm := &ingest.Normalizer{
		Tenants:         societies,
		Cameras:         cameras,
		DefaultClientID: cfg.Webhook.DefaultClientID,
	}
	dedup := ingest.NewDeduper(cfg.Events.DedupCacheSize, int(cfg.Events.DedupTTL.Seconds()))
	ingestSvc := ingest.NewService(events, norm, dedup, pub, collector)

	engine := stats.NewEngine(events, cameras)

	// 5. Daily reporter
	var scheduler *report.Scheduler
	if cfg.Report.Enabled {
		mail := mailer.New(cfg.Report.Mailer.ProviderURL, cfg.Report.Mailer.APIKey, cfg.Report.Mailer.From)
		scheduler = report.NewScheduler(engine, users, mail, cfg.Report.HourIST)
		scheduler.Start()
		log.Printf("Daily reporter scheduled for %02d:00 IST", cfg.Report.HourIST)
	}

	// 6. HTTP
	var limiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled && rdb != nil {
		limiter = middleware.NewRateLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window).Middleware
	}

	server := &api.Server{
		Events:    events,
		Societies: societies,
		Cameras:   cameras,
		Users:     users,
		Ingest:    ingestSvc,
		Stats:     engine,
		Audit:     auditSvc,
		Tokens:    tokenMgr,
		Metrics:   collector,
		WebhookSecret: func() string {
			return cfgStore.Current().Webhook.Secret
		},
		RateLimit: limiter,
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	// 7. Shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Signal %v, shutting down...", sig)
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Stopped.")
}
