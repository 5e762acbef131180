package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"Prizefight/internal/auth"
	"Prizefight/internal/cache"
	"Prizefight/internal/config"
	"Prizefight/internal/events"
	"Prizefight/internal/events/kafka"
	"Prizefight/internal/journal"
	"Prizefight/internal/ledger"
	"Prizefight/internal/notifier"
	"Prizefight/internal/remote"
	"Prizefight/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] Prizefight starting...")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init local cache
	localCache, err := cache.New(cfg.Ledger.CacheDir)
	if err != nil {
		log.Fatalf("[FATAL] init local cache: %v", err)
	}

	// Init remote store
	var store remote.Store
	if cfg.Remote.PostgresDSN != "" {
		ps, err := remote.NewPostgresStore(cfg.Remote.PostgresDSN)
		if err != nil {
			log.Printf("[WARN] init postgres store failed, using in-memory: %v", err)
			store = remote.NewMemoryStore()
		} else {
			store = ps
			defer ps.Close()
		}
	} else {
		store = remote.NewMemoryStore()
	}

	// Connectivity probe
	probe := remote.NewProbe(store, 5*time.Second)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe.Check(ctx)

	// Init journal
	var jrn journal.Journal
	if cfg.Database.SQLitePath != "" {
		sj, err := journal.NewSQLiteJournal(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite journal failed, using noop: %v", err)
			jrn = journal.NewNoopJournal()
		} else {
			jrn = sj
			defer sj.Close()
		}
	} else {
		jrn = journal.NewNoopJournal()
	}

	// Init notifier
	var notif notifier.Notifier
	if cfg.Notifier.WebhookURL != "" {
		notif = notifier.NewWebhookNotifier(cfg.Notifier.WebhookURL)
	} else {
		notif = notifier.NewLogNotifier()
	}

	// Init event publisher
	var pub events.Publisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic)
		pub = kp
		defer kp.Close()
	} else {
		pub = events.NewNoopPublisher()
	}

	// Sign in when credentials are configured; otherwise run anonymous
	// and local-only.
	var userID string
	if cfg.Account.Email != "" {
		svc := auth.NewService(store)
		userID, err = svc.SignIn(ctx, cfg.Account.Email, cfg.Account.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			userID, err = svc.SignUp(ctx, cfg.Account.Email, cfg.Account.Password)
		}
		if err != nil {
			log.Printf("[WARN] sign-in failed, running anonymous: %v", err)
			userID = ""
		} else {
			log.Printf("[INFO] signed in as user %s", userID)
		}
	} else {
		log.Println("[INFO] no account configured, running anonymous")
	}

	// Init ledger manager
	mgr := ledger.NewManager(
		ledger.Session{UserID: userID, Online: probe.Online},
		ledger.Deps{
			Cache:    localCache,
			Store:    store,
			Journal:  jrn,
			Notifier: notif,
			Events:   pub,
		},
	)
	mgr.StartSession(ctx)

	led := mgr.Ledger()
	log.Printf("[INFO] session ready: %d OPC, %d day streak", led.TotalPoints, led.CurrentStreak)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, mgr, probe, notif)
	if err := sched.RegisterAll(cfg.Schedule.DayCron, cfg.Schedule.AccrualCron, cfg.Schedule.ReportCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing accrual check now")
		go sched.RunAccrualNow()
	}

	log.Println("[INFO] Prizefight is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] Prizefight stopped")
}
