package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rooflens.io/internal/auth"
	"rooflens.io/internal/config"
	"rooflens.io/internal/document"
	"rooflens.io/internal/fleet"
	"rooflens.io/internal/httpapi"
	"rooflens.io/internal/obs"
	"rooflens.io/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Without a DSN the service runs on in-memory stores, enough for local
	// development and the test suite.
	var (
		pgStore   *pg.Store
		accounts  auth.AccountStore = auth.NewMemoryAccounts()
		fleetStor fleet.Store       = fleet.NewInMemory()
		docStore  document.Store    = document.NewInMemory()
	)
	if cfg.Database.DSN != "" {
		pgStore, err = pg.Open(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		accounts = pgStore.Accounts()
		fleetStor = pgStore.Fleet()
		docStore = pgStore.Documents()
	}

	authSvc, err := auth.NewService(accounts, auth.WithAccessTTL(cfg.Auth.AccessTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	fleetSvc, err := fleet.NewService(fleetStor)
	if err != nil {
		log.Fatalf("fleet service: %v", err)
	}
	docSvc, err := document.NewService(docStore, document.WithDefaultTTL(cfg.Documents.DefaultTTL))
	if err != nil {
		log.Fatalf("document service: %v", err)
	}

	probe := httpapi.ReadyProbe{}
	if pgStore != nil {
		probe.DB = pgStore.DB()
	}
	api := httpapi.New(authSvc, fleetSvc, docSvc, probe, version)

	handler := api.Handler()
	handler = httpapi.RateLimit(handler, cfg.RateLimit.Burst, cfg.RateLimit.RPS)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.Logging(handler)
	handler = httpapi.RequestID(handler)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background expiry sweep; reads stay correct without it, this just keeps
	// the stored statuses and listings in line.
	if cfg.Documents.SweepEvery > 0 {
		go docSvc.RunSweeper(ctx, cfg.Documents.SweepEvery)
	}

	log.Printf("Starting rooflens-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
