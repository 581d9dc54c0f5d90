package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/db"
	"github.com/danielhkuo/campus-vote/logger"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/router"
	"github.com/danielhkuo/campus-vote/scheduler"
	"github.com/danielhkuo/campus-vote/sealer"
	"github.com/danielhkuo/campus-vote/status"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(1)
	}

	logCloser, err := logger.Configure(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}, os.Stderr)
	if err != nil {
		slog.Error("logger setup failed", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect and verify
	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(ctx, dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("database schema ready", "type", cfg.DatabaseType)

	s, err := sealer.New([]byte(cfg.BallotMasterKey))
	if err != nil {
		slog.Error("ballot sealer setup failed", "error", err)
		os.Exit(1)
	}

	reconciler := status.NewReconciler(dbConn, time.Now)
	sched := scheduler.New(reconciler, scheduler.LogNotifier{}, cfg.ReconcileInterval)
	go sched.Run(ctx)

	// Create router
	mux := router.NewRouter(router.Deps{
		DB:         dbConn,
		Sealer:     s,
		Reconciler: reconciler,
		Runner:     sched,
	}, cfg)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("listening", "port", cfg.Port, "reconcile_interval", cfg.ReconcileInterval)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server closed", "error", err)
	} else {
		slog.Info("server closed")
	}
}
