// intaked serves document rendering and field flattening over HTTP.
//
// Usage:
//
//	intaked [-config config.yml] [-addr :8080]
//
// Endpoints:
//
//	GET  /health            liveness probe
//	POST /render            batch JSON -> {"text", "warnings"} (?markdown=true for markdown)
//	POST /flatten           {"batches", "process_keys"} -> flattened result
//	POST /process           render + flatten with audit events -> {"id", "text", "result", "warnings"}
//	GET  /audit/{batchID}   audit events of a processed batch (needs audit.sqlite_path)
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gardar/cargointake/pkg/auditlog"
	"github.com/gardar/cargointake/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "Path to the config YAML file")
	addr := flag.String("addr", "", "Listen address (overrides http.addr)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var audit *auditlog.SQLiteSink
	if cfg.Audit.SQLitePath != "" {
		var err error
		audit, err = auditlog.OpenSQLite(cfg.Audit.SQLitePath, logger)
		if err != nil {
			slog.Error("audit db", "error", err)
			os.Exit(1)
		}
		defer audit.Close()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newServer(cfg, audit, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}
