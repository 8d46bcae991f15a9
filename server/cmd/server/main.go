package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/chickenjockey/sitestatus/server/internal/alerts"
	"github.com/chickenjockey/sitestatus/server/internal/api"
	"github.com/chickenjockey/sitestatus/server/internal/auth"
	"github.com/chickenjockey/sitestatus/server/internal/config"
	"github.com/chickenjockey/sitestatus/server/internal/receiver"
	"github.com/chickenjockey/sitestatus/server/internal/store"
	"github.com/chickenjockey/sitestatus/server/internal/ws"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (defaults built in when empty)")
	uiDir := pflag.String("ui-dir", "", "serve the status page static files from this directory; leave empty to disable")
	logLevel := pflag.String("log-level", "info", "debug | info | warn | error")
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "invalid --log-level:", *logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("sitestatus-server starting", "config", *configPath)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}
	sc := cfg.Server

	slog.Info("config loaded",
		"http_port", sc.HTTPPort,
		"auth_mode", sc.Auth.Mode,
		"snapshot_ttl", sc.Snapshot.TTL,
		"storage", sc.Storage.Backend,
		"alert_rules", len(sc.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Snapshot store with background TTL eviction.
	st := store.New(sc.Snapshot.TTL)
	go st.Run(ctx)

	// Alerts engine: evaluates rules on every incoming snapshot.
	alertEngine := alerts.New(sc.Alerts)

	apiOpts := api.Options{
		Alerts:       alertEngine,
		Location:     sc.Display.Location(),
		BannerTarget: sc.Display.BannerTarget,
	}
	recvOpts := receiver.Options{Alerts: alertEngine}

	if sc.Storage.Backend == "sqlite" {
		archive, err := store.OpenArchive(sc.Storage.Path)
		if err != nil {
			slog.Error("failed to open archive", "path", sc.Storage.Path, "err", err)
			os.Exit(1)
		}
		defer archive.Close()
		go archive.RunRetention(ctx, sc.Storage.Retention)
		apiOpts.Archive = archive
		recvOpts.Archive = archive
		slog.Info("snapshot archive enabled", "path", sc.Storage.Path, "retention", sc.Storage.Retention)
	}

	apiHandler := api.New(st, apiOpts)

	// WebSocket hub: pushes the status page on every tick and after ingest.
	hub := ws.New(apiHandler, sc.Stream.Interval)
	go hub.Run(ctx)
	recvOpts.Stream = hub

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/v1/ingest", auth.FromConfig(sc.Auth)(receiver.New(st, recvOpts)))
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/metrics", api.NewMetrics(st, alertEngine))
	httpMux.Handle("/ws/stream", hub)

	// Optional: serve a pre-built status page from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		files := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(*uiDir, filepath.Clean("/"+r.URL.Path))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(*uiDir, "index.html"))
				return
			}
			files.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("sitestatus-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
}
