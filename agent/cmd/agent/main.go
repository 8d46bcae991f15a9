package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/chickenjockey/sitestatus/agent/internal/config"
	"github.com/chickenjockey/sitestatus/agent/internal/feed"
	"github.com/chickenjockey/sitestatus/agent/internal/poller"
	"github.com/chickenjockey/sitestatus/agent/internal/report"
	"github.com/chickenjockey/sitestatus/agent/internal/security"
	"github.com/chickenjockey/sitestatus/agent/internal/shipper"
	"github.com/chickenjockey/sitestatus/pkg/types"
)

var version = "dev"

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (defaults built in when empty)")
	once := pflag.BoolP("once", "1", false, "fetch once, print a report and exit (status 1 if any target is down)")
	showVersion := pflag.BoolP("version", "v", false, "print version and exit")
	logLevel := pflag.String("log-level", "info", "debug | info | warn | error")
	pflag.Parse()

	if *showVersion {
		fmt.Println("sitestatus-agent", version)
		return
	}

	// A missing .env is normal; secrets usually come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "invalid --log-level:", *logLevel)
		os.Exit(2)
	}
	// In one-shot mode stdout carries the report, so logs go to stderr.
	logOut := os.Stdout
	if *once {
		logOut = os.Stderr
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"targets", len(cfg.Agent.Targets),
		"history_url", cfg.Agent.Feeds.HistoryURL,
		"latest_url", cfg.Agent.Feeds.LatestURL,
	)

	src, err := feed.New(cfg.Agent.Feeds)
	if err != nil {
		slog.Error("failed to build feed client", "err", err)
		os.Exit(1)
	}
	certs := security.NewChecker(cfg.Agent.Feeds.TLS.InsecureSkipVerify)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		p := poller.New(src, certs, poller.OptionsFromConfig(cfg.Agent), cfg.Agent.Targets, nil)
		snaps := p.Once(ctx)
		opts := report.Options{Color: report.ColorEnabled(os.Stdout), Location: time.Local}
		if err := report.Write(os.Stdout, snaps, time.Now(), opts); err != nil {
			slog.Error("failed to write report", "err", err)
			os.Exit(1)
		}
		if !report.AllUp(snaps) {
			os.Exit(1)
		}
		return
	}

	var sink poller.Sink
	if cfg.Agent.ServerEndpoint != "" {
		ship := shipper.New(cfg.Agent)
		go ship.Run(ctx)
		sink = func(snaps []types.TargetSnapshot) {
			for _, s := range snaps {
				ship.Ship(s)
			}
			slog.Debug("queued snapshots", "count", len(snaps), "buffered", ship.Len())
		}
	} else {
		slog.Warn("no server_endpoint configured; snapshots are logged only")
		sink = func(snaps []types.TargetSnapshot) {
			for _, s := range snaps {
				up := s.Latest != nil && s.Latest.Up
				slog.Info("target evaluated", "target", s.TargetID, "up", up, "fetch_error", s.FetchError)
			}
		}
	}

	p := poller.New(src, certs, poller.OptionsFromConfig(cfg.Agent), cfg.Agent.Targets, sink)

	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				p.SetTargets(updated.Agent.Targets)
				p.SetPolicies(updated.Agent.Policy.StripPolicy(), updated.Agent.Policy.LivePolicy())
				slog.Info("config hot-reloaded",
					"targets", len(updated.Agent.Targets),
					"strip_policy", updated.Agent.Policy.Strip,
					"live_policy", updated.Agent.Policy.Live,
				)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	slog.Info("sitestatus-agent starting", "version", version)
	_ = p.Run(ctx)
	slog.Info("sitestatus-agent shutting down")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
