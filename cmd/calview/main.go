package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"calview/internal/capture"
	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/source"
	"calview/internal/view"
	"calview/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	cacheDir   string
	once       bool
}

func main() {
	flags := parseFlags()

	// .env overrides are optional; a missing file is the normal case.
	if err := godotenv.Load(); err == nil {
		appLog.Debug(".env loaded")
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI and environment override the config file listen address.
	if flags.listen != "" {
		conf.Listen = flags.listen
	} else if env := os.Getenv("CALVIEW_LISTEN"); env != "" {
		conf.Listen = env
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("calview starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"ics_count", len(conf.ICS),
		"google", conf.Google != nil,
	)

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
		loc = time.Local
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	src, err := buildSource(ctx, conf, flags.cacheDir, loc)
	if err != nil {
		appLog.Error("failed to initialize event sources", err)
		os.Exit(1)
	}

	viewOpts := view.Options{
		WeekStart:    weekStartDay(conf.WeekStart),
		HourSlots:    conf.HourSlots,
		MonthMaxRows: conf.MonthMaxRows,
		Location:     loc,
		FetchTimeout: time.Duration(conf.FetchTimeoutSec) * time.Second,
	}

	if flags.once {
		runRefresh(ctx, conf, src)
		return
	}

	// Periodic refresh: prewarm the sources and re-capture the preview.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.RefreshCron, func() {
		runRefresh(ctx, conf, src)
	}); err != nil {
		appLog.Error("invalid refresh cron expression", err, "cron", conf.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := web.NewServer(conf, src, viewOpts)
	if err := server.Serve(ctx); err != nil {
		appLog.Error("HTTP server stopped", err)
		os.Exit(1)
	}
	appLog.Info("calview exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calview/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "/var/lib/calview/ics-cache", "Directory for the ICS fetch cache")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh cycle and exit")

	flag.Parse()

	return cfg
}

// buildSource wires the configured event sources into a single merged
// collaborator for the composer.
func buildSource(ctx context.Context, conf *config.Config, cacheDir string, loc *time.Location) (source.EventSource, error) {
	timeout := time.Duration(conf.FetchTimeoutSec) * time.Second

	icsSources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		icsSources = append(icsSources, ics.Source{ID: id, URL: c.URL})
	}

	sources := []source.EventSource{
		source.NewICS(cacheDir, timeout, loc, icsSources),
	}

	if conf.Google != nil && conf.Google.CredentialsFile != "" {
		g, err := source.NewGoogle(ctx, conf.Google.CredentialsFile, conf.Google.CalendarID, loc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, g)
	}

	return source.NewMulti(sources...), nil
}

// runRefresh prewarms the source caches around the current date and
// refreshes the preview screenshot if configured.
func runRefresh(ctx context.Context, conf *config.Config, src source.EventSource) {
	now := time.Now()
	rangeStart := now.AddDate(0, -1, 0)
	rangeEnd := now.AddDate(0, 2, 0)

	if _, err := src.FetchEvents(ctx, rangeStart, rangeEnd); err != nil {
		appLog.Error("refresh: source prewarm failed", err)
	} else {
		appLog.Info("refresh: source prewarm completed")
	}

	if conf.Preview == nil || conf.Preview.Path == "" {
		return
	}

	url := conf.Preview.URL
	if url == "" {
		url = "http://" + conf.Listen + "/"
	}
	err := capture.PreviewPNG(ctx, capture.Options{
		URL:        url,
		OutputPath: conf.Preview.Path,
		Width:      conf.Preview.Width,
		Height:     conf.Preview.Height,
	})
	if err != nil {
		appLog.Error("refresh: preview capture failed", err)
		return
	}
	appLog.Info("refresh: preview captured", "path", conf.Preview.Path)
}

func weekStartDay(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
