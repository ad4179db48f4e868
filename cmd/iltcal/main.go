package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"iltcal/internal/capture"
	"iltcal/internal/config"
	"iltcal/internal/ics"
	"iltcal/internal/lms"
	"iltcal/internal/locale"
	appLog "iltcal/internal/log"
	"iltcal/internal/model"
	"iltcal/internal/notify"
	"iltcal/internal/web"
	"iltcal/internal/widget"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
	debug      bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		hashPassword(os.Args[2:])
		return
	}

	flags := parseFlags()
	appLog.Info("iltcal starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"locale", conf.Locale,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"lms", conf.LMS.BaseURL,
		"feeds", len(conf.Feeds),
		"basic_auth", conf.BasicAuth != nil,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	src, err := lms.New(lms.Options{
		BaseURL:      conf.LMS.BaseURL,
		SessionsPath: conf.LMS.SessionsPath,
		EnrollPath:   conf.LMS.EnrollPath,
		Token:        conf.LMS.Token,
		Timeout:      conf.LMS.Timeout(),
	})
	if err != nil {
		appLog.Error("invalid lms settings", err)
		os.Exit(1)
	}

	var feeds widget.FeedLoader
	if len(conf.Feeds) > 0 {
		feeds = &ics.Importer{
			Fetcher:      ics.NewFetcher(conf.CacheDir, nil),
			Feeds:        conf.ICSFeeds(),
			BackfillDays: conf.BackfillDays,
			HorizonDays:  conf.HorizonDays,
		}
	}

	loc := locale.New(conf.Locale)
	hub := notify.NewHub()
	newCalendar := func(pageID string) *widget.Calendar {
		return widget.New(widget.Options{
			Locale:    loc,
			Source:    src,
			Feeds:     feeds,
			Notifier:  hub.For(pageID),
			Links:     web.Links,
			Palette:   model.NewPalette(conf.Palette),
			Location:  conf.Location(),
			WeekStart: conf.WeekStartDay(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once && flags.snapshot == "" {
		if err := runOnce(ctx, newCalendar("once")); err != nil {
			os.Exit(1)
		}
		return
	}

	srv := web.NewServer(web.Options{
		Config:      conf,
		Hub:         hub,
		NewCalendar: newCalendar,
		Debug:       flags.debug,
	})

	if flags.snapshot != "" {
		if err := runSnapshot(ctx, srv, conf.Listen, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "output", flags.snapshot)
			os.Exit(1)
		}
		return
	}

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		jobCtx, jobCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer jobCancel()
		srv.Sweep()
		srv.ReloadAll(jobCtx)
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	if err := web.StartServer(ctx, srv, conf.Listen); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("iltcal exiting")
}

// runOnce loads the sessions a single time and reports what was found.
func runOnce(ctx context.Context, cal *widget.Calendar) error {
	cal.Mount(model.Payload{})
	defer cal.Unmount()
	if err := cal.Reload(ctx); err != nil {
		appLog.Error("load failed", err)
		return err
	}
	up := cal.Upcoming()
	appLog.Info("sessions loaded", "upcoming_cards", len(up.Cards), "month", cal.Month().Title)
	return nil
}

// runSnapshot serves the calendar just long enough to capture it.
func runSnapshot(ctx context.Context, srv *web.Server, listen, output string) error {
	srvCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- web.StartServer(srvCtx, srv, listen) }()

	err := capture.SnapshotCalendar(ctx, capture.SnapshotOptions{
		URL:        "http://" + listen + "/calendar",
		OutputPath: output,
	})
	stop()
	if serr := <-errCh; serr != nil && err == nil {
		err = serr
	}
	if err == nil {
		appLog.Info("snapshot written", "output", output)
	}
	return err
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/iltcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load sessions once, log a summary and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Write a PNG of the calendar page to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: iltcal [OPTIONS]\n       iltcal hash-password [OPTIONS]\n\nOptions:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	return cfg
}
