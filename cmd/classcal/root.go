package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"classcal/internal/api"
	"classcal/internal/calendar"
	"classcal/internal/config"
	"classcal/internal/ics"
	"classcal/internal/instrumentation"
	appLog "classcal/internal/log"
	"classcal/internal/schedule"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "classcal",
	Short: "Class schedule calendar for the tutoring platform",
	Long: `classcal pulls class sessions from the platform REST API and shows them
as a month or week calendar in the browser or the terminal.

It can run as:
  - a web server with the calendar page, JSON API and ICS export (serve)
  - a one-shot terminal grid (grid)
  - a PNG snapshot of the calendar page (snapshot)`,
	SilenceUsage: true,
}

// Execute is the entry point for the CLI.
func Execute() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{printf "classcal version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./classcal.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGridCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	loc     *time.Location
	gen     calendar.Generator
	client  *api.Client
	metrics *instrumentation.Metrics
}

// loadApp reads the config, sets up logging and builds the API client.
// A config that cannot be loaded is the only fatal error.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	appLog.Setup(os.Stderr, appLog.Format(cfg.LogFormat))
	level := appLog.ParseLevel(cfg.LogLevel)
	if debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}

	token, err := cfg.SessionToken()
	if err != nil {
		appLog.Error("failed to read session token; continuing signed out", err, "token_file", cfg.TokenFile)
	}

	metrics := instrumentation.NewMetrics()
	client := api.New(cfg.APIBaseURL, api.Session{Token: token},
		api.WithTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second),
		api.WithLocation(loc),
		api.WithObserver(metrics),
	)

	appLog.Info("effective config",
		"config", configPath,
		"listen", cfg.Listen,
		"api_base_url", cfg.APIBaseURL,
		"signed_in", token != "",
		"timezone", loc.String(),
		"week_start", cfg.WeekStart,
		"month_scope", cfg.MonthScope,
		"refresh", cfg.RefreshCron,
		"feeds", len(cfg.Feeds),
	)

	return &app{
		cfg: cfg,
		loc: loc,
		gen: calendar.Generator{
			Location:   loc,
			WeekStart:  cfg.WeekStartDay(),
			MonthScope: calendar.ParseScope(cfg.MonthScope),
		},
		client:  client,
		metrics: metrics,
	}, nil
}

// newPage builds the schedule page, including any configured ICS feeds.
func (rt *app) newPage() *schedule.Page {
	feeds := make([]ics.Feed, 0, len(rt.cfg.Feeds))
	for _, f := range rt.cfg.Feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			if f.Name != "" {
				id = f.Name
			} else {
				id = f.URL
			}
		}
		feeds = append(feeds, ics.Feed{ID: id, URL: f.URL})
	}

	return schedule.NewPage(rt.client, schedule.Options{
		Generator: rt.gen,
		Feeds:     feeds,
		Fetcher:   ics.NewFetcher(nil),
		Metrics:   rt.metrics,
		NoticeTTL: time.Duration(rt.cfg.NoticeSeconds) * time.Second,
	})
}
