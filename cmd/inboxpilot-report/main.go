package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshsymonds/inboxpilot/internal/analytics"
	"github.com/joshsymonds/inboxpilot/internal/report"
	"github.com/joshsymonds/inboxpilot/internal/runtime"
)

type reportConfig struct {
	dbPath      string
	days        int
	asJSON      bool
	gmailLabels bool
	cfgDir      string
}

func main() {
	cfg := parseReportFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("inboxpilot-report failed", "error", err)
		os.Exit(1)
	}
}

func parseReportFlags() reportConfig {
	dbPath := flag.String("db", "analytics.db", "analytics database path")
	days := flag.Int("days", 30, "trailing window in days")
	asJSON := flag.Bool("json", false, "emit the report as JSON")
	gmailLabels := flag.Bool("gmail-labels", false, "also fetch live per-label totals from Gmail")
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	flag.Parse()

	return reportConfig{
		dbPath:      *dbPath,
		days:        *days,
		asJSON:      *asJSON,
		gmailLabels: *gmailLabels,
		cfgDir:      *cfgDir,
	}
}

func run(cfg reportConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := analytics.Open(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("open analytics store: %w", err)
	}
	defer store.Close()

	rep, err := report.NewEngine(store).Summary(ctx, cfg.days)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if cfg.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else {
		fmt.Print(report.FormatText(rep))
	}

	if !cfg.gmailLabels {
		return nil
	}

	client, err := runtime.NewGmailClient(ctx, cfg.cfgDir, runtime.ScopeReadonly)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}
	stats, err := client.LabelStats(ctx)
	if err != nil {
		return fmt.Errorf("fetch label stats: %w", err)
	}
	fmt.Println("Gmail label totals:")
	for _, s := range stats {
		fmt.Printf("  %6d  %s\n", s.Total, s.Name)
	}
	return nil
}
