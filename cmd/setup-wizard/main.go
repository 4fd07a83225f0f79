// Command setup-wizard interactively chooses a location and stream gauges and
// saves them as a named configuration for river-monitor.
//
// Usage:
//
//	setup-wizard [-config name] [-list]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/river-monitor/internal/adapter/nominatim"
	"github.com/couchcryptid/river-monitor/internal/adapter/nwis"
	"github.com/couchcryptid/river-monitor/internal/config"
	"github.com/couchcryptid/river-monitor/internal/observability"
	"github.com/couchcryptid/river-monitor/internal/wizard"
)

func main() {
	os.Exit(run())
}

func run() int {
	name := flag.String("config", config.DefaultName, "configuration name (writes <name>.env)")
	list := flag.Bool("list", false, "list existing configurations and exit")
	flag.Parse()

	if *list {
		return listConfigs()
	}

	path := config.Path(".", *name)

	// An existing file may be invalid or incomplete; it is about to be
	// replaced, so only the environment supplies service settings here.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	gauges := nwis.NewClient(cfg.NWISBaseURL, cfg.UserAgent, cfg.NWISTimeout, metrics, logger)
	geocoder := nominatim.NewClient(cfg.NominatimBaseURL, cfg.UserAgent, cfg.GeocoderTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := wizard.New(os.Stdin, os.Stdout, geocoder, gauges, gauges, logger)

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("\n⚠️  Configuration '%s' already exists!\n", path)
		ok, err := w.Confirm("Overwrite it? (y/n): ")
		if err != nil || !ok {
			fmt.Println("✗ Setup cancelled")
			return 0
		}
	}

	if _, err := w.Run(ctx, *name, path); err != nil {
		if errors.Is(err, wizard.ErrInputClosed) || ctx.Err() != nil {
			fmt.Println("\n\n✗ Setup cancelled by user")
			return 1
		}
		logger.Error("setup failed", "error", err)
		return 1
	}
	return 0
}

func listConfigs() int {
	names, err := config.List(".")
	if err != nil {
		slog.Error("failed to list configurations", "error", err)
		return 1
	}

	rule := strings.Repeat("=", 80)
	fmt.Printf("\n%s\nEXISTING CONFIGURATIONS\n%s\n", rule, rule)
	if len(names) == 0 {
		fmt.Println("  No configuration files found")
	}
	for _, n := range names {
		fmt.Printf("  - %s\n", n)
	}
	if len(names) > 0 {
		fmt.Println("\nTo create/edit a config: setup-wizard -config <name>")
	}
	fmt.Printf("%s\n\n", rule)
	return 0
}
