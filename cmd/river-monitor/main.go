// Command river-monitor checks USGS stream gauges against their historical
// record and prints a report of extreme flow conditions.
//
// Usage:
//
//	river-monitor [-config name] [-list-configs]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	kafkaadapter "github.com/couchcryptid/river-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/river-monitor/internal/adapter/nominatim"
	"github.com/couchcryptid/river-monitor/internal/adapter/nwis"
	"github.com/couchcryptid/river-monitor/internal/config"
	"github.com/couchcryptid/river-monitor/internal/observability"
	"github.com/couchcryptid/river-monitor/internal/pipeline"
	"github.com/couchcryptid/river-monitor/internal/report"
	"github.com/couchcryptid/river-monitor/internal/wizard"
)

func main() {
	os.Exit(run())
}

func run() int {
	name := flag.String("config", config.DefaultName, "configuration name (reads <name>.env)")
	list := flag.Bool("list-configs", false, "list available configurations and exit")
	flag.Parse()

	if *list {
		return listConfigs()
	}

	path := config.Path(".", *name)
	cfg, err := loadConfig(path)
	if err != nil {
		slog.Error("failed to load config", "path", path, "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	gauges := nwis.NewClient(cfg.NWISBaseURL, cfg.UserAgent, cfg.NWISTimeout, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.NeedsSetup() {
		cfg, err = firstRun(ctx, cfg, *name, path, gauges, logger)
		if err != nil {
			logger.Error("setup not completed", "error", err)
			fmt.Fprintf(os.Stderr, "\n⚠️  Please configure MONITORING_SITES or LOCATION in %s\n", path)
			fmt.Fprintf(os.Stderr, "Or run: setup-wizard -config %s\n", *name)
			return 1
		}
	}

	var publisher pipeline.AlertPublisher
	if cfg.AlertsEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	}

	p := pipeline.New(gauges, gauges, publisher, pipeline.OptionsFromConfig(cfg), logger, metrics)
	defer writeMetrics(cfg, metrics, logger)

	sites, err := p.ResolveSites(ctx, cfg)
	if err != nil {
		logger.Error("failed to resolve sites", "error", err)
		return 1
	}
	if len(sites) == 0 {
		logger.Error("no monitoring sites found", "config", path)
		fmt.Fprintln(os.Stderr, "Find sites at: https://waterdata.usgs.gov/")
		return 1
	}

	rep, err := p.Run(ctx, uuid.NewString(), sites)
	if err != nil {
		if pipeline.IsFatal(err) {
			logger.Error("classification contract violated, run aborted", "error", err)
		} else {
			logger.Error("monitor run interrupted", "error", err)
		}
		return 1
	}

	if err := report.Format(os.Stdout, rep.Results, rep.Failures, rep.GeneratedAt); err != nil {
		logger.Error("failed to write report", "error", err)
		return 1
	}
	if len(rep.Results) == 0 {
		logger.Error("no data available for configured sites", "failed", len(rep.Failures))
		return 1
	}
	return 0
}

// loadConfig reads the named file, falling back to the environment alone when
// the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		slog.Info("configuration file not found, using environment", "path", path)
		return config.Load()
	}
	return cfg, err
}

// firstRun offers the setup wizard when nothing is configured and returns the
// configuration it saved.
func firstRun(ctx context.Context, cfg *config.Config, name, path string, gauges *nwis.Client, logger *slog.Logger) (*config.Config, error) {
	if !interactive() {
		return nil, errors.New("nothing to monitor and stdin is not a terminal")
	}

	geocoder := nominatim.NewClient(cfg.NominatimBaseURL, cfg.UserAgent, cfg.GeocoderTimeout, logger)
	w := wizard.New(os.Stdin, os.Stderr, geocoder, gauges, gauges, logger)

	fmt.Fprintln(os.Stderr, "\nNo monitoring sites or location configured.")
	ok, err := w.Confirm("Would you like to run the setup wizard now? (y/n): ")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("setup declined")
	}

	if _, err := w.Run(ctx, name, path); err != nil {
		return nil, err
	}

	reloaded, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if reloaded.NeedsSetup() {
		return nil, config.ErrNoSites
	}
	return reloaded, nil
}

func interactive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func listConfigs() int {
	names, err := config.List(".")
	if err != nil {
		slog.Error("failed to list configurations", "error", err)
		return 1
	}
	if len(names) == 0 {
		fmt.Println("No configuration files found")
		return 0
	}
	fmt.Println("Available configurations:")
	for _, n := range names {
		fmt.Printf("  - %s\n", n)
	}
	return 0
}

func writeMetrics(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
	}
}
