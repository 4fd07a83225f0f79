package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/river-monitor/internal/config"
	"github.com/couchcryptid/river-monitor/internal/domain"
	"github.com/couchcryptid/river-monitor/internal/observability"
)

// AlertPublisher hands non-NORMAL classifications to a downstream consumer.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.Alert) error
}

// Options tunes a monitor run.
type Options struct {
	Thresholds      domain.Thresholds
	HistoricalStart int
	CurrentWindow   time.Duration
	Concurrency     int
}

// OptionsFromConfig extracts the run options from a loaded Config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Thresholds:      cfg.Thresholds,
		HistoricalStart: cfg.HistoricalStart,
		CurrentWindow:   cfg.CurrentWindow,
		Concurrency:     cfg.FetchConcurrency,
	}
}

// Report is the outcome of one run: classified sites in input order and the
// sites that could not be classified.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Results     []domain.ClassificationResult
	Failures    []domain.SiteFailure
}

// Extreme returns the number of results whose severity is not NORMAL.
func (r Report) Extreme() int {
	return domain.CountExtreme(r.Results)
}

// Pipeline orchestrates the fetch-rank-classify pass over a set of sites.
type Pipeline struct {
	locator   domain.GaugeLocator
	fetcher   domain.ReadingFetcher
	publisher AlertPublisher
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. Pass a nil publisher to disable alert publishing.
func New(locator domain.GaugeLocator, fetcher domain.ReadingFetcher, publisher AlertPublisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		locator:   locator,
		fetcher:   fetcher,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// ResolveSites turns the configuration into the list of sites to monitor.
// Configured site codes are used as given. When a location is set the locator
// is queried, and if no codes are configured the first MaxNearbySites results
// are monitored.
func (p *Pipeline) ResolveSites(ctx context.Context, cfg *config.Config) ([]domain.Site, error) {
	sites := make([]domain.Site, 0, len(cfg.MonitoringSites))
	for _, code := range cfg.MonitoringSites {
		sites = append(sites, domain.Site{Code: code, ParameterCode: cfg.ParameterCode})
	}

	if cfg.Location == nil {
		return sites, nil
	}

	nearby, err := p.locator.FindSites(ctx, domain.SiteQuery{
		Lat:           cfg.Location.Lat,
		Lon:           cfg.Location.Lon,
		RadiusMiles:   cfg.SearchRadiusMiles,
		ParameterCode: cfg.ParameterCode,
	})
	if err != nil {
		if len(sites) > 0 {
			p.logger.Warn("nearby site search failed, using configured sites", "error", err)
			return sites, nil
		}
		return nil, fmt.Errorf("find sites near %s: %w", cfg.Location, err)
	}
	p.logger.Info("nearby sites found", "count", len(nearby), "radius_miles", cfg.SearchRadiusMiles)

	if len(sites) > 0 {
		return fillNames(sites, nearby), nil
	}
	if len(nearby) > cfg.MaxNearbySites {
		nearby = nearby[:cfg.MaxNearbySites]
	}
	return nearby, nil
}

// fillNames copies station names from located sites onto configured ones.
func fillNames(sites, nearby []domain.Site) []domain.Site {
	names := make(map[string]string, len(nearby))
	for _, s := range nearby {
		names[s.Code] = s.Name
	}
	for i := range sites {
		if sites[i].Name == "" {
			sites[i].Name = names[sites[i].Code]
		}
	}
	return sites
}

// Run classifies every site and publishes alerts for extreme results. Site
// level fetch or statistics failures are collected in the report. The only
// error returned is a classification contract violation or a cancelled
// context, either of which aborts the run.
func (p *Pipeline) Run(ctx context.Context, runID string, sites []domain.Site) (Report, error) {
	start := time.Now()
	now := domain.Now()
	p.logger.Info("monitor run started", "run_id", runID, "sites", len(sites), "concurrency", p.opts.Concurrency)

	outcomes := make([]outcome, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, site := range sites {
		g.Go(func() error {
			o, err := p.processSite(gctx, site, now)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.metrics.LastRunSuccess.Set(0)
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		p.metrics.LastRunSuccess.Set(0)
		return Report{}, err
	}

	report := Report{RunID: runID, GeneratedAt: now}
	for _, o := range outcomes {
		if o.failure != nil {
			report.Failures = append(report.Failures, *o.failure)
			continue
		}
		report.Results = append(report.Results, o.result)
	}

	p.publish(ctx, domain.AlertsFrom(runID, now, report.Results))

	p.metrics.ExtremeSites.Set(float64(report.Extreme()))
	p.metrics.LastRunUnixTime.Set(float64(now.Unix()))
	if len(report.Results) > 0 {
		p.metrics.LastRunSuccess.Set(1)
	} else {
		p.metrics.LastRunSuccess.Set(0)
	}

	p.logger.Info("monitor run finished",
		"run_id", runID,
		"classified", len(report.Results),
		"failed", len(report.Failures),
		"extreme", report.Extreme(),
		"duration", time.Since(start),
	)
	return report, nil
}

type outcome struct {
	result  domain.ClassificationResult
	failure *domain.SiteFailure
}

// processSite fetches and classifies one site. Failures local to the site are
// returned in the outcome; a non-nil error aborts the whole run.
func (p *Pipeline) processSite(ctx context.Context, site domain.Site, now time.Time) (outcome, error) {
	p.metrics.SitesChecked.Inc()
	if site.ParameterCode == "" {
		site.ParameterCode = domain.DefaultParameterCode
	}

	fail := func(stage string, err error) (outcome, error) {
		if ctx.Err() != nil {
			return outcome{}, ctx.Err()
		}
		p.metrics.SiteFailures.WithLabelValues(stage).Inc()
		p.logger.Warn("site unavailable", "site", site.Code, "stage", stage, "error", err)
		return outcome{failure: &domain.SiteFailure{Site: site, Stage: stage, Err: err}}, nil
	}

	current, err := p.fetcher.CurrentObservations(ctx, site, now.Add(-p.opts.CurrentWindow), now)
	if err != nil {
		return fail(domain.StageCurrent, err)
	}
	latest, ok := current.Latest()
	if !ok {
		return fail(domain.StageCurrent, domain.ErrNoData)
	}
	if latest.Unit == "" {
		latest.Unit = current.Unit
	}
	if site.Name == "" {
		site.Name = current.SiteName
	}

	historyStart := time.Date(p.opts.HistoricalStart, time.January, 1, 0, 0, 0, 0, now.Location())
	daily, err := p.fetcher.DailyValues(ctx, site, historyStart, now)
	if err != nil {
		return fail(domain.StageHistorical, err)
	}
	if site.Name == "" {
		site.Name = daily.SiteName
	}

	history, err := domain.NewHistoricalSeries(daily.Values())
	if err != nil {
		return fail(domain.StageStatistics, err)
	}

	result, err := domain.ClassifyReading(site, latest, history, p.opts.Thresholds)
	if err != nil {
		return outcome{}, fmt.Errorf("classify site %s: %w", site.Code, err)
	}

	p.metrics.Classifications.WithLabelValues(string(result.Severity)).Inc()
	p.logger.Debug("site classified",
		"site", site.Code,
		"value", latest.Value,
		"percentile", result.Percentile,
		"severity", result.Severity,
		"history_count", history.Len(),
	)
	return outcome{result: result}, nil
}

// publish sends alerts when a publisher is configured. Failures are logged and
// counted but never fail the run.
func (p *Pipeline) publish(ctx context.Context, alerts []domain.Alert) {
	if p.publisher == nil || len(alerts) == 0 {
		return
	}
	if err := p.publisher.PublishAlerts(ctx, alerts); err != nil {
		p.metrics.AlertErrors.Inc()
		p.logger.Error("publish alerts failed", "error", err, "count", len(alerts))
		return
	}
	p.metrics.AlertsPublished.Add(float64(len(alerts)))
}

// IsFatal reports whether err from Run is a classification contract violation
// rather than a cancellation.
func IsFatal(err error) bool {
	return errors.Is(err, domain.ErrPercentileOutOfRange)
}
