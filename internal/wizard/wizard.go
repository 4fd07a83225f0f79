// Package wizard implements the interactive setup that writes a named
// configuration file.
package wizard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/river-monitor/internal/config"
	"github.com/couchcryptid/river-monitor/internal/domain"
)

// DefaultSearchRadius is the radius offered when the user presses enter.
const DefaultSearchRadius = 50.0

const previewWindow = 7 * 24 * time.Hour

var (
	rule     = strings.Repeat("=", 80)
	stepRule = strings.Repeat("-", 80)
)

// ErrInputClosed means input ended before a prompt was answered.
var ErrInputClosed = errors.New("input closed")

// Outcome describes how a wizard session ended.
type Outcome int

const (
	// Complete means sites were selected and saved.
	Complete Outcome = iota
	// Incomplete means an empty-site configuration was saved.
	Incomplete
	// NotSaved means the user declined to save the selection.
	NotSaved
	// Cancelled means the user quit at the selection prompt.
	Cancelled
)

// Wizard walks the user through choosing a location and gauges.
type Wizard struct {
	in            *bufio.Reader
	out           io.Writer
	geocoder      domain.Geocoder
	locator       domain.GaugeLocator
	fetcher       domain.ReadingFetcher
	parameterCode string
	logger        *slog.Logger
}

// New creates a Wizard reading answers from in and writing prompts to out.
func New(in io.Reader, out io.Writer, geocoder domain.Geocoder, locator domain.GaugeLocator, fetcher domain.ReadingFetcher, logger *slog.Logger) *Wizard {
	return &Wizard{
		in:            bufio.NewReader(in),
		out:           out,
		geocoder:      geocoder,
		locator:       locator,
		fetcher:       fetcher,
		parameterCode: domain.DefaultParameterCode,
		logger:        logger,
	}
}

// Run executes the wizard and saves the result to path. name is the
// configuration name shown in the closing instructions.
func (w *Wizard) Run(ctx context.Context, name, path string) (Outcome, error) {
	w.println(rule)
	w.println("RIVER LEVEL MONITOR - SETUP WIZARD")
	w.println(rule)
	w.println("\nThis wizard will help you configure your water monitoring system.")
	w.println("You can monitor stream gauges near any location in the United States.")
	w.printf("\nConfiguration will be saved as: %s\n", path)

	loc, err := w.askLocation(ctx)
	if err != nil {
		return Incomplete, err
	}

	saved := config.DefaultSaved()
	saved.Location = loc

	if loc == nil {
		w.println("\n⚠️  No location specified. You'll need to add MONITORING_SITES to " + path + " manually.")
		w.println("Find gauges at: https://waterdata.usgs.gov/")
		return w.saveIncomplete(name, path, saved)
	}

	w.step("STEP 2: SEARCH RADIUS")
	radius, err := w.askRadius()
	if err != nil {
		return Incomplete, err
	}

	sites := w.findGauges(ctx, *loc, radius)
	if len(sites) == 0 {
		return w.saveIncomplete(name, path, saved)
	}

	w.step("STEP 3: SELECT GAUGES")
	selected, err := w.selectGauges(ctx, sites)
	if errors.Is(err, ErrQuit) {
		w.println("\n✗ Setup cancelled")
		return Cancelled, nil
	}
	if err != nil {
		return Incomplete, err
	}

	w.step("STEP 4: SAVE CONFIGURATION")
	w.printf("\n✓ Selected %d gauge(s):\n", len(selected))
	for _, s := range selected {
		w.printf("  - %s\n", s.Label())
	}

	answer, err := w.prompt("\nSave this configuration? (y/n): ")
	if err != nil {
		return NotSaved, err
	}
	if !strings.EqualFold(answer, "y") {
		w.println("\n✗ Configuration not saved")
		return NotSaved, nil
	}

	saved.RadiusMiles = radius
	for _, s := range selected {
		saved.Sites = append(saved.Sites, s.Code)
	}
	if err := config.Save(path, saved); err != nil {
		return NotSaved, fmt.Errorf("save configuration: %w", err)
	}
	w.logger.Info("configuration saved", "path", path, "sites", len(saved.Sites))

	w.printf("\n✓ Configuration saved to %s\n", path)
	w.printf("\n%s\n✓ SETUP COMPLETE!\n%s\n", rule, rule)
	w.println("\nYou can now run the monitor with:")
	w.println("  " + command("river-monitor", name))
	w.println("\nTo reconfigure, run:")
	w.println("  " + command("setup-wizard", name))
	w.printf("%s\n\n", rule)
	return Complete, nil
}

func (w *Wizard) askLocation(ctx context.Context) (*config.Location, error) {
	w.step("STEP 1: LOCATION")
	w.println("\nHow would you like to specify your location?")
	w.println("  [1] Enter an address or city")
	w.println("  [2] Enter latitude/longitude coordinates")
	w.println("  [3] Skip (manually configure later)")

	choice, err := w.prompt("\nYour choice (1-3): ")
	if err != nil {
		return nil, err
	}

	switch choice {
	case "1":
		w.println("\nExamples:")
		w.println("  - Louisville, KY")
		w.println("  - 123 Main St, Cincinnati, OH")
		w.println("  - Ohio River")
		address, err := w.prompt("\nEnter address or location: ")
		if err != nil || address == "" {
			return nil, err
		}
		res, err := w.geocoder.Geocode(ctx, address)
		if errors.Is(err, domain.ErrLocationNotFound) {
			w.println("\n✗ Location not found")
			return nil, nil
		}
		if err != nil {
			w.printf("\n✗ Error geocoding address: %v\n", err)
			return nil, nil
		}
		w.printf("\n✓ Found: %s\n", res.DisplayName)
		return &config.Location{Lat: res.Lat, Lon: res.Lon}, nil

	case "2":
		lat, err := w.prompt("\nEnter latitude: ")
		if err != nil {
			return nil, err
		}
		lon, err := w.prompt("Enter longitude: ")
		if err != nil {
			return nil, err
		}
		loc, err := config.ParseLocation(lat + "," + lon)
		if err != nil {
			w.println("\n✗ Invalid coordinates")
			return nil, nil
		}
		w.printf("\n✓ Location set to: %s\n", loc)
		return &loc, nil
	}
	return nil, nil
}

func (w *Wizard) askRadius() (float64, error) {
	answer, err := w.prompt(fmt.Sprintf("\nSearch radius in miles (default: %g): ", DefaultSearchRadius))
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return DefaultSearchRadius, nil
	}
	radius, err := strconv.ParseFloat(answer, 64)
	if err != nil || radius <= 0 {
		w.printf("✗ Invalid radius %q, using %g miles\n", answer, DefaultSearchRadius)
		return DefaultSearchRadius, nil
	}
	return radius, nil
}

func (w *Wizard) findGauges(ctx context.Context, loc config.Location, radius float64) []domain.Site {
	w.printf("\n🔍 Searching for gauges within %g miles...\n", radius)
	sites, err := w.locator.FindSites(ctx, domain.SiteQuery{
		Lat:             loc.Lat,
		Lon:             loc.Lon,
		RadiusMiles:     radius,
		ParameterCode:   w.parameterCode,
		DailyValuesOnly: true,
	})
	if err != nil {
		w.printf("✗ Error finding gauges: %v\n", err)
		return nil
	}
	if len(sites) == 0 {
		w.println("✗ No active gauges found in this area")
		return nil
	}
	w.printf("✓ Found %d active stream gauges\n", len(sites))
	return sites
}

func (w *Wizard) selectGauges(ctx context.Context, sites []domain.Site) ([]domain.Site, error) {
	w.printf("\n%s\nAVAILABLE STREAM GAUGES\n%s\n", rule, rule)
	for i, s := range sites {
		w.printf("\n[%d] %s\n", i+1, s.Code)
		w.printf("    Name: %s\n", s.Name)
		w.printf("    %s\n", w.preview(ctx, s))
	}
	w.printf("\n%s\n", rule)
	w.println("\nEnter the numbers of gauges to monitor (comma-separated)")
	w.println("Examples: '1,3,5' or '1-3' or 'all' or 'q' to quit")
	w.println(rule)

	for {
		answer, err := w.prompt("\nYour selection: ")
		if err != nil {
			return nil, err
		}
		sel, err := ParseSelection(answer, len(sites))
		if errors.Is(err, ErrQuit) {
			return nil, err
		}
		if err != nil {
			w.printf("✗ Invalid input: %v\n", err)
			w.println("Please try again")
			continue
		}
		for _, i := range sel.Invalid {
			w.printf("✗ Invalid selection: %d\n", i)
		}
		if len(sel.Indices) == 0 {
			w.println("✗ No valid selections made")
			continue
		}

		selected := make([]domain.Site, len(sel.Indices))
		for j, i := range sel.Indices {
			selected[j] = sites[i-1]
		}
		return selected, nil
	}
}

// preview summarizes the most recent daily value of a site.
func (w *Wizard) preview(ctx context.Context, site domain.Site) string {
	end := domain.Now()
	series, err := w.fetcher.DailyValues(ctx, site, end.Add(-previewWindow), end)
	if err != nil && !errors.Is(err, domain.ErrNoData) {
		w.logger.Debug("preview failed", "site", site.Code, "error", err)
		return "Data unavailable"
	}
	latest, ok := series.Latest()
	if !ok {
		return "No recent data"
	}
	unit := latest.Unit
	if unit == "" {
		unit = series.Unit
	}
	return fmt.Sprintf("Recent: %.0f %s (%s)", latest.Value, unit, latest.Time.Format("2006-01-02"))
}

func (w *Wizard) saveIncomplete(name, path string, saved config.Saved) (Outcome, error) {
	if err := config.Save(path, saved); err != nil {
		return Incomplete, fmt.Errorf("save configuration: %w", err)
	}
	w.printf("\n✓ Configuration saved to %s\n", path)
	w.printf("\n%s\n⚠️  SETUP INCOMPLETE\n%s\n", rule, rule)
	w.println("\nNo gauges were selected. Please:")
	w.printf("1. Edit %s to add MONITORING_SITES\n", path)
	w.println("2. Or run " + command("setup-wizard", name) + " again")
	w.printf("%s\n\n", rule)
	return Incomplete, nil
}

// Confirm asks a y/n question and reports whether the answer was y. It shares
// the wizard's input buffer, so call it on the same Wizard that will run.
func (w *Wizard) Confirm(question string) (bool, error) {
	answer, err := w.prompt(question)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}

// prompt writes msg and reads one trimmed line. A final line without a
// newline is accepted; an empty closed input is ErrInputClosed.
func (w *Wizard) prompt(msg string) (string, error) {
	w.printf("%s", msg)
	line, err := w.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) step(title string) {
	w.printf("\n%s\n%s\n%s\n", stepRule, title, stepRule)
}

func (w *Wizard) println(s string) {
	_, _ = fmt.Fprintln(w.out, s)
}

func (w *Wizard) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}

func command(bin, name string) string {
	if name == config.DefaultName {
		return bin
	}
	return bin + " -config " + name
}
