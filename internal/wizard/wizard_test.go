package wizard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/river-monitor/internal/config"
	"github.com/couchcryptid/river-monitor/internal/domain"
)

type fakeGeocoder struct {
	result domain.GeocodingResult
	err    error
	query  string
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	f.query = query
	return f.result, f.err
}

type fakeLocator struct {
	sites []domain.Site
	err   error
	query domain.SiteQuery
}

func (f *fakeLocator) FindSites(_ context.Context, q domain.SiteQuery) ([]domain.Site, error) {
	f.query = q
	return f.sites, f.err
}

type fakeFetcher struct {
	daily map[string]domain.Series
	err   map[string]error
	start time.Time
}

func (f *fakeFetcher) CurrentObservations(context.Context, domain.Site, time.Time, time.Time) (domain.Series, error) {
	return domain.Series{}, errors.New("not used")
}

func (f *fakeFetcher) DailyValues(_ context.Context, site domain.Site, start, _ time.Time) (domain.Series, error) {
	f.start = start
	if err := f.err[site.Code]; err != nil {
		return domain.Series{}, err
	}
	return f.daily[site.Code], nil
}

var now = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, input string) (*Wizard, *bytes.Buffer, *fakeGeocoder, *fakeLocator, *fakeFetcher) {
	t.Helper()
	for _, k := range config.Keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	geo := &fakeGeocoder{result: domain.GeocodingResult{Lat: 38.25, Lon: -85.76, DisplayName: "Louisville, Jefferson County, Kentucky"}}
	loc := &fakeLocator{sites: []domain.Site{
		{Code: "03293000", Name: "OHIO RIVER AT LOUISVILLE, KY", ParameterCode: "00060"},
		{Code: "03294500", Name: "OHIO RIVER AT LOUISVILLE, KY LOWER", ParameterCode: "00060"},
		{Code: "03292500", Name: "SOUTH FORK BEARGRASS CREEK", ParameterCode: "00060"},
	}}
	fetch := &fakeFetcher{
		daily: map[string]domain.Series{
			"03293000": {Unit: "cfs", Observations: []domain.Observation{
				{Time: now.AddDate(0, 0, -2), Value: 51000, Unit: "cfs"},
				{Time: now.AddDate(0, 0, -1), Value: 48210.4, Unit: "cfs"},
			}},
		},
		err: map[string]error{"03292500": errors.New("timeout")},
	}

	var out bytes.Buffer
	w := New(strings.NewReader(input), &out, geo, loc, fetch, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return w, &out, geo, loc, fetch
}

func configPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config_home.env")
}

func TestWizard_AddressFlowSavesSelection(t *testing.T) {
	w, out, geo, loc, fetch := setup(t, "1\nLouisville, KY\n\n1,3\ny\n")
	path := configPath(t)

	outcome, err := w.Run(context.Background(), "config_home", path)
	require.NoError(t, err)
	assert.Equal(t, Complete, outcome)

	assert.Equal(t, "Louisville, KY", geo.query)
	assert.InDelta(t, DefaultSearchRadius, loc.query.RadiusMiles, 0)
	assert.True(t, loc.query.DailyValuesOnly)
	assert.Equal(t, now.Add(-7*24*time.Hour), fetch.start)

	text := out.String()
	assert.Contains(t, text, "✓ Found: Louisville, Jefferson County, Kentucky")
	assert.Contains(t, text, "Recent: 48210 cfs (2024-07-31)")
	assert.Contains(t, text, "No recent data")
	assert.Contains(t, text, "Data unavailable")
	assert.Contains(t, text, "✓ SETUP COMPLETE!")
	assert.Contains(t, text, "river-monitor -config config_home")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"03293000", "03292500"}, cfg.MonitoringSites)
	assert.Equal(t, domain.ParameterDischarge, cfg.ParameterCode)
	require.NotNil(t, cfg.Location)
	assert.InDelta(t, 38.25, cfg.Location.Lat, 1e-9)
	assert.InDelta(t, 50, cfg.SearchRadiusMiles, 0)
}

func TestWizard_CoordinatesAndRetrySelection(t *testing.T) {
	w, out, _, loc, _ := setup(t, "2\n38.25\n-85.76\n10\nabc\n7\n2,2-3\ny\n")
	path := configPath(t)

	outcome, err := w.Run(context.Background(), "config", path)
	require.NoError(t, err)
	assert.Equal(t, Complete, outcome)
	assert.InDelta(t, 10, loc.query.RadiusMiles, 0)

	text := out.String()
	assert.Contains(t, text, "✓ Location set to: 38.25,-85.76")
	assert.Contains(t, text, "✗ Invalid input:")
	assert.Contains(t, text, "✗ Invalid selection: 7")
	assert.Contains(t, text, "✗ No valid selections made")
	assert.Contains(t, text, "\n  river-monitor\n")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"03294500", "03292500"}, cfg.MonitoringSites)
}

func TestWizard_SkipSavesIncomplete(t *testing.T) {
	w, out, _, _, _ := setup(t, "3\n")
	path := configPath(t)

	outcome, err := w.Run(context.Background(), "config_home", path)
	require.NoError(t, err)
	assert.Equal(t, Incomplete, outcome)
	assert.Contains(t, out.String(), "SETUP INCOMPLETE")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.NeedsSetup())
}

func TestWizard_GeocodeMissSavesIncomplete(t *testing.T) {
	w, out, geo, _, _ := setup(t, "1\nNowhere\n")
	geo.err = domain.ErrLocationNotFound

	outcome, err := w.Run(context.Background(), "config", configPath(t))
	require.NoError(t, err)
	assert.Equal(t, Incomplete, outcome)
	assert.Contains(t, out.String(), "✗ Location not found")
}

func TestWizard_NoGaugesSavesLocation(t *testing.T) {
	w, out, _, loc, _ := setup(t, "2\n38.25\n-85.76\n\n")
	loc.sites = nil
	path := configPath(t)

	outcome, err := w.Run(context.Background(), "config", path)
	require.NoError(t, err)
	assert.Equal(t, Incomplete, outcome)
	assert.Contains(t, out.String(), "✗ No active gauges found in this area")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.MonitoringSites)
	require.NotNil(t, cfg.Location)
	assert.InDelta(t, -85.76, cfg.Location.Lon, 1e-9)
}

func TestWizard_QuitCancels(t *testing.T) {
	w, _, _, _, _ := setup(t, "2\n38.25\n-85.76\n\nq\n")
	path := configPath(t)

	outcome, err := w.Run(context.Background(), "config", path)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, outcome)

	_, err = config.LoadFile(path)
	require.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestWizard_DeclineDoesNotSave(t *testing.T) {
	w, out, _, _, _ := setup(t, "2\n38.25\n-85.76\n\nall\nn\n")
	path := configPath(t)

	outcome, err := w.Run(context.Background(), "config", path)
	require.NoError(t, err)
	assert.Equal(t, NotSaved, outcome)
	assert.Contains(t, out.String(), "✓ Selected 3 gauge(s):")

	_, err = config.LoadFile(path)
	require.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestWizard_InputClosed(t *testing.T) {
	w, _, _, _, _ := setup(t, "2\n38.25\n")

	_, err := w.Run(context.Background(), "config", configPath(t))
	require.ErrorIs(t, err, ErrInputClosed)
}

func TestWizard_Confirm(t *testing.T) {
	w, out, _, _, _ := setup(t, "Y\nn")

	ok, err := w.Confirm("Overwrite it? (y/n): ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Confirm("Again? (y/n): ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "Overwrite it? (y/n): ")
}

func TestWizard_SingleSiteKeepsCode(t *testing.T) {
	w, _, _, _, _ := setup(t, "2\n38.25\n-85.76\n\n1\ny\n")
	path := configPath(t)

	outcome, err := w.Run(context.Background(), "config", path)
	require.NoError(t, err)
	assert.Equal(t, Complete, outcome)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"03293000"}, cfg.MonitoringSites)
	assert.Equal(t, "00060", cfg.ParameterCode)
}
