package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/river-monitor/internal/domain"
)

var (
	// ErrConfigNotFound is returned by LoadFile when the named file is missing.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrNoSites means neither MONITORING_SITES nor LOCATION is set.
	ErrNoSites = errors.New("no monitoring sites or location configured")
)

// DefaultName is the configuration used when no -config flag is given.
const DefaultName = "config"

// Location is a latitude/longitude pair used to search for nearby gauges.
type Location struct {
	Lat float64
	Lon float64
}

// Config holds all monitor settings, populated from environment variables and
// optionally a named .env file.
type Config struct {
	MonitoringSites   []string
	Location          *Location
	SearchRadiusMiles float64
	Thresholds        domain.Thresholds
	ParameterCode     string
	HistoricalStart   int
	CurrentWindow     time.Duration
	MaxNearbySites    int
	FetchConcurrency  int

	NWISBaseURL      string
	NWISTimeout      time.Duration
	NominatimBaseURL string
	GeocoderTimeout  time.Duration
	UserAgent        string

	LogLevel        string
	LogFormat       string
	MetricsTextfile string

	// Alert publishing is enabled when KafkaBrokers is non-empty.
	KafkaBrokers    []string
	KafkaAlertTopic string
}

// NeedsSetup reports whether there is nothing to monitor yet.
func (c *Config) NeedsSetup() bool {
	return len(c.MonitoringSites) == 0 && c.Location == nil
}

// AlertsEnabled reports whether alerts are published to Kafka.
func (c *Config) AlertsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Keys lists every environment variable Load reads.
var Keys = []string{
	"MONITORING_SITES", "LOCATION", "SEARCH_RADIUS_MILES",
	"VERY_LOW_PERCENTILE", "LOW_FLOW_PERCENTILE", "HIGH_FLOW_PERCENTILE", "VERY_HIGH_PERCENTILE",
	"PARAMETER_CODE", "HISTORICAL_START_YEAR", "CURRENT_WINDOW", "MAX_NEARBY_SITES", "FETCH_CONCURRENCY",
	"NWIS_BASE_URL", "NWIS_TIMEOUT", "NOMINATIM_BASE_URL", "GEOCODER_TIMEOUT", "USER_AGENT",
	"LOG_LEVEL", "LOG_FORMAT", "METRICS_TEXTFILE", "KAFKA_BROKERS", "KAFKA_ALERT_TOPIC",
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	return parse()
}

// LoadFile exports the values of a godotenv-format file into the process
// environment and then calls Load. A variable exported by anything other than
// an earlier LoadFile is left untouched, so the real environment always wins.
func LoadFile(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := exportFile(values); err != nil {
		return nil, fmt.Errorf("apply %s: %w", path, err)
	}
	return Load()
}

var (
	fileMu sync.Mutex
	// fromFile maps each variable LoadFile exported to the value it set.
	fromFile = map[string]string{}
)

// exportFile sets file values that the environment does not already carry.
// Values a previous LoadFile exported are replaced, and dropped when the new
// file no longer has them, so reloading a rewritten file sees its contents.
func exportFile(values map[string]string) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	for k, prev := range fromFile {
		if _, ok := values[k]; ok {
			continue
		}
		if cur, ok := os.LookupEnv(k); ok && cur == prev {
			if err := os.Unsetenv(k); err != nil {
				return err
			}
		}
		delete(fromFile, k)
	}

	for k, v := range values {
		if cur, ok := os.LookupEnv(k); ok {
			if prev, owned := fromFile[k]; !owned || prev != cur {
				continue
			}
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
		fromFile[k] = v
	}
	return nil
}

// Path returns the file backing a named configuration in dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name+".env")
}

// List returns the names of configurations (config*.env) found in dir.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "config*.env"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".env"))
	}
	sort.Strings(names)
	return names, nil
}

func parse() (*Config, error) {
	var p parser

	cfg := &Config{
		MonitoringSites:   splitList(p.str("MONITORING_SITES", "")),
		SearchRadiusMiles: p.float("SEARCH_RADIUS_MILES", 25),
		Thresholds: domain.Thresholds{
			VeryLow:  p.float("VERY_LOW_PERCENTILE", 5),
			Low:      p.float("LOW_FLOW_PERCENTILE", 10),
			High:     p.float("HIGH_FLOW_PERCENTILE", 90),
			VeryHigh: p.float("VERY_HIGH_PERCENTILE", 95),
		},
		ParameterCode:    p.str("PARAMETER_CODE", domain.DefaultParameterCode),
		HistoricalStart:  p.int("HISTORICAL_START_YEAR", 1980),
		CurrentWindow:    p.duration("CURRENT_WINDOW", 7*24*time.Hour),
		MaxNearbySites:   p.int("MAX_NEARBY_SITES", 5),
		FetchConcurrency: p.int("FETCH_CONCURRENCY", 1),

		NWISBaseURL:      strings.TrimRight(p.str("NWIS_BASE_URL", "https://waterservices.usgs.gov/nwis"), "/"),
		NWISTimeout:      p.duration("NWIS_TIMEOUT", 30*time.Second),
		NominatimBaseURL: strings.TrimRight(p.str("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"), "/"),
		GeocoderTimeout:  p.duration("GEOCODER_TIMEOUT", 10*time.Second),
		UserAgent:        p.str("USER_AGENT", "river-monitor/1.0"),

		LogLevel:        p.str("LOG_LEVEL", "info"),
		LogFormat:       p.str("LOG_FORMAT", "text"),
		MetricsTextfile: p.str("METRICS_TEXTFILE", ""),

		KafkaBrokers:    splitList(p.str("KAFKA_BROKERS", "")),
		KafkaAlertTopic: p.str("KAFKA_ALERT_TOPIC", "river-alerts"),
	}

	if raw := p.str("LOCATION", ""); raw != "" {
		loc, err := ParseLocation(raw)
		if err != nil {
			p.fail(err)
		} else {
			cfg.Location = &loc
		}
	}

	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.SearchRadiusMiles <= 0 {
		return errors.New("SEARCH_RADIUS_MILES must be positive")
	}
	if c.ParameterCode == "" {
		return errors.New("PARAMETER_CODE is required")
	}
	if c.HistoricalStart < 1800 || c.HistoricalStart > domain.Now().Year() {
		return fmt.Errorf("HISTORICAL_START_YEAR %d is out of range", c.HistoricalStart)
	}
	if c.CurrentWindow <= 0 {
		return errors.New("CURRENT_WINDOW must be positive")
	}
	if c.MaxNearbySites <= 0 {
		return errors.New("MAX_NEARBY_SITES must be positive")
	}
	if c.FetchConcurrency <= 0 {
		return errors.New("FETCH_CONCURRENCY must be positive")
	}
	if c.NWISTimeout <= 0 {
		return errors.New("invalid NWIS_TIMEOUT")
	}
	if c.GeocoderTimeout <= 0 {
		return errors.New("invalid GEOCODER_TIMEOUT")
	}
	if c.AlertsEnabled() && c.KafkaAlertTopic == "" {
		return errors.New("KAFKA_BROKERS is set but KAFKA_ALERT_TOPIC is empty")
	}
	for _, code := range c.MonitoringSites {
		if !isSiteCode(code) {
			return fmt.Errorf("MONITORING_SITES: %q is not a numeric site code", code)
		}
	}
	return nil
}

// ParseLocation parses "latitude,longitude".
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Location{}, fmt.Errorf("LOCATION %q: want \"latitude,longitude\"", s)
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return Location{}, fmt.Errorf("LOCATION %q: coordinates must be numbers", s)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Location{}, fmt.Errorf("LOCATION %q: coordinates out of range", s)
	}
	return Location{Lat: lat, Lon: lon}, nil
}

func (l Location) String() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lon, 'f', -1, 64)
}

func isSiteCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitList parses a comma-separated list with the shared broker parser and
// drops blank entries, so an unset key yields nil.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range sharedcfg.ParseBrokers(s) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects the first conversion error so Load reports it with its key.
type parser struct {
	err error
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(sharedcfg.EnvOrDefault(key, def)); v != "" {
		return v
	}
	return def
}

func (p *parser) float(key string, def float64) float64 {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %q is not a number", key, s))
		return def
	}
	return v
}

func (p *parser) int(key string, def int) int {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %q is not an integer", key, s))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}
