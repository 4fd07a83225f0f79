package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/river-monitor/internal/domain"
)

// Saved is what the setup wizard persists for a named configuration.
type Saved struct {
	Sites         []string
	Location      *Location
	RadiusMiles   float64
	Thresholds    domain.Thresholds
	ParameterCode string
	StartYear     int
}

// DefaultSaved returns a Saved with the stock thresholds and data window.
func DefaultSaved() Saved {
	return Saved{
		RadiusMiles:   25,
		Thresholds:    domain.DefaultThresholds(),
		ParameterCode: domain.DefaultParameterCode,
		StartYear:     1980,
	}
}

// Save writes s to path in godotenv format, replacing any existing file.
// Every value is double-quoted: site and parameter codes carry leading zeros
// that an unquoted numeric value would lose.
func Save(path string, s Saved) error {
	values := map[string]string{
		"MONITORING_SITES":      strings.Join(s.Sites, ","),
		"SEARCH_RADIUS_MILES":   formatFloat(s.RadiusMiles),
		"VERY_LOW_PERCENTILE":   formatFloat(s.Thresholds.VeryLow),
		"LOW_FLOW_PERCENTILE":   formatFloat(s.Thresholds.Low),
		"HIGH_FLOW_PERCENTILE":  formatFloat(s.Thresholds.High),
		"VERY_HIGH_PERCENTILE":  formatFloat(s.Thresholds.VeryHigh),
		"PARAMETER_CODE":        s.ParameterCode,
		"HISTORICAL_START_YEAR": strconv.Itoa(s.StartYear),
	}
	if s.Location != nil {
		values["LOCATION"] = s.Location.String()
	}
	return os.WriteFile(path, []byte(marshal(values)), 0o600)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func marshal(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# river-monitor configuration\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=\"%s\"\n", k, quoteEscaper.Replace(values[k]))
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
