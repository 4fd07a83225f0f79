// Package report renders a monitor run as the plain-text conditions report.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/couchcryptid/river-monitor/internal/domain"
)

const (
	timestampLayout   = "2006-01-02 15:04:05"
	observationLayout = "2006-01-02 15:04:05 -07:00"
)

var rule = strings.Repeat("=", 80)

// Marker returns the line prefix for a severity.
func Marker(s domain.Severity) string {
	switch {
	case s.IsSevere():
		return "⚠️ ALERT"
	case s == domain.SeverityNormal:
		return "✓"
	default:
		return "⚡ WARNING"
	}
}

// Format writes the report for results and failures generated at the given time.
func Format(w io.Writer, results []domain.ClassificationResult, failures []domain.SiteFailure, generatedAt time.Time) error {
	pw := &printer{w: w}

	pw.printf("\n%s\n", rule)
	pw.printf("RIVER LEVEL EXTREME CONDITIONS REPORT\n")
	pw.printf("Generated: %s\n", generatedAt.Format(timestampLayout))
	pw.printf("%s\n", rule)

	for _, r := range results {
		unit := r.Current.Unit
		pw.printf("\n%s Site: %s\n", Marker(r.Severity), r.Site.Label())
		pw.printf("  Current Value: %.2f %s\n", r.Current.Value, unit)
		pw.printf("  As of: %s\n", r.Current.Time.Format(observationLayout))
		pw.printf("  Condition: %s (%s)\n", r.Severity, r.Description)
		pw.printf("  Percentile: %.1f%%\n", r.Percentile)
		pw.printf("  Historical Range: %.2f - %.2f %s\n", r.HistoricalMin, r.HistoricalMax, unit)
		pw.printf("  Historical Median: %.2f %s\n", r.HistoricalMedian, unit)
	}

	if len(failures) > 0 {
		pw.printf("\nUnavailable sites:\n")
		for _, f := range failures {
			pw.printf("  ✗ %s: %s: %v\n", f.Site.Code, f.Stage, f.Err)
		}
	}

	pw.printf("\n%s\n", rule)
	pw.printf("Summary: %d of %d sites show extreme conditions\n", domain.CountExtreme(results), len(results))
	pw.printf("%s\n\n", rule)
	return pw.err
}

// printer keeps the first write error so Format can check once at the end.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
