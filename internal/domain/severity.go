package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrPercentileOutOfRange is a contract violation: percentile ranks are
	// always produced in [0, 100].
	ErrPercentileOutOfRange = errors.New("percentile out of range [0, 100]")

	// ErrInvalidThresholds reports cut points that are not ordered
	// 0 <= very low <= low < high <= very high <= 100.
	ErrInvalidThresholds = errors.New("invalid percentile thresholds")
)

// Severity is the named condition level of a site.
type Severity string

const (
	SeverityNormal     Severity = "NORMAL"
	SeverityLow        Severity = "LOW"
	SeveritySevereLow  Severity = "SEVERE LOW"
	SeverityHigh       Severity = "HIGH"
	SeveritySevereHigh Severity = "SEVERE HIGH"
)

// Description returns the human-readable meaning of the level.
func (s Severity) Description() string {
	switch s {
	case SeveritySevereLow:
		return "Severe drought conditions"
	case SeverityLow:
		return "Below normal flow (drought)"
	case SeveritySevereHigh:
		return "Severe flood conditions"
	case SeverityHigh:
		return "Above normal flow (flood risk)"
	case SeverityNormal:
		return "Normal flow conditions"
	default:
		return "Unknown condition"
	}
}

// IsSevere reports whether the level is one of the two SEVERE levels.
func (s Severity) IsSevere() bool {
	return s == SeveritySevereLow || s == SeveritySevereHigh
}

// Thresholds holds the percentile cut points used by Classify.
type Thresholds struct {
	VeryLow  float64
	Low      float64
	High     float64
	VeryHigh float64
}

// DefaultThresholds returns the 5/10/90/95 cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{VeryLow: 5, Low: 10, High: 90, VeryHigh: 95}
}

// Validate checks that the cut points are ordered and within [0, 100].
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.VeryLow, t.Low, t.High, t.VeryHigh} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: %g is outside [0, 100]", ErrInvalidThresholds, v)
		}
	}
	if t.VeryLow > t.Low || t.Low >= t.High || t.High > t.VeryHigh {
		return fmt.Errorf("%w: want very low (%g) <= low (%g) < high (%g) <= very high (%g)",
			ErrInvalidThresholds, t.VeryLow, t.Low, t.High, t.VeryHigh)
	}
	return nil
}

// Classify maps a percentile rank to a severity. Ranks exactly on a cut point
// resolve to the more extreme level.
func (t Thresholds) Classify(percentile float64) (Severity, error) {
	if math.IsNaN(percentile) || percentile < 0 || percentile > 100 {
		return "", fmt.Errorf("%w: %g", ErrPercentileOutOfRange, percentile)
	}

	switch {
	case percentile >= t.VeryHigh:
		return SeveritySevereHigh, nil
	case percentile >= t.High:
		return SeverityHigh, nil
	case percentile <= t.VeryLow:
		return SeveritySevereLow, nil
	case percentile <= t.Low:
		return SeverityLow, nil
	default:
		return SeverityNormal, nil
	}
}
