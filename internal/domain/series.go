package domain

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientHistory means a site returned no usable historical values.
var ErrInsufficientHistory = errors.New("no historical values to rank against")

// HistoricalSeries is the sorted, immutable distribution of a site's past
// readings. Build it with NewHistoricalSeries.
type HistoricalSeries struct {
	sorted []float64
	mean   float64
	stdDev float64
}

// NewHistoricalSeries copies values, drops NaN and infinite entries, and sorts
// the remainder. The input slice is not modified.
func NewHistoricalSeries(values []float64) (HistoricalSeries, error) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}
	if len(clean) == 0 {
		return HistoricalSeries{}, ErrInsufficientHistory
	}
	sort.Float64s(clean)

	h := HistoricalSeries{sorted: clean}
	if len(clean) > 1 {
		h.mean, h.stdDev = stat.MeanStdDev(clean, nil)
	} else {
		h.mean = clean[0]
	}
	return h, nil
}

// Len returns the number of usable values.
func (h HistoricalSeries) Len() int {
	return len(h.sorted)
}

// PercentileRank returns the share of historical values strictly below v,
// scaled to [0, 100]. NaN is returned for a NaN input or an empty series.
func (h HistoricalSeries) PercentileRank(v float64) float64 {
	if len(h.sorted) == 0 || math.IsNaN(v) {
		return math.NaN()
	}
	below := sort.SearchFloat64s(h.sorted, v)
	return float64(below) / float64(len(h.sorted)) * 100
}

func (h HistoricalSeries) Min() float64 {
	return h.sorted[0]
}

func (h HistoricalSeries) Max() float64 {
	return h.sorted[len(h.sorted)-1]
}

// Mean returns the arithmetic mean of the series.
func (h HistoricalSeries) Mean() float64 {
	return h.mean
}

// StdDev returns the sample standard deviation, or 0 for a single value.
func (h HistoricalSeries) StdDev() float64 {
	return h.stdDev
}

// Median returns the middle value, or the mean of the two middle values when
// the count is even.
func (h HistoricalSeries) Median() float64 {
	n := len(h.sorted)
	if n%2 == 1 {
		return h.sorted[n/2]
	}
	return (h.sorted[n/2-1] + h.sorted[n/2]) / 2
}

// ClassifyReading ranks the current observation against history and labels it.
// The only error is ErrPercentileOutOfRange, which callers treat as fatal.
func ClassifyReading(site Site, current Observation, history HistoricalSeries, t Thresholds) (ClassificationResult, error) {
	percentile := history.PercentileRank(current.Value)
	severity, err := t.Classify(percentile)
	if err != nil {
		return ClassificationResult{}, err
	}

	return ClassificationResult{
		Site:             site,
		Current:          current,
		Percentile:       percentile,
		Severity:         severity,
		Description:      severity.Description(),
		HistoricalMin:    history.Min(),
		HistoricalMax:    history.Max(),
		HistoricalMedian: history.Median(),
		HistoricalMean:   history.Mean(),
		HistoricalStdDev: history.StdDev(),
		HistoricalCount:  history.Len(),
	}, nil
}
