package domain

import (
	"fmt"
	"time"
)

// NWIS parameter codes understood by the monitor.
const (
	ParameterDischarge   = "00060"
	ParameterGageHeight  = "00065"
	DefaultParameterCode = ParameterDischarge
)

// Failure stages recorded on a SiteFailure.
const (
	StageCurrent    = "current"
	StageHistorical = "historical"
	StageStatistics = "statistics"
)

// Site is a USGS monitoring location.
type Site struct {
	Code          string  `json:"code"`
	Name          string  `json:"name,omitempty"`
	ParameterCode string  `json:"parameter_code"`
	Lat           float64 `json:"lat,omitempty"`
	Lon           float64 `json:"lon,omitempty"`
}

// Label returns the code followed by the station name when one is known.
func (s Site) Label() string {
	if s.Name == "" {
		return s.Code
	}
	return fmt.Sprintf("%s (%s)", s.Code, s.Name)
}

// Observation is a single gauge reading.
type Observation struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit"`
}

// ClassificationResult is the outcome of ranking one site's current reading
// against its history.
type ClassificationResult struct {
	Site             Site        `json:"site"`
	Current          Observation `json:"current"`
	Percentile       float64     `json:"percentile"`
	Severity         Severity    `json:"severity"`
	Description      string      `json:"description"`
	HistoricalMin    float64     `json:"historical_min"`
	HistoricalMax    float64     `json:"historical_max"`
	HistoricalMedian float64     `json:"historical_median"`
	HistoricalMean   float64     `json:"historical_mean"`
	HistoricalStdDev float64     `json:"historical_stddev"`
	HistoricalCount  int         `json:"historical_count"`
}

// IsExtreme reports whether the result is anything other than NORMAL.
func (r ClassificationResult) IsExtreme() bool {
	return r.Severity != SeverityNormal
}

// SiteFailure records a site that could not be classified in this run.
type SiteFailure struct {
	Site  Site
	Stage string
	Err   error
}

func (f SiteFailure) Error() string {
	return fmt.Sprintf("site %s: %s: %v", f.Site.Code, f.Stage, f.Err)
}

func (f SiteFailure) Unwrap() error {
	return f.Err
}

// CountExtreme returns how many results have a severity other than NORMAL.
func CountExtreme(results []ClassificationResult) int {
	n := 0
	for i := range results {
		if results[i].IsExtreme() {
			n++
		}
	}
	return n
}
