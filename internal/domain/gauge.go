package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNoData means the service answered but returned no usable readings.
var ErrNoData = errors.New("no data returned for site")

// MilesPerDegree approximates one degree of latitude in miles. It converts a
// search radius into a bounding box.
const MilesPerDegree = 69.0

// SiteQuery describes a search for active gauges around a point.
type SiteQuery struct {
	Lat           float64
	Lon           float64
	RadiusMiles   float64
	ParameterCode string

	// DailyValuesOnly restricts results to sites with a daily-value record.
	DailyValuesOnly bool
}

// BoundingBox returns west, south, east, north edges of the square that
// encloses the search radius.
func (q SiteQuery) BoundingBox() (west, south, east, north float64) {
	d := q.RadiusMiles / MilesPerDegree
	return q.Lon - d, q.Lat - d, q.Lon + d, q.Lat + d
}

// Series is a fetched run of readings for one site and parameter.
type Series struct {
	SiteName     string
	Unit         string
	Observations []Observation
}

// Latest returns the last observation in the series.
func (s Series) Latest() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// Values returns the observation values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Value
	}
	return out
}

// GaugeLocator finds monitoring sites near a location.
type GaugeLocator interface {
	FindSites(ctx context.Context, q SiteQuery) ([]Site, error)
}

// ReadingFetcher retrieves observation series for a site.
type ReadingFetcher interface {
	// CurrentObservations returns recent instantaneous readings.
	CurrentObservations(ctx context.Context, site Site, start, end time.Time) (Series, error)

	// DailyValues returns daily mean readings.
	DailyValues(ctx context.Context, site Site, start, end time.Time) (Series, error)
}
