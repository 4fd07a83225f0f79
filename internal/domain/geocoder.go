package domain

import (
	"context"
	"errors"
)

// ErrLocationNotFound means the geocoder had no match for the query.
var ErrLocationNotFound = errors.New("location not found")

// GeocodingResult contains the best match for a free-form address.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder turns an address or place name into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeocodingResult, error)
}
