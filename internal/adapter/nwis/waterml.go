package nwis

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/river-monitor/internal/domain"
)

// WaterML-JSON response types. Only the fields the monitor reads are mapped.

type waterMLResponse struct {
	Value struct {
		TimeSeries []timeSeries `json:"timeSeries"`
	} `json:"value"`
}

type timeSeries struct {
	SourceInfo struct {
		SiteName string `json:"siteName"`
	} `json:"sourceInfo"`
	Variable struct {
		Unit struct {
			UnitCode string `json:"unitCode"`
		} `json:"unit"`
		NoDataValue *float64 `json:"noDataValue"`
	} `json:"variable"`
	Values []struct {
		Value []point `json:"value"`
	} `json:"values"`
}

type point struct {
	Value    string `json:"value"`
	DateTime string `json:"dateTime"`
}

// defaultNoDataValue is the NWIS sentinel for a missing reading.
const defaultNoDataValue = -999999.0

// decodeWaterML reads the first time series that carries values. Missing
// readings and unparseable values are skipped.
func decodeWaterML(r io.Reader) (domain.Series, error) {
	var resp waterMLResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return domain.Series{}, fmt.Errorf("decode response: %w", err)
	}

	for _, ts := range resp.Value.TimeSeries {
		noData := defaultNoDataValue
		if ts.Variable.NoDataValue != nil {
			noData = *ts.Variable.NoDataValue
		}
		unit := displayUnit(ts.Variable.Unit.UnitCode)

		for _, block := range ts.Values {
			if len(block.Value) == 0 {
				continue
			}
			series := domain.Series{
				SiteName:     ts.SourceInfo.SiteName,
				Unit:         unit,
				Observations: make([]domain.Observation, 0, len(block.Value)),
			}
			for _, p := range block.Value {
				obs, ok := parsePoint(p, noData, unit)
				if !ok {
					continue
				}
				series.Observations = append(series.Observations, obs)
			}
			return series, nil
		}
	}
	return domain.Series{}, nil
}

func parsePoint(p point, noData float64, unit string) (domain.Observation, bool) {
	v, err := strconv.ParseFloat(p.Value, 64)
	if err != nil || v == noData || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.Observation{}, false
	}
	t, err := parseDateTime(p.DateTime)
	if err != nil {
		return domain.Observation{}, false
	}
	return domain.Observation{Time: t, Value: v, Unit: unit}, true
}

// parseDateTime accepts instantaneous timestamps with an offset
// ("2024-08-01T14:15:00.000-04:00") and daily timestamps without one
// ("2024-08-01T00:00:00.000").
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// displayUnit maps NWIS unit codes to the short names used in reports.
func displayUnit(code string) string {
	switch code {
	case "ft3/s":
		return "cfs"
	case "ft":
		return "ft"
	default:
		return code
	}
}
