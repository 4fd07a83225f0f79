package nwis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/river-monitor/internal/domain"
)

// parseSiteRDB reads the NWIS tab-delimited RDB site listing. The layout is
// '#' comment lines, a header row, a column-format row ("5s 15s ..."), then
// one row per site.
func parseSiteRDB(r io.Reader, parameterCode string) ([]domain.Site, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	codeIdx, ok := col["site_no"]
	if !ok {
		return nil, fmt.Errorf("rdb header has no site_no column")
	}

	// Column-format row.
	if _, err := cr.Read(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var sites []domain.Site
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if codeIdx >= len(row) || strings.TrimSpace(row[codeIdx]) == "" {
			continue
		}

		lat, _ := strconv.ParseFloat(field(row, "dec_lat_va"), 64)
		lon, _ := strconv.ParseFloat(field(row, "dec_long_va"), 64)
		sites = append(sites, domain.Site{
			Code:          strings.TrimSpace(row[codeIdx]),
			Name:          field(row, "station_nm"),
			ParameterCode: parameterCode,
			Lat:           lat,
			Lon:           lon,
		})
	}
	return sites, nil
}
