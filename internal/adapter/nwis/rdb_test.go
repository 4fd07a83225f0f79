package nwis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSiteRDB_Empty(t *testing.T) {
	sites, err := parseSiteRDB(strings.NewReader("# nothing here\n#\n"), "00060")
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestParseSiteRDB_MissingSiteColumn(t *testing.T) {
	_, err := parseSiteRDB(strings.NewReader("agency_cd\tstation_nm\n5s\t50s\n"), "00060")
	require.Error(t, err)
}

func TestParseSiteRDB_ShortRows(t *testing.T) {
	input := "agency_cd\tsite_no\tstation_nm\tdec_lat_va\tdec_long_va\n" +
		"5s\t15s\t50s\t16s\t16s\n" +
		"USGS\t03294500\tOHIO RIVER AT LOUISVILLE, KY\n" +
		"USGS\n"

	sites, err := parseSiteRDB(strings.NewReader(input), "00065")
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "03294500", sites[0].Code)
	assert.Equal(t, "OHIO RIVER AT LOUISVILLE, KY", sites[0].Name)
	assert.Equal(t, "00065", sites[0].ParameterCode)
	assert.Zero(t, sites[0].Lat)
}

func TestDisplayUnit(t *testing.T) {
	assert.Equal(t, "cfs", displayUnit("ft3/s"))
	assert.Equal(t, "ft", displayUnit("ft"))
	assert.Equal(t, "deg C", displayUnit("deg C"))
}
