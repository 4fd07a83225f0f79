package nwis

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/river-monitor/internal/domain"
	"github.com/couchcryptid/river-monitor/internal/observability"
)

const (
	testAgent         = "river-monitor-test/1.0"
	testSite          = "01646500"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

const ivFixture = `{
  "value": {
    "timeSeries": [{
      "sourceInfo": {"siteName": "POTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA"},
      "variable": {"unit": {"unitCode": "ft3/s"}, "noDataValue": -999999.0},
      "values": [{"value": [
        {"value": "2410", "qualifiers": ["P"], "dateTime": "2024-08-01T14:00:00.000-04:00"},
        {"value": "-999999", "qualifiers": ["P", "Ice"], "dateTime": "2024-08-01T14:05:00.000-04:00"},
        {"value": "2458", "qualifiers": ["P"], "dateTime": "2024-08-01T14:15:00.000-04:00"}
      ]}]
    }]
  }
}`

const dvFixture = `{
  "value": {
    "timeSeries": [{
      "sourceInfo": {"siteName": "POTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA"},
      "variable": {"unit": {"unitCode": "ft3/s"}, "noDataValue": -999999.0},
      "values": [{"value": [
        {"value": "5120", "qualifiers": ["A"], "dateTime": "1980-01-01T00:00:00.000"},
        {"value": "not-a-number", "qualifiers": ["A"], "dateTime": "1980-01-02T00:00:00.000"},
        {"value": "6930", "qualifiers": ["A"], "dateTime": "1980-01-03T00:00:00.000"}
      ]}]
    }]
  }
}`

const siteRDBFixture = "#\n# US Geological Survey\n# retrieved: 2024-08-01\n#\n" +
	"agency_cd\tsite_no\tstation_nm\tsite_tp_cd\tdec_lat_va\tdec_long_va\n" +
	"5s\t15s\t50s\t7s\t16s\t16s\n" +
	"USGS\t01646500\tPOTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA\tST\t38.94977778\t-77.12763889\n" +
	"USGS\t01646502\tPOTOMAC RIVER (ADJUSTED) NEAR WASH, DC\tST\t38.94977778\t-77.12763889\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  testAgent,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		metrics:    observability.NewMetrics(),
		logger:     discardLogger(),
	}
}

func testSiteRef() domain.Site {
	return domain.Site{Code: testSite, ParameterCode: domain.ParameterDischarge}
}

func TestClient_CurrentObservations_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/iv/", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, testSite, r.URL.Query().Get("sites"))
		assert.Equal(t, "00060", r.URL.Query().Get("parameterCd"))
		assert.Equal(t, "2024-07-25", r.URL.Query().Get("startDT"))
		assert.Equal(t, "2024-08-01", r.URL.Query().Get("endDT"))
		assert.Empty(t, r.URL.Query().Get("statCd"))
		assert.Equal(t, testAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(ivFixture))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	end := time.Date(2024, time.August, 1, 18, 30, 0, 0, time.UTC)
	series, err := c.CurrentObservations(context.Background(), testSiteRef(), end.AddDate(0, 0, -7), end)
	require.NoError(t, err)

	assert.Equal(t, "POTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA", series.SiteName)
	assert.Equal(t, "cfs", series.Unit)
	require.Len(t, series.Observations, 2, "no-data sentinel must be skipped")

	latest, ok := series.Latest()
	require.True(t, ok)
	assert.Equal(t, 2458.0, latest.Value)
	assert.Equal(t, "cfs", latest.Unit)
	assert.True(t, latest.Time.Equal(time.Date(2024, time.August, 1, 18, 15, 0, 0, time.UTC)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("iv", "success")))
}

func TestClient_DailyValues_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dv/", r.URL.Path)
		assert.Equal(t, "1980-01-01", r.URL.Query().Get("startDT"))
		assert.Equal(t, "00003", r.URL.Query().Get("statCd"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(dvFixture))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	start := time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	series, err := c.DailyValues(context.Background(), testSiteRef(), start, start.AddDate(44, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, []float64{5120, 6930}, series.Values())
	assert.Equal(t, time.Date(1980, time.January, 3, 0, 0, 0, 0, time.UTC), series.Observations[1].Time)
}

func TestClient_Series_NoTimeSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"value":{"timeSeries":[]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.CurrentObservations(context.Background(), testSiteRef(), time.Now().AddDate(0, 0, -7), time.Now())
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestClient_Series_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.DailyValues(context.Background(), testSiteRef(), time.Now().AddDate(-1, 0, 0), time.Now())
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestClient_Series_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("service temporarily unavailable"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.CurrentObservations(context.Background(), testSiteRef(), time.Now().AddDate(0, 0, -7), time.Now())
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("iv", "error")))
}

func TestClient_Series_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.DailyValues(context.Background(), testSiteRef(), time.Now().AddDate(-1, 0, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.CurrentObservations(context.Background(), testSiteRef(), time.Now().AddDate(0, 0, -7), time.Now())
	require.Error(t, err)
}

func TestClient_FindSites_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/site/", r.URL.Path)
		assert.Equal(t, "rdb", r.URL.Query().Get("format"))
		assert.Equal(t, "-78.362319,37.637681,-76.637681,39.362319", r.URL.Query().Get("bBox"))
		assert.Equal(t, "00060", r.URL.Query().Get("parameterCd"))
		assert.Equal(t, "active", r.URL.Query().Get("siteStatus"))
		assert.Equal(t, "dv", r.URL.Query().Get("hasDataTypeCd"))

		_, _ = w.Write([]byte(siteRDBFixture))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	sites, err := c.FindSites(context.Background(), domain.SiteQuery{
		Lat:             38.5,
		Lon:             -77.5,
		RadiusMiles:     59.5,
		ParameterCode:   domain.ParameterDischarge,
		DailyValuesOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, sites, 2)

	assert.Equal(t, testSite, sites[0].Code)
	assert.Equal(t, "POTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA", sites[0].Name)
	assert.Equal(t, "00060", sites[0].ParameterCode)
	assert.InDelta(t, 38.94977778, sites[0].Lat, 1e-9)
	assert.InDelta(t, -77.12763889, sites[0].Lon, 1e-9)
	assert.Equal(t, "01646502", sites[1].Code)
}

func TestClient_FindSites_NoneFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("hasDataTypeCd"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("No sites found matching all criteria"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	sites, err := c.FindSites(context.Background(), domain.SiteQuery{Lat: 0, Lon: 0, RadiusMiles: 10, ParameterCode: "00060"})
	require.NoError(t, err)
	assert.Empty(t, sites)
}
