package nwis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/river-monitor/internal/domain"
	"github.com/couchcryptid/river-monitor/internal/observability"
)

const dateLayout = "2006-01-02"

// statMean is the NWIS statistic code for a daily mean.
const statMean = "00003"

// Client implements domain.GaugeLocator and domain.ReadingFetcher using the
// USGS NWIS site, instantaneous-value, and daily-value services.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWIS client rooted at baseURL, e.g.
// "https://waterservices.usgs.gov/nwis".
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FindSites returns active sites measuring q.ParameterCode inside the bounding
// box around q's point. No matching sites is not an error.
func (c *Client) FindSites(ctx context.Context, q domain.SiteQuery) ([]domain.Site, error) {
	west, south, east, north := q.BoundingBox()
	params := url.Values{
		"format":      {"rdb"},
		"bBox":        {fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", west, south, east, north)},
		"parameterCd": {q.ParameterCode},
		"siteStatus":  {"active"},
	}
	if q.DailyValuesOnly {
		params.Set("hasDataTypeCd", "dv")
	}

	body, err := c.doRequest(ctx, c.baseURL+"/site/?"+params.Encode(), "site")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	sites, err := parseSiteRDB(body, q.ParameterCode)
	if err != nil {
		return nil, fmt.Errorf("parse site list: %w", err)
	}
	c.logger.Debug("nwis sites located", "count", len(sites), "radius_miles", q.RadiusMiles)
	return sites, nil
}

// CurrentObservations fetches instantaneous values for the site in [start, end].
func (c *Client) CurrentObservations(ctx context.Context, site domain.Site, start, end time.Time) (domain.Series, error) {
	return c.fetchSeries(ctx, "iv", site, start, end)
}

// DailyValues fetches daily mean values for the site in [start, end].
func (c *Client) DailyValues(ctx context.Context, site domain.Site, start, end time.Time) (domain.Series, error) {
	return c.fetchSeries(ctx, "dv", site, start, end)
}

func (c *Client) fetchSeries(ctx context.Context, service string, site domain.Site, start, end time.Time) (domain.Series, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {site.Code},
		"parameterCd": {site.ParameterCode},
		"startDT":     {start.Format(dateLayout)},
		"endDT":       {end.Format(dateLayout)},
	}
	if service == "dv" {
		params.Set("statCd", statMean)
	}

	body, err := c.doRequest(ctx, c.baseURL+"/"+service+"/?"+params.Encode(), service)
	if err != nil {
		return domain.Series{}, err
	}
	if body == nil {
		return domain.Series{}, domain.ErrNoData
	}
	defer body.Close()

	series, err := decodeWaterML(body)
	if err != nil {
		return domain.Series{}, fmt.Errorf("%s response for site %s: %w", service, site.Code, err)
	}
	if len(series.Observations) == 0 {
		return series, domain.ErrNoData
	}
	return series, nil
}

// doRequest performs a GET and returns the body on 200. A 404 means NWIS found
// nothing for the query and yields a nil body with no error.
func (c *Client) doRequest(ctx context.Context, fullURL, service string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(service, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", service, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		c.metrics.FetchRequests.WithLabelValues(service, "success").Inc()
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		c.metrics.FetchRequests.WithLabelValues(service, "empty").Inc()
		return nil, nil
	default:
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.FetchRequests.WithLabelValues(service, "error").Inc()
		return nil, &StatusError{Service: service, Code: resp.StatusCode, Body: string(msg)}
	}
}

// StatusError is returned for non-200, non-404 NWIS responses.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return "nwis " + e.Service + " error: status " + strconv.Itoa(e.Code) + ": " + e.Body
}
