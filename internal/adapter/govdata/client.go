// Package govdata fetches facility records from the federal open-data
// providers (HRSA, VA, USDA) and normalizes them into canonical facilities.
// Each provider has its own wire shape and query conventions; everything
// after decoding goes through domain.Normalize.
package govdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/couchcryptid/facility-discovery/internal/observability"
)

const kmPerMile = 1.609344

// Client fetches from one provider endpoint. Use NewHRSA, NewVA, or NewUSDA.
type Client struct {
	provider   domain.Provider
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	buildURL      func(base string, origin domain.LatLon, radiusKm float64) string
	buildStateURL func(base, state string) string
	decode        func(r io.Reader) ([]domain.RawRecord, error)
}

// usdaFacilityTypes is the full office-type list the USDA directory serves;
// by-state lookups always ask for all of them.
const usdaFacilityTypes = "rural_development,snap,farm_service,extension,wic"

// NewHRSA creates a client for the HRSA health center directory.
func NewHRSA(baseURL string, timeout time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		provider:   domain.ProviderHRSA,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clk,
		logger:     logger,
		metrics:    metrics,
		buildURL: func(base string, origin domain.LatLon, radiusKm float64) string {
			params := url.Values{
				"lat":       {fmt.Sprintf("%.6f", origin.Lat)},
				"lon":       {fmt.Sprintf("%.6f", origin.Lon)},
				"radius_km": {fmt.Sprintf("%.2f", radiusKm)},
			}
			return base + "/api/health-centers?" + params.Encode()
		},
		buildStateURL: func(base, state string) string {
			return base + "/api/health-centers?" + url.Values{"state": {state}}.Encode()
		},
		decode: decodeHRSA,
	}
}

// NewVA creates a client for the VA facilities API. The VA API takes its
// radius in miles, so the kilometre radius is converted on the way out.
func NewVA(baseURL string, timeout time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		provider:   domain.ProviderVA,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clk,
		logger:     logger,
		metrics:    metrics,
		buildURL: func(base string, origin domain.LatLon, radiusKm float64) string {
			params := url.Values{
				"lat":    {fmt.Sprintf("%.6f", origin.Lat)},
				"long":   {fmt.Sprintf("%.6f", origin.Lon)},
				"radius": {fmt.Sprintf("%.2f", radiusKm/kmPerMile)},
			}
			return base + "/services/va_facilities/v1/facilities?" + params.Encode()
		},
		buildStateURL: func(base, state string) string {
			return base + "/services/va_facilities/v1/facilities?" + url.Values{"state": {state}}.Encode()
		},
		decode: decodeVA,
	}
}

// NewUSDA creates a client for the USDA service center directory.
func NewUSDA(baseURL string, timeout time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		provider:   domain.ProviderUSDA,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clk,
		logger:     logger,
		metrics:    metrics,
		buildURL: func(base string, origin domain.LatLon, radiusKm float64) string {
			params := url.Values{
				"lat":       {fmt.Sprintf("%.6f", origin.Lat)},
				"lon":       {fmt.Sprintf("%.6f", origin.Lon)},
				"radius_km": {fmt.Sprintf("%.2f", radiusKm)},
			}
			return base + "/api/service-centers?" + params.Encode()
		},
		buildStateURL: func(base, state string) string {
			params := url.Values{
				"state":          {state},
				"facility_types": {usdaFacilityTypes},
			}
			return base + "/api/service-centers?" + params.Encode()
		},
		decode: decodeUSDA,
	}
}

// Name returns the provider this client fetches for.
func (c *Client) Name() domain.Provider {
	return c.provider
}

// Fetch retrieves facilities near origin. A record that fails normalization
// is logged and skipped; it never fails the whole fetch. Transport and
// decoding failures map onto the provider error taxonomy so callers can
// distinguish rate limiting from outage.
func (c *Client) Fetch(ctx context.Context, origin domain.LatLon, radiusKm float64) ([]domain.Facility, error) {
	return c.fetch(ctx, c.buildURL(c.baseURL, origin, radiusKm))
}

// FetchByState retrieves every facility the provider lists for a two-letter
// state code. Same error taxonomy and per-record skip behavior as Fetch.
func (c *Client) FetchByState(ctx context.Context, state string) ([]domain.Facility, error) {
	return c.fetch(ctx, c.buildStateURL(c.baseURL, state))
}

func (c *Client) fetch(ctx context.Context, fullURL string) ([]domain.Facility, error) {
	start := c.clock.Now()
	defer func() {
		c.metrics.ProviderDuration.WithLabelValues(string(c.provider)).Observe(c.clock.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.provider, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w: %v", c.provider, domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", c.provider, domain.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: status %d: %w", c.provider, resp.StatusCode, domain.ErrProviderUnavailable)
	}

	records, err := c.decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.provider, domain.ErrInvalidResponse, err)
	}

	fetchedAt := c.clock.Now().UTC()
	out := make([]domain.Facility, 0, len(records))
	for _, rec := range records {
		f, err := domain.Normalize(rec, c.provider, fetchedAt)
		if err != nil {
			c.metrics.NormalizationErrors.WithLabelValues(string(c.provider)).Inc()
			c.logger.Warn("skipping malformed provider record",
				"provider", c.provider,
				"name", rec.Name,
				"error", err,
			)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// HRSA wire format.

type hrsaResponse struct {
	Results []hrsaSite `json:"results"`
}

type hrsaSite struct {
	SiteID    string  `json:"site_id"`
	SiteName  string  `json:"site_name"`
	SiteType  string  `json:"site_type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"site_address"`
	City      string  `json:"site_city"`
	State     string  `json:"site_state"`
	Zip       string  `json:"site_postal_code"`
}

func decodeHRSA(r io.Reader) ([]domain.RawRecord, error) {
	var resp hrsaResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, err
	}
	records := make([]domain.RawRecord, len(resp.Results))
	for i, s := range resp.Results {
		records[i] = domain.RawRecord{
			LocalID:   s.SiteID,
			Name:      s.SiteName,
			Type:      s.SiteType,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Street:    s.Address,
			City:      s.City,
			State:     s.State,
			Zip:       s.Zip,
		}
	}
	return records, nil
}

// VA wire format (JSON:API style).

type vaResponse struct {
	Data []vaFacility `json:"data"`
}

type vaFacility struct {
	ID         string       `json:"id"`
	Attributes vaAttributes `json:"attributes"`
}

type vaAttributes struct {
	Name           string    `json:"name"`
	FacilityType   string    `json:"facility_type"`
	Classification string    `json:"classification"`
	Lat            float64   `json:"lat"`
	Long           float64   `json:"long"`
	Address        vaAddress `json:"address"`
}

type vaAddress struct {
	Physical struct {
		Address1 string `json:"address_1"`
		City     string `json:"city"`
		State    string `json:"state"`
		Zip      string `json:"zip"`
	} `json:"physical"`
}

func decodeVA(r io.Reader) ([]domain.RawRecord, error) {
	var resp vaResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, err
	}
	records := make([]domain.RawRecord, len(resp.Data))
	for i, f := range resp.Data {
		records[i] = domain.RawRecord{
			LocalID:   f.ID,
			Name:      f.Attributes.Name,
			Type:      domain.ClassifyVAFacility(f.Attributes.FacilityType, f.Attributes.Classification),
			Latitude:  f.Attributes.Lat,
			Longitude: f.Attributes.Long,
			Street:    f.Attributes.Address.Physical.Address1,
			City:      f.Attributes.Address.Physical.City,
			State:     f.Attributes.Address.Physical.State,
			Zip:       f.Attributes.Address.Physical.Zip,
		}
	}
	return records, nil
}

// USDA wire format.

type usdaResponse struct {
	Offices []usdaOffice `json:"offices"`
}

type usdaOffice struct {
	OfficeID   string  `json:"office_id"`
	OfficeName string  `json:"office_name"`
	OfficeType string  `json:"office_type"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Zip        string  `json:"zip"`
}

func decodeUSDA(r io.Reader) ([]domain.RawRecord, error) {
	var resp usdaResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, err
	}
	records := make([]domain.RawRecord, len(resp.Offices))
	for i, o := range resp.Offices {
		records[i] = domain.RawRecord{
			LocalID:   o.OfficeID,
			Name:      o.OfficeName,
			Type:      o.OfficeType,
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Street:    o.Address,
			City:      o.City,
			State:     o.State,
			Zip:       o.Zip,
		}
	}
	return records, nil
}
