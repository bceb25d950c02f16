package govdata

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/couchcryptid/facility-discovery/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var austin = domain.LatLon{Lat: 30.2672, Lon: -97.7431}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_FetchHRSA_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health-centers", r.URL.Path)
		assert.Equal(t, "30.267200", r.URL.Query().Get("lat"))
		assert.Equal(t, "-97.743100", r.URL.Query().Get("lon"))
		assert.Equal(t, "5.00", r.URL.Query().Get("radius_km"))

		resp := hrsaResponse{Results: []hrsaSite{
			{
				SiteID:    "0042",
				SiteName:  "Eastside Community Health",
				SiteType:  "community_health_center",
				Latitude:  30.27,
				Longitude: -97.73,
				Address:   "500 E 7th St",
				City:      "Austin",
				State:     "TX",
				Zip:       "78701",
			},
		}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewHRSA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	got, err := c.Fetch(context.Background(), austin, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "hrsa_0042", got[0].ID)
	assert.Equal(t, domain.CategoryCommunityHealthCenter, got[0].Category)
	assert.Equal(t, "Eastside Community Health", got[0].Name)
	assert.Equal(t, "500 E 7th St, Austin, TX, 78701", got[0].Address)
	assert.Equal(t, domain.ProviderHRSA, got[0].Provider)
}

func TestClient_FetchByState(t *testing.T) {
	t.Run("hrsa", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/health-centers", r.URL.Path)
			assert.Equal(t, "TX", r.URL.Query().Get("state"))
			assert.Empty(t, r.URL.Query().Get("lat"))

			resp := hrsaResponse{Results: []hrsaSite{
				{
					SiteID:    "0099",
					SiteName:  "Hill Country Health",
					SiteType:  "migrant_health_center",
					Latitude:  30.5,
					Longitude: -98.3,
					City:      "Marble Falls",
					State:     "TX",
				},
			}}
			w.Header().Set(headerContentType, contentTypeJSON)
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer srv.Close()

		c := NewHRSA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
		got, err := c.FetchByState(context.Background(), "TX")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "hrsa_0099", got[0].ID)
	})

	t.Run("usda asks for every facility type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/service-centers", r.URL.Path)
			assert.Equal(t, "TX", r.URL.Query().Get("state"))
			assert.Equal(t, usdaFacilityTypes, r.URL.Query().Get("facility_types"))

			w.Header().Set(headerContentType, contentTypeJSON)
			require.NoError(t, json.NewEncoder(w).Encode(usdaResponse{}))
		}))
		defer srv.Close()

		c := NewUSDA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
		got, err := c.FetchByState(context.Background(), "TX")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestClient_FetchVA_RadiusInMiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/va_facilities/v1/facilities", r.URL.Path)
		// 10 km is about 6.21 miles.
		assert.Equal(t, "6.21", r.URL.Query().Get("radius"))
		assert.Equal(t, "30.267200", r.URL.Query().Get("lat"))
		assert.Equal(t, "-97.743100", r.URL.Query().Get("long"))

		var resp vaResponse
		f := vaFacility{ID: "vha_674"}
		f.Attributes.Name = "Austin VA Outpatient Clinic"
		f.Attributes.FacilityType = "va_health_facility"
		f.Attributes.Classification = "Multi-Specialty CBOC Clinic"
		f.Attributes.Lat = 30.21
		f.Attributes.Long = -97.71
		f.Attributes.Address.Physical.Address1 = "7901 Metropolis Dr"
		f.Attributes.Address.Physical.City = "Austin"
		f.Attributes.Address.Physical.State = "TX"
		f.Attributes.Address.Physical.Zip = "78744"
		resp.Data = append(resp.Data, f)

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewVA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	got, err := c.Fetch(context.Background(), austin, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "va_vha_674", got[0].ID)
	assert.Equal(t, domain.CategoryVAOutpatientClinic, got[0].Category)
	assert.Equal(t, domain.ProviderVA, got[0].Provider)
}

func TestClient_FetchUSDA_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/service-centers", r.URL.Path)

		resp := usdaResponse{Offices: []usdaOffice{
			{
				OfficeID:   "tx-travis-01",
				OfficeName: "Travis County SNAP Office",
				OfficeType: "snap",
				Latitude:   30.3,
				Longitude:  -97.7,
				City:       "Austin",
				State:      "TX",
			},
		}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewUSDA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	got, err := c.Fetch(context.Background(), austin, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "usda_tx-travis-01", got[0].ID)
	assert.Equal(t, domain.CategoryUSDASNAPOffice, got[0].Category)
	assert.Equal(t, "Austin, TX", got[0].Address)
}

func TestClient_Fetch_SkipsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := hrsaResponse{Results: []hrsaSite{
			{SiteID: "bad", SiteName: "", Latitude: 30, Longitude: -97},
			{SiteID: "far", SiteName: "Off The Map", Latitude: 95, Longitude: -97},
			{SiteID: "ok", SiteName: "Good Site", SiteType: "health_center", Latitude: 30, Longitude: -97},
		}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewHRSA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	got, err := c.Fetch(context.Background(), austin, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hrsa_ok", got[0].ID)
}

func TestClient_Fetch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewVA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	_, err := c.Fetch(context.Background(), austin, 5)
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestClient_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHRSA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	_, err := c.Fetch(context.Background(), austin, 5)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Fetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results": [`))
	}))
	defer srv.Close()

	c := NewHRSA(srv.URL, 5*time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	_, err := c.Fetch(context.Background(), austin, 5)
	require.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestClient_Fetch_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewUSDA(srv.URL, time.Second, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	_, err := c.Fetch(context.Background(), austin, 5)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
