// Package httpapi exposes the discovery core over HTTP: facility search and
// lookup, submission intake, and the operational endpoints (health,
// readiness, metrics).
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/couchcryptid/facility-discovery/internal/service"
)

// Discovery is the service surface the HTTP layer depends on.
type Discovery interface {
	Query(ctx context.Context, spec domain.QuerySpec) ([]domain.Facility, error)
	Get(id string) (domain.Facility, bool)
	RefreshArea(ctx context.Context, origin domain.LatLon, radiusKm float64) (int, error)
	RefreshState(ctx context.Context, state string) (int, error)
	Submit(ctx context.Context, req domain.SubmissionRequest) (service.SubmitStatus, error)
	SyncOfflineQueue(ctx context.Context) domain.DrainReport
	CheckReadiness(ctx context.Context) error
}

// Server is the HTTP front end.
type Server struct {
	httpServer *http.Server
	discovery  Discovery
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes mounted.
func NewServer(addr string, discovery Discovery, logger *slog.Logger) *Server {
	s := &Server{
		discovery: discovery,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/facilities", s.handleSearch)
		r.Get("/facilities/{id}", s.handleGet)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/submissions", s.handleSubmit)
		r.Post("/queue/sync", s.handleSync)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.discovery.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// searchResponse wraps facility search results.
type searchResponse struct {
	Facilities []domain.Facility `json:"facilities"`
	Count      int               `json:"count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuerySpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results, err := s.discovery.Query(r.Context(), spec)
	if err != nil {
		var qerr *domain.QueryError
		if errors.As(err, &qerr) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("search failed"))
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Facilities: results, Count: len(results)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := s.discovery.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("facility not found"))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// refreshResponse reports how many facilities a provider refresh pulled in.
type refreshResponse struct {
	Fetched int `json:"fetched"`
}

// handleRefresh pulls fresh provider data for an area (lat, lon, optional
// radius_km) or a whole state. Exactly one of the two targets must be given.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	latStr, lonStr := q.Get("lat"), q.Get("lon")

	var (
		fetched int
		err     error
	)
	switch {
	case state != "" && (latStr != "" || lonStr != ""):
		writeError(w, http.StatusBadRequest, errors.New("state and lat/lon are mutually exclusive"))
		return
	case state != "":
		fetched, err = s.discovery.RefreshState(r.Context(), state)
	case latStr != "" && lonStr != "":
		lat, perr := strconv.ParseFloat(latStr, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid lat: "+latStr))
			return
		}
		lon, perr := strconv.ParseFloat(lonStr, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid lon: "+lonStr))
			return
		}
		var radius float64
		if radiusStr := q.Get("radius_km"); radiusStr != "" {
			if radius, perr = strconv.ParseFloat(radiusStr, 64); perr != nil {
				writeError(w, http.StatusBadRequest, errors.New("invalid radius_km: "+radiusStr))
				return
			}
		}
		fetched, err = s.discovery.RefreshArea(r.Context(), domain.LatLon{Lat: lat, Lon: lon}, radius)
	default:
		writeError(w, http.StatusBadRequest, errors.New("refresh needs either state or lat and lon"))
		return
	}

	if err != nil {
		s.logger.Error("provider refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, errors.New("all providers failed"))
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Fetched: fetched})
}

// submissionPayload is the POST /v1/submissions body.
type submissionPayload struct {
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Address           string  `json:"address"`
	AccessibilityNote string  `json:"accessibility_note"`
	IdempotencyKey    string  `json:"idempotency_key"`
}

type submissionResponse struct {
	Status         service.SubmitStatus `json:"status"`
	IdempotencyKey string               `json:"idempotency_key"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}

	category, ok := domain.ParseCategory(payload.Category)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown category: "+payload.Category))
		return
	}

	req, err := domain.NewSubmission(
		payload.Name,
		category,
		domain.LatLon{Lat: payload.Lat, Lon: payload.Lon},
		payload.Address,
		payload.AccessibilityNote,
		payload.IdempotencyKey,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	status, err := s.discovery.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.logger.Error("submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("submission failed"))
		return
	}

	code := http.StatusAccepted
	if status == service.SubmitDelivered {
		code = http.StatusCreated
	}
	writeJSON(w, code, submissionResponse{Status: status, IdempotencyKey: req.IdempotencyKey})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report := s.discovery.SyncOfflineQueue(r.Context())
	writeJSON(w, http.StatusOK, report)
}

// parseQuerySpec maps search query parameters onto a QuerySpec. Coordinate
// validation is left to the query engine; only syntax is checked here.
func parseQuerySpec(r *http.Request) (domain.QuerySpec, error) {
	q := r.URL.Query()
	var spec domain.QuerySpec

	latStr, lonStr := q.Get("lat"), q.Get("lon")
	switch {
	case latStr != "" && lonStr != "":
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return spec, errors.New("invalid lat: " + latStr)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return spec, errors.New("invalid lon: " + lonStr)
		}
		spec.Origin = &domain.LatLon{Lat: lat, Lon: lon}
	case latStr != "" || lonStr != "":
		return spec, errors.New("lat and lon must be supplied together")
	}

	if radiusStr := q.Get("radius_km"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			return spec, errors.New("invalid radius_km: " + radiusStr)
		}
		spec.RadiusKm = radius
	}

	if categories := q.Get("categories"); categories != "" {
		for _, raw := range strings.Split(categories, ",") {
			raw = strings.TrimSpace(raw)
			c, ok := domain.ParseCategory(raw)
			if !ok {
				return spec, errors.New("unknown category: " + raw)
			}
			spec.Categories = append(spec.Categories, c)
		}
	}

	spec.StateFilter = q.Get("state")
	spec.TextQuery = q.Get("q")
	return spec, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
