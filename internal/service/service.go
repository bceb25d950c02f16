// Package service wires the spatial index, cache, offline queue, and remote
// providers into the discovery core. It owns the background maintenance loop:
// TTL sweeps, stale-entry refresh, offline queue sync, and persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/facility-discovery/internal/adapter/bundled"
	"github.com/couchcryptid/facility-discovery/internal/cache"
	"github.com/couchcryptid/facility-discovery/internal/config"
	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/couchcryptid/facility-discovery/internal/index"
	"github.com/couchcryptid/facility-discovery/internal/observability"
	"github.com/couchcryptid/facility-discovery/internal/query"
	"github.com/couchcryptid/facility-discovery/internal/queue"
)

// maxSweepInterval caps how long a stale entry can go unnoticed when the
// configured TTL is large.
const maxSweepInterval = time.Minute

// Provider fetches facilities from one remote source, either around an
// origin or for a whole state.
type Provider interface {
	Name() domain.Provider
	Fetch(ctx context.Context, origin domain.LatLon, radiusKm float64) ([]domain.Facility, error)
	FetchByState(ctx context.Context, state string) ([]domain.Facility, error)
}

// Store persists the cache and offline queue across restarts. All methods are
// best-effort from the service's point of view: a failing store degrades to
// memory-only operation, it never takes the service down.
type Store interface {
	LoadFacilities(ctx context.Context) ([]domain.Facility, error)
	SaveFacilities(ctx context.Context, facilities []domain.Facility) error
	LoadQueue(ctx context.Context) ([]domain.SubmissionRequest, error)
	SaveQueue(ctx context.Context, items []domain.SubmissionRequest) error
	Ping(ctx context.Context) error
}

// SubmitStatus reports which path a submission took.
type SubmitStatus string

const (
	SubmitDelivered SubmitStatus = "delivered"
	SubmitQueued    SubmitStatus = "queued"
)

// Options collects the service dependencies. Send and Store may be nil; the
// service then queues all submissions and runs memory-only.
type Options struct {
	Config    *config.Config
	Providers []Provider
	Send      queue.SendFunc
	Store     Store
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Service is the discovery core. All public methods are safe for concurrent
// use: index+cache mutation takes mu exclusively, reads share it, so a query
// observes a put either fully applied or not at all.
type Service struct {
	mu        sync.RWMutex
	grid      *index.Grid
	cache     *cache.Manager
	queue     *queue.Queue
	engine    *query.Engine
	providers []Provider
	send      queue.SendFunc
	store     Store
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	defaultRadiusKm float64
	maxRadiusKm     float64
	apiTimeout      time.Duration
	cacheExpiry     time.Duration
	syncInterval    time.Duration

	ready atomic.Bool

	// bundledIDs marks the records seeded from the embedded dataset. They
	// live in the index permanently and are exempt from cache TTL and
	// eviction.
	bundledIDs map[string]bool

	staleMu      sync.Mutex
	pendingStale []string
}

// New builds the service and seeds the index from the bundled dataset.
func New(opts Options) (*Service, error) {
	cfg := opts.Config

	s := &Service{
		grid:            index.New(),
		providers:       opts.Providers,
		send:            opts.Send,
		store:           opts.Store,
		clock:           opts.Clock,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		defaultRadiusKm: cfg.DefaultSearchRadiusKm,
		maxRadiusKm:     cfg.MaxSearchRadiusKm,
		apiTimeout:      cfg.APITimeout,
		cacheExpiry:     cfg.CacheExpiry,
		syncInterval:    cfg.OfflineSyncInterval,
	}

	s.cache = cache.New(cfg.CacheExpiry, cfg.MaxCachedUtilities, opts.Clock,
		cache.WithEvictFunc(s.onEvict),
		cache.WithStaleFunc(s.onStale),
	)
	s.queue = queue.New(cfg.MaxOfflineQueueSize, opts.Logger)
	s.engine = query.New(s.grid, cfg.DefaultSearchRadiusKm, cfg.MaxSearchRadiusKm)

	seed, err := bundled.Load()
	if err != nil {
		return nil, fmt.Errorf("load bundled dataset: %w", err)
	}
	s.bundledIDs = make(map[string]bool, len(seed))
	for _, f := range seed {
		s.grid.Insert(f)
		s.bundledIDs[f.ID] = true
	}
	s.logger.Info("bundled dataset loaded", "version", bundled.Version(), "facilities", len(seed))

	return s, nil
}

// Query runs one discovery search against the index.
func (s *Service) Query(ctx context.Context, spec domain.QuerySpec) ([]domain.Facility, error) {
	start := s.clock.Now()
	s.mu.RLock()
	results, err := s.engine.Query(ctx, spec)
	s.mu.RUnlock()
	s.metrics.QueryDuration.Observe(s.clock.Since(start).Seconds())

	switch {
	case err == nil:
		s.metrics.QueriesTotal.WithLabelValues("success").Inc()
	case isQueryError(err):
		s.metrics.QueriesTotal.WithLabelValues("invalid").Inc()
	default:
		s.metrics.QueriesTotal.WithLabelValues("error").Inc()
	}
	return results, err
}

// Get returns one facility by ID, from the cache or the index. The second
// return is false when the ID is unknown.
func (s *Service) Get(id string) (domain.Facility, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, _, ok := s.cache.Get(id); ok {
		s.metrics.CacheHits.Inc()
		return f, true
	}
	s.metrics.CacheMisses.Inc()
	return s.grid.Get(id)
}

// RefreshArea fetches from every provider around origin and folds the results
// into the cache and index. One provider failing does not abort the others;
// an error is returned only when every provider failed.
func (s *Service) RefreshArea(ctx context.Context, origin domain.LatLon, radiusKm float64) (int, error) {
	if radiusKm <= 0 {
		radiusKm = s.defaultRadiusKm
	}
	if radiusKm > s.maxRadiusKm {
		radiusKm = s.maxRadiusKm
	}

	var (
		total    int
		failures []error
	)
	for _, p := range s.providers {
		fetchCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
		facilities, err := p.Fetch(fetchCtx, origin, radiusKm)
		cancel()
		if err != nil {
			s.logger.Warn("provider fetch failed", "provider", p.Name(), "error", err)
			failures = append(failures, err)
			continue
		}
		s.absorb(facilities)
		total += len(facilities)
	}

	s.updateGauges()
	if len(s.providers) > 0 && len(failures) == len(s.providers) {
		return 0, fmt.Errorf("all providers failed: %w", errors.Join(failures...))
	}
	return total, nil
}

// RefreshState fetches every facility the providers list for a state and
// folds the results in, with the same partial-failure semantics as
// RefreshArea.
func (s *Service) RefreshState(ctx context.Context, state string) (int, error) {
	var (
		total    int
		failures []error
	)
	for _, p := range s.providers {
		fetchCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
		facilities, err := p.FetchByState(fetchCtx, state)
		cancel()
		if err != nil {
			s.logger.Warn("provider state fetch failed", "provider", p.Name(), "state", state, "error", err)
			failures = append(failures, err)
			continue
		}
		s.absorb(facilities)
		total += len(facilities)
	}

	s.updateGauges()
	if len(s.providers) > 0 && len(failures) == len(s.providers) {
		return 0, fmt.Errorf("all providers failed: %w", errors.Join(failures...))
	}
	return total, nil
}

// absorb caches fetched facilities and mirrors them into the index, holding
// the write lock for the whole batch so readers never see it half-applied. A
// facility evicted while inserting the same batch is skipped so the index
// never holds an uncached provider record.
func (s *Service) absorb(facilities []domain.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := s.cache.Put(facilities)
	dropped := make(map[string]bool, len(evicted))
	for _, id := range evicted {
		dropped[id] = true
	}
	for _, f := range facilities {
		if dropped[f.ID] {
			continue
		}
		s.grid.Insert(f)
	}
}

// Submit accepts a user submission. When a remote write path is configured it
// is tried first; a failed or absent write path falls back to the offline
// queue. A full queue rejects with domain.ErrQueueFull.
func (s *Service) Submit(ctx context.Context, req domain.SubmissionRequest) (SubmitStatus, error) {
	if s.send != nil {
		sendCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
		err := s.send(sendCtx, req)
		cancel()
		if err == nil {
			s.metrics.SubmissionsTotal.WithLabelValues("direct").Inc()
			return SubmitDelivered, nil
		}
		s.logger.Warn("direct submission failed, queueing",
			"idempotency_key", req.IdempotencyKey, "error", err)
	}

	if err := s.queue.Enqueue(req); err != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return "", err
	}
	s.metrics.SubmissionsTotal.WithLabelValues("queued").Inc()
	s.metrics.QueueDepth.Set(float64(s.queue.Len()))
	return SubmitQueued, nil
}

// SyncOfflineQueue drains the offline queue through the remote write path and
// persists what remains. Without a write path it is a no-op.
func (s *Service) SyncOfflineQueue(ctx context.Context) domain.DrainReport {
	if s.send == nil || s.queue.Len() == 0 {
		return domain.DrainReport{StillQueued: s.queue.Len()}
	}

	report := s.queue.Drain(ctx, s.send)
	s.metrics.DrainOutcomes.WithLabelValues("succeeded").Add(float64(report.Succeeded))
	s.metrics.DrainOutcomes.WithLabelValues("failed").Add(float64(report.Failed))
	s.metrics.QueueDepth.Set(float64(report.StillQueued))

	if report.Succeeded > 0 || report.Failed > 0 {
		s.logger.Info("offline queue sync",
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"still_queued", report.StillQueued,
		)
	}
	s.persistQueue(ctx)
	return report
}

// QueueDepth returns the number of submissions waiting in the offline queue.
func (s *Service) QueueDepth() int {
	return s.queue.Len()
}

// CheckReadiness reports whether startup (including persisted state restore)
// has completed.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("service has not finished starting up")
	}
	return nil
}

// Run executes the maintenance loop until the context is cancelled: periodic
// TTL sweeps with stale refresh, and offline queue syncs. State is restored
// from the store on entry and persisted on exit.
func (s *Service) Run(ctx context.Context) error {
	s.restore(ctx)
	s.ready.Store(true)
	s.updateGauges()

	sweepEvery := s.cacheExpiry / 2
	if sweepEvery > maxSweepInterval {
		sweepEvery = maxSweepInterval
	}
	s.logger.Info("maintenance loop started",
		"sweep_interval", sweepEvery, "sync_interval", s.syncInterval)

	sweepTicker := s.clock.NewTicker(sweepEvery)
	defer sweepTicker.Stop()
	syncTicker := s.clock.NewTicker(s.syncInterval)
	defer syncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance loop stopping", "reason", ctx.Err())
			s.persist(context.WithoutCancel(ctx))
			return nil
		case <-sweepTicker.Chan():
			s.sweep(ctx)
		case <-syncTicker.Chan():
			s.SyncOfflineQueue(ctx)
		}
	}
}

// sweep marks expired cache entries stale and refreshes them from the
// providers. Entries a provider no longer returns stay stale and are served
// as-is until evicted.
func (s *Service) sweep(ctx context.Context) {
	s.mu.Lock()
	expired := s.cache.SweepExpired()
	s.mu.Unlock()
	if expired == 0 {
		s.updateGauges()
		return
	}
	s.refreshStale(ctx, s.takePendingStale())
	s.updateGauges()
}

// refreshStale refetches around the stale facilities, one request per
// provider centered on the centroid of its stale records.
func (s *Service) refreshStale(ctx context.Context, ids []string) {
	if len(ids) == 0 || len(s.providers) == 0 {
		return
	}

	byProvider := make(map[domain.Provider][]domain.LatLon)
	for _, id := range ids {
		f, _, ok := s.cache.Get(id)
		if !ok {
			continue
		}
		byProvider[f.Provider] = append(byProvider[f.Provider], f.Location)
	}

	for _, p := range s.providers {
		points := byProvider[p.Name()]
		if len(points) == 0 {
			continue
		}
		origin, radiusKm := coverArea(points, s.defaultRadiusKm, s.maxRadiusKm)

		fetchCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
		facilities, err := p.Fetch(fetchCtx, origin, radiusKm)
		cancel()
		if err != nil {
			s.logger.Warn("stale refresh failed, serving stale data",
				"provider", p.Name(), "stale", len(points), "error", err)
			continue
		}
		s.absorb(facilities)
		s.logger.Debug("stale entries refreshed", "provider", p.Name(), "fetched", len(facilities))
	}
}

// coverArea picks a fetch origin and radius covering all points: their
// centroid, widened to reach the farthest point plus the default radius.
func coverArea(points []domain.LatLon, defaultKm, maxKm float64) (domain.LatLon, float64) {
	var c domain.LatLon
	for _, p := range points {
		c.Lat += p.Lat
		c.Lon += p.Lon
	}
	c.Lat /= float64(len(points))
	c.Lon /= float64(len(points))

	radius := defaultKm
	for _, p := range points {
		if d := domain.Haversine(c, p) + defaultKm; d > radius {
			radius = d
		}
	}
	if radius > maxKm {
		radius = maxKm
	}
	return c, radius
}

// restore reloads persisted cache contents and queued submissions.
func (s *Service) restore(ctx context.Context) {
	if s.store == nil {
		return
	}

	facilities, err := s.store.LoadFacilities(ctx)
	if err != nil {
		s.logger.Warn("restore facilities failed, starting empty", "error", err)
	} else if len(facilities) > 0 {
		s.absorb(facilities)
		s.logger.Info("restored persisted facilities", "count", len(facilities))
	}

	items, err := s.store.LoadQueue(ctx)
	if err != nil {
		s.logger.Warn("restore queue failed, starting empty", "error", err)
	} else if len(items) > 0 {
		s.queue.Restore(items)
		s.logger.Info("restored offline queue", "count", s.queue.Len())
	}
}

// persist writes the current cache and queue to the store.
func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveFacilities(ctx, s.cache.Snapshot()); err != nil {
		s.logger.Warn("persist facilities failed", "error", err)
	}
	s.persistQueue(ctx)
}

func (s *Service) persistQueue(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveQueue(ctx, s.queue.Snapshot()); err != nil {
		s.logger.Warn("persist queue failed", "error", err)
	}
}

// onEvict is the cache capacity callback: an evicted facility leaves the
// index too, unless it came from the bundled dataset.
func (s *Service) onEvict(id string) {
	s.metrics.CacheEvictions.Inc()
	if !s.bundledIDs[id] {
		s.grid.Remove(id)
	}
}

// onStale records newly stale IDs for the next refresh pass.
func (s *Service) onStale(ids []string) {
	s.metrics.CacheStaleMarked.Add(float64(len(ids)))
	s.staleMu.Lock()
	s.pendingStale = append(s.pendingStale, ids...)
	s.staleMu.Unlock()
}

func (s *Service) takePendingStale() []string {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	ids := s.pendingStale
	s.pendingStale = nil
	return ids
}

func (s *Service) updateGauges() {
	s.metrics.CacheSize.Set(float64(s.cache.Len()))
	s.metrics.IndexSize.Set(float64(s.grid.Len()))
	s.metrics.QueueDepth.Set(float64(s.queue.Len()))
}

func isQueryError(err error) bool {
	var qerr *domain.QueryError
	return errors.As(err, &qerr)
}
