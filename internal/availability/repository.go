package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/booking-widget/internal/dates"
	"github.com/wolfman30/booking-widget/internal/scheduling"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

var availabilityTracer = otel.Tracer("bookingwidget.internal.availability")

// ErrSuperseded is returned when a newer fetch was dispatched before this one
// completed. Its result has been discarded.
var ErrSuperseded = errors.New("availability fetch superseded")

// FetchError wraps a failed availability query with a user-facing message.
type FetchError struct {
	ServiceID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not load availability for service %s: %v", e.ServiceID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher is the provider capability the repository needs.
type Fetcher interface {
	GetTimes(ctx context.Context, serviceID string, from, to time.Time) (*scheduling.TimesResponse, error)
}

// Recorder receives fetch outcomes. metrics.BookingMetrics implements it.
type Recorder interface {
	ObserveFetch(outcome string, seconds float64)
}

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Repository owns the availability map. A fetch commits only if no newer
// fetch was dispatched after it, so a slow stale response can never replace
// fresher data.
type Repository struct {
	fetcher  Fetcher
	logger   *logging.Logger
	recorder Recorder
	timeout  time.Duration

	mu         sync.Mutex
	generation uint64
	serviceID  string
	current    Map
	loaded     bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(repo *Repository) { repo.recorder = r }
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) Option {
	return func(repo *Repository) {
		if d > 0 {
			repo.timeout = d
		}
	}
}

// NewRepository constructs a repository over a provider client.
func NewRepository(fetcher Fetcher, logger *logging.Logger, opts ...Option) *Repository {
	if fetcher == nil {
		panic("availability: fetcher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Repository{
		fetcher: fetcher,
		logger:  logger.Component("availability"),
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SwitchService drops the current map when the service changes and
// invalidates any fetch still in flight.
func (r *Repository) SwitchService(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.switchLocked(serviceID)
	r.generation++
}

func (r *Repository) switchLocked(serviceID string) {
	if serviceID == r.serviceID {
		return
	}
	r.serviceID = serviceID
	r.current = nil
	r.loaded = false
}

// Snapshot returns the last committed map and whether any fetch has
// committed for the current service.
func (r *Repository) Snapshot() (Map, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Map{}, r.loaded
	}
	return r.current, r.loaded
}

// Slots returns the committed slots for a date.
func (r *Repository) Slots(date time.Time) []TimeSlot {
	m, _ := r.Snapshot()
	return m.Slots(dates.FormatISO(date))
}

// Fetch loads availability for serviceID over rng and commits it if this is
// still the newest fetch when it completes. A stale completion returns
// ErrSuperseded; a failed one returns *FetchError. Neither touches the map.
func (r *Repository) Fetch(ctx context.Context, serviceID string, rng Range) (Map, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookingwidget.service_id", serviceID),
		attribute.String("bookingwidget.range_start", dates.FormatISO(rng.Start)),
		attribute.String("bookingwidget.range_end", dates.FormatISO(rng.End)),
	)

	r.mu.Lock()
	r.switchLocked(serviceID)
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	m, err := r.load(fetchCtx, serviceID, rng)
	elapsed := time.Since(start).Seconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		r.observe("superseded", elapsed)
		r.logger.Debug("discarding stale availability", "service_id", serviceID, "generation", gen, "latest", r.generation)
		return nil, ErrSuperseded
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		r.observe("error", elapsed)
		r.logger.Warn("availability fetch failed", "service_id", serviceID, "error", err)
		return nil, &FetchError{ServiceID: serviceID, Err: err}
	}

	r.current = m
	r.loaded = true
	r.observe("ok", elapsed)
	r.logger.Debug("availability committed", "service_id", serviceID, "dates", len(m), "generation", gen)
	return m, nil
}

func (r *Repository) load(ctx context.Context, serviceID string, rng Range) (Map, error) {
	from := dates.StartOfDay(rng.Start)
	to := dates.EndOfDay(rng.End)
	resp, err := r.fetcher.GetTimes(ctx, serviceID, from, to)
	if err != nil {
		return nil, err
	}
	return Normalize(resp)
}

func (r *Repository) observe(outcome string, seconds float64) {
	if r.recorder == nil {
		return
	}
	r.recorder.ObserveFetch(outcome, seconds)
}
