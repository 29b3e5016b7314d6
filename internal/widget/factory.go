package widget

import (
	"time"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/booking"
	"github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/observability/metrics"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

// Provider is the scheduling API sessions read availability from and book
// against.
type Provider interface {
	availability.Fetcher
	booking.BookingAPI
}

// FlowFactory builds the flow for a new session.
type FlowFactory func(w *config.Widget) (*booking.Flow, error)

// Dependencies are shared by every session a Handler creates.
type Dependencies struct {
	Provider     Provider
	Metrics      *metrics.BookingMetrics
	Location     *time.Location
	FetchTimeout time.Duration
	LogLevel     string
	Clock        func() time.Time
}

// NewFlow wires a repository, a submission strategy and a flow for w. Each
// session gets its own repository since availability is per visitor.
func (d Dependencies) NewFlow(w *config.Widget) (*booking.Flow, error) {
	logger := logging.NewForWidget(d.LogLevel, w.Debug)

	repoOpts := []availability.Option{availability.WithRecorder(d.Metrics)}
	if d.FetchTimeout > 0 {
		repoOpts = append(repoOpts, availability.WithTimeout(d.FetchTimeout))
	}
	repo := availability.NewRepository(d.Provider, logger, repoOpts...)
	strategy := booking.NewStrategy(d.Provider, w, logger, booking.WithSubmissionRecorder(d.Metrics))

	opts := []booking.FlowOption{
		booking.WithLocation(d.Location),
		booking.WithTransitionRecorder(d.Metrics),
		booking.WithLogger(logger),
	}
	if d.Clock != nil {
		opts = append(opts, booking.WithClock(d.Clock))
	}
	return booking.NewFlow(w, repo, strategy, opts...)
}
