package booking

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/scheduling"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

var bookingTracer = otel.Tracer("bookingwidget.internal.booking")

// hiddenPriceSentinel is sent as totalPrice when prices are not shown.
const hiddenPriceSentinel = "0"

// BookingAPI is the subset of the provider client the strategy calls.
type BookingAPI interface {
	OrganizationID() string
	CreateClientBooking(ctx context.Context, req scheduling.ClientBookingRequest) ([]byte, error)
	CreateMerchantBooking(ctx context.Context, req scheduling.MerchantBookingRequest) ([]byte, error)
}

// SubmissionRecorder receives the outcome of each booking attempt.
type SubmissionRecorder interface {
	ObserveSubmission(api, outcome string, seconds float64)
}

// Strategy books a slot through the primary client endpoint and falls back to
// the merchant endpoint when that fails. Neither step is retried.
type Strategy struct {
	api      BookingAPI
	widget   *config.Widget
	logger   *logging.Logger
	recorder SubmissionRecorder
	newID    func() string
}

// StrategyOption configures a Strategy.
type StrategyOption func(*Strategy)

// WithSubmissionRecorder attaches a metrics recorder.
func WithSubmissionRecorder(r SubmissionRecorder) StrategyOption {
	return func(s *Strategy) { s.recorder = r }
}

// NewStrategy constructs a submission strategy.
func NewStrategy(api BookingAPI, widget *config.Widget, logger *logging.Logger, opts ...StrategyOption) *Strategy {
	if api == nil || widget == nil {
		panic("booking: api and widget config required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Strategy{
		api:    api,
		widget: widget,
		logger: logger.Component("submission"),
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates the booking. On total failure it returns *SubmissionError
// carrying the fallback response's status and body.
func (s *Strategy) Submit(ctx context.Context, service config.Service, slot availability.TimeSlot, customer CustomerInfo) (*Result, error) {
	attemptID := s.newID()
	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookingwidget.service_id", service.ID),
		attribute.String("bookingwidget.resource_id", slot.ResourceID),
		attribute.String("bookingwidget.attempt_id", attemptID),
	)

	client := s.buildClient(customer)
	meta := s.buildMetadata(service, customer, attemptID)
	startTime := slot.Start.Format(time.RFC3339)

	primary := scheduling.ClientBookingRequest{
		Client:     client,
		CompanyID:  s.api.OrganizationID(),
		ServiceID:  service.ID,
		ResourceID: slot.ResourceID,
		StartTime:  startTime,
		Spots:      1,
		MetaData:   meta,
	}
	started := time.Now()
	body, err := s.api.CreateClientBooking(ctx, primary)
	if err == nil {
		s.observe(APIPrimary, "ok", started)
		return s.result(body, APIPrimary, "confirmed", attemptID), nil
	}
	s.observe(APIPrimary, "error", started)
	s.logger.Warn("primary booking failed, trying fallback",
		"attempt_id", attemptID,
		"service_id", service.ID,
		"error", err,
	)

	fallback := scheduling.MerchantBookingRequest{
		Client:         client,
		CompanyID:      s.api.OrganizationID(),
		ServiceID:      service.ID,
		ResourceID:     slot.ResourceID,
		StartTime:      startTime,
		EndTime:        endTime(slot, service),
		Spots:          1,
		Status:         "pending",
		RequirePayment: true,
		Metadata:       meta,
	}
	started = time.Now()
	body, err = s.api.CreateMerchantBooking(ctx, fallback)
	if err == nil {
		s.observe(APIFallback, "ok", started)
		return s.result(body, APIFallback, "pending", attemptID), nil
	}
	s.observe(APIFallback, "error", started)

	subErr := &SubmissionError{Err: err}
	var apiErr *scheduling.APIError
	if errors.As(err, &apiErr) {
		subErr.Status = apiErr.StatusCode
		subErr.Body = apiErr.Body
	}
	span.RecordError(subErr)
	span.SetStatus(codes.Error, "both booking endpoints failed")
	s.logger.Error("booking submission failed",
		"attempt_id", attemptID,
		"service_id", service.ID,
		"status", subErr.Status,
		"error", err,
	)
	return nil, subErr
}

func (s *Strategy) result(body []byte, api API, defaultStatus, attemptID string) *Result {
	outcome, err := scheduling.DecodeBooking(body)
	if err != nil {
		s.logger.Warn("booking succeeded with undecodable body", "api", string(api), "attempt_id", attemptID, "error", err)
	}
	status := outcome.Status
	if status == "" {
		status = defaultStatus
	}
	if outcome.BookingID == "" {
		s.logger.Warn("booking response carried no id", "api", string(api), "attempt_id", attemptID)
	}
	s.logger.Info("booking created",
		"api", string(api),
		"attempt_id", attemptID,
		"booking_id", outcome.BookingID,
		"has_payment_url", outcome.PaymentURL != "",
	)
	return &Result{
		BookingID:  outcome.BookingID,
		Status:     status,
		PaymentURL: outcome.PaymentURL,
		APIUsed:    api,
		AttemptID:  attemptID,
	}
}

// buildClient keeps only enabled, non-blank fields. Email is lower-cased.
func (s *Strategy) buildClient(c CustomerInfo) scheduling.Customer {
	get := func(name config.FieldName) string {
		if !s.widget.FieldEnabled(name) {
			return ""
		}
		return c.Value(name)
	}
	return scheduling.Customer{
		Email:     strings.ToLower(get(config.FieldEmail)),
		FirstName: get(config.FieldFirstName),
		LastName:  get(config.FieldLastName),
		Phone:     get(config.FieldPhone),
		Address:   get(config.FieldAddress),
		City:      get(config.FieldCity),
		ZipCode:   get(config.FieldZipCode),
		Company:   get(config.FieldCompany),
		Comments:  get(config.FieldComments),
	}
}

func (s *Strategy) buildMetadata(service config.Service, c CustomerInfo, attemptID string) map[string]string {
	total := hiddenPriceSentinel
	if s.widget.PricesShown() {
		total = strconv.FormatFloat(service.TotalPrice(), 'f', 2, 64)
	}
	meta := map[string]string{
		"totalPrice":  total,
		"serviceName": service.Name,
		"language":    s.widget.Language,
		"source":      "booking-widget",
		"attemptId":   attemptID,
	}
	if s.widget.PricesShown() {
		meta["currency"] = s.widget.Currency
	}
	if service.Duration != "" {
		meta["duration"] = service.Duration
	}
	for _, kind := range config.CheckboxKinds {
		if s.widget.Checkboxes[kind].Visible {
			meta["accepted_"+string(kind)] = strconv.FormatBool(c.Accepted[kind])
		}
	}
	return meta
}

func (s *Strategy) observe(api API, outcome string, started time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveSubmission(string(api), outcome, time.Since(started).Seconds())
}

var leadingMinutes = regexp.MustCompile(`^\s*(\d+)\s*(m|min|mins|minutes)?\s*$`)

// endTime uses the provider's end when present, else derives one from the
// service duration ("45m", "1h30m", "30 min"). Unknown durations yield "".
func endTime(slot availability.TimeSlot, service config.Service) string {
	if slot.HasEnd() {
		return slot.End.Format(time.RFC3339)
	}
	d := strings.TrimSpace(service.Duration)
	if d == "" {
		return ""
	}
	if parsed, err := time.ParseDuration(d); err == nil && parsed > 0 {
		return slot.Start.Add(parsed).Format(time.RFC3339)
	}
	if m := leadingMinutes.FindStringSubmatch(strings.ToLower(d)); m != nil {
		mins, _ := strconv.Atoi(m[1])
		if mins > 0 {
			return slot.Start.Add(time.Duration(mins) * time.Minute).Format(time.RFC3339)
		}
	}
	return ""
}
