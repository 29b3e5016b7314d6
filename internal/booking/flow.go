package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/calendar"
	"github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/dates"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

// State is a step of the booking flow.
type State int

const (
	Browsing State = iota
	DateSelected
	TimeSelected
	FormOpen
	Submitting
	Success
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case DateSelected:
		return "date_selected"
	case TimeSelected:
		return "time_selected"
	case FormOpen:
		return "form_open"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	default:
		return "unknown"
	}
}

// AvailabilitySource is the availability repository as seen by the flow.
type AvailabilitySource interface {
	Fetch(ctx context.Context, serviceID string, rng availability.Range) (availability.Map, error)
	SwitchService(serviceID string)
	Snapshot() (availability.Map, bool)
}

// TransitionRecorder is told about every state change.
type TransitionRecorder interface {
	ObserveTransition(from, to string)
}

// Flow is the booking state machine for one user. It is not safe for
// concurrent use; callers serialize events.
type Flow struct {
	widget    *config.Widget
	source    AvailabilitySource
	submitter Submitter
	logger    *logging.Logger
	recorder  TransitionRecorder
	lock      *ScrollLock
	now       func() time.Time
	loc       *time.Location

	state     State
	serviceID string
	anchor    time.Time
	draft     Draft
	result    *Result
	redirect  *Redirect
	lastErr   error

	formLease   func()
	noticeLease func()
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) { f.now = now }
}

// WithLocation sets the calendar's time zone.
func WithLocation(loc *time.Location) FlowOption {
	return func(f *Flow) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// WithScrollLock shares a page-wide scroll lock with other overlays.
func WithScrollLock(l *ScrollLock) FlowOption {
	return func(f *Flow) { f.lock = l }
}

// WithTransitionRecorder attaches a metrics recorder.
func WithTransitionRecorder(r TransitionRecorder) FlowOption {
	return func(f *Flow) { f.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) FlowOption {
	return func(f *Flow) { f.logger = l }
}

// NewFlow builds a flow in Browsing on the first enabled service. It fails
// with *config.NoActiveServicesError when nothing can be booked.
func NewFlow(widget *config.Widget, source AvailabilitySource, submitter Submitter, opts ...FlowOption) (*Flow, error) {
	services, err := widget.ActiveServices()
	if err != nil {
		return nil, err
	}
	f := &Flow{
		widget:    widget,
		source:    source,
		submitter: submitter,
		now:       time.Now,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.Default()
	}
	f.logger = f.logger.Component("flow")
	if f.lock == nil {
		f.lock = NewScrollLock(nil)
	}
	f.serviceID = services[0].ID
	f.anchor = calendar.Anchor(widget.Mode(), f.today())
	f.resetDraft()
	source.SwitchService(f.serviceID)
	return f, nil
}

func (f *Flow) today() time.Time {
	return f.now().In(f.loc)
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// ServiceID returns the selected service.
func (f *Flow) ServiceID() string { return f.serviceID }

// Location returns the calendar's time zone.
func (f *Flow) Location() *time.Location { return f.loc }

// Anchor returns the month or week the calendar shows.
func (f *Flow) Anchor() time.Time { return f.anchor }

// Err returns the last fetch or submission error shown to the user.
func (f *Flow) Err() error { return f.lastErr }

// Result returns the booking result while in Success.
func (f *Flow) Result() *Result { return f.result }

// Redirect returns the pending payment redirect, if any.
func (f *Flow) Redirect() *Redirect { return f.redirect }

// ScrollLocked reports whether an overlay is holding the scroll lock.
func (f *Flow) ScrollLocked() bool { return f.lock.Locked() }

// Draft returns a copy of the draft.
func (f *Flow) Draft() Draft {
	d := f.draft
	d.Customer = f.draft.Customer.Clone()
	return d
}

// Grid builds the calendar for the current anchor from committed
// availability.
func (f *Flow) Grid() []calendar.Cell {
	snap, _ := f.source.Snapshot()
	return calendar.BuildGrid(f.widget.Mode(), f.anchor, snap, f.today())
}

// Slots returns the time slots for the selected date.
func (f *Flow) Slots() []availability.TimeSlot {
	if f.draft.Date == nil {
		return nil
	}
	snap, _ := f.source.Snapshot()
	return snap.Slots(dates.FormatISO(*f.draft.Date))
}

// Start loads availability for the initial service and view.
func (f *Flow) Start(ctx context.Context) error {
	return f.fetch(ctx)
}

// Refresh reloads the current view. It is the retry path after a fetch
// error.
func (f *Flow) Refresh(ctx context.Context) error {
	if !f.in(Browsing, DateSelected, TimeSelected) {
		return f.reject("refresh")
	}
	return f.fetch(ctx)
}

// SelectService switches the bookable service. Only allowed while browsing;
// the previous service's availability is cleared before the fetch starts.
func (f *Flow) SelectService(ctx context.Context, serviceID string) error {
	if !f.in(Browsing) {
		return f.reject("select_service")
	}
	if _, ok := f.widget.Service(serviceID); !ok {
		return ErrUnknownService
	}
	if serviceID == f.serviceID {
		return nil
	}
	f.serviceID = serviceID
	f.draft.ServiceID = serviceID
	f.source.SwitchService(serviceID)
	return f.fetch(ctx)
}

// MaxNavigateSteps bounds a single Navigate call in either direction.
const MaxNavigateSteps = 24

// Navigate moves the calendar by delta months or weeks and refetches.
func (f *Flow) Navigate(ctx context.Context, delta int) error {
	if !f.in(Browsing) {
		return f.reject("navigate")
	}
	if delta > MaxNavigateSteps || delta < -MaxNavigateSteps {
		return fmt.Errorf("%w: %d", ErrNavigateTooFar, delta)
	}
	f.anchor = calendar.Shift(f.widget.Mode(), f.anchor, delta)
	return f.fetch(ctx)
}

// SelectDate picks a calendar date. The date must be selectable; any
// previously chosen slot is cleared.
func (f *Flow) SelectDate(date time.Time) error {
	if !f.in(Browsing, DateSelected, TimeSelected) {
		return f.reject("select_date")
	}
	date = dates.StartOfDay(date.In(f.loc))
	snap, _ := f.source.Snapshot()
	if !calendar.CellFor(date, snap, f.today()).IsSelectable {
		return ErrNotSelectable
	}
	f.draft.Date = &date
	f.draft.Slot = nil
	f.transition(DateSelected)
	return nil
}

// SelectTimeSlot picks one of the selected date's slots.
func (f *Flow) SelectTimeSlot(slot availability.TimeSlot) error {
	if !f.in(DateSelected, TimeSelected) {
		return f.reject("select_time_slot")
	}
	for _, s := range f.Slots() {
		if s.Equal(slot) {
			chosen := s
			f.draft.Slot = &chosen
			f.transition(TimeSelected)
			return nil
		}
	}
	return ErrUnknownSlot
}

// OpenForm shows the customer form with an empty buffer.
func (f *Flow) OpenForm() error {
	if !f.in(TimeSelected) {
		return f.reject("open_form")
	}
	f.draft.Customer = NewCustomerInfo()
	f.lastErr = nil
	f.formLease = f.lock.Acquire()
	f.transition(FormOpen)
	return nil
}

// SetField writes a form field.
func (f *Flow) SetField(name config.FieldName, value string) error {
	if !f.in(FormOpen) {
		return f.reject("set_field")
	}
	if !f.widget.FieldEnabled(name) {
		return ErrFieldDisabled
	}
	f.draft.Customer.Fields[name] = value
	return nil
}

// SetCheckbox records acceptance of a checkbox.
func (f *Flow) SetCheckbox(kind config.CheckboxKind, accepted bool) error {
	if !f.in(FormOpen) {
		return f.reject("set_checkbox")
	}
	if !f.widget.Checkboxes[kind].Visible {
		return ErrFieldDisabled
	}
	f.draft.Customer.Accepted[kind] = accepted
	return nil
}

// Back closes the form and returns to the time picker for the same date.
func (f *Flow) Back() error {
	if !f.in(FormOpen) {
		return f.reject("back")
	}
	f.releaseForm()
	f.draft.Slot = nil
	f.lastErr = nil
	f.transition(DateSelected)
	return nil
}

// Submit validates the form and books the slot. Validation failures leave
// the flow in FormOpen without any network call. A failed booking returns
// to FormOpen with the draft intact so the user can retry.
func (f *Flow) Submit(ctx context.Context) error {
	if !f.in(FormOpen) {
		return f.reject("submit")
	}
	if err := Validate(f.widget, f.draft.Customer); err != nil {
		f.logger.Debug("submission blocked by validation", "error", err)
		return err
	}
	service, ok := f.widget.Service(f.serviceID)
	if !ok {
		return ErrUnknownService
	}

	f.transition(Submitting)
	result, err := f.submitter.Submit(ctx, service, *f.draft.Slot, f.draft.Customer.Clone())
	if err != nil {
		var subErr *SubmissionError
		if !errors.As(err, &subErr) {
			err = &SubmissionError{Err: err}
		}
		f.lastErr = err
		f.transition(FormOpen)
		return err
	}

	f.releaseForm()
	f.result = result
	f.lastErr = nil
	if result.PaymentURL != "" {
		f.redirect = &Redirect{URL: result.PaymentURL, Delay: f.widget.Delay()}
	}
	f.noticeLease = f.lock.Acquire()
	f.resetDraft()
	f.transition(Success)
	return nil
}

// Dismiss closes the success notice and returns to browsing.
func (f *Flow) Dismiss() error {
	if !f.in(Success) {
		return f.reject("dismiss")
	}
	f.releaseNotice()
	f.result = nil
	f.redirect = nil
	f.transition(Browsing)
	return nil
}

// Cancel abandons the draft from any step before submission.
func (f *Flow) Cancel() error {
	if f.in(Submitting, Success) {
		return f.reject("cancel")
	}
	f.releaseForm()
	f.resetDraft()
	f.lastErr = nil
	f.transition(Browsing)
	return nil
}

func (f *Flow) fetch(ctx context.Context) error {
	rng := calendar.RangeFor(f.widget.Mode(), f.anchor)
	_, err := f.source.Fetch(ctx, f.serviceID, rng)
	if errors.Is(err, availability.ErrSuperseded) {
		return nil
	}
	f.lastErr = err
	return err
}

func (f *Flow) resetDraft() {
	f.draft = Draft{ServiceID: f.serviceID, Customer: NewCustomerInfo()}
}

func (f *Flow) releaseForm() {
	if f.formLease != nil {
		f.formLease()
		f.formLease = nil
	}
}

func (f *Flow) releaseNotice() {
	if f.noticeLease != nil {
		f.noticeLease()
		f.noticeLease = nil
	}
}

func (f *Flow) in(states ...State) bool {
	for _, s := range states {
		if f.state == s {
			return true
		}
	}
	return false
}

func (f *Flow) reject(event string) error {
	return &TransitionError{Event: event, State: f.state}
}

func (f *Flow) transition(to State) {
	from := f.state
	f.state = to
	if from == to {
		return
	}
	f.logger.Debug("booking flow transition", "from", from.String(), "to", to.String())
	if f.recorder != nil {
		f.recorder.ObserveTransition(from.String(), to.String())
	}
}
