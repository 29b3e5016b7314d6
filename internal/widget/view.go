package widget

import (
	"errors"
	"time"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/booking"
	"github.com/wolfman30/booking-widget/internal/calendar"
	"github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/dates"
)

const redirectMessage = "Redirecting to payment..."

// View is everything the presentation shell needs to render a session.
type View struct {
	SessionID    string        `json:"sessionId"`
	State        string        `json:"state"`
	ServiceID    string        `json:"serviceId"`
	Services     []ServiceView `json:"services"`
	ViewMode     string        `json:"viewMode"`
	Anchor       string        `json:"anchor"`
	Title        string        `json:"title"`
	Weekdays     []string      `json:"weekdays"`
	Cells        []CellView    `json:"cells"`
	SelectedDate string        `json:"selectedDate,omitempty"`
	SelectedSlot *SlotView     `json:"selectedSlot,omitempty"`
	Periods      []PeriodView  `json:"periods,omitempty"`
	Form         *FormView     `json:"form,omitempty"`
	Result       *ResultView   `json:"result,omitempty"`
	Redirect     *RedirectView `json:"redirect,omitempty"`
	Error        *ErrorView    `json:"error,omitempty"`
	ScrollLocked bool          `json:"scrollLocked"`
}

type ServiceView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
}

type CellView struct {
	Date       string `json:"date,omitempty"`
	Day        int    `json:"day,omitempty"`
	Padding    bool   `json:"padding"`
	Available  bool   `json:"available"`
	Today      bool   `json:"today"`
	Past       bool   `json:"past"`
	Selectable bool   `json:"selectable"`
}

type SlotView struct {
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime,omitempty"`
	ResourceID string `json:"resourceId"`
	Label      string `json:"label"`
}

type PeriodView struct {
	Period string     `json:"period"`
	Slots  []SlotView `json:"slots"`
}

type FieldView struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Value    string `json:"value"`
}

type CheckboxView struct {
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	LinkURL  string `json:"linkUrl,omitempty"`
	Accepted bool   `json:"accepted"`
}

type FormView struct {
	Fields     []FieldView    `json:"fields"`
	Checkboxes []CheckboxView `json:"checkboxes"`
	Submitting bool           `json:"submitting"`
}

type ResultView struct {
	BookingID  string `json:"bookingId"`
	Status     string `json:"status"`
	PaymentURL string `json:"paymentUrl,omitempty"`
	APIUsed    string `json:"apiUsed"`
}

type RedirectView struct {
	URL     string `json:"url"`
	DelayMs int64  `json:"delayMs"`
	Message string `json:"message"`
}

type ErrorView struct {
	Kind     string            `json:"kind"`
	Message  string            `json:"message"`
	Status   int               `json:"status,omitempty"`
	Problems []booking.Problem `json:"problems,omitempty"`
}

// buildView renders the session. actionErr is the error of the event just
// handled; when nil the flow's last fetch or submission error is shown.
func buildView(s *Session, actionErr error) View {
	f, w := s.Flow, s.Widget
	pack := w.Locale()
	mode := w.Mode()

	v := View{
		SessionID:    s.ID,
		State:        f.State().String(),
		ServiceID:    f.ServiceID(),
		ViewMode:     string(mode),
		Anchor:       dates.FormatISO(f.Anchor()),
		Title:        calendar.Title(mode, f.Anchor(), pack),
		Weekdays:     calendar.WeekdayHeaders(pack),
		ScrollLocked: f.ScrollLocked(),
	}

	services, _ := w.ActiveServices()
	for _, svc := range services {
		sv := ServiceView{ID: svc.ID, Name: svc.Name, Description: svc.Description, Duration: svc.Duration}
		if w.PricesShown() {
			price := svc.TotalPrice()
			sv.Price = &price
			sv.Currency = w.Currency
		}
		v.Services = append(v.Services, sv)
	}

	for _, c := range f.Grid() {
		cv := CellView{Padding: c.IsPadding(), Available: c.IsAvailable, Today: c.IsToday, Past: c.IsPast, Selectable: c.IsSelectable}
		if c.Date != nil {
			cv.Date = c.Key()
			cv.Day = c.Date.Day()
		}
		v.Cells = append(v.Cells, cv)
	}

	draft := f.Draft()
	if draft.Date != nil {
		v.SelectedDate = dates.FormatISO(*draft.Date)
		for _, g := range calendar.GroupByPeriod(f.Slots()) {
			pv := PeriodView{Period: string(g.Period)}
			for _, slot := range g.Slots {
				pv.Slots = append(pv.Slots, slotView(slot))
			}
			v.Periods = append(v.Periods, pv)
		}
	}
	if draft.Slot != nil {
		sv := slotView(*draft.Slot)
		v.SelectedSlot = &sv
	}

	if state := f.State(); state == booking.FormOpen || state == booking.Submitting {
		v.Form = formView(w, draft.Customer, state == booking.Submitting)
	}

	if res := f.Result(); res != nil {
		v.Result = &ResultView{BookingID: res.BookingID, Status: res.Status, PaymentURL: res.PaymentURL, APIUsed: string(res.APIUsed)}
	}
	if rd := f.Redirect(); rd != nil {
		v.Redirect = &RedirectView{URL: rd.URL, DelayMs: rd.Delay.Milliseconds(), Message: redirectMessage}
	}

	err := actionErr
	if err == nil {
		err = f.Err()
	}
	if err != nil {
		v.Error = errorView(err)
	}
	return v
}

func slotView(s availability.TimeSlot) SlotView {
	sv := SlotView{StartTime: s.Start.Format(time.RFC3339), ResourceID: s.ResourceID, Label: dates.FormatClock(s.Start)}
	if s.HasEnd() {
		sv.EndTime = s.End.Format(time.RFC3339)
	}
	return sv
}

func formView(w *config.Widget, c booking.CustomerInfo, submitting bool) *FormView {
	fv := &FormView{Submitting: submitting}
	for _, name := range config.FieldNames {
		field := w.FormFields[name]
		if !field.Visible {
			continue
		}
		fv.Fields = append(fv.Fields, FieldView{Name: string(name), Label: field.Label, Required: field.Required, Value: c.Fields[name]})
	}
	for _, kind := range config.CheckboxKinds {
		box := w.Checkboxes[kind]
		if !box.Visible {
			continue
		}
		fv.Checkboxes = append(fv.Checkboxes, CheckboxView{Kind: string(kind), Label: box.Label, Required: box.Required, LinkURL: box.LinkURL, Accepted: c.Accepted[kind]})
	}
	return fv
}

func errorView(err error) *ErrorView {
	var (
		verr     *booking.ValidationError
		subErr   *booking.SubmissionError
		fetchErr *availability.FetchError
	)
	switch {
	case errors.As(err, &verr):
		return &ErrorView{Kind: "validation", Message: "Please complete the required fields.", Problems: verr.Problems}
	case errors.As(err, &subErr):
		return &ErrorView{Kind: "submission", Message: subErr.Error(), Status: subErr.Status}
	case errors.As(err, &fetchErr):
		return &ErrorView{Kind: "availability", Message: fetchErr.Error()}
	case errors.Is(err, booking.ErrInvalidTransition):
		return &ErrorView{Kind: "transition", Message: err.Error()}
	default:
		return &ErrorView{Kind: "request", Message: err.Error()}
	}
}
