package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/booking-widget/internal/calendar"
	"github.com/wolfman30/booking-widget/internal/locale"
)

// DefaultRedirectDelay is how long the success notice shows before the
// payment redirect fires.
const DefaultRedirectDelay = 3 * time.Second

// FieldName identifies a customer form field.
type FieldName string

const (
	FieldFirstName FieldName = "firstName"
	FieldLastName  FieldName = "lastName"
	FieldEmail     FieldName = "email"
	FieldPhone     FieldName = "phone"
	FieldAddress   FieldName = "address"
	FieldCity      FieldName = "city"
	FieldZipCode   FieldName = "zipCode"
	FieldCompany   FieldName = "company"
	FieldComments  FieldName = "comments"
)

// FieldNames lists the form fields in display order.
var FieldNames = []FieldName{
	FieldFirstName, FieldLastName, FieldEmail, FieldPhone,
	FieldAddress, FieldCity, FieldZipCode, FieldCompany, FieldComments,
}

// CheckboxKind identifies a consent checkbox.
type CheckboxKind string

const (
	CheckboxTerms      CheckboxKind = "terms"
	CheckboxPrivacy    CheckboxKind = "privacy"
	CheckboxNewsletter CheckboxKind = "newsletter"
)

// CheckboxKinds lists the checkboxes in display order.
var CheckboxKinds = []CheckboxKind{CheckboxTerms, CheckboxPrivacy, CheckboxNewsletter}

// Service is a bookable offering.
type Service struct {
	ID          string  `json:"id" validate:"required"`
	Enabled     bool    `json:"enabled"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	BasePrice   float64 `json:"basePrice" validate:"gte=0"`
	APAPrice    float64 `json:"apaPrice" validate:"gte=0"`
}

// TotalPrice is the base price plus the APA component.
func (s Service) TotalPrice() float64 {
	return s.BasePrice + s.APAPrice
}

// Field controls one form field. A field that is not visible is never
// required and never sent.
type Field struct {
	Visible  bool   `json:"visible"`
	Required bool   `json:"required"`
	Label    string `json:"label,omitempty"`
}

// Checkbox controls one consent checkbox.
type Checkbox struct {
	Visible  bool   `json:"visible"`
	Required bool   `json:"required"`
	Label    string `json:"label,omitempty"`
	LinkURL  string `json:"linkUrl,omitempty" validate:"omitempty,url"`
}

// URLs are the external links the widget uses.
type URLs struct {
	Terms   string `json:"terms,omitempty" validate:"omitempty,url"`
	Privacy string `json:"privacy,omitempty" validate:"omitempty,url"`
	Success string `json:"success,omitempty" validate:"omitempty,url"`
	Cancel  string `json:"cancel,omitempty" validate:"omitempty,url"`
}

// Duration decodes "3s"-style strings or a number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds")
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Widget is the embedder-supplied configuration. Call Normalize once after
// decoding; the rest of the code assumes a normalized value.
type Widget struct {
	Services       []Service                 `json:"services" validate:"dive"`
	FormFields     map[FieldName]Field       `json:"formFields,omitempty"`
	Checkboxes     map[CheckboxKind]Checkbox `json:"checkboxes,omitempty"`
	ViewMode       string                    `json:"viewMode,omitempty"`
	Language       string                    `json:"language,omitempty"`
	CustomMonths   []string                  `json:"customMonths,omitempty"`
	CustomWeekdays []string                  `json:"customWeekdays,omitempty"`
	ShowPrices     *bool                     `json:"showPrices,omitempty"`
	Currency       string                    `json:"currency,omitempty" validate:"omitempty,len=3"`
	RedirectDelay  *Duration                 `json:"redirectDelay,omitempty"`
	URLs           URLs                      `json:"urls"`
	Debug          bool                      `json:"debug,omitempty"`

	mode calendar.ViewMode
	pack locale.Pack
}

// NoActiveServicesError means no service is enabled, so the booking flow
// cannot render.
type NoActiveServicesError struct {
	Configured int
}

func (e *NoActiveServicesError) Error() string {
	return fmt.Sprintf("no active services: %d configured, none enabled", e.Configured)
}

var validate = validator.New()

// DefaultFields returns the form layout used when the embedder does not
// configure a field.
func DefaultFields() map[FieldName]Field {
	return map[FieldName]Field{
		FieldFirstName: {Visible: true, Required: true, Label: "First name"},
		FieldLastName:  {Visible: true, Required: true, Label: "Last name"},
		FieldEmail:     {Visible: true, Required: true, Label: "Email"},
		FieldPhone:     {Visible: true, Required: false, Label: "Phone"},
		FieldAddress:   {Label: "Address"},
		FieldCity:      {Label: "City"},
		FieldZipCode:   {Label: "ZIP code"},
		FieldCompany:   {Label: "Company"},
		FieldComments:  {Visible: true, Label: "Comments"},
	}
}

// DefaultCheckboxes returns the consent layout used when the embedder does
// not configure a checkbox.
func DefaultCheckboxes() map[CheckboxKind]Checkbox {
	return map[CheckboxKind]Checkbox{
		CheckboxTerms:      {Visible: true, Required: true, Label: "I accept the terms and conditions"},
		CheckboxPrivacy:    {Visible: true, Required: true, Label: "I accept the privacy policy"},
		CheckboxNewsletter: {Label: "Subscribe to the newsletter"},
	}
}

// ParseWidget decodes and normalizes a widget config.
func ParseWidget(data []byte) (*Widget, error) {
	var w Widget
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("config: decode widget: %w", err)
	}
	if err := w.Normalize(); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadWidget reads a widget config file.
func LoadWidget(path string) (*Widget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read widget file: %w", err)
	}
	return ParseWidget(data)
}

// Normalize fills defaults, validates the result and resolves the language
// pack and view mode.
func (w *Widget) Normalize() error {
	if err := validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid widget: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid widget: %w", err)
	}

	seen := make(map[string]struct{}, len(w.Services))
	for _, s := range w.Services {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("config: duplicate service id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	fields := DefaultFields()
	for name, f := range w.FormFields {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("config: unknown form field %q", name)
		}
		if f.Label == "" {
			f.Label = fields[name].Label
		}
		fields[name] = f
	}
	for name, f := range fields {
		f.Required = f.Required && f.Visible
		fields[name] = f
	}
	w.FormFields = fields

	boxes := DefaultCheckboxes()
	for kind, c := range w.Checkboxes {
		if _, ok := boxes[kind]; !ok {
			return fmt.Errorf("config: unknown checkbox %q", kind)
		}
		if c.Label == "" {
			c.Label = boxes[kind].Label
		}
		boxes[kind] = c
	}
	for kind, c := range boxes {
		c.Required = c.Required && c.Visible
		if c.LinkURL == "" {
			switch kind {
			case CheckboxTerms:
				c.LinkURL = w.URLs.Terms
			case CheckboxPrivacy:
				c.LinkURL = w.URLs.Privacy
			}
		}
		boxes[kind] = c
	}
	w.Checkboxes = boxes

	mode, err := calendar.ParseViewMode(w.ViewMode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	w.mode = mode
	w.ViewMode = string(mode)

	pack, err := locale.Resolve(w.Language, w.CustomMonths, w.CustomWeekdays)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	w.pack = pack
	w.Language = string(pack.Language)

	if w.ShowPrices == nil {
		show := true
		w.ShowPrices = &show
	}
	if w.Currency == "" {
		w.Currency = "EUR"
	}
	if w.RedirectDelay == nil || *w.RedirectDelay < 0 {
		d := Duration(DefaultRedirectDelay)
		w.RedirectDelay = &d
	}
	return nil
}

// Mode returns the calendar view mode.
func (w *Widget) Mode() calendar.ViewMode {
	return w.mode
}

// Locale returns the resolved language pack.
func (w *Widget) Locale() locale.Pack {
	return w.pack
}

// PricesShown reports whether prices are displayed and sent as metadata.
func (w *Widget) PricesShown() bool {
	return w.ShowPrices == nil || *w.ShowPrices
}

// Delay returns the payment redirect delay.
func (w *Widget) Delay() time.Duration {
	if w.RedirectDelay == nil {
		return DefaultRedirectDelay
	}
	return time.Duration(*w.RedirectDelay)
}

// ActiveServices returns the enabled services in configured order.
func (w *Widget) ActiveServices() ([]Service, error) {
	var out []Service
	for _, s := range w.Services {
		if s.Enabled {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, &NoActiveServicesError{Configured: len(w.Services)}
	}
	return out, nil
}

// Service looks up an enabled service by id.
func (w *Widget) Service(id string) (Service, bool) {
	for _, s := range w.Services {
		if s.ID == id && s.Enabled {
			return s, true
		}
	}
	return Service{}, false
}

// FieldEnabled reports whether a form field is shown.
func (w *Widget) FieldEnabled(name FieldName) bool {
	return w.FormFields[name].Visible
}
