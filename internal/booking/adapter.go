// Package booking drives a single reservation from date selection to the
// provider's confirmation. Flow owns the user's draft; Strategy creates the
// booking against the provider's primary and fallback endpoints.
package booking

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/config"
)

// API names the provider endpoint that produced a booking.
type API string

const (
	APIPrimary  API = "primary"
	APIFallback API = "fallback"
)

// Result is returned by a successful submission.
type Result struct {
	BookingID  string
	Status     string
	PaymentURL string
	APIUsed    API
	AttemptID  string
}

// CustomerInfo is the form buffer: field values plus checkbox acceptance.
type CustomerInfo struct {
	Fields   map[config.FieldName]string
	Accepted map[config.CheckboxKind]bool
}

// NewCustomerInfo returns an empty form buffer.
func NewCustomerInfo() CustomerInfo {
	return CustomerInfo{
		Fields:   make(map[config.FieldName]string),
		Accepted: make(map[config.CheckboxKind]bool),
	}
}

// Value returns a field value trimmed of surrounding space.
func (c CustomerInfo) Value(name config.FieldName) string {
	return strings.TrimSpace(c.Fields[name])
}

// Clone copies the buffer so callers cannot mutate the draft.
func (c CustomerInfo) Clone() CustomerInfo {
	out := NewCustomerInfo()
	for k, v := range c.Fields {
		out.Fields[k] = v
	}
	for k, v := range c.Accepted {
		out.Accepted[k] = v
	}
	return out
}

// IsEmpty reports whether nothing has been entered.
func (c CustomerInfo) IsEmpty() bool {
	for _, v := range c.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	for _, v := range c.Accepted {
		if v {
			return false
		}
	}
	return true
}

// Draft is the in-progress booking.
type Draft struct {
	ServiceID string
	Date      *time.Time
	Slot      *availability.TimeSlot
	Customer  CustomerInfo
}

// Submitter creates a booking with the provider. Strategy is the production
// implementation.
type Submitter interface {
	Submit(ctx context.Context, service config.Service, slot availability.TimeSlot, customer CustomerInfo) (*Result, error)
}

// Redirect tells the presentation layer to send the user to a payment page
// after Delay. The flow never performs the redirect itself.
type Redirect struct {
	URL   string
	Delay time.Duration
}
