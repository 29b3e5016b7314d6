// Package scheduling contains the REST client for the third-party scheduling
// provider: the availability ("times") query and the two booking endpoints.
package scheduling

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Slot is a provider time slot as returned by the times endpoint.
type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime,omitempty"`
}

// TimesRequest is the body of the availability query.
type TimesRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Spots int    `json:"spots"`
}

// TimesResponse maps resource ids to their free slots.
type TimesResponse struct {
	Times map[string][]Slot `json:"times"`
}

// Customer is the client block shared by both booking endpoints. Fields the
// widget does not collect are left empty and omitted.
type Customer struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	ZipCode   string `json:"zipCode,omitempty"`
	Company   string `json:"company,omitempty"`
	Comments  string `json:"comments,omitempty"`
}

// ClientBookingRequest is posted to the primary (client) booking endpoint.
type ClientBookingRequest struct {
	Client     Customer          `json:"client"`
	CompanyID  string            `json:"companyID"`
	ServiceID  string            `json:"serviceID"`
	ResourceID string            `json:"resourceID"`
	StartTime  string            `json:"startTime"`
	Spots      int               `json:"spots"`
	MetaData   map[string]string `json:"metaData"`
}

// MerchantBookingRequest is posted to the fallback (merchant) booking endpoint.
type MerchantBookingRequest struct {
	Client         Customer          `json:"client"`
	CompanyID      string            `json:"companyID"`
	ServiceID      string            `json:"serviceID"`
	ResourceID     string            `json:"resourceID"`
	StartTime      string            `json:"startTime"`
	EndTime        string            `json:"endTime,omitempty"`
	Spots          int               `json:"spots"`
	Status         string            `json:"status"`
	RequirePayment bool              `json:"requirePayment"`
	Metadata       map[string]string `json:"metadata"`
}

// BookingOutcome is the normalized result of a successful booking call.
type BookingOutcome struct {
	BookingID  string
	Status     string
	PaymentURL string
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

type bookingEnvelope struct {
	ID         flexString `json:"id"`
	Status     string     `json:"status"`
	PaymentURL string     `json:"paymentUrl"`
}

// bookingResponse is the union of the shapes the provider has been seen to
// return. Fields are resolved in a fixed priority order by DecodeBooking.
type bookingResponse struct {
	Booking       *bookingEnvelope `json:"booking"`
	ID            flexString       `json:"id"`
	BookingID     flexString       `json:"bookingId"`
	Status        string           `json:"status"`
	BookingStatus string           `json:"bookingStatus"`
	PaymentURL    string           `json:"paymentUrl"`
	Payment       *struct {
		URL string `json:"url"`
	} `json:"payment"`
	CheckoutURL string           `json:"checkoutUrl"`
	Data        *bookingEnvelope `json:"data"`
}

// DecodeBooking extracts the booking id, status and payment URL from a
// success body. Priority for each field:
//
//	id:      booking.id, id, bookingId, data.id
//	status:  booking.status, status, bookingStatus, data.status
//	payment: booking.paymentUrl, paymentUrl, payment.url, checkoutUrl, data.paymentUrl
//
// An empty body yields an empty outcome.
func DecodeBooking(body []byte) (BookingOutcome, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return BookingOutcome{}, nil
	}
	var r bookingResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return BookingOutcome{}, err
	}
	var booking, data bookingEnvelope
	if r.Booking != nil {
		booking = *r.Booking
	}
	if r.Data != nil {
		data = *r.Data
	}
	var paymentURL string
	if r.Payment != nil {
		paymentURL = r.Payment.URL
	}
	return BookingOutcome{
		BookingID:  firstNonEmpty(string(booking.ID), string(r.ID), string(r.BookingID), string(data.ID)),
		Status:     firstNonEmpty(booking.Status, r.Status, r.BookingStatus, data.Status),
		PaymentURL: firstNonEmpty(booking.PaymentURL, r.PaymentURL, paymentURL, r.CheckoutURL, data.PaymentURL),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
