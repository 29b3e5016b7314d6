package booking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-widget/internal/config"
)

const testWidgetJSON = `{
  "services": [
    {"id": "svc-1", "enabled": true, "name": "Consultation", "duration": "30 min", "basePrice": 40, "apaPrice": 5},
    {"id": "svc-2", "enabled": true, "name": "Therapy", "duration": "1h", "basePrice": 60},
    {"id": "svc-off", "enabled": false, "name": "Retired"}
  ],
  "formFields": {
    "phone": {"visible": true, "required": false},
    "company": {"visible": true},
    "city": {"visible": false}
  },
  "checkboxes": {
    "privacy": {"visible": true, "required": false},
    "newsletter": {"visible": true}
  },
  "redirectDelay": "2s"
}`

func testWidget(t *testing.T) *config.Widget {
	t.Helper()
	w, err := config.ParseWidget([]byte(testWidgetJSON))
	require.NoError(t, err)
	return w
}

func filledCustomer() CustomerInfo {
	c := NewCustomerInfo()
	c.Fields[config.FieldFirstName] = " Ada "
	c.Fields[config.FieldLastName] = "Lovelace"
	c.Fields[config.FieldEmail] = "  Ada@Example.COM "
	c.Fields[config.FieldPhone] = "+34 600 000 000"
	c.Fields[config.FieldCompany] = "   "
	c.Fields[config.FieldCity] = "London"
	c.Accepted[config.CheckboxTerms] = true
	return c
}
