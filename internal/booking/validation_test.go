package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-widget/internal/config"
)

func TestValidateAcceptsCompleteForm(t *testing.T) {
	assert.NoError(t, Validate(testWidget(t), filledCustomer()))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := filledCustomer()
	c.Fields[config.FieldEmail] = "   "
	c.Fields[config.FieldLastName] = ""
	c.Accepted[config.CheckboxTerms] = false

	err := Validate(testWidget(t), c)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("email"))
	assert.True(t, verr.Has("lastName"))
	assert.True(t, verr.Has("terms"))
	assert.False(t, verr.Has("privacy"), "privacy is configured optional")
	assert.False(t, verr.Has("phone"))
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, err.Error(), "email: is required")
}

func TestValidateIgnoresHiddenRequiredFields(t *testing.T) {
	w := testWidget(t)
	w.FormFields[config.FieldCity] = config.Field{Visible: false, Required: true}
	c := filledCustomer()
	c.Fields[config.FieldCity] = ""
	assert.NoError(t, Validate(w, c))
}

func TestValidateRejectsMalformedEmail(t *testing.T) {
	for _, email := range []string{
		"ada-at-example",
		"Ada Lovelace <ADA@example.com>",
		"<ada@example.com>",
		"ada@example.com, bob@example.com",
	} {
		t.Run(email, func(t *testing.T) {
			c := filledCustomer()
			c.Fields[config.FieldEmail] = email
			err := Validate(testWidget(t), c)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Problems, 1)
			assert.Equal(t, "email", verr.Problems[0].Field)
			assert.Equal(t, "is not a valid email address", verr.Problems[0].Message)
		})
	}
}

func TestValidateAcceptsPlainAddress(t *testing.T) {
	c := filledCustomer()
	c.Fields[config.FieldEmail] = "Ada.Lovelace+booking@Example.com"
	assert.NoError(t, Validate(testWidget(t), c))
}
