package booking

import (
	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/booking-widget/internal/config"
)

var validate = validator.New()

// Validate checks the form buffer against the widget's field and checkbox
// configuration. It returns *ValidationError naming every failing input.
func Validate(w *config.Widget, c CustomerInfo) error {
	var problems []Problem
	for _, name := range config.FieldNames {
		field := w.FormFields[name]
		if !field.Visible {
			continue
		}
		value := c.Value(name)
		if field.Required && value == "" {
			problems = append(problems, Problem{Field: string(name), Kind: "field", Message: "is required"})
			continue
		}
		if name == config.FieldEmail && value != "" {
			if err := validate.Var(value, "email"); err != nil {
				problems = append(problems, Problem{Field: string(name), Kind: "field", Message: "is not a valid email address"})
			}
		}
	}
	for _, kind := range config.CheckboxKinds {
		box := w.Checkboxes[kind]
		if box.Visible && box.Required && !c.Accepted[kind] {
			problems = append(problems, Problem{Field: string(kind), Kind: "checkbox", Message: "must be accepted"})
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
