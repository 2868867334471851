package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator runs struct tag validation and turns failures into Error values
// using the JSON field names clients send.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates input. Any failed "required" tag produces a Missing error
// naming all of required; other failures report the first offending field.
func (v *Validator) Struct(input any, required ...string) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			if len(required) == 0 {
				return Missing(fe.Field())
			}
			return Missing(required...)
		}
	}

	fe := fieldErrs[0]
	return Error{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return fmt.Sprintf("Invalid %s format. Use %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("Invalid %s. Must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s characters", fe.Field(), fe.Param())
	case "email":
		return "Invalid email address"
	default:
		return fmt.Sprintf("Invalid %s", fe.Field())
	}
}
