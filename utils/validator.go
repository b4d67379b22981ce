package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// The same "binding" tags gin reads, so service-level validation and HTTP
// binding enforce identical constraints.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// ValidationError describes a single failed field constraint.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidateStruct runs validator tags over a struct and converts failures to
// readable field errors.
func ValidateStruct(s interface{}) []ValidationError {
	var errs []ValidationError

	if err := validate.Struct(s); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				errs = append(errs, ValidationError{
					Field:   strings.ToLower(fe.Field()[:1]) + fe.Field()[1:],
					Tag:     fe.Tag(),
					Message: validationMessage(fe),
				})
			}
		}
	}

	return errs
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
