package shared

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	domain "github.com/marketplace/orderflow/internal/domain/shared"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator, reporting fields by their JSON name
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		RegisterJSONTagNames(validate)
	})
	return validate
}

// RegisterJSONTagNames makes v report fields by JSON tag instead of Go name
func RegisterJSONTagNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// FieldError is one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Struct validates input and converts failures to an INVALID_INPUT domain error
func Struct(input interface{}) error {
	err := Validator().Struct(input)
	if err == nil {
		return nil
	}
	details := FieldErrors(err)
	if len(details) == 0 {
		return domain.NewDomainError(domain.ErrInvalidInput.Code, err.Error())
	}
	parts := make([]string, len(details))
	for i, d := range details {
		parts[i] = d.Field + ": " + d.Message
	}
	return domain.NewDomainError(domain.ErrInvalidInput.Code, strings.Join(parts, "; "))
}

// FieldErrors flattens validator errors into field/message pairs
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, FieldError{Field: e.Field(), Message: ValidationMessage(e)})
	}
	return details
}

// ValidationMessage returns a human-readable message for a field error
func ValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "url":
		return "Invalid URL format"
	default:
		return "Invalid value"
	}
}
