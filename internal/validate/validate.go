package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Result is the outcome of a ValidateAndSanitize call. Either Success is
// true and Data holds the sanitized input, or Success is false and
// Errors holds one "field.path: message" string per violation.
type Result[T any] struct {
	Success bool
	Data    T
	Errors  []string
}

type sanitizable interface {
	sanitize()
}

// New returns a validator configured to report field names from json
// tags, so error paths match the wire shape callers sent.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateAndSanitize runs the schema validation for input and, only when
// it passes, applies the schema's sanitize transform. Validation failures
// are returned as data, never as an error.
func ValidateAndSanitize[T any](v *validator.Validate, input T) Result[T] {
	if err := v.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldPath(fe)+": "+messageFor(fe))
			}
			return Result[T]{Errors: msgs}
		}
		return Result[T]{Errors: []string{"Validation failed"}}
	}

	if s, ok := any(&input).(sanitizable); ok {
		s.sanitize()
	}
	return Result[T]{Success: true, Data: input}
}

// fieldPath drops the leading struct name from the namespace, leaving
// the dotted field path ("name", "legs.0.startDate").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
