package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validationMessage flattens validator errors into a single
// client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request payload"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fieldName(fe)))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", fieldName(fe), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must have at least %s items", fieldName(fe), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds the maximum of %s", fieldName(fe), fe.Param()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email address", fieldName(fe)))
		case "datetime":
			parts = append(parts, fmt.Sprintf("%s must be a date in YYYY-MM-DD form", fieldName(fe)))
		case "uuid":
			parts = append(parts, fmt.Sprintf("%s must be a UUID", fieldName(fe)))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fieldName(fe)))
		}
	}
	return strings.Join(parts, "; ")
}

func fieldName(fe validator.FieldError) string {
	// StructNamespace reads like "chatRequest.Messages[0].Role"; drop the
	// struct prefix so clients see field paths only.
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
