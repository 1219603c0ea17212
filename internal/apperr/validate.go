package apperr

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator converts a go-playground validation error into a
// ValidationError with a message a user can act on. Other errors pass
// through unchanged.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := snake(fe.Field())
	switch fe.Tag() {
	case "required":
		return Invalid(field + " is required")
	case "email":
		return Invalid(field + " must be a valid email address")
	case "min":
		return Invalid(field + " must be at least " + fe.Param() + " characters")
	case "oneof":
		return Invalid(field + " must be one of: " + fe.Param())
	default:
		return Invalid(field + " is invalid")
	}
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
