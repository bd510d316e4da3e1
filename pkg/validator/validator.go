package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level validator; gin's binding engine is a separate instance.
var v = validator.New()

// Struct validates s using its `validate` tags and returns a readable error.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Var validates a single value against tag, e.g. Var(email, "email").
func Var(value interface{}, tag string) error {
	return v.Var(value, tag)
}
