// Package validate wraps a shared go-playground validator whose error
// messages use JSON field names.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

var validate *validator.Validate

var messages = map[string]string{
	"required": "is required",
	"min":      "must have at least %s item(s)",
	"gt":       "must be greater than %s",
	"gte":      "must be at least %s",
	"oneof":    "must be one of: %s",
	"weekday":  "must be a full weekday name",
	"clock":    "must be a time of day like 08:00:00",
}

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "yaml"} {
			name := strings.Split(f.Tag.Get(tag), ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return domain.Weekday(fl.Field().String()).Valid()
	})
	RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseClock(fl.Field().String())
		return err == nil
	})
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return validate.Struct(s)
}

// RegisterValidation adds a custom tag. It is meant for package init.
func RegisterValidation(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// FirstError renders the first field error as "<field> <message>".
// Errors that did not come from validation are returned verbatim.
func FirstError(err error) string {
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	first := verrs[0]
	msg, ok := messages[first.Tag()]
	if !ok {
		msg = "is invalid"
	}
	if strings.Contains(msg, "%s") {
		msg = strings.Replace(msg, "%s", strings.Join(strings.Fields(first.Param()), ", "), 1)
	}
	return fieldPath(first) + " " + msg
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
