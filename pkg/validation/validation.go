package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			tag := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if tag != "" && tag != "-" {
				return tag
			}
		}
		return f.Name
	})
	return v
}

// FieldMessage is one human-readable validation failure.
type FieldMessage struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Struct validates v and returns a CodeValidation error listing every failing field in
// declaration order.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return format(err)
	}
	return nil
}

func format(err error) *pkgerrors.Error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make([]FieldMessage, 0, len(errs))
	sentences := make([]string, 0, len(errs))
	for _, fe := range errs {
		msg := message(fe)
		details = append(details, FieldMessage{Field: fe.Field(), Message: msg})
		sentences = append(sentences, fmt.Sprintf("%s %s.", humanize(fe.Field()), msg))
	}
	return pkgerrors.New(pkgerrors.CodeValidation, strings.Join(sentences, " ")).WithDetails(details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
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
	case "email":
		return "must be a valid email"
	case "eqfield":
		return "does not match"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	}
	return "is invalid"
}

func humanize(field string) string {
	words := strings.ReplaceAll(field, "_", " ")
	if words == "" {
		return words
	}
	r, size := utf8.DecodeRuneInString(words)
	return strings.ToUpper(string(r)) + words[size:]
}

// Truncate trims surrounding space and caps s at maxRunes runes.
func Truncate(s string, maxRunes int) string {
	trimmed := strings.TrimSpace(s)
	if maxRunes <= 0 || utf8.RuneCountInString(trimmed) <= maxRunes {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:maxRunes])
}
