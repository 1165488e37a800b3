package backend

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
)

// FieldError is one message reported by the backend for a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StatusError describes a non-2xx backend response.
type StatusError struct {
	Status int
	Method string
	Route  string
	Fields []FieldError
	Detail string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	if msg := e.Messages(); msg != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Route, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Route, e.Status)
}

// StatusCode implements pkgerrors.UpstreamError.
func (e *StatusError) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// Path implements pkgerrors.UpstreamError.
func (e *StatusError) Path() string {
	if e == nil {
		return ""
	}
	return e.Route
}

// Messages joins every field message with a single space, in body order.
func (e *StatusError) Messages() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if msg := strings.TrimSpace(f.Message); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, " ")
}

// AsStatusError extracts the backend status error from a chain.
func AsStatusError(err error) *StatusError {
	var se *StatusError
	if stdErrors.As(err, &se) {
		return se
	}
	return nil
}

// HasStatus reports whether err came from a backend response with the given status.
func HasStatus(err error, status int) bool {
	se := AsStatusError(err)
	return se != nil && se.Status == status
}

// Message returns the joined backend field messages carried by err, or fallback when
// there are none.
func Message(err error, fallback string) string {
	if se := AsStatusError(err); se != nil {
		if msg := se.Messages(); msg != "" {
			return msg
		}
	}
	return fallback
}

// DetailOr returns the backend "detail" string, or fallback.
func DetailOr(err error, fallback string) string {
	if se := AsStatusError(err); se != nil && strings.TrimSpace(se.Detail) != "" {
		return se.Detail
	}
	return fallback
}

func newStatusError(method, route string, status int, body []byte) *StatusError {
	fields := ParseFieldErrors(body)
	se := &StatusError{
		Status: status,
		Method: method,
		Route:  route,
		Fields: fields,
	}
	for _, f := range fields {
		if f.Field == "detail" {
			se.Detail = f.Message
			break
		}
	}
	return se
}

// classify maps a backend status onto the storefront error taxonomy.
func classify(se *StatusError) *pkgerrors.Error {
	msg := se.Messages()
	if msg == "" {
		msg = http.StatusText(se.Status)
	}
	switch {
	case se.Status == http.StatusBadRequest || se.Status == http.StatusUnprocessableEntity:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, se, msg).WithDetails(se.Fields)
	case se.Status == http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, se, msg)
	case se.Status == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, se, msg)
	case se.Status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, se, msg)
	case se.Status == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, se, msg)
	case se.Status == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, se, msg)
	case se.Status >= 500:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, se, "backend unavailable")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, se, msg).WithDetails(se.Fields)
	}
}

// ParseFieldErrors flattens a backend error body of the form
// {"field": ["msg", ...], "detail": "msg", "nested": {"inner": ["msg"]}} into an
// ordered list. Keys keep the order they appear in the body.
func ParseFieldErrors(body []byte) []FieldError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var out []FieldError
	if err := collectFieldErrors(dec, "", &out); err != nil {
		return out
	}
	return out
}

func collectFieldErrors(dec *json.Decoder, field string, out *[]FieldError) error {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				name := key
				if field != "" {
					name = field + "." + key
				}
				if err := collectFieldErrors(dec, name, out); err != nil {
					return err
				}
			}
			_, err = dec.Token()
			return err
		case '[':
			for dec.More() {
				if err := collectFieldErrors(dec, field, out); err != nil {
					return err
				}
			}
			_, err = dec.Token()
			return err
		}
	case string:
		*out = append(*out, FieldError{Field: field, Message: v})
	case json.Number:
		*out = append(*out, FieldError{Field: field, Message: v.String()})
	case bool:
		*out = append(*out, FieldError{Field: field, Message: fmt.Sprint(v)})
	}
	return nil
}
