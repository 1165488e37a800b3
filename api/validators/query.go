package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// PageParam reads ?page leniently: anything unusable means the first page.
func PageParam(r *http.Request) int {
	page, err := ParseQueryInt(r, "page", 1, 1, 1<<20)
	if err != nil {
		return 1
	}
	return page
}

// ParseID parses a positive numeric path or form value.
func ParseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

// RequiredID is the error for a missing identifier field.
func RequiredID(field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": field})
}
