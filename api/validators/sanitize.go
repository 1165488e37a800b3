package validators

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/angelmondragon/shopster-storefront/pkg/validation"
)

func SanitizeString(input string, maxLen int) string {
	return validation.Truncate(strings.TrimSpace(input), maxLen)
}

// SafeRedirect keeps callback targets on this site. Anything else becomes fallback.
func SafeRedirect(target, fallback string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return fallback
	}
	if strings.ContainsRune(target, '\\') || strings.IndexFunc(target, unicode.IsControl) >= 0 {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}
