package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

// Typed normalizes err into a coded error. Untyped errors become internal errors.
func Typed(err error) *pkgerrors.Error {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	return typed
}

// PublicMessage returns the message safe to show a visitor for err.
func PublicMessage(err error) string {
	typed := Typed(err)
	meta := pkgerrors.MetadataFor(typed.Code())

	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeForbidden,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeStaleResource,
		pkgerrors.CodeDependency,
		pkgerrors.CodeRateLimit:
		if m := typed.Message(); m != "" {
			return m
		}
	}
	return meta.PublicMessage
}

// StatusFor returns the HTTP status mapped to err's code.
func StatusFor(err error) int {
	return pkgerrors.MetadataFor(Typed(err).Code()).HTTPStatus
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := Typed(err)
	meta := pkgerrors.MetadataFor(typed.Code())

	payload := errorEnvelope{
		Error: apiError{
			Code:      string(typed.Code()),
			Message:   PublicMessage(typed),
			RequestID: w.Header().Get(requestIDHeader),
		},
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	LogError(ctx, logg, err)
	writeJSON(w, meta.HTTPStatus, payload)
}

// LogError writes the error chain and any upstream response details.
func LogError(ctx context.Context, logg *logger.Logger, err error) {
	if logg == nil || err == nil {
		return
	}
	dump := pkgerrors.Dump(err)

	fields := map[string]any{
		"error":       dump.TopMessage,
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
	}
	if dump.UpstreamStatus != 0 {
		fields["upstream_status"] = dump.UpstreamStatus
		fields["upstream_path"] = dump.UpstreamPath
	}

	ctx = logg.WithFields(ctx, fields)
	if Typed(err).Code() == pkgerrors.CodeInternal || Typed(err).Code() == pkgerrors.CodeDependency {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.error")
}

// Redirect sends a 303 so form posts are never replayed by a reload.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
