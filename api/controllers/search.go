package controllers

import (
	"net/http"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

// SearchJSON backs the header's instant-search dropdown. A failing index degrades to
// an empty result so typing never surfaces an error.
func SearchJSON(svc Searcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			responses.LogError(r.Context(), logg, err)
		}
		responses.WriteSuccess(w, result)
	}
}
