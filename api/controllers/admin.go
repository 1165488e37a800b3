package controllers

import (
	"net/http"

	"github.com/angelmondragon/shopster-storefront/api/middleware"
	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/admin"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

type statsData struct {
	Overview *admin.Overview
	DateFrom string
	DateTo   string
	Error    string
}

// AdminStats renders the sales dashboard for staff. Everyone else is redirected.
func AdminStats(svc StatsService, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if target := admin.AccessRedirect(sess); target != "" {
			responses.Redirect(w, r, target)
			return
		}

		q := r.URL.Query()
		data := statsData{
			DateFrom: admin.FormatDateInput(q.Get("date_from")),
			DateTo:   admin.FormatDateInput(q.Get("date_to")),
		}
		overview, err := svc.Overview(r.Context(), sess.AccessToken, admin.StatsQuery{DateFrom: data.DateFrom, DateTo: data.DateTo})
		if err != nil {
			responses.LogError(r.Context(), logg, err)
			data.Error = admin.MsgLoadFailed
		} else {
			data.Overview = overview
		}

		meta := views.Meta{Title: "Statistics", Path: admin.DashboardPath, NoIndex: true}
		rdr.Render(w, r, http.StatusOK, "admin_stats", newPage(w, r, meta, data))
	}
}
