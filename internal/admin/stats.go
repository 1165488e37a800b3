package admin

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/internal/auth"
	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/types"
)

const (
	overviewPath = "/api/stats/overview/"

	// DashboardPath is where the statistics dashboard is served.
	DashboardPath = "/admin/stats"
	// MsgLoadFailed is rendered inline when statistics cannot be fetched.
	MsgLoadFailed = "Failed to load statistics. Please try again later."
)

// StatsQuery bounds the reporting period. Empty values are unbounded.
type StatsQuery struct {
	DateFrom string
	DateTo   string
}

// CurrencyTotal aggregates orders in one currency.
type CurrencyTotal struct {
	Currency    string      `json:"currency"`
	TotalSales  types.Money `json:"total_sales"`
	TotalOrders int         `json:"total_orders"`
}

// TopProduct is one of the best sellers for the period.
type TopProduct struct {
	ProductID     int64       `json:"product_id"`
	ProductName   string      `json:"product_name"`
	TotalQuantity int         `json:"total_quantity"`
	TotalSales    types.Money `json:"total_sales"`
}

// Overview is the sales summary for the dashboard.
type Overview struct {
	TotalOrders       int             `json:"total_orders"`
	GrossRevenue      types.Money     `json:"gross_revenue"`
	CurrencyBreakdown []CurrencyTotal `json:"currency_breakdown"`
	TopProducts       []TopProduct    `json:"top_products"`
}

// Service reads staff-only statistics.
type Service struct {
	client *backend.Client
}

// NewService builds the admin statistics service.
func NewService(client *backend.Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &Service{client: client}, nil
}

// Overview fetches the statistics overview with the staff member's access token.
func (s *Service) Overview(ctx context.Context, accessToken string, q StatsQuery) (*Overview, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token required")
	}
	values := url.Values{}
	if v := strings.TrimSpace(q.DateFrom); v != "" {
		values.Set("date_from", v)
	}
	if v := strings.TrimSpace(q.DateTo); v != "" {
		values.Set("date_to", v)
	}

	var out Overview
	if err := s.client.GetJSON(ctx, "stats.overview", overviewPath, values, accessToken, &out); err != nil {
		return nil, err
	}
	if out.CurrencyBreakdown == nil {
		out.CurrencyBreakdown = []CurrencyTotal{}
	}
	if out.TopProducts == nil {
		out.TopProducts = []TopProduct{}
	}
	return &out, nil
}

// AccessRedirect returns where a visitor must be sent instead of the dashboard, or ""
// when the session belongs to a staff member.
func AccessRedirect(sess *auth.Session) string {
	signin := "/signin?callbackUrl=" + DashboardPath
	if sess == nil || sess.AccessToken == "" || sess.NeedsSignIn() {
		return signin
	}
	if !sess.User.IsStaff {
		return "/"
	}
	return ""
}

var dateInputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatDateInput renders value as YYYY-MM-DD for a date input, or "" when it does
// not parse.
func FormatDateInput(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return ""
}
