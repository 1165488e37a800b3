package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopster-storefront/api/controllers"
	"github.com/angelmondragon/shopster-storefront/api/middleware"
	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/auth"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/shopster-storefront/pkg/redis"
)

// RedisStore is the slice of the Redis client the router needs directly.
type RedisStore interface {
	Ping(ctx context.Context) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Deps are the collaborators the storefront routes are built from.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	Views  *views.Renderer
	Redis  RedisStore
	// Idempotency backs replay of keyed cart adds and checkouts. Nil disables it.
	Idempotency pkgredis.IdempotencyStore
	Auth        auth.Service
	Catalog     controllers.CatalogService
	Content     controllers.ContentService
	Reviews     controllers.ReviewService
	Carts       controllers.CartStores
	Stats       controllers.StatsService
	Search      controllers.Searcher
	Sitemap     controllers.SitemapRenderer
	Metrics     *metrics.HTTPMetrics
	// Gatherer backs /metrics. Nil hides the endpoint.
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	cfg, logg, rdr := d.Config, d.Logger, d.Views

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, func(w http.ResponseWriter, r *http.Request, err error) {
			rdr.Render(w, r, http.StatusInternalServerError, "error", views.Page{
				Meta: views.Meta{Title: "Something went wrong", NoIndex: true},
				Data: map[string]any{"Status": http.StatusInternalServerError, "Message": responses.PublicMessage(err)},
			})
		}),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Redis, logg))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/sitemap.xml", controllers.Sitemap(d.Sitemap, logg))
	r.Handle("/static/*", views.Static())

	if d.Carts != nil {
		rdr.SetCartBadge(controllers.CartBadge(d.Carts))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	passwordPolicy := middleware.NewAuthRateLimitPolicy(
		"password",
		cfg.AuthRateLimit.PasswordWindow,
		cfg.AuthRateLimit.PasswordIPLimit,
		cfg.AuthRateLimit.PasswordResetLimit,
	)
	limited := func(policy middleware.AuthRateLimitPolicy, page string) func(http.Handler) http.Handler {
		return middleware.AuthRateLimit(policy, d.Redis, logg, controllers.RateLimitedForm(rdr, page))
	}

	// Everything below knows the visitor and their session.
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Visitor(cfg.Visitor, logg),
			middleware.Session(d.Auth, logg),
			middleware.Idempotency(d.Idempotency, logg),
		)

		r.Get("/", controllers.Home(d.Catalog, rdr))
		r.Get("/products", controllers.Products(d.Catalog, rdr, logg))
		r.Get("/products/{slug}", controllers.ProductDetail(d.Catalog, d.Reviews, rdr, logg))
		r.Post("/products/{slug}/reviews", controllers.ReviewCreate(d.Reviews, logg))
		r.Post("/reviews/{id}", controllers.ReviewUpdate(d.Reviews, logg))
		r.Post("/reviews/{id}/delete", controllers.ReviewDelete(d.Reviews, logg))

		r.Get("/blog", controllers.BlogIndex(d.Content, rdr))
		r.Get("/blog/{slug}", controllers.BlogPost(d.Content, rdr, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartPage(d.Carts, rdr, logg))
			r.Post("/items", controllers.CartAdd(d.Carts, logg))
			r.Post("/items/{itemID}", controllers.CartUpdate(d.Carts, logg))
			r.Post("/items/{itemID}/delete", controllers.CartRemove(d.Carts, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutPage(d.Carts, rdr, logg))
			r.Post("/", controllers.CheckoutSubmit(d.Carts, rdr, logg))
			r.Get("/success", controllers.CheckoutSuccess(rdr))
		})

		r.Get("/signin", controllers.SignInPage(rdr))
		r.With(limited(loginPolicy, "signin")).Post("/signin", controllers.SignIn(d.Auth, rdr, logg))
		r.Get("/signup", controllers.SignUpPage(rdr))
		r.With(limited(registerPolicy, "signup")).Post("/signup", controllers.SignUp(d.Auth, rdr, logg))
		r.Get("/forgot-password", controllers.ForgotPasswordPage(rdr))
		r.With(limited(passwordPolicy, "forgot_password")).Post("/forgot-password", controllers.ForgotPassword(d.Auth, rdr, logg))
		r.Get("/reset-password", controllers.ResetPasswordPage(rdr))
		r.With(limited(passwordPolicy, "reset_password")).Post("/reset-password", controllers.ResetPassword(d.Auth, rdr, logg))
		r.Post("/signout", controllers.SignOut(d.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSignIn())
			r.Get("/account", controllers.AccountPage(rdr))
			r.Post("/account", controllers.AccountUpdate(d.Auth, rdr, logg))
		})

		r.Get("/admin/stats", controllers.AdminStats(d.Stats, rdr, logg))

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.CORS(cfg.CORS))
			r.Get("/cart", controllers.CartJSON(d.Carts, logg))
			r.Post("/cart/items", controllers.CartAddJSON(d.Carts, logg))
			r.Patch("/cart/items/{itemID}", controllers.CartUpdateJSON(d.Carts, logg))
			r.Delete("/cart/items/{itemID}", controllers.CartRemoveJSON(d.Carts, logg))
			r.Get("/reviews", controllers.ReviewsJSON(d.Reviews, logg))
			r.Get("/search", controllers.SearchJSON(d.Search, logg))
		})

		r.NotFound(controllers.NotFound(rdr))
	})

	return r
}
