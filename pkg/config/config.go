package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Site          SiteConfig
	Backend       BackendConfig
	Redis         RedisConfig
	Visitor       VisitorConfig
	Cart          CartConfig
	Auth          AuthConfig
	AuthRateLimit AuthRateLimitConfig
	Cache         CacheConfig
	Search        SearchConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Site.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"3000"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// SiteConfig carries the public-facing identity used for SEO metadata and absolute links.
type SiteConfig struct {
	Name        string `envconfig:"STOREFRONT_SITE_NAME" default:"Shopster"`
	Description string `envconfig:"STOREFRONT_SITE_DESCRIPTION" default:"Shopster is a modular storefront: catalog, cart, orders, search and accounts."`
	URL         string `envconfig:"STOREFRONT_SITE_URL" default:"http://localhost:3000"`
	OGImage     string `envconfig:"STOREFRONT_SITE_OG_IMAGE" default:"https://dummyimage.com/1200x630/0f172a/ffffff.png&text=Shopster"`
}

// AbsoluteURL joins path onto the public site URL.
func (s SiteConfig) AbsoluteURL(path string) string {
	base := strings.TrimRight(s.URL, "/")
	if base == "" {
		base = DefaultSiteURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" || path == "/" {
		return base + "/"
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

func (s *SiteConfig) validate() error {
	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
	if s.URL == "" {
		s.URL = DefaultSiteURL
	}
	if _, err := url.Parse(s.URL); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvSiteURL, err)
	}
	return nil
}

// BackendConfig points at the REST backend that owns catalog, carts, orders and identity.
type BackendConfig struct {
	BaseURL         string        `envconfig:"STOREFRONT_BACKEND_URL" default:"http://localhost:8000"`
	Timeout         time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"10s"`
	DefaultCurrency string        `envconfig:"STOREFRONT_DEFAULT_CURRENCY" default:"RUB"`

	BreakerMaxRequests uint32        `envconfig:"STOREFRONT_BACKEND_BREAKER_MAX_REQUESTS" default:"3"`
	BreakerInterval    time.Duration `envconfig:"STOREFRONT_BACKEND_BREAKER_INTERVAL" default:"60s"`
	BreakerTimeout     time.Duration `envconfig:"STOREFRONT_BACKEND_BREAKER_TIMEOUT" default:"30s"`
	BreakerFailures    uint32        `envconfig:"STOREFRONT_BACKEND_BREAKER_FAILURES" default:"5"`
}

func (b *BackendConfig) validate() error {
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if b.BaseURL == "" {
		return fmt.Errorf("%s is required", EnvBackendURL)
	}
	parsed, err := url.Parse(b.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvBackendURL)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// VisitorConfig signs the cookie that identifies a browser across requests.
type VisitorConfig struct {
	Secret       string        `envconfig:"STOREFRONT_VISITOR_SECRET" required:"true"`
	Issuer       string        `envconfig:"STOREFRONT_VISITOR_ISSUER" default:"shopster-storefront"`
	CookieName   string        `envconfig:"STOREFRONT_VISITOR_COOKIE" default:"shopster_visitor"`
	TTL          time.Duration `envconfig:"STOREFRONT_VISITOR_TTL" default:"8760h"`
	SecureCookie bool          `envconfig:"STOREFRONT_VISITOR_SECURE_COOKIE" default:"false"`
}

type CartConfig struct {
	IDTTL    time.Duration `envconfig:"STOREFRONT_CART_ID_TTL" default:"720h"`
	LockTTL  time.Duration `envconfig:"STOREFRONT_CART_LOCK_TTL" default:"15s"`
	LockWait time.Duration `envconfig:"STOREFRONT_CART_LOCK_WAIT" default:"5s"`
}

type AuthConfig struct {
	SessionTTL    time.Duration `envconfig:"STOREFRONT_AUTH_SESSION_TTL" default:"720h"`
	RefreshLeeway time.Duration `envconfig:"STOREFRONT_AUTH_REFRESH_LEEWAY" default:"5s"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"10"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	RegisterEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"5"`
	PasswordWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_PASSWORD_WINDOW" default:"15m"`
	PasswordIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_PASSWORD_IP_LIMIT" default:"20"`
	PasswordResetLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_PASSWORD_LIMIT" default:"5"`
}

// CacheConfig holds revalidation windows for cached catalog reads.
type CacheConfig struct {
	Enabled       bool          `envconfig:"STOREFRONT_CACHE_ENABLED" default:"true"`
	ProductsTTL   time.Duration `envconfig:"STOREFRONT_CACHE_PRODUCTS_TTL" default:"60s"`
	FacetsTTL     time.Duration `envconfig:"STOREFRONT_CACHE_FACETS_TTL" default:"120s"`
	CategoriesTTL time.Duration `envconfig:"STOREFRONT_CACHE_CATEGORIES_TTL" default:"300s"`
}

type SearchConfig struct {
	AppID     string        `envconfig:"STOREFRONT_ALGOLIA_APP_ID"`
	SearchKey string        `envconfig:"STOREFRONT_ALGOLIA_SEARCH_API_KEY"`
	IndexName string        `envconfig:"STOREFRONT_ALGOLIA_INDEX_NAME" default:"shop_products"`
	Timeout   time.Duration `envconfig:"STOREFRONT_ALGOLIA_TIMEOUT" default:"5s"`
}

// Enabled reports whether both search credentials are configured.
func (s SearchConfig) Enabled() bool {
	return strings.TrimSpace(s.AppID) != "" && strings.TrimSpace(s.SearchKey) != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
