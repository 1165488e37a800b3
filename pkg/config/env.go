package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSiteURL = "http://localhost:3000"

	EnvAppEnv        = "STOREFRONT_APP_ENV"
	EnvPort          = "STOREFRONT_APP_PORT"
	EnvSiteURL       = "STOREFRONT_SITE_URL"
	EnvBackendURL    = "STOREFRONT_BACKEND_URL"
	EnvRedisURL      = "STOREFRONT_REDIS_URL"
	EnvVisitorSecret = "STOREFRONT_VISITOR_SECRET"
	EnvCartLockWait  = "STOREFRONT_CART_LOCK_WAIT"
	EnvAlgoliaAppID  = "STOREFRONT_ALGOLIA_APP_ID"
	EnvAlgoliaKey    = "STOREFRONT_ALGOLIA_SEARCH_API_KEY"
	EnvCORSOrigins   = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)
