package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	GatewayIyzico = "iyzico"
	GatewayStripe = "stripe"

	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvDBDSN           = "STOREFRONT_DB_DSN"
	EnvDBHost          = "STOREFRONT_DB_HOST"
	EnvDBUser          = "STOREFRONT_DB_USER"
	EnvDBName          = "STOREFRONT_DB_NAME"
	EnvDBPassword      = "STOREFRONT_DB_PASSWORD"
	EnvGatewayProvider = "STOREFRONT_GATEWAY_PROVIDER"
	EnvGatewayTimeout  = "STOREFRONT_GATEWAY_TIMEOUT"
	EnvShippingTRYFree = "STOREFRONT_SHIPPING_TRY_FREE_THRESHOLD"
	EnvTrustedProxies  = "STOREFRONT_TRUSTED_PROXIES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
