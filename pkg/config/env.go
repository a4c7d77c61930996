package config

const (
	EnvPrefix = "SETTLEMENT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	// FallbackCommissionRate applies when no platform rate is configured.
	FallbackCommissionRate = "0.10"

	EnvAppEnv                = "SETTLEMENT_APP_ENV"
	EnvPort                  = "SETTLEMENT_APP_PORT"
	EnvDBDSN                 = "SETTLEMENT_DB_DSN"
	EnvDBHost                = "SETTLEMENT_DB_HOST"
	EnvDBUser                = "SETTLEMENT_DB_USER"
	EnvDBName                = "SETTLEMENT_DB_NAME"
	EnvRedisURL              = "SETTLEMENT_REDIS_URL"
	EnvJWTSecret             = "SETTLEMENT_JWT_SECRET"
	EnvJWTIssuer             = "SETTLEMENT_JWT_ISSUER"
	EnvStripeAPIKey          = "SETTLEMENT_STRIPE_API_KEY"
	EnvStripeEnv             = "SETTLEMENT_STRIPE_ENV"
	EnvCommissionRatePercent = "SETTLEMENT_COMMISSION_RATE_PERCENT"
	EnvCommissionRatePolicy  = "SETTLEMENT_COMMISSION_RATE_POLICY"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
