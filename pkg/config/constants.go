package config

const EnvPrefix = "AROOBA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "AROOBA_APP_ENV"
	EnvPort     = "AROOBA_APP_PORT"
	EnvLogLevel = "AROOBA_LOG_LEVEL"

	EnvDBDSN  = "AROOBA_DB_DSN"
	EnvDBHost = "AROOBA_DB_HOST"
	EnvDBUser = "AROOBA_DB_USER"
	EnvDBName = "AROOBA_DB_NAME"

	EnvRedisURL = "AROOBA_REDIS_URL"

	EnvGCPProjectID             = "AROOBA_GCP_PROJECT_ID"
	EnvPubSubDomainTopic        = "AROOBA_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSubscription = "AROOBA_PUBSUB_DOMAIN_SUBSCRIPTION"

	EnvPricingVATRate            = "AROOBA_PRICING_VAT_RATE"
	EnvShippingVolumetricDivisor = "AROOBA_SHIPPING_VOLUMETRIC_DIVISOR"
	EnvShippingPlatformSubsidy   = "AROOBA_SHIPPING_PLATFORM_SUBSIDY"
	EnvEscrowHoldDays            = "AROOBA_ESCROW_HOLD_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
