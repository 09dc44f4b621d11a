package config

// EnvPrefix scopes envconfig processing; individual tags carry the full name.
const EnvPrefix = "STEPSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	PaymentProviderFake   = "fake"
	PaymentProviderSquare = "square"
)

const (
	EnvDBDSN  = "STEPSHOP_DB_DSN"
	EnvDBHost = "STEPSHOP_DB_HOST"
	EnvDBUser = "STEPSHOP_DB_USER"
	EnvDBName = "STEPSHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
