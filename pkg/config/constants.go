package config

const (
	// EnvPrefix is intentionally empty: every field carries a fully
	// qualified DOUBTDESK_* envconfig tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "DOUBTDESK_DB_DSN"
	EnvDBHost = "DOUBTDESK_DB_HOST"
	EnvDBUser = "DOUBTDESK_DB_USER"
	EnvDBName = "DOUBTDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
