package config

// EdgeLimitConfig throttles requests per client IP in front of the flow
// endpoints, independent of the per-account issuance limits.
type EdgeLimitConfig struct {
	Enabled   bool   `env:"EDGE_LIMIT_ENABLED" env-default:"true"`
	Requests  int    `env:"EDGE_LIMIT_REQUESTS" env-default:"30"`
	Window    string `env:"EDGE_LIMIT_WINDOW" env-default:"PT1M"`
	BucketTTL string `env:"EDGE_LIMIT_BUCKET_TTL" env-default:"PT1H"`
	// Only set behind a proxy that overwrites X-Forwarded-For and X-Real-IP
	TrustProxyHeaders bool `env:"EDGE_LIMIT_TRUST_PROXY_HEADERS" env-default:"false"`
}

// CodeAttemptConfig caps verification code guesses per email address
type CodeAttemptConfig struct {
	Enabled  bool   `env:"CODE_ATTEMPT_LIMIT_ENABLED" env-default:"true"`
	Attempts int    `env:"CODE_ATTEMPT_LIMIT" env-default:"5"`
	Window   string `env:"CODE_ATTEMPT_WINDOW" env-default:"PT15M"`
}

// ReaperConfig schedules deletion of expired tokens
type ReaperConfig struct {
	Enabled  bool   `env:"REAPER_ENABLED" env-default:"true"`
	Schedule string `env:"REAPER_SCHEDULE" env-default:"@hourly"`
}

// Persistence backends accepted by PERSISTENCE_TYPE
const (
	PersistencePostgres     = "postgres"
	PersistenceGormSqlite   = "gorm-sqlite"
	PersistenceGormPostgres = "gorm-postgres"
	PersistenceFile         = "file"
)

// ServiceConfig is the configuration shared by every binary of the service
type ServiceConfig struct {
	BaseUrl           string `env:"BASE_URL" env-default:"http://localhost:3000"`
	PersistenceType   string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	DataDir           string `env:"DATA_DIR" env-default:"./data"`
	SqlitePath        string `env:"SQLITE_PATH" env-default:"./data/verify.db"`
	MinPasswordLength int    `env:"MIN_PASSWORD_LENGTH" env-default:"8"`
	RunMigrations     bool   `env:"RUN_MIGRATIONS" env-default:"true"`
	DatabaseConfig    DatabaseConfig
	EmailConfig       EmailConfig
	RedisConfig       RedisConfig
	EdgeLimitConfig   EdgeLimitConfig
	CodeAttemptConfig CodeAttemptConfig
	ReaperConfig      ReaperConfig
	FlowPolicyConfig  FlowPolicyConfig
}
