package config // package config loads application configuration from environment variables

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; sub-configs group the optional infrastructure.
type Config struct {
	Env            string // application environment (dev, test, prod)
	Port           string // HTTP port to listen on
	Storage        string // memory, mysql or postgres
	DB             DBConfig
	JWTSecret      string // secret used to sign access tokens
	OperatorAPIKey string // value expected in X-Operator-Key for event creation
	AccessTTLMin   int    // access token time-to-live in minutes
	LogLevel       string // logrus level name
	LogFormat      string // text or json
	AuditLogPath   string // file the audit consumer appends to
	Broker         BrokerConfig
	RateLimit      RateLimitConfig
	Cache          CacheConfig
}

// DBConfig describes the SQL connection.  URL, when set, is used verbatim as
// the driver DSN; otherwise the DSN is assembled from the parts.
type DBConfig struct {
	URL          string
	User         string
	Pass         string
	Host         string
	Port         string
	Name         string
	MaxOpenConns int
}

// Load reads an optional .env file (path defaults to ".env") and then the
// environment.  Secrets are required only when APP_ENV is prod; elsewhere
// development defaults apply.
func Load(envFile string) Config {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warnf("could not read %s", envFile)
	}

	env := envStr("APP_ENV", "dev")
	storage := strings.ToLower(envStr("STORAGE_DRIVER", StorageMemory))
	cfg := Config{
		Env:     env,
		Port:    envStr("APP_PORT", "8080"),
		Storage: storage,
		DB: DBConfig{
			URL:          os.Getenv("DATABASE_URL"),
			User:         envStr("DB_USER", "root"),
			Pass:         os.Getenv("DB_PASS"),
			Host:         envStr("DB_HOST", "127.0.0.1"),
			Port:         envStr("DB_PORT", defaultDBPort(storage)),
			Name:         envStr("DB_NAME", "tickets"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
		},
		JWTSecret:      secret("JWT_SECRET", env, "dev-secret"),
		OperatorAPIKey: secret("OPERATOR_API_KEY", env, "dev-operator-key"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFormat:      envStr("LOG_FORMAT", "text"),
		AuditLogPath:   envStr("AUDIT_LOG_PATH", "logs/reservations.log"),
		Broker:         LoadBrokerConfig(),
		RateLimit:      LoadRateLimitConfig(),
		Cache:          LoadCacheConfig(),
	}
	if cfg.AccessTTLMin < 1 {
		cfg.AccessTTLMin = 60
	}
	return cfg
}

// IsProd reports whether the service runs with production settings.
func (c Config) IsProd() bool { return c.Env == "prod" }

func defaultDBPort(storage string) string {
	if storage == StoragePostgres {
		return "5432"
	}
	return "3306"
}

// secret returns the variable's value.  In prod a missing value is fatal;
// elsewhere def is used.
func secret(key, env, def string) string {
	v, ok := os.LookupEnv(key)
	if ok && v != "" {
		return v
	}
	if env == "prod" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return def
}
