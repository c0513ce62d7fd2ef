package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers understood by the repository factory.
const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverRedis    = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Ingest   IngestConfig
	Query    QueryConfig
	Cache    CacheConfig
	Session  SessionConfig
	Export   ExportConfig
}

// StoreConfig selects where the schedule document lives.
type StoreConfig struct {
	Driver     string
	Path       string
	SQLitePath string
	RedisKey   string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

type JWTConfig struct {
	Enabled    bool
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// IngestConfig tunes spreadsheet ingestion.
type IngestConfig struct {
	HeaderOffset      int
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

// QueryConfig tunes the teacher lookup window and page size.
type QueryConfig struct {
	WindowBefore   time.Duration
	WindowAfter    time.Duration
	CandidateYears int
	PageBudget     int
	TitlePrefixes  []string
}

// CacheConfig toggles the Redis-backed query cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SessionConfig governs conversational session expiry.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// ExportConfig holds optional assets for document exports.
type ExportConfig struct {
	PDFFontPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver:     strings.ToLower(v.GetString("STORE_DRIVER")),
		Path:       v.GetString("STORE_PATH"),
		SQLitePath: v.GetString("SQLITE_PATH"),
		RedisKey:   v.GetString("STORE_REDIS_KEY"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
		Timeout:  parseDuration(v.GetString("REDIS_TIMEOUT"), 3*time.Second),
	}

	cfg.JWT = JWTConfig{
		Enabled:    v.GetBool("AUTH_ENABLED"),
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("INGEST_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	headerOffset := v.GetInt("INGEST_HEADER_OFFSET")
	if headerOffset < 0 {
		headerOffset = 14
	}
	cfg.Ingest = IngestConfig{
		HeaderOffset:      headerOffset,
		MaxFileSizeBytes:  maxFileSize,
		AllowedExtensions: splitAndTrim(strings.ToLower(v.GetString("INGEST_ALLOWED_EXTENSIONS"))),
	}

	candidateYears := v.GetInt("QUERY_CANDIDATE_YEARS")
	if candidateYears <= 0 {
		candidateYears = 4
	}
	pageBudget := v.GetInt("QUERY_PAGE_BUDGET")
	if pageBudget <= 0 {
		pageBudget = 4096
	}
	cfg.Query = QueryConfig{
		WindowBefore:   parseDuration(v.GetString("QUERY_WINDOW_BEFORE"), 14*24*time.Hour),
		WindowAfter:    parseDuration(v.GetString("QUERY_WINDOW_AFTER"), 28*24*time.Hour),
		CandidateYears: candidateYears,
		PageBudget:     pageBudget,
		TitlePrefixes:  splitAndTrim(v.GetString("QUERY_TITLE_PREFIXES")),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_QUERY_CACHE"),
		TTL:     parseDuration(v.GetString("QUERY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Session = SessionConfig{
		TTL:           parseDuration(v.GetString("SESSION_TTL"), 30*time.Minute),
		SweepInterval: parseDuration(v.GetString("SESSION_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Export = ExportConfig{
		PDFFontPath: v.GetString("EXPORT_PDF_FONT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverFile)
	v.SetDefault("STORE_PATH", "data/schedule.json")
	v.SetDefault("SQLITE_PATH", "data/schedule.db")
	v.SetDefault("STORE_REDIS_KEY", "schedule:store")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "class_schedule")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_TIMEOUT", "3s")

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "class-schedule-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("INGEST_HEADER_OFFSET", 14)
	v.SetDefault("INGEST_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("INGEST_ALLOWED_EXTENSIONS", ".xlsx,.xlsm,.xls")

	v.SetDefault("QUERY_WINDOW_BEFORE", "336h")
	v.SetDefault("QUERY_WINDOW_AFTER", "672h")
	v.SetDefault("QUERY_CANDIDATE_YEARS", 4)
	v.SetDefault("QUERY_PAGE_BUDGET", 4096)
	v.SetDefault("QUERY_TITLE_PREFIXES", "доц.,ст.преп.,проф.,преп.,асс.")

	v.SetDefault("ENABLE_QUERY_CACHE", false)
	v.SetDefault("QUERY_CACHE_TTL", "5m")

	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1m")

	v.SetDefault("EXPORT_PDF_FONT", "")
}

// isMissingFile reports a missing .env, which viper surfaces as a path error
// rather than ConfigFileNotFoundError when SetConfigFile is used.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") ||
		strings.Contains(err.Error(), "cannot find the file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
