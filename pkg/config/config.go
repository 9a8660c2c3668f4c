package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Scheduler SchedulerConfig
	Events    EventsConfig
	Websocket WebsocketConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles read-through caching of generated slot grids.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
}

// GridCell addresses one (weekday, window index) cell of the weekly slot grid.
type GridCell struct {
	Day    int
	Window int
}

// SchedulerConfig tunes the slot generator.
type SchedulerConfig struct {
	BlockedCells    []GridCell
	SubjectLimit    int
	DefaultMaxHours int
}

// EventsConfig sizes the in-process timetable event dispatcher.
type EventsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

type WebsocketConfig struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	blocked, err := ParseGridCells(v.GetString("SCHEDULER_BLOCKED_CELLS"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_BLOCKED_CELLS: %w", err)
	}
	cfg.Scheduler = SchedulerConfig{
		BlockedCells:    blocked,
		SubjectLimit:    v.GetInt("SCHEDULER_SUBJECT_LIMIT"),
		DefaultMaxHours: v.GetInt("SCHEDULER_DEFAULT_MAX_HOURS"),
	}

	cfg.Events = EventsConfig{
		Workers:    v.GetInt("EVENTS_WORKERS"),
		BufferSize: v.GetInt("EVENTS_BUFFER"),
		MaxRetries: v.GetInt("EVENTS_MAX_RETRIES"),
	}

	wsOrigins := splitAndTrim(v.GetString("WS_ALLOWED_ORIGINS"))
	if len(wsOrigins) == 0 {
		wsOrigins = cfg.CORS.AllowedOrigins
	}
	cfg.Websocket = WebsocketConfig{
		AllowedOrigins: wsOrigins,
		PingInterval:   parseDuration(v.GetString("WS_PING_INTERVAL"), 30*time.Second),
		WriteTimeout:   parseDuration(v.GetString("WS_WRITE_TIMEOUT"), 10*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "edu_schedule")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("MIGRATE_ON_START", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("SCHEDULER_BLOCKED_CELLS", "1:3,3:4")
	v.SetDefault("SCHEDULER_SUBJECT_LIMIT", 6)
	v.SetDefault("SCHEDULER_DEFAULT_MAX_HOURS", 40)

	v.SetDefault("EVENTS_WORKERS", 2)
	v.SetDefault("EVENTS_BUFFER", 256)
	v.SetDefault("EVENTS_MAX_RETRIES", 0)

	v.SetDefault("WS_ALLOWED_ORIGINS", "")
	v.SetDefault("WS_PING_INTERVAL", "30s")
	v.SetDefault("WS_WRITE_TIMEOUT", "10s")
}

// ParseGridCells parses "day:window" pairs separated by commas, e.g. "1:3,3:4".
// An empty string yields no cells.
func ParseGridCells(raw string) ([]GridCell, error) {
	parts := splitAndTrim(raw)
	cells := make([]GridCell, 0, len(parts))
	for _, part := range parts {
		pieces := strings.Split(part, ":")
		if len(pieces) != 2 {
			return nil, fmt.Errorf("invalid cell %q, want day:window", part)
		}
		day, err := strconv.Atoi(strings.TrimSpace(pieces[0]))
		if err != nil || day < 0 || day > 6 {
			return nil, fmt.Errorf("invalid day in cell %q", part)
		}
		window, err := strconv.Atoi(strings.TrimSpace(pieces[1]))
		if err != nil || window < 0 {
			return nil, fmt.Errorf("invalid window in cell %q", part)
		}
		cells = append(cells, GridCell{Day: day, Window: window})
	}
	return cells, nil
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
