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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Registration RegistrationConfig
	LoginLimiter LoginLimiterConfig
	Settings     SettingsConfig
	Startup      StartupConfig
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
}

type JWTConfig struct {
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

// RegistrationConfig carries fallbacks used when a system setting row is absent.
type RegistrationConfig struct {
	DefaultMaxCourses  int
	DefaultOpen        bool
	DefaultAutoLogout  bool
	AutoLogoutTimeout  int
	DefaultNewCapacity int
}

// LoginLimiterConfig tunes the redis-backed login attempt limiter.
type LoginLimiterConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// SettingsConfig tunes the settings read-through cache.
type SettingsConfig struct {
	CacheTTL time.Duration
}

// StartupConfig controls the boot-time capacity reconciliation pass.
type StartupConfig struct {
	ReconcileCapacity bool
	ReconcileWorkers  int
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Registration = RegistrationConfig{
		DefaultMaxCourses:  v.GetInt("REGISTRATION_DEFAULT_MAX_COURSES"),
		DefaultOpen:        v.GetBool("REGISTRATION_DEFAULT_OPEN"),
		DefaultAutoLogout:  v.GetBool("AUTO_LOGOUT_DEFAULT_ENABLED"),
		AutoLogoutTimeout:  v.GetInt("AUTO_LOGOUT_DEFAULT_TIMEOUT"),
		DefaultNewCapacity: v.GetInt("COURSE_DEFAULT_CAPACITY"),
	}

	cfg.LoginLimiter = LoginLimiterConfig{
		MaxAttempts: v.GetInt("LOGIN_MAX_ATTEMPTS"),
		Window:      parseDuration(v.GetString("LOGIN_ATTEMPT_WINDOW"), 15*time.Minute),
	}

	cfg.Settings = SettingsConfig{
		CacheTTL: parseDuration(v.GetString("SETTINGS_CACHE_TTL"), time.Minute),
	}

	cfg.Startup = StartupConfig{
		ReconcileCapacity: v.GetBool("STARTUP_RECONCILE_CAPACITY"),
		ReconcileWorkers:  v.GetInt("STARTUP_RECONCILE_WORKERS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "university_registration")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "registration-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REGISTRATION_DEFAULT_MAX_COURSES", 6)
	v.SetDefault("REGISTRATION_DEFAULT_OPEN", true)
	v.SetDefault("AUTO_LOGOUT_DEFAULT_ENABLED", true)
	v.SetDefault("AUTO_LOGOUT_DEFAULT_TIMEOUT", 30)
	v.SetDefault("COURSE_DEFAULT_CAPACITY", 30)

	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_ATTEMPT_WINDOW", "15m")

	v.SetDefault("SETTINGS_CACHE_TTL", "1m")

	v.SetDefault("STARTUP_RECONCILE_CAPACITY", true)
	v.SetDefault("STARTUP_RECONCILE_WORKERS", 4)
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
