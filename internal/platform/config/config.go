package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DeleteModeHard = "hard"
	DeleteModeSoft = "soft"
)

type Config struct {
	APIPort  string
	LogLevel string

	JWTKey []byte
	JWTExp time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	// Empty RedisAddr disables the bootstrap lock and the mail queue.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MailQueueName           string
	BootstrapLockKey        string
	BootstrapLockTTLSeconds int

	SMTPTransport string
	MailFrom      string

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	DeleteMode string
}

var AppConfig *Config

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:                 getEnv("API_PORT", "3000"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		JWTKey:                  []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                  time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 10)) * time.Hour,
		DBHost:                  getEnv("DB_HOST", "localhost"),
		DBPort:                  getEnv("DB_PORT", "5432"),
		DBUser:                  getEnv("DB_USER", "postgres"),
		DBPassword:              getEnv("DB_PASSWORD", "postgres"),
		DBName:                  getEnv("DB_NAME", "finance"),
		DBSslMode:               getEnv("DB_SSLMODE", "disable"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvAsInt("REDIS_DB", 0),
		MailQueueName:           getEnv("MAIL_QUEUE_NAME", "verification_mail_queue"),
		BootstrapLockKey:        getEnv("BOOTSTRAP_LOCK_KEY", "finance_users_bootstrap_lock"),
		BootstrapLockTTLSeconds: getEnvAsInt("BOOTSTRAP_LOCK_TTL_SECONDS", 30),
		SMTPTransport:           getEnv("SMTP_TRANSPORT", ""),
		MailFrom:                getEnv("MAIL_FROM", `"noreply" <noreply@finance.local>`),
		AdminUsername:           getEnv("ADMIN_USERNAME", ""),
		AdminEmail:              getEnv("ADMIN_EMAIL", ""),
		AdminPassword:           getEnv("ADMIN_PASSWORD", ""),
		DeleteMode:              getEnv("DELETE_MODE", DeleteModeHard),
	}

	if cfg.DeleteMode != DeleteModeSoft {
		cfg.DeleteMode = DeleteModeHard
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	AppConfig = cfg
	return cfg
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) BootstrapLockTTL() time.Duration {
	return time.Duration(c.BootstrapLockTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
