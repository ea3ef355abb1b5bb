package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	App struct {
		Env         string
		AdminID     int64
		BotUsername string
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
		// PublicURL is the externally reachable base URL, used for the
		// Telegram webhook and the payment callback.
		PublicURL string
	}

	Telegram struct {
		Token   string
		APIBase string
	}

	Zarinpal struct {
		MerchantID  string
		CallbackURL string
	}
}

func New() *Config {
	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "bot")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "production")
	cfg.App.BotUsername = getEnvDefault("BOT_USERNAME", "hamdam_bot")
	if idStr := os.Getenv("ADMIN_ID"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			cfg.App.AdminID = id
		}
	}

	// Database (reports / chat archive)
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "hamdam")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.PublicURL = strings.TrimRight(getEnvDefault("PUBLIC_URL", "http://localhost:8080"), "/")

	// Telegram
	cfg.Telegram.Token = os.Getenv("BOT_TOKEN")
	cfg.Telegram.APIBase = getEnvDefault("TELEGRAM_API_BASE", "https://api.telegram.org")

	// Zarinpal
	cfg.Zarinpal.MerchantID = os.Getenv("ZARINPAL_MERCHANT_ID")
	cfg.Zarinpal.CallbackURL = getEnvDefault("ZARINPAL_CALLBACK_URL", cfg.HTTP.PublicURL+"/payment/callback")

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
