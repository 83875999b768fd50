package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	// Remote portal API.
	APIBaseURL    string
	HTTPTimeout   time.Duration
	PublicTimeout time.Duration // short timeout for unauthenticated reads

	// Durable client state (session + completed-quiz ledger).
	DBDriver string // sqlite|postgres
	DBDSN    string
	StateDir string

	// Devserver.
	HTTPAddr   string
	JWTSecret  string
	CORSOrigin []string

	LogLevel string
}

func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using environment only")
	}

	viper.SetDefault("AQUALAB_API_URL", "http://localhost:3333/api")
	viper.SetDefault("AQUALAB_HTTP_TIMEOUT", "30s")
	viper.SetDefault("AQUALAB_PUBLIC_TIMEOUT", "5s")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("STATE_DIR", "./data")
	viper.SetDefault("HTTP_ADDR", ":3333")
	viper.SetDefault("AUTH_HMAC_SECRET", "supersecret-dev-key")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		APIBaseURL:    viper.GetString("AQUALAB_API_URL"),
		HTTPTimeout:   viper.GetDuration("AQUALAB_HTTP_TIMEOUT"),
		PublicTimeout: viper.GetDuration("AQUALAB_PUBLIC_TIMEOUT"),
		DBDriver:      viper.GetString("DB_DRIVER"),
		DBDSN:         viper.GetString("DB_DSN"),
		StateDir:      viper.GetString("STATE_DIR"),
		HTTPAddr:      viper.GetString("HTTP_ADDR"),
		JWTSecret:     viper.GetString("AUTH_HMAC_SECRET"),
		CORSOrigin:    viper.GetStringSlice("CORS_ORIGINS"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
	}
	return cfg, nil
}
