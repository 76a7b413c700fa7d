package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port                   string
	AllowedOrigins         []string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	CatalogCacheTTLSeconds int
	AuthSecret             string
	AccessTokenTTLMinutes  int
	ItemIDPrefix           string
	BulkItemIDPrefix       string
	InvoicePrefix          string
	SequenceMode           string
	LogLevel               string
	LogFormat              string
}

// Load reads .env (optional), then an optional YAML file, with environment
// variables taking precedence over both.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(getEnv("CONFIG_FILE", "configs/config.yaml"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("allowed_origins", "http://127.0.0.1:3000")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("catalog_cache_ttl_seconds", 30)
	v.SetDefault("auth_secret", "")
	v.SetDefault("access_token_ttl_minutes", 480)
	v.SetDefault("item_id_prefix", "NE-")
	v.SetDefault("bulk_item_id_prefix", "N")
	v.SetDefault("invoice_prefix", "INV-")
	v.SetDefault("sequence_mode", "count")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("component", "config").Str("file", v.ConfigFileUsed()).Msg("no config file, using env and defaults")
	}

	ttl := v.GetInt("catalog_cache_ttl_seconds")
	if ttl < 1 {
		ttl = 30
	}
	tokenTTL := v.GetInt("access_token_ttl_minutes")
	if tokenTTL < 1 {
		tokenTTL = 480
	}

	return Config{
		Port:                   strings.TrimSpace(v.GetString("port")),
		AllowedOrigins:         splitList(v.GetString("allowed_origins")),
		DatabaseURL:            strings.TrimSpace(v.GetString("database_url")),
		RedisAddr:              strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:          v.GetString("redis_password"),
		RedisDB:                v.GetInt("redis_db"),
		CatalogCacheTTLSeconds: ttl,
		AuthSecret:             strings.TrimSpace(v.GetString("auth_secret")),
		AccessTokenTTLMinutes:  tokenTTL,
		ItemIDPrefix:           v.GetString("item_id_prefix"),
		BulkItemIDPrefix:       v.GetString("bulk_item_id_prefix"),
		InvoicePrefix:          v.GetString("invoice_prefix"),
		SequenceMode:           strings.ToLower(strings.TrimSpace(v.GetString("sequence_mode"))),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
