package config

import "os"

type Config struct {
	Port         string
	DatabaseDSN  string
	UploadDir    string
	ConverterBin string
	Env          string
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by user) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "jsign.db")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "uploads")
	cfg.ConverterBin = getEnv("CONVERTER_BIN", "libreoffice")
	cfg.Env = getEnv("APP_ENV", "development")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
