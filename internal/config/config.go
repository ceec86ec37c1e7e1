package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort          int    `mapstructure:"APP_PORT"`
	AnswerServiceURL string `mapstructure:"ANSWER_SERVICE_URL"`
	DatabasePath     string `mapstructure:"DATABASE_PATH"`
	StorageBackend   string `mapstructure:"STORAGE_BACKEND"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RemoteStoreURL   string `mapstructure:"REMOTE_STORE_URL"`
	DefaultNamespace string `mapstructure:"DEFAULT_NAMESPACE"`
	SyncDebounceMs   int    `mapstructure:"SYNC_DEBOUNCE_MS"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("ANSWER_SERVICE_URL", "http://answer-service:8080")
	viper.SetDefault("DATABASE_PATH", "/data/askcampus.db")
	viper.SetDefault("STORAGE_BACKEND", "sqlite")
	viper.SetDefault("REDIS_ADDR", "redis:6379")
	viper.SetDefault("REMOTE_STORE_URL", "")
	viper.SetDefault("DEFAULT_NAMESPACE", "default")
	viper.SetDefault("SYNC_DEBOUNCE_MS", 500)
	viper.SetDefault("LOG_LEVEL", "INFO")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./backend")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
