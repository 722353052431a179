package config

import (
	"log"
	"os"
	"time"

	"JevanRaksha/pkg/logger"
	"JevanRaksha/pkg/util"
)

// config/config.go
type Config struct {
	Mode string `env:"MODE"`
	Log  logger.LogConfig

	// Remote record store (PostgREST-style endpoint) and change feed.
	StoreURL     string        `env:"STORE_URL"`
	StoreAPIKey  string        `env:"STORE_API_KEY"`
	FeedURL      string        `env:"FEED_URL"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT"`

	// Object storage for chat media.
	StorageBackend string `env:"STORAGE_BACKEND"` // "rest" or "minio"
	StorageBaseURL string `env:"STORAGE_BASE_URL"`
	MediaBucket    string `env:"MEDIA_BUCKET"`
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"`
	MinioBaseURL   string `env:"MINIO_PUBLIC_BASE"`

	// Public disaster-alert API.
	AlertAPIURL     string        `env:"ALERT_API_URL"`
	AlertRadiusKm   float64       `env:"ALERT_RADIUS_KM"`
	AlertRefresh    time.Duration `env:"ALERT_REFRESH"`
	AlertCacheType  string        `env:"ALERT_CACHE_TYPE"` // "local", "gocache" or "redis"
	CacheRedisAddr  string        `env:"CACHE_REDIS_ADDR"`
	CacheRedisPass  string        `env:"CACHE_REDIS_PASSWORD"`
	CacheRedisDB    int           `env:"CACHE_REDIS_DB"`
	DefaultLat      float64       `env:"DEFAULT_LAT"`
	DefaultLng      float64       `env:"DEFAULT_LNG"`
	GeoIPDatabase   string        `env:"GEOIP_DB"`
	PublicIPAddress string        `env:"PUBLIC_IP"`

	// Identity of the signed-in field user.
	UserID   string `env:"USER_ID"`
	UserType string `env:"USER_TYPE"`

	// Support assistant.
	LLMApiKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL"`
	LLMModel   string `env:"LLM_MODEL"`

	// HTTP API listen address.
	HTTPAddr string `env:"HTTP_ADDR"`

	// Metrics exposition, empty disables it.
	MetricsAddr string `env:"METRICS_ADDR"`
}

var GlobalConfig *Config

func Load() error {
	// 1. pick the .env file for the current environment
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	err := util.LoadEnv(env)
	if err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. populate the global config
	GlobalConfig = &Config{
		Mode: util.GetEnv("MODE"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		StoreURL:        util.GetEnv("STORE_URL"),
		StoreAPIKey:     util.GetEnv("STORE_API_KEY"),
		FeedURL:         util.GetEnv("FEED_URL"),
		StoreTimeout:    util.GetDurationEnv("STORE_TIMEOUT", 10*time.Second),
		StorageBackend:  util.GetEnvDefault("STORAGE_BACKEND", "rest"),
		StorageBaseURL:  util.GetEnv("STORAGE_BASE_URL"),
		MediaBucket:     util.GetEnvDefault("MEDIA_BUCKET", "media"),
		MinioEndpoint:   util.GetEnv("MINIO_ENDPOINT"),
		MinioAccessKey:  util.GetEnv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  util.GetEnv("MINIO_SECRET_KEY"),
		MinioUseSSL:     util.GetBoolEnv("MINIO_USE_SSL"),
		MinioBaseURL:    util.GetEnv("MINIO_PUBLIC_BASE"),
		AlertAPIURL:     util.GetEnv("ALERT_API_URL"),
		AlertRadiusKm:   defaultFloat(util.GetFloatEnv("ALERT_RADIUS_KM"), 200),
		AlertRefresh:    util.GetDurationEnv("ALERT_REFRESH", 5*time.Minute),
		AlertCacheType:  util.GetEnvDefault("ALERT_CACHE_TYPE", "gocache"),
		CacheRedisAddr:  util.GetEnv("CACHE_REDIS_ADDR"),
		CacheRedisPass:  util.GetEnv("CACHE_REDIS_PASSWORD"),
		CacheRedisDB:    int(util.GetIntEnv("CACHE_REDIS_DB")),
		DefaultLat:      defaultFloat(util.GetFloatEnv("DEFAULT_LAT"), 22.5726),
		DefaultLng:      defaultFloat(util.GetFloatEnv("DEFAULT_LNG"), 88.3639),
		GeoIPDatabase:   util.GetEnv("GEOIP_DB"),
		PublicIPAddress: util.GetEnv("PUBLIC_IP"),
		UserID:          util.GetEnv("USER_ID"),
		UserType:        util.GetEnvDefault("USER_TYPE", "victim"),
		LLMApiKey:       util.GetEnv("LLM_API_KEY"),
		LLMBaseURL:      util.GetEnv("LLM_BASE_URL"),
		LLMModel:        util.GetEnv("LLM_MODEL"),
		HTTPAddr:        util.GetEnvDefault("HTTP_ADDR", ":8080"),
		MetricsAddr:     util.GetEnv("METRICS_ADDR"),
	}
	return nil
}

func defaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
