package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration

	DBDriver    string
	DBPath      string
	DatabaseURL string

	PhotoBackend string
	PhotoPath    string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3Bucket     string
	S3Region     string
	S3UseSSL     bool

	VisionBackend string
	OllamaHost    string
	OllamaModel   string
	ClaudeAPIKey  string
	ClaudeModel   string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	WorkerConcurrency int

	PairThresholdMeters float64

	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() *Config {
	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DBPath:      getEnv("DB_PATH", "/data/prakriti.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		PhotoBackend: getEnv("PHOTO_BACKEND", "local"),
		PhotoPath:    getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		S3Endpoint:   getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Bucket:     getEnv("S3_BUCKET", "prakriti-photos"),
		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3UseSSL:     getBool("S3_USE_SSL", false),

		VisionBackend: getEnv("VISION_BACKEND", "none"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "moondream"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-3-5-haiku-latest"),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getInt("REDIS_DB", 0),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 2),

		PairThresholdMeters: getFloat("PAIR_THRESHOLD_METERS", 50),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 2
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// The typed getters ignore unparsable values and keep the default.

func getInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}
