package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Server     ServerConfig
	Upload     UploadConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	Worker     WorkerConfig
	Validation ValidationConfig
	Logging    LoggingConfig
	Retry      RetryConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

type UploadConfig struct {
	MaxArchiveMB      int64
	MaxUncompressedMB int64
	MaxEntries        int
	MaxCSVFiles       int
	MaxClockSkew      time.Duration
	TempDir           string
}

type StorageConfig struct {
	Driver   string
	BaseDir  string
	Bucket   string
	Region   string
	Endpoint string
}

type DatabaseConfig struct {
	// DSN empty selects the in-memory store seeded from Credentials.
	DSN         string
	Credentials string
}

type WorkerConfig struct {
	PoolSize    int
	QueueSize   int
	JoinTimeout time.Duration
}

type ValidationConfig struct {
	JournalDir string
	LockDir    string
}

type LoggingConfig struct {
	Level string
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			MaxArchiveMB:      int64(getIntEnv("UPLOAD_MAX_ARCHIVE_MB", 100)),
			MaxUncompressedMB: int64(getIntEnv("UPLOAD_MAX_UNCOMPRESSED_MB", 1024)),
			MaxEntries:        getIntEnv("UPLOAD_MAX_ENTRIES", 1000),
			MaxCSVFiles:       getIntEnv("UPLOAD_MAX_CSV_FILES", 100),
			MaxClockSkew:      getDurationEnv("UPLOAD_MAX_CLOCK_SKEW", 0),
			TempDir:           getEnv("UPLOAD_TEMP_DIR", os.TempDir()),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverLocal)),
			BaseDir:  getEnv("STORAGE_BASE_DIR", "./data"),
			Bucket:   getEnv("STORAGE_BUCKET", ""),
			Region:   getEnv("AWS_REGION", "ap-southeast-1"),
			Endpoint: getEnv("STORAGE_ENDPOINT", ""),
		},
		Database: DatabaseConfig{
			DSN:         getEnv("DATABASE_DSN", ""),
			Credentials: getEnv("PARTNER_CREDENTIALS", ""),
		},
		Worker: WorkerConfig{
			PoolSize:    getIntEnv("WORKER_POOL_SIZE", 4),
			QueueSize:   getIntEnv("WORKER_QUEUE_SIZE", 1000),
			JoinTimeout: getDurationEnv("WORKER_JOIN_TIMEOUT", 10*time.Minute),
		},
		Validation: ValidationConfig{
			JournalDir: getEnv("VALIDATION_JOURNAL_DIR", "./logs"),
			LockDir:    getEnv("VALIDATION_LOCK_DIR", os.TempDir()),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Retry: RetryConfig{
			MaxAttempts: getIntEnv("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getDurationEnv("RETRY_BASE_DELAY", 200*time.Millisecond),
		},
	}
}

func (u UploadConfig) MaxArchiveBytes() int64 {
	return u.MaxArchiveMB << 20
}

func (u UploadConfig) MaxUncompressedBytes() int64 {
	return u.MaxUncompressedMB << 20
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}
