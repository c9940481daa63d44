package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Storage     StorageConfig
	Log         LogConfig
	Mirror      MirrorConfig
	Maintenance MaintenanceConfig
}

type StorageConfig struct {
	DataDir string
	DBPath  string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSize    int // MB
	MaxAge     int // days
	MaxBackups int
}

type MirrorConfig struct {
	PostgresDSN string
	MySQLDSN    string
	MongoURI    string
	MongoDB     string
	// Schedule is a cron expression; empty disables scheduled pushes.
	Schedule string
}

type MaintenanceConfig struct {
	// TagPruneSchedule is a cron expression; empty disables orphan-tag pruning.
	TagPruneSchedule string
}

// Load reads configuration from the environment, with a .env file honored
// when present. Every value has a sensible default; nothing is required.
func Load() (*Config, error) {
	godotenv.Load()

	dataDir := getEnv("INKPAD_DATA_DIR", defaultDataDir())

	return &Config{
		Storage: StorageConfig{
			DataDir: dataDir,
			DBPath:  getEnv("INKPAD_DB_PATH", filepath.Join(dataDir, "inkpad.db")),
		},
		Log: LogConfig{
			Level:      getEnv("INKPAD_LOG_LEVEL", "info"),
			File:       getEnv("INKPAD_LOG_FILE", ""),
			MaxSize:    getEnvInt("INKPAD_LOG_MAX_SIZE", 50),
			MaxAge:     getEnvInt("INKPAD_LOG_MAX_AGE", 14),
			MaxBackups: getEnvInt("INKPAD_LOG_MAX_BACKUPS", 3),
		},
		Mirror: MirrorConfig{
			PostgresDSN: getEnv("INKPAD_MIRROR_POSTGRES_DSN", ""),
			MySQLDSN:    getEnv("INKPAD_MIRROR_MYSQL_DSN", ""),
			MongoURI:    getEnv("INKPAD_MIRROR_MONGO_URI", ""),
			MongoDB:     getEnv("INKPAD_MIRROR_MONGO_DB", "inkpad"),
			Schedule:    getEnv("INKPAD_MIRROR_SCHEDULE", "@every 15m"),
		},
		Maintenance: MaintenanceConfig{
			TagPruneSchedule: getEnv("INKPAD_TAG_PRUNE_SCHEDULE", "@daily"),
		},
	}, nil
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "inkpad")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
