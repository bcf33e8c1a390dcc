package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	ServerPort        string
	DataDir           string
	DatabasePath      string
	SyncStatePath     string
	LegacyContentPath string
	PublicIndexPath   string
	BackupDir         string
	BackupTime        string // HH:MM wall-clock target for daily backups
	ReleaseTime       string // HH:MM cutover for staged developer changes
	RedisURL          string // optional; enables the presence mirror
}

func LoadConfig() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DataDir:           dataDir,
		DatabasePath:      getEnv("DATABASE_PATH", filepath.Join(dataDir, "site.db")),
		SyncStatePath:     getEnv("SYNC_STATE_PATH", filepath.Join(dataDir, "sync-state.json")),
		LegacyContentPath: getEnv("LEGACY_CONTENT_PATH", filepath.Join(dataDir, "content.json")),
		PublicIndexPath:   getEnv("PUBLIC_INDEX_PATH", filepath.Join("public", "index.html")),
		BackupDir:         getEnv("BACKUP_DIR", filepath.Join(dataDir, "backups")),
		BackupTime:        getEnv("BACKUP_TIME", "23:59"),
		ReleaseTime:       getEnv("RELEASE_TIME", "03:00"),
		RedisURL:          os.Getenv("REDIS_URL"),
	}

	// Validate wall-clock targets up front so the scheduler never has to
	if _, err := time.Parse("15:04", cfg.BackupTime); err != nil {
		return nil, fmt.Errorf("invalid BACKUP_TIME %q: %w", cfg.BackupTime, err)
	}
	if _, err := time.Parse("15:04", cfg.ReleaseTime); err != nil {
		return nil, fmt.Errorf("invalid RELEASE_TIME %q: %w", cfg.ReleaseTime, err)
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
