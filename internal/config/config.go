package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // PROPKEEP_DATABASE_URL (required)
	NATSURL     string // PROPKEEP_NATS_URL (optional, empty = no events)

	// Backup settings
	BackupInterval   time.Duration // PROPKEEP_BACKUP_INTERVAL (default 3m; 0 = disabled)
	BackupPassphrase string        // PROPKEEP_BACKUP_PASSPHRASE (seals backups when set)
	BackupS3Bucket   string        // PROPKEEP_BACKUP_S3_BUCKET (enables S3 when set)
	BackupS3Endpoint string        // PROPKEEP_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	BackupS3Region   string        // PROPKEEP_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Key      string        // PROPKEEP_BACKUP_S3_KEY (default "propkeep/backup.jsonl")
	BackupGitRepo    string        // PROPKEEP_BACKUP_GIT_REPO (enables git when set; path to clone)
	BackupGitFile    string        // PROPKEEP_BACKUP_GIT_FILE (default "propkeep.jsonl")
	BackupGitBranch  string        // PROPKEEP_BACKUP_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("PROPKEEP_DATABASE_URL"),
		NATSURL:          os.Getenv("PROPKEEP_NATS_URL"),
		BackupPassphrase: os.Getenv("PROPKEEP_BACKUP_PASSPHRASE"),
		BackupS3Bucket:   os.Getenv("PROPKEEP_BACKUP_S3_BUCKET"),
		BackupS3Endpoint: os.Getenv("PROPKEEP_BACKUP_S3_ENDPOINT"),
		BackupS3Region:   envOrDefault("PROPKEEP_BACKUP_S3_REGION", "us-east-1"),
		BackupS3Key:      envOrDefault("PROPKEEP_BACKUP_S3_KEY", "propkeep/backup.jsonl"),
		BackupGitRepo:    os.Getenv("PROPKEEP_BACKUP_GIT_REPO"),
		BackupGitFile:    envOrDefault("PROPKEEP_BACKUP_GIT_FILE", "propkeep.jsonl"),
		BackupGitBranch:  envOrDefault("PROPKEEP_BACKUP_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("PROPKEEP_DATABASE_URL is required")
	}

	intervalStr := envOrDefault("PROPKEEP_BACKUP_INTERVAL", "3m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("PROPKEEP_BACKUP_INTERVAL: %w", err)
		}
		c.BackupInterval = d
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
