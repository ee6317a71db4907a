package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// CoreDatabaseURL points at the Postgres database holding the
	// instance and backup record store.
	CoreDatabaseURL string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsListenAddr string
	ServiceName     string
	LogLevel        string

	// InstanceImage is the container image instances are provisioned from.
	// The version requested at create time is appended as the image tag.
	InstanceImage   string
	DockerNetwork   string
	InstanceBasePort int

	// AppDatabaseURL points at the shared Postgres server the instance
	// containers connect to. Falls back to CoreDatabaseURL when unset.
	AppDatabaseURL string
	// DataPath is the root of per-tenant data directories on disk.
	DataPath string

	// BackupPath is the local directory backup artifacts are written to
	// before any remote upload.
	BackupPath       string
	BackupPolicyFile string

	// S3 object storage for backup artifact durability. Backups stay
	// local-only when the endpoint is unset.
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
}

func Load() (*Config, error) {
	basePort, err := getEnvInt("INSTANCE_BASE_PORT", 10000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CoreDatabaseURL:   getEnv("CORE_DATABASE_URL", ""),
		TemporalAddress:   getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ":9100"),
		ServiceName:       getEnv("SERVICE_NAME", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		InstanceImage:     getEnv("INSTANCE_IMAGE", "odoo"),
		DockerNetwork:     getEnv("DOCKER_NETWORK", "orchard"),
		InstanceBasePort:  basePort,
		DataPath:          getEnv("DATA_PATH", "/var/lib/orchard"),
		BackupPath:        getEnv("BACKUP_PATH", "/var/backups/orchard"),
		BackupPolicyFile:  getEnv("BACKUP_POLICY_FILE", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Bucket:          getEnv("S3_BACKUP_BUCKET", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
	}
	cfg.AppDatabaseURL = getEnv("APP_DATABASE_URL", cfg.CoreDatabaseURL)

	return cfg, nil
}

// Validate checks that the configuration is complete for the given service
// ("api" or "worker").
func (c *Config) Validate(service string) error {
	if c.CoreDatabaseURL == "" {
		return fmt.Errorf("%s: CORE_DATABASE_URL is required", service)
	}
	if c.InstanceBasePort < 1024 || c.InstanceBasePort > 65000 {
		return fmt.Errorf("%s: INSTANCE_BASE_PORT %d out of range", service, c.InstanceBasePort)
	}
	if service == "worker" && c.BackupPath == "" {
		return fmt.Errorf("worker: BACKUP_PATH is required")
	}
	return nil
}

// S3Configured reports whether remote artifact storage is usable.
func (c *Config) S3Configured() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
