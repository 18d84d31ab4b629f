package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxFileSize     int64 = 20 * 1024 * 1024
	DefaultMaxRequestBytes int64 = 256 * 1024 * 1024
)

// DefaultAllowedTypes are the content-sniffed MIME types accepted for upload
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Settings holds the application configuration
type Settings struct {
	Server   ServerSettings   `yaml:"server"`
	Database DatabaseSettings `yaml:"database"`
	Storage  StorageSettings  `yaml:"storage"`
	Upload   UploadSettings   `yaml:"upload"`
	Cleanup  CleanupSettings  `yaml:"cleanup"`
	Logging  LoggingSettings  `yaml:"logging"`
}

type ServerSettings struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
	AcceptedOrigins     []string `yaml:"accepted_origins"`
}

type DatabaseSettings struct {
	URL           string `yaml:"url"`
	ReplicaURL    string `yaml:"replica_url"`
	RunMigrations bool   `yaml:"run_migrations"`
}

type StorageSettings struct {
	// Driver selects the blob backend: "local" or "minio"
	Driver    string        `yaml:"driver"`
	UploadDir string        `yaml:"upload_dir"`
	UploadURL string        `yaml:"upload_url"`
	Minio     MinioSettings `yaml:"minio"`
}

type MinioSettings struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type UploadSettings struct {
	MaxFileSize     int64    `yaml:"max_file_size"`
	MaxRequestBytes int64    `yaml:"max_request_bytes"`
	AllowedTypes    []string `yaml:"allowed_types"`
}

type CleanupSettings struct {
	Enabled            bool   `yaml:"enabled"`
	Schedule           string `yaml:"schedule"`
	GracePeriodMinutes int    `yaml:"grace_period_minutes"`
	DryRun             bool   `yaml:"dry_run"`
}

type LoggingSettings struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Port:                "8080",
			ReadTimeoutSeconds:  180,
			WriteTimeoutSeconds: 180,
			IdleTimeoutSeconds:  180,
			AcceptedOrigins:     []string{"*"},
		},
		Database: DatabaseSettings{
			RunMigrations: true,
		},
		Storage: StorageSettings{
			Driver:    "local",
			UploadDir: "uploads/images",
			UploadURL: "/uploads/images/",
		},
		Upload: UploadSettings{
			MaxFileSize:     DefaultMaxFileSize,
			MaxRequestBytes: DefaultMaxRequestBytes,
			AllowedTypes:    DefaultAllowedTypes,
		},
		Cleanup: CleanupSettings{
			Enabled:            false,
			Schedule:           "@every 6h",
			GracePeriodMinutes: 60,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load builds the settings from defaults, the optional YAML file at path and
// finally the environment. Environment values win.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	settings.applyEnv(New())

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) applyEnv(env map[string]string) {
	s.Server.Port = GetString(env, "PORT", s.Server.Port)
	s.Server.ReadTimeoutSeconds = GetInt(env, "READ_TIMEOUT_SECONDS", s.Server.ReadTimeoutSeconds)
	s.Server.WriteTimeoutSeconds = GetInt(env, "WRITE_TIMEOUT_SECONDS", s.Server.WriteTimeoutSeconds)
	s.Server.IdleTimeoutSeconds = GetInt(env, "IDLE_TIMEOUT_SECONDS", s.Server.IdleTimeoutSeconds)
	s.Server.AcceptedOrigins = GetStrings(env, "ACCEPTED_ORIGINS", s.Server.AcceptedOrigins)

	s.Database.URL = GetString(env, "DATABASE_URL", s.Database.URL)
	s.Database.ReplicaURL = GetString(env, "DATABASE_REPLICA_URL", s.Database.ReplicaURL)
	s.Database.RunMigrations = GetBool(env, "RUN_MIGRATIONS", s.Database.RunMigrations)

	s.Storage.Driver = GetString(env, "STORAGE_DRIVER", s.Storage.Driver)
	s.Storage.UploadDir = GetString(env, "UPLOAD_DIR", s.Storage.UploadDir)
	s.Storage.UploadURL = GetString(env, "UPLOAD_URL", s.Storage.UploadURL)
	s.Storage.Minio.Endpoint = GetString(env, "MINIO_ENDPOINT", s.Storage.Minio.Endpoint)
	s.Storage.Minio.AccessKey = GetString(env, "MINIO_ACCESS_KEY", s.Storage.Minio.AccessKey)
	s.Storage.Minio.SecretKey = GetString(env, "MINIO_SECRET_KEY", s.Storage.Minio.SecretKey)
	s.Storage.Minio.Bucket = GetString(env, "MINIO_BUCKET", s.Storage.Minio.Bucket)
	s.Storage.Minio.Prefix = GetString(env, "MINIO_PREFIX", s.Storage.Minio.Prefix)
	s.Storage.Minio.UseSSL = GetBool(env, "MINIO_USE_SSL", s.Storage.Minio.UseSSL)

	s.Upload.MaxFileSize = GetInt64(env, "MAX_FILE_SIZE", s.Upload.MaxFileSize)
	s.Upload.MaxRequestBytes = GetInt64(env, "MAX_UPLOAD_REQUEST_BYTES", s.Upload.MaxRequestBytes)
	s.Upload.AllowedTypes = GetStrings(env, "ALLOWED_TYPES", s.Upload.AllowedTypes)

	s.Cleanup.Enabled = GetBool(env, "CLEANUP_ENABLED", s.Cleanup.Enabled)
	s.Cleanup.Schedule = GetString(env, "CLEANUP_SCHEDULE", s.Cleanup.Schedule)
	s.Cleanup.GracePeriodMinutes = GetInt(env, "CLEANUP_GRACE_PERIOD_MINUTES", s.Cleanup.GracePeriodMinutes)
	s.Cleanup.DryRun = GetBool(env, "CLEANUP_DRY_RUN", s.Cleanup.DryRun)

	s.Logging.Level = GetString(env, "LOG_LEVEL", s.Logging.Level)
	s.Logging.Pretty = GetBool(env, "LOG_PRETTY", s.Logging.Pretty)
}

// Validate checks the settings for values the application cannot run with
func (s *Settings) Validate() error {
	if s.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive, got %d", s.Upload.MaxFileSize)
	}
	if len(s.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("upload.allowed_types must not be empty")
	}
	switch s.Storage.Driver {
	case "local":
		if s.Storage.UploadDir == "" {
			return fmt.Errorf("storage.upload_dir is required for the local driver")
		}
	case "minio":
		if s.Storage.Minio.Endpoint == "" || s.Storage.Minio.Bucket == "" {
			return fmt.Errorf("storage.minio.endpoint and storage.minio.bucket are required for the minio driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", s.Storage.Driver)
	}
	return nil
}
