package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.Upload.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d", settings.Upload.MaxFileSize)
	}
	if !slices.Equal(settings.Upload.AllowedTypes, DefaultAllowedTypes) {
		t.Errorf("AllowedTypes = %v", settings.Upload.AllowedTypes)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
storage:
  upload_dir: /srv/images
upload:
  max_file_size: 1048576
cleanup:
  enabled: true
  schedule: "@daily"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOWED_TYPES", "image/png, image/gif")

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if settings.Server.Port != "9100" {
		t.Errorf("Port = %q, want the environment value", settings.Server.Port)
	}
	if settings.Storage.UploadDir != "/srv/images" || settings.Upload.MaxFileSize != 1<<20 {
		t.Errorf("file values not applied: %+v %+v", settings.Storage, settings.Upload)
	}
	if !settings.Cleanup.Enabled || settings.Cleanup.Schedule != "@daily" {
		t.Errorf("Cleanup = %+v", settings.Cleanup)
	}
	if !slices.Equal(settings.Upload.AllowedTypes, []string{"image/png", "image/gif"}) {
		t.Errorf("AllowedTypes = %v", settings.Upload.AllowedTypes)
	}
	// untouched keys keep their defaults
	if settings.Storage.UploadURL != "/uploads/images/" {
		t.Errorf("UploadURL = %q", settings.Storage.UploadURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero max size", func(s *Settings) { s.Upload.MaxFileSize = 0 }},
		{"no allowed types", func(s *Settings) { s.Upload.AllowedTypes = nil }},
		{"unknown driver", func(s *Settings) { s.Storage.Driver = "ftp" }},
		{"minio without bucket", func(s *Settings) {
			s.Storage.Driver = "minio"
			s.Storage.Minio.Endpoint = "localhost:9000"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestGetHelpers(t *testing.T) {
	env := map[string]string{"N": "12", "BAD": "x", "B": "true", "S": ""}
	if GetInt(env, "N", 1) != 12 || GetInt(env, "BAD", 1) != 1 || GetInt(env, "MISSING", 3) != 3 {
		t.Error("GetInt")
	}
	if !GetBool(env, "B", false) || GetBool(env, "BAD", false) {
		t.Error("GetBool")
	}
	if GetString(env, "S", "fallback") != "fallback" {
		t.Error("GetString should ignore empty values")
	}
}
