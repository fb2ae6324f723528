package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configDirEnvKey, trustProjectConfigEnvKey, apiURLEnvKey, dbPathEnvKey,
		blobRootEnvKey, sofficeEnvKey, apiTokenEnvKey, apiTokenHashEnvKey, allowedExtsEnvKey,
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" || cfg.BlobRoot != "" {
		t.Fatalf("expected empty storage paths, got %q / %q", cfg.DBPath, cfg.BlobRoot)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Rendition.Workers != DefaultRenditionWorkers || cfg.Rendition.QueueSize != DefaultRenditionQueueSize {
		t.Fatalf("unexpected rendition defaults: %+v", cfg.Rendition)
	}
	if cfg.Rendition.WaitTimeout.Duration != DefaultRenditionWaitTimeout {
		t.Fatalf("expected wait timeout %s, got %s", DefaultRenditionWaitTimeout, cfg.Rendition.WaitTimeout)
	}
	if cfg.Converter.Binary != DefaultConverterBinary || cfg.Converter.Timeout.Duration != DefaultConverterTimeout {
		t.Fatalf("unexpected converter defaults: %+v", cfg.Converter)
	}
	if cfg.Uploads.MaxUploadBytes != DefaultUploadMaxBytes {
		t.Fatalf("expected upload max default %d, got %d", DefaultUploadMaxBytes, cfg.Uploads.MaxUploadBytes)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[rendition]
workers = 4
wait_timeout = "45s"

[converter]
binary = "/opt/office/soffice"
timeout = "5m"
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url override, got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.Rendition.Workers != 4 || cfg.Rendition.WaitTimeout.Duration != 45*time.Second {
		t.Fatalf("unexpected rendition config: %+v", cfg.Rendition)
	}
	if cfg.Rendition.QueueSize != DefaultRenditionQueueSize {
		t.Fatalf("unset keys should keep defaults, got queue size %d", cfg.Rendition.QueueSize)
	}
	if cfg.Converter.Binary != "/opt/office/soffice" || cfg.Converter.Timeout.Duration != 5*time.Minute {
		t.Fatalf("unexpected converter config: %+v", cfg.Converter)
	}
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	if err := os.WriteFile(path, []byte("[converter]\ntimeout = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.docstore.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"db_path",
		"blob_root",
		"log_level",
		"rendition.workers",
		"rendition.wait_timeout",
		"converter.binary",
		"uploads.allowed_extensions",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	for _, key := range []string{"project_prefix", "rendition", "converter.path", ""} {
		if IsAllowedKey(key) {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestGetKey(t *testing.T) {
	cfg := Default()
	cfg.DBPath = "/tmp/docs.db"
	cfg.Uploads.AllowedExtensions = []string{"docx", "odt"}

	tests := map[string]string{
		"api_url":                    DefaultAPIURL,
		"db_path":                    "/tmp/docs.db",
		"log_level":                  DefaultLogLevel,
		"rendition.workers":          "2",
		"rendition.wait_timeout":     "30s",
		"converter.timeout":          "2m0s",
		"uploads.allowed_extensions": "docx,odt",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		if got != want {
			t.Fatalf("get %s: expected %q, got %q", key, want, got)
		}
	}

	if _, err := cfg.Get("nope"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFileName)
	if err := SetKey(path, "api_url", "http://127.0.0.1:9000"); err != nil {
		t.Fatalf("set key: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9000" {
		t.Fatalf("expected api_url to persist, got %q", cfg.APIURL)
	}
}

func TestSetKeyUpdatesExistingNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\n[rendition]\nqueue_size = 8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := SetKey(path, "rendition.workers", "6"); err != nil {
		t.Fatalf("set workers: %v", err)
	}
	if err := SetKey(path, "rendition.wait_timeout", "90"); err != nil {
		t.Fatalf("set wait timeout: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Rendition.QueueSize != 8 {
		t.Fatalf("existing keys should survive, got %+v", cfg)
	}
	if cfg.Rendition.Workers != 6 {
		t.Fatalf("expected workers 6, got %d", cfg.Rendition.Workers)
	}
	if cfg.Rendition.WaitTimeout.Duration != 90*time.Second {
		t.Fatalf("expected bare seconds to parse, got %s", cfg.Rendition.WaitTimeout)
	}
}

func TestSetKeyValidatesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	cases := map[string]string{
		"rendition.workers":        "0",
		"converter.max_processes":  "many",
		"converter.timeout":        "-1s",
		"log_level":                "loud",
		"uploads.max_upload_bytes": "-5",
	}
	for key, value := range cases {
		if err := SetKey(path, key, value); err == nil {
			t.Fatalf("expected %s=%s to be rejected", key, value)
		}
	}
	if err := SetKey(path, "unknown", "x"); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, DefaultConfigFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, DefaultConfigFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	clearEnv(t)
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, DefaultConfigFileName), []byte("api_url = \"http://127.0.0.1:9001\"\n"), 0o644); err != nil {
		t.Fatalf("write override config: %v", err)
	}

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, DefaultConfigFileName), []byte("api_url = \"http://ignored\"\n"), 0o644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	chdir(t, workspace)
	t.Setenv(configDirEnvKey, configDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.DBPath)
	}
	if cfg.BlobRoot != filepath.Join(workspace, DefaultBlobDirName) {
		t.Fatalf("expected default workspace blob root, got %q", cfg.BlobRoot)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(apiURLEnvKey, "http://example.com:8080")
	t.Setenv(dbPathEnvKey, "/tmp/override.db")
	t.Setenv(blobRootEnvKey, "/tmp/blobs")
	t.Setenv(sofficeEnvKey, "/usr/lib/libreoffice/program/soffice")
	t.Setenv(apiTokenEnvKey, "s3cret")
	t.Setenv(apiTokenHashEnvKey, "$2a$10$hash")
	t.Setenv(allowedExtsEnvKey, ".DOCX, odt,,docx")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" || cfg.BlobRoot != "/tmp/blobs" {
		t.Fatalf("expected env override for storage paths, got %q / %q", cfg.DBPath, cfg.BlobRoot)
	}
	if cfg.Converter.Binary != "/usr/lib/libreoffice/program/soffice" {
		t.Fatalf("expected env override for converter binary, got %q", cfg.Converter.Binary)
	}
	if cfg.APIToken != "s3cret" || cfg.APITokenHash != "$2a$10$hash" {
		t.Fatalf("expected env override for tokens, got %q / %q", cfg.APIToken, cfg.APITokenHash)
	}
	if strings.Join(cfg.Uploads.AllowedExtensions, ",") != "docx,odt" {
		t.Fatalf("expected normalized extensions, got %v", cfg.Uploads.AllowedExtensions)
	}
}

func TestLoadFallsBackToDefaultsWhenConfiguredEmpty(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(homeDir, DefaultConfigFileName), []byte("log_level = \"\"\n[rendition]\nworkers = 0\n[converter]\nbinary = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	chdir(t, t.TempDir())
	t.Setenv("HOME", homeDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Rendition.Workers != DefaultRenditionWorkers {
		t.Fatalf("expected default workers, got %d", cfg.Rendition.Workers)
	}
	if cfg.Converter.Binary != DefaultConverterBinary {
		t.Fatalf("expected default binary, got %q", cfg.Converter.Binary)
	}
}

func TestLoadProjectConfigTrust(t *testing.T) {
	tests := []struct {
		name        string
		trust       string
		wantURL     string
		wantTrusted bool
	}{
		{name: "ignored by default", trust: "", wantURL: "http://global"},
		{name: "applied when trusted", trust: "true", wantURL: "http://project", wantTrusted: true},
		{name: "invalid env value", trust: "definitely-not-bool", wantURL: "http://global"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			homeDir := t.TempDir()
			workspace := t.TempDir()
			if err := os.WriteFile(filepath.Join(homeDir, DefaultConfigFileName), []byte("api_url = \"http://global\"\n"), 0o644); err != nil {
				t.Fatalf("write home config: %v", err)
			}
			projectPath := filepath.Join(workspace, DefaultConfigFileName)
			if err := os.WriteFile(projectPath, []byte("api_url = \"http://project\"\n"), 0o644); err != nil {
				t.Fatalf("write project config: %v", err)
			}
			chdir(t, workspace)
			t.Setenv("HOME", homeDir)
			t.Setenv(trustProjectConfigEnvKey, tt.trust)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.APIURL != tt.wantURL {
				t.Fatalf("expected api_url %q, got %q", tt.wantURL, cfg.APIURL)
			}
			gotTrusted := cfg.TrustedProjectConfigPath != ""
			if gotTrusted != tt.wantTrusted {
				t.Fatalf("expected trusted=%v, got path %q", tt.wantTrusted, cfg.TrustedProjectConfigPath)
			}
			if tt.wantTrusted && cfg.TrustedProjectConfigPath != projectPath {
				t.Fatalf("expected trusted path %q, got %q", projectPath, cfg.TrustedProjectConfigPath)
			}
		})
	}
}
