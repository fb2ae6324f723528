package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"docstore/internal/models"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:7341"
	DefaultDBFileName     = ".docstore.db"
	DefaultBlobDirName    = ".docstore-blobs"
	DefaultLogLevel       = "info"
	DefaultConfigFileName = ".docstore.toml"

	DefaultRenditionWorkers      = 2
	DefaultRenditionQueueSize    = 64
	DefaultRenditionWaitTimeout  = 30 * time.Second
	DefaultRenditionJobRetention = 1024

	DefaultConverterBinary       = "soffice"
	DefaultConverterTimeout      = 2 * time.Minute
	DefaultConverterMaxProcesses = 2

	DefaultUploadMaxBytes           int64 = 100 * 1024 * 1024
	DefaultUploadMultipartMaxMemory int64 = 8 * 1024 * 1024

	configDirEnvKey          = "DOCSTORE_CONFIG_DIR"
	trustProjectConfigEnvKey = "DOCSTORE_TRUST_PROJECT_CONFIG"

	apiURLEnvKey       = "DOCSTORE_API_URL"
	dbPathEnvKey       = "DOCSTORE_DB"
	blobRootEnvKey     = "DOCSTORE_BLOB_ROOT"
	sofficeEnvKey      = "DOCSTORE_SOFFICE"
	apiTokenEnvKey     = "DOCSTORE_API_TOKEN"
	apiTokenHashEnvKey = "DOCSTORE_API_TOKEN_HASH"
	allowedExtsEnvKey  = "DOCSTORE_UPLOAD_ALLOWED_EXTENSIONS"
)

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// RenditionConfig sizes the rendition worker pool.
type RenditionConfig struct {
	Workers      int      `toml:"workers"`
	QueueSize    int      `toml:"queue_size"`
	WaitTimeout  Duration `toml:"wait_timeout"`
	JobRetention int      `toml:"job_retention"`
}

// ConverterConfig configures the office-suite converter.
type ConverterConfig struct {
	Binary       string   `toml:"binary"`
	Timeout      Duration `toml:"timeout"`
	MaxProcesses int      `toml:"max_processes"`
}

// UploadConfig bounds content uploads.
type UploadConfig struct {
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	AllowedExtensions  []string `toml:"allowed_extensions"`
}

// Config defines runtime configuration for docstore.
type Config struct {
	APIURL                   string          `toml:"api_url"`
	APIToken                 string          `toml:"api_token"`
	APITokenHash             string          `toml:"api_token_hash"`
	DBPath                   string          `toml:"db_path"`
	BlobRoot                 string          `toml:"blob_root"`
	LogLevel                 string          `toml:"log_level"`
	FormatsFile              string          `toml:"formats_file"`
	Rendition                RenditionConfig `toml:"rendition"`
	Converter                ConverterConfig `toml:"converter"`
	Uploads                  UploadConfig    `toml:"uploads"`
	TrustedProjectConfigPath string          `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Rendition: RenditionConfig{
			Workers:      DefaultRenditionWorkers,
			QueueSize:    DefaultRenditionQueueSize,
			WaitTimeout:  Duration{DefaultRenditionWaitTimeout},
			JobRetention: DefaultRenditionJobRetention,
		},
		Converter: ConverterConfig{
			Binary:       DefaultConverterBinary,
			Timeout:      Duration{DefaultConverterTimeout},
			MaxProcesses: DefaultConverterMaxProcesses,
		},
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultUploadMaxBytes,
			MultipartMaxMemory: DefaultUploadMultipartMaxMemory,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, DefaultConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"api_token",
	"api_token_hash",
	"db_path",
	"blob_root",
	"log_level",
	"formats_file",
	"rendition.workers",
	"rendition.queue_size",
	"rendition.wait_timeout",
	"rendition.job_retention",
	"converter.binary",
	"converter.timeout",
	"converter.max_processes",
	"uploads.max_upload_bytes",
	"uploads.multipart_max_memory",
	"uploads.allowed_extensions",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "api_token":
		return c.APIToken, nil
	case "api_token_hash":
		return c.APITokenHash, nil
	case "db_path":
		return c.DBPath, nil
	case "blob_root":
		return c.BlobRoot, nil
	case "log_level":
		return c.LogLevel, nil
	case "formats_file":
		return c.FormatsFile, nil
	case "rendition.workers":
		return strconv.Itoa(c.Rendition.Workers), nil
	case "rendition.queue_size":
		return strconv.Itoa(c.Rendition.QueueSize), nil
	case "rendition.wait_timeout":
		return c.Rendition.WaitTimeout.String(), nil
	case "rendition.job_retention":
		return strconv.Itoa(c.Rendition.JobRetention), nil
	case "converter.binary":
		return c.Converter.Binary, nil
	case "converter.timeout":
		return c.Converter.Timeout.String(), nil
	case "converter.max_processes":
		return strconv.Itoa(c.Converter.MaxProcesses), nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "uploads.allowed_extensions":
		return strings.Join(c.Uploads.AllowedExtensions, ","), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, DefaultConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, DefaultConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
		if cfg.BlobRoot == "" {
			cfg.BlobRoot = filepath.Join(cwd, DefaultBlobDirName)
		}
	}

	if v := os.Getenv(apiURLEnvKey); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(apiTokenEnvKey); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv(apiTokenHashEnvKey); v != "" {
		cfg.APITokenHash = v
	}
	if v := os.Getenv(dbPathEnvKey); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(blobRootEnvKey); v != "" {
		cfg.BlobRoot = v
	}
	if v := os.Getenv(sofficeEnvKey); v != "" {
		cfg.Converter.Binary = v
	}
	if raw := strings.TrimSpace(os.Getenv(allowedExtsEnvKey)); raw != "" {
		cfg.Uploads.AllowedExtensions = splitCSV(raw)
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_upload_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "rendition.workers", "rendition.queue_size", "rendition.job_retention", "converter.max_processes":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "rendition.wait_timeout", "converter.timeout":
		parsed, err := parseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return parsed.String(), nil
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("log_level must be one of debug, info, warn, error")
	case "uploads.allowed_extensions":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(seconds) * time.Second, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return parsed, nil
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Rendition.Workers <= 0 {
		c.Rendition.Workers = DefaultRenditionWorkers
	}
	if c.Rendition.QueueSize <= 0 {
		c.Rendition.QueueSize = DefaultRenditionQueueSize
	}
	if c.Rendition.WaitTimeout.Duration <= 0 {
		c.Rendition.WaitTimeout = Duration{DefaultRenditionWaitTimeout}
	}
	if c.Rendition.JobRetention <= 0 {
		c.Rendition.JobRetention = DefaultRenditionJobRetention
	}
	if strings.TrimSpace(c.Converter.Binary) == "" {
		c.Converter.Binary = DefaultConverterBinary
	}
	if c.Converter.Timeout.Duration <= 0 {
		c.Converter.Timeout = Duration{DefaultConverterTimeout}
	}
	if c.Converter.MaxProcesses <= 0 {
		c.Converter.MaxProcesses = DefaultConverterMaxProcesses
	}
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultUploadMaxBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultUploadMultipartMaxMemory
	}
	c.Uploads.AllowedExtensions = normalizeExtensions(c.Uploads.AllowedExtensions)
}

func normalizeExtensions(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	seen := map[string]struct{}{}
	for _, value := range raw {
		ext := models.NormalizeExtension(value)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
