// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const (
	BackendGitHub = "github"
	BackendS3     = "s3"

	DurableBadger   = "badger"
	DurablePostgres = "postgres"
	DurableNone     = "none"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port      string `validate:"required,numeric"`
	AppEnv    string `validate:"oneof=development production test"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`

	// StorageBackend is the backend used when a request does not pick one.
	StorageBackend  string `validate:"oneof=github s3"`
	UploadsRoot     string `validate:"required"`
	MaxFileSize     int64  `validate:"gt=0"`
	PreviewMaxSize  int64  `validate:"gt=0"`
	TextExtensions  []string
	ListConcurrency int `validate:"min=1,max=64"`

	DatabaseURL string

	Cache   CacheConfig
	GitHub  GitHubConfig
	Storage StorageConfig
}

// CacheConfig tunes the listing cache.
type CacheConfig struct {
	TTL        time.Duration `validate:"gt=0"`
	MaxRecords int           `validate:"gt=0"`
	Durable    string        `validate:"oneof=badger postgres none"`
	BadgerPath string        `validate:"required_if=Durable badger"`
}

// GitHubConfig identifies the repository backend and its credential. Either
// Token or the three App fields are used.
type GitHubConfig struct {
	Token       string
	Owner       string
	Repo        string
	Branch      string `validate:"required"`
	APIBase     string `validate:"required,url"`
	RawBase     string `validate:"required,url"`
	CommitDates bool

	AppID          string
	InstallationID string
	PrivateKeyFile string
}

// UsesApp reports whether GitHub App credentials are configured.
func (g GitHubConfig) UsesApp() bool {
	return g.AppID != "" && g.InstallationID != "" && g.PrivateKeyFile != ""
}

// MissingReason explains why the GitHub backend cannot be used, or returns
// "" when it is fully configured.
func (g GitHubConfig) MissingReason() string {
	switch {
	case g.Owner == "" || g.Repo == "":
		return "GITHUB_OWNER and GITHUB_REPO are not set"
	case g.Token == "" && !g.UsesApp():
		return "GITHUB_TOKEN is not set"
	}
	return ""
}

// StorageConfig holds the S3-compatible object storage settings (MinIO
// locally, any S3 provider in production).
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PresignExpiry time.Duration `validate:"gt=0"`
	CreateBucket  bool
}

// MissingReason explains why the S3 backend cannot be used, or returns ""
// when it is fully configured.
func (s StorageConfig) MissingReason() string {
	var missing []string
	for _, kv := range [][2]string{
		{"STORAGE_ENDPOINT", s.Endpoint},
		{"STORAGE_ACCESS_KEY", s.AccessKey},
		{"STORAGE_SECRET_KEY", s.SecretKey},
		{"STORAGE_BUCKET", s.Bucket},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return strings.Join(missing, ", ") + " not set"
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", BackendGitHub)),
		UploadsRoot:     strings.Trim(getEnv("UPLOADS_ROOT", "uploads"), "/"),
		MaxFileSize:     getSize("MAX_FILE_SIZE", 10<<20),
		PreviewMaxSize:  getSize("PREVIEW_MAX_SIZE", 64<<10),
		TextExtensions:  getList("TEXT_EXTENSIONS", nil),
		ListConcurrency: getInt("LIST_CONCURRENCY", 4),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Cache: CacheConfig{
			TTL:        getDuration("CACHE_TTL", 30*time.Second),
			MaxRecords: getInt("CACHE_MAX_RECORDS", 200),
			Durable:    strings.ToLower(getEnv("CACHE_DURABLE", DurableBadger)),
			BadgerPath: getEnv("CACHE_BADGER_PATH", "data/cache"),
		},

		GitHub: GitHubConfig{
			Token:          getEnv("GITHUB_TOKEN", ""),
			Owner:          getEnv("GITHUB_OWNER", ""),
			Repo:           getEnv("GITHUB_REPO", ""),
			Branch:         getEnv("GITHUB_BRANCH", "main"),
			APIBase:        getEnv("GITHUB_API_BASE", "https://api.github.com"),
			RawBase:        getEnv("GITHUB_RAW_BASE", "https://raw.githubusercontent.com"),
			CommitDates:    getBool("GITHUB_COMMIT_DATES", false),
			AppID:          getEnv("GITHUB_APP_ID", ""),
			InstallationID: getEnv("GITHUB_APP_INSTALLATION_ID", ""),
			PrivateKeyFile: getEnv("GITHUB_APP_PRIVATE_KEY_FILE", ""),
		},

		Storage: StorageConfig{
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:        getEnv("STORAGE_BUCKET", ""),
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			UseSSL:        getBool("STORAGE_USE_SSL", false),
			PresignExpiry: getDuration("STORAGE_PRESIGN_EXPIRY", 15*time.Minute),
			CreateBucket:  getBool("STORAGE_CREATE_BUCKET", false),
		},
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ActiveMissingReason reports why the default backend is unusable, or ""
// when it is ready.
func (c *Config) ActiveMissingReason() string {
	if c.StorageBackend == BackendS3 {
		return c.Storage.MissingReason()
	}
	return c.GitHub.MissingReason()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// The typed getters return 0 (or false) for unparsable values so that
// Validate reports them.

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// getSize accepts plain byte counts as well as "10MiB" or "64 kB".
func getSize(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := humanize.ParseBytes(strings.TrimSpace(v))
	if err != nil || n > 1<<40 {
		return 0
	}
	return int64(n)
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false
	}
	return b
}

// getDuration accepts Go durations ("30s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var errInvalidRoot = errors.New("UPLOADS_ROOT must be a relative path without '.' or '..' segments")

func validateRoot(root string) error {
	for _, seg := range strings.Split(root, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", errInvalidRoot, root)
		}
	}
	return nil
}
