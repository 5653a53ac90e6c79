package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	Cache     CacheConfig     `yaml:"cache"`
	Blob      BlobConfig      `yaml:"blob"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Upload    UploadConfig    `yaml:"upload"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DatabaseConfig selects the storage backend. Driver is one of postgres,
// sqlite3 or memory.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"         env:"DB_DRIVER"          env-default:"postgres"`
	Host         string `yaml:"host"           env:"DB_HOST"            env-default:"localhost"`
	Port         int    `yaml:"port"           env:"DB_PORT"            env-default:"5432"`
	User         string `yaml:"user"           env:"DB_USER"            env-default:"postgres"`
	Password     string `yaml:"password"       env:"DB_PASSWORD"        env-default:"postgres"`
	Database     string `yaml:"name"           env:"DB_NAME"            env-default:"prompts"`
	SSLMode      string `yaml:"ssl_mode"       env:"DB_SSL_MODE"        env-default:"disable"`
	Path         string `yaml:"path"           env:"DB_PATH"            env-default:"prompts.db"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"  env-default:"25"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"  env-default:"5"`
	Seed         bool   `yaml:"seed"           env:"DB_SEED"            env-default:"true"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"      env:"SESSION_SECRET"      env-default:"fallback-secret-for-local-dev"`
	TTL        time.Duration `yaml:"ttl"         env:"SESSION_TTL"         env-default:"168h"`
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"session"`
	Secure     bool          `yaml:"secure"      env:"SESSION_SECURE"      env-default:"false"`
}

type AdminConfig struct {
	Email    string `yaml:"email"    env:"ADMIN_EMAIL"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	Name     string `yaml:"name"     env:"ADMIN_NAME" env-default:"Admin"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CacheConfig configures the rendered-view cache. An empty RedisAddr starts
// an embedded redis.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"    env:"CACHE_ENABLED"    env-default:"true"`
	RedisAddr string        `yaml:"redis_addr" env:"CACHE_REDIS_ADDR"`
	Password  string        `yaml:"password"   env:"CACHE_REDIS_PASSWORD"`
	DB        int           `yaml:"db"         env:"CACHE_REDIS_DB"   env-default:"0"`
	TTL       time.Duration `yaml:"ttl"        env:"CACHE_TTL"        env-default:"5m"`
}

type BlobConfig struct {
	Driver    string `yaml:"driver"     env:"BLOB_DRIVER"     env-default:"local"`
	LocalDir  string `yaml:"local_dir"  env:"BLOB_LOCAL_DIR"  env-default:"uploads"`
	PublicURL string `yaml:"public_url" env:"BLOB_PUBLIC_URL" env-default:"/uploads"`
	Bucket    string `yaml:"bucket"     env:"BLOB_S3_BUCKET"`
	Region    string `yaml:"region"     env:"BLOB_S3_REGION"  env-default:"us-east-1"`
	Endpoint  string `yaml:"endpoint"   env:"BLOB_S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"BLOB_S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"BLOB_S3_SECRET_KEY"`
}

type NotifyConfig struct {
	AppURL           string        `yaml:"app_url"            env:"APP_URL"                   env-default:"http://localhost:8080"`
	OneSignalAppID   string        `yaml:"onesignal_app_id"   env:"ONESIGNAL_APP_ID"`
	OneSignalAPIKey  string        `yaml:"onesignal_api_key"  env:"ONESIGNAL_REST_API_KEY"`
	OneSignalBaseURL string        `yaml:"onesignal_base_url" env:"ONESIGNAL_BASE_URL"        env-default:"https://onesignal.com/api/v1"`
	DiscordWebhook   string        `yaml:"discord_webhook"    env:"DISCORD_DEFAULT_WEBHOOK"`
	RateLimitMs      int           `yaml:"rate_limit_ms"      env:"DISCORD_RATE_LIMIT_MS"     env-default:"1000"`
	Timeout          time.Duration `yaml:"timeout"            env:"NOTIFY_TIMEOUT"            env-default:"10s"`
}

type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"         env:"SCHEDULER_ENABLED"         env-default:"true"`
	DigestSchedule string `yaml:"digest_schedule" env:"SCHEDULER_DIGEST_SCHEDULE" env-default:"@daily"`
	SweepSchedule  string `yaml:"sweep_schedule"  env:"SCHEDULER_SWEEP_SCHEDULE"  env-default:"@hourly"`
}

// UploadConfig limits submissions. Uploads younger than OrphanGrace are
// never swept, so a submission in progress keeps its image.
type UploadConfig struct {
	MaxImageBytes int64         `yaml:"max_image_bytes" env:"UPLOAD_MAX_IMAGE_BYTES" env-default:"10485760"`
	OrphanGrace   time.Duration `yaml:"orphan_grace"    env:"UPLOAD_ORPHAN_GRACE"    env-default:"1h"`
}

// Load reads configuration from an optional YAML file and environment
// variables. Priority: ENV > YAML > env-default tags. The file path comes from
// CONFIG_PATH (fallback "./config.yaml"); a missing default file is not an
// error.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite3", "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported %q", c.Database.Driver))
	}

	if len(c.Session.Secret) < 16 {
		errs = append(errs, errors.New("session.secret: must be at least 16 characters"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl: must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name: required"))
	}

	switch c.Blob.Driver {
	case "local":
		if c.Blob.LocalDir == "" {
			errs = append(errs, errors.New("blob.local_dir: required for local driver"))
		}
	case "s3":
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("blob.bucket: required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver: unsupported %q", c.Blob.Driver))
	}

	if c.Upload.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("upload.max_image_bytes: must be positive"))
	}
	if c.Upload.OrphanGrace < 0 {
		errs = append(errs, errors.New("upload.orphan_grace: must not be negative"))
	}

	if c.Notify.AppURL != "" {
		if _, err := url.Parse(c.Notify.AppURL); err != nil {
			errs = append(errs, fmt.Errorf("notify.app_url: %w", err))
		}
	}

	return errors.Join(errs...)
}

// DSN returns the driver-specific data source name.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite3" {
		return c.Path
	}
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
