package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/erp-questionnaire/paging"
)

type AdminUser struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		AllowOrigins []string `yaml:"allow_origins"`
		GinMode      string   `yaml:"gin_mode"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"` // postgres, sqlite
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Supabase struct {
		URL    string `yaml:"url"`
		Key    string `yaml:"key"`
		Bucket string `yaml:"bucket"`
	} `yaml:"supabase"`
	Auth struct {
		JWTSecret string      `yaml:"jwt_secret"`
		TokenTTL  string      `yaml:"token_ttl"`
		Admins    []AdminUser `yaml:"admins"`
	} `yaml:"auth"`
	Export struct {
		Dir     string `yaml:"dir"`
		Timeout string `yaml:"timeout"`
	} `yaml:"export"`
	Paging    paging.Options `yaml:"paging"`
	RateLimit struct {
		SubmitPerMinute int `yaml:"submit_per_minute"`
		Burst           int `yaml:"burst"`
	} `yaml:"rate_limit"`
	Upload struct {
		MaxBytes int64 `yaml:"max_bytes"`
	} `yaml:"upload"`
	Log LoggerConfig `yaml:"log"`
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides (a .env file is loaded first if present) and defaults.
func Load(path string) (Config, error) {
	var cfg Config
	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return cfg, err
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = strings.Split(v, ",")
	}
	setString(&cfg.Server.GinMode, "GIN_MODE")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	if cfg.Database.DSN == "" && os.Getenv("DB_HOST") != "" {
		cfg.Database.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), os.Getenv("DB_PORT"))
	}
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Supabase.URL, "SUPABASE_URL")
	setString(&cfg.Supabase.Key, "SUPABASE_KEY")
	setString(&cfg.Supabase.Bucket, "SUPABASE_BUCKET")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Export.Dir, "EXPORT_DIR")
	setString(&cfg.Log.LogLevel, "LOG_LEVEL")
	if v, err := strconv.ParseInt(os.Getenv("UPLOAD_MAX_BYTES"), 10, 64); err == nil && v > 0 {
		cfg.Upload.MaxBytes = v
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "./exports"
	}
	if cfg.RateLimit.SubmitPerMinute <= 0 {
		cfg.RateLimit.SubmitPerMinute = 10
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = 10 << 20
	}
	if cfg.Log.LogLevel == "" {
		cfg.Log.LogLevel = "info"
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// OpenDB connects with the configured driver. Schema changes are left to
// the migrate command.
func OpenDB(cfg Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, errors.New("database dsn is not set")
	}
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}
