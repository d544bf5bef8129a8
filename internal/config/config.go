package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 汇总服务运行所需的全部环境变量
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`
	SiteURL string `env:"SITE_URL" envDefault:"http://localhost:8080"`

	DatabaseDriver string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"host=localhost user=postgres password=postgres dbname=agora port=5432 sslmode=disable TimeZone=UTC"`

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"secret_key_change_me"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"jwt_secret_change_me"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	// ADMIN_EMAILS=alice@example.com,bob@example.com
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	TemplatesDir string `env:"TEMPLATES_DIR" envDefault:"./web/templates"`
	StaticDir    string `env:"STATIC_DIR" envDefault:"./web/static"`

	CacheSize int           `env:"CACHE_SIZE" envDefault:"500"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"1m"`

	Storage StorageConfig `envPrefix:"STORAGE_"`
}

// StorageConfig 对象存储配置，兼容 Cloudflare R2 / MinIO / AWS S3
type StorageConfig struct {
	Endpoint        string        `env:"ENDPOINT"`
	Region          string        `env:"REGION" envDefault:"auto"`
	Bucket          string        `env:"BUCKET"`
	AccessKeyID     string        `env:"ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"SECRET_ACCESS_KEY"`
	PublicURL       string        `env:"PUBLIC_URL"`
	UsePathStyle    bool          `env:"USE_PATH_STYLE" envDefault:"false"`
	PresignTTL      time.Duration `env:"PRESIGN_TTL" envDefault:"1h"`
}

// Enabled 未配置 bucket 时附件上传不可用
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// Load reads .env (if present) and parses the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.AdminEmails = NormalizeEmails(cfg.AdminEmails)
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}
	return cfg, nil
}

// ParseEnv parses environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// NormalizeEmails trims and lowercases a list of addresses, dropping blanks.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
