package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process-wide configuration populated from the environment.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"8080"`
	GinMode  string `envconfig:"GIN_MODE" default:"debug"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DB    DBConfig    `ignored:"true"`
	Auth  AuthConfig  `ignored:"true"`
	Zoho  ZohoConfig  `ignored:"true"`
	Email EmailConfig `ignored:"true"`

	RedisAddr     string   `envconfig:"REDIS_ADDR"`
	RedisPassword string   `envconfig:"REDIS_PASSWORD"`
	CORSOrigins   []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	BootstrapAdminEmail string `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminName  string `envconfig:"BOOTSTRAP_ADMIN_NAME" default:"Administrator"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"postgres"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// DSN builds the postgres connection URL.
func (c DBConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=" + c.SSLMode
}

type AuthConfig struct {
	JWTSecret     string        `envconfig:"JWT_SECRET"`
	TokenTTL      time.Duration `envconfig:"JWT_TTL" default:"1h"`
	CodeTTL       time.Duration `envconfig:"LOGIN_CODE_TTL" default:"15m"`
	MaxAttempts   int           `envconfig:"LOGIN_CODE_MAX_ATTEMPTS" default:"3"`
	ApproverRoles []string      `envconfig:"APPROVER_ROLES" default:"ceo,admin"`
	SecureCookie  bool          `envconfig:"COOKIE_SECURE" default:"false"`
}

type ZohoConfig struct {
	OrganizationID   string        `envconfig:"ZOHO_ORG_ID"`
	ClientID         string        `envconfig:"ZOHO_CLIENT_ID"`
	ClientSecret     string        `envconfig:"ZOHO_CLIENT_SECRET"`
	RefreshToken     string        `envconfig:"ZOHO_REFRESH_TOKEN"`
	AccountsURL      string        `envconfig:"ZOHO_ACCOUNTS_URL" default:"https://accounts.zoho.com"`
	APIBaseURL       string        `envconfig:"ZOHO_API_BASE_URL" default:"https://www.zohoapis.com"`
	Timeout          time.Duration `envconfig:"ZOHO_TIMEOUT" default:"15s"`
	SalesAccountID   string        `envconfig:"ZOHO_SALES_ACCOUNT_ID"`
	LookupCacheTTL   time.Duration `envconfig:"ZOHO_LOOKUP_CACHE_TTL" default:"5m"`
	TokenRefreshSkew time.Duration `envconfig:"ZOHO_TOKEN_REFRESH_SKEW" default:"60s"`
}

type EmailConfig struct {
	Transport       string        `envconfig:"EMAIL_TRANSPORT" default:"log"` // smtp, ses, log
	FromAddress     string        `envconfig:"EMAIL_FROM" default:"no-reply@example.com"`
	FromName        string        `envconfig:"EMAIL_FROM_NAME" default:"Approvals"`
	SMTPHost        string        `envconfig:"SMTP_HOST"`
	SMTPPort        int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser        string        `envconfig:"SMTP_USER"`
	SMTPPassword    string        `envconfig:"SMTP_PASSWORD"`
	AWSRegion       string        `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSAccessKeyID  string        `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey    string        `envconfig:"AWS_SECRET_ACCESS_KEY"`
	DispatchTimeout time.Duration `envconfig:"EMAIL_DISPATCH_TIMEOUT" default:"20s"`
	AppURL          string        `envconfig:"APP_URL" default:"http://localhost:3000"`
	OrgName         string        `envconfig:"ORG_NAME" default:"Operations"`
}

// Load reads configs/.env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	var cfg Config
	// Sections are processed on their own so keys are not prefixed with the field name.
	for _, section := range []interface{}{&cfg, &cfg.DB, &cfg.Auth, &cfg.Zoho, &cfg.Email} {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	for i, r := range c.Auth.ApproverRoles {
		c.Auth.ApproverRoles[i] = strings.ToLower(strings.TrimSpace(r))
	}
	c.Email.Transport = strings.ToLower(strings.TrimSpace(c.Email.Transport))
	if c.Auth.JWTSecret == "" && !c.IsProduction() {
		c.Auth.JWTSecret = "default_super_secret_key"
	}
}

// IsProduction reports whether release-mode safeguards apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.GinMode == "release"
}

// Validate enforces settings that have no safe default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required in production")
	}
	if len(c.Auth.ApproverRoles) == 0 {
		return errors.New("config: APPROVER_ROLES must not be empty")
	}
	switch c.Email.Transport {
	case "smtp":
		if c.Email.SMTPHost == "" {
			return errors.New("config: SMTP_HOST is required for smtp transport")
		}
	case "ses", "log":
	default:
		return fmt.Errorf("config: unknown EMAIL_TRANSPORT %q", c.Email.Transport)
	}
	return nil
}
