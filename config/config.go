package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	passwordvalidator "github.com/wagslane/go-password-validator"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	GRPC     GRPCConfig
	MySQL    MySQLConfig
	Session  SessionConfig
	Tokens   TokenConfig
	Password PasswordConfig
	Mail     MailConfig
	Log      LogConfig
	Sweeper  SweeperConfig
}

type AppConfig struct {
	Env     string
	BaseURL string
}

type HTTPConfig struct {
	Host string
	Port string
}

type GRPCConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN string
}

type SessionConfig struct {
	TTL        time.Duration
	CookieName string
}

type TokenConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type PasswordConfig struct {
	Policy     PasswordPolicy
	BcryptCost int
}

type MailConfig struct {
	Driver     string
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Timeout    time.Duration
	MaxRetries int
}

type LogConfig struct {
	Level  string
	Format string
}

type SweeperConfig struct {
	Interval time.Duration
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
	// MinEntropyBits is checked with go-password-validator; zero disables the check.
	MinEntropyBits float64
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	if p.MinEntropyBits > 0 {
		if err := passwordvalidator.Validate(password, p.MinEntropyBits); err != nil {
			return errors.New("password is too easy to guess")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

func (c *Config) DSN() string {
	return c.MySQL.DSN
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN, err := normalizeDSN(os.Getenv("MYSQL_DSN"))
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("APP_BASE_URL")), "/")
	if baseURL == "" {
		return nil, errors.New("APP_BASE_URL environment variable is required")
	}

	mailDriver := strings.ToLower(getEnv("MAIL_DRIVER", MailDriverSMTP))
	if mailDriver != MailDriverSMTP && mailDriver != MailDriverLog {
		return nil, fmt.Errorf("unsupported MAIL_DRIVER %q", mailDriver)
	}
	mailHost := os.Getenv("SMTP_HOST")
	if mailDriver == MailDriverSMTP && mailHost == "" {
		return nil, errors.New("SMTP_HOST environment variable is required when MAIL_DRIVER=smtp")
	}

	return &Config{
		App: AppConfig{
			Env:     getEnv("APP_ENV", EnvDevelopment),
			BaseURL: baseURL,
		},
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", ""),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: GRPCConfig{
			Host: getEnv("GRPC_HOST", ""),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN: mysqlDSN,
		},
		Session: SessionConfig{
			TTL:        getDurationEnv("SESSION_TTL", 7*24*time.Hour),
			CookieName: getEnv("SESSION_COOKIE_NAME", "session_token"),
		},
		Tokens: TokenConfig{
			VerificationTTL: getDurationEnv("VERIFICATION_TOKEN_TTL", time.Hour),
			ResetTTL:        getDurationEnv("RESET_TOKEN_TTL", time.Hour),
		},
		Password: PasswordConfig{
			Policy:     loadPasswordPolicy(),
			BcryptCost: getIntEnv("BCRYPT_COST", 10),
		},
		Mail: MailConfig{
			Driver:     mailDriver,
			Host:       mailHost,
			Port:       getIntEnv("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       getEnv("MAIL_FROM", `"Lost & Found" <no-reply@localhost>`),
			Timeout:    getSecondsEnv("MAIL_TIMEOUT", 10*time.Second),
			MaxRetries: getIntEnv("MAIL_MAX_RETRIES", 2),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Sweeper: SweeperConfig{
			Interval: getDurationEnv("SWEEP_INTERVAL", 15*time.Minute),
		},
	}, nil
}

// normalizeDSN validates the MySQL DSN and forces parseTime, which the
// repositories rely on to scan DATETIME columns into time.Time.
func normalizeDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("MYSQL_DSN environment variable is required")
	}

	dsn, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("invalid MYSQL_DSN: %w", err)
	}
	dsn.ParseTime = true
	return dsn.FormatDSN(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv reads a whole number of minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 8),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
		MinEntropyBits:   getFloatEnv("PASSWORD_MIN_ENTROPY_BITS", 40),
	}
}
