package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns a lib/pq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// SafeDSN is DSN without the password, for logging.
func (c DatabaseConfig) SafeDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host       string        `mapstructure:"host"`
	Port       string        `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secret_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type RefreshConfig struct {
	TTL                  time.Duration `mapstructure:"ttl"`
	RevokeFamilyOnReuse  bool          `mapstructure:"revoke_family_on_reuse"`
	RevokeOthersOnSignIn bool          `mapstructure:"revoke_others_on_sign_in"`
}

type SecurityConfig struct {
	PasswordHashCost int `mapstructure:"password_hash_cost"`
	TokenHashCost    int `mapstructure:"token_hash_cost"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type AuthConfig struct {
	AllowRoleOnRegister bool `mapstructure:"allow_role_on_register"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Security SecurityConfig `mapstructure:"security"`
	Google   GoogleConfig   `mapstructure:"google"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

var defaults = map[string]any{
	"server.port":                      "8080",
	"server.shutdown_timeout":          5 * time.Second,
	"database.host":                    "localhost",
	"database.port":                    5432,
	"database.user":                    "postgres",
	"database.password":                "",
	"database.name":                    "auth",
	"database.sslmode":                 "disable",
	"database.max_open_conns":          10,
	"database.max_idle_conns":          5,
	"database.conn_max_idle_time":      30 * time.Second,
	"redis.host":                       "",
	"redis.port":                       "6379",
	"redis.password":                   "",
	"redis.db":                         0,
	"redis.profile_ttl":                10 * time.Minute,
	"jwt.secret_key":                   "",
	"jwt.issuer":                       "go-auth-api",
	"jwt.access_token_ttl":             15 * time.Minute,
	"refresh.ttl":                      7 * 24 * time.Hour,
	"refresh.revoke_family_on_reuse":   true,
	"refresh.revoke_others_on_sign_in": true,
	"security.password_hash_cost":      12,
	"security.token_hash_cost":         10,
	"google.client_id":                 "",
	"google.client_secret":             "",
	"google.redirect_url":              "",
	"auth.allow_role_on_register":      false,
	"log.level":                        "info",
	"log.format":                       "text",
}

// LoadConfig reads config.yml from path when present and applies environment
// overrides such as DATABASE_HOST or JWT_SECRET_KEY on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is required")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return errors.New("jwt.access_token_ttl must be positive")
	}
	if c.Refresh.TTL <= 0 {
		return errors.New("refresh.ttl must be positive")
	}
	return nil
}
