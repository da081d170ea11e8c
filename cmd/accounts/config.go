package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goliatone/go-accounts"
)

var (
	validLogLevels    = []string{"debug", "info", "warn", "error"}
	validDrivers      = []string{"sqlite", "postgres"}
	validHashers      = []string{"bcrypt", "argon2id"}
	validTransports   = []string{"log", "smtp"}
	errMissingSecret  = errors.New("jwt.secret is required")
	errMissingProject = errors.New("app.project_url is required")
)

// Config is the server configuration, it also satisfies accounts.Config
type Config struct {
	LogLevel   string
	Debug      bool
	ProjectURL string

	HTTPAddress string

	JWTSecret  string
	JWTIssuer  string
	SessionTTL int

	PasswordAlgorithm string
	BcryptCost        int

	DatabaseDriver string
	DatabaseDSN    string
	DatabaseDebug  bool

	MailTransport string

	SignupEnabled bool
	HashidIDs     bool
}

var _ accounts.Config = (*Config)(nil)

func (c *Config) GetSigningKey() string          { return c.JWTSecret }
func (c *Config) GetIssuer() string              { return c.JWTIssuer }
func (c *Config) GetSessionTokenExpiration() int { return c.SessionTTL }
func (c *Config) GetProjectURL() string          { return c.ProjectURL }

// LoadConfig reads flags, ACCOUNTS_* environment variables and an optional
// config file. Flags win over env, env wins over the file.
func LoadConfig(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("accounts", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a config file (toml, yaml or json)")
	flags.String("http.address", "", "HTTP listen address")
	flags.Bool("app.debug", false, "enable debug output")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()

	setDefaults(v)

	if err := v.BindPFlag("http.address", flags.Lookup("http.address")); err != nil {
		return nil, err
	}

	if err := v.BindPFlag("app.debug", flags.Lookup("app.debug")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("accounts")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	cfg := &Config{
		LogLevel:          v.GetString("app.log_level"),
		Debug:             v.GetBool("app.debug"),
		ProjectURL:        v.GetString("app.project_url"),
		HTTPAddress:       v.GetString("http.address"),
		JWTSecret:         v.GetString("jwt.secret"),
		JWTIssuer:         v.GetString("jwt.issuer"),
		SessionTTL:        v.GetInt("jwt.session_ttl"),
		PasswordAlgorithm: v.GetString("password.algorithm"),
		BcryptCost:        v.GetInt("password.bcrypt_cost"),
		DatabaseDriver:    v.GetString("database.driver"),
		DatabaseDSN:       v.GetString("database.dsn"),
		DatabaseDebug:     v.GetBool("database.debug"),
		MailTransport:     v.GetString("mail.transport"),
		SignupEnabled:     v.GetBool("features.signup"),
		HashidIDs:         v.GetBool("features.hashid_ids"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.debug", false)

	v.SetDefault("http.address", ":8572")

	v.SetDefault("jwt.issuer", "go-accounts")
	v.SetDefault("jwt.session_ttl", 0)

	v.SetDefault("password.algorithm", "bcrypt")
	v.SetDefault("password.bcrypt_cost", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:accounts.db?cache=shared")
	v.SetDefault("database.debug", false)

	v.SetDefault("mail.transport", "log")

	v.SetDefault("features.signup", true)
	v.SetDefault("features.hashid_ids", false)
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errMissingSecret
	}

	if c.ProjectURL == "" {
		return errMissingProject
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level provided: %q", c.LogLevel)
	}

	if !slices.Contains(validDrivers, c.DatabaseDriver) {
		return fmt.Errorf("invalid database driver provided: %q", c.DatabaseDriver)
	}

	if !slices.Contains(validHashers, c.PasswordAlgorithm) {
		return fmt.Errorf("invalid password algorithm provided: %q", c.PasswordAlgorithm)
	}

	if !slices.Contains(validTransports, c.MailTransport) {
		return fmt.Errorf("invalid mail transport provided: %q", c.MailTransport)
	}

	if c.SessionTTL < 0 {
		return errors.New("jwt.session_ttl must not be negative")
	}

	return nil
}
