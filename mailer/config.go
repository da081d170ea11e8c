package mailer

import (
	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// Config holds SMTP settings, loaded from SMTP_* environment variables
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	Subject  string `env:"SMTP_SUBJECT" envDefault:"Confirm your account"`
	AppName  string `env:"SMTP_APP_NAME" envDefault:"Accounts"`
}

// LoadConfig parses the environment and validates the result
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse SMTP environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.From, validation.Required),
		validation.Field(&c.Subject, validation.Required),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid SMTP configuration")
	}
	return nil
}
