package mailer

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"

	"github.com/goliatone/go-accounts"
)

// Dialer sends prepared messages, *gomail.Dialer satisfies it
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers account emails over SMTP
type SMTPMailer struct {
	cfg      Config
	dialer   Dialer
	renderer *Renderer
	logger   accounts.Logger
}

var _ accounts.MailSender = (*SMTPMailer)(nil)

type Option func(*SMTPMailer)

// WithDialer replaces the gomail dialer
func WithDialer(d Dialer) Option {
	return func(m *SMTPMailer) {
		if d != nil {
			m.dialer = d
		}
	}
}

func WithLogger(logger accounts.Logger) Option {
	return func(m *SMTPMailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewSMTPMailer(cfg Config, logger accounts.Logger, opts ...Option) (*SMTPMailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	renderer, err := NewRenderer(cfg.AppName)
	if err != nil {
		return nil, err
	}

	m := &SMTPMailer{
		cfg:      cfg,
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		renderer: renderer,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// SendConfirmAccountMail sends one message per recipient. The first
// failure is returned and the remaining recipients are skipped.
func (m *SMTPMailer) SendConfirmAccountMail(ctx context.Context, mail accounts.ConfirmAccountMail) error {
	if len(mail.To) == 0 {
		return goerrors.New("no recipients specified", goerrors.CategoryBadInput)
	}

	for _, to := range mail.To {
		if err := ctx.Err(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "confirmation email cancelled")
		}

		msg, err := m.confirmAccountMessage(to, mail.ConfirmationURL)
		if err != nil {
			return err
		}

		if err := m.dialer.DialAndSend(msg); err != nil {
			if m.logger != nil {
				m.logger.Error("smtp delivery failed: host=%s err=%v", m.cfg.Host, err)
			}
			return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver confirmation email")
		}
	}

	return nil
}

func (m *SMTPMailer) confirmAccountMessage(to accounts.Recipient, confirmationURL string) (*gomail.Message, error) {
	html, text, err := m.renderer.ConfirmAccount(to.Name, confirmationURL)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetAddressHeader("To", to.Email, to.Name)
	msg.SetHeader("Subject", m.cfg.Subject)
	msg.SetBody("text/html", html)
	msg.AddAlternative("text/plain", text)

	return msg, nil
}
