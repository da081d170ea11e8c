package accounts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-print"
)

// LogMailer prints confirmation emails instead of delivering them. Useful
// for local development where the link is copied from the output.
type LogMailer struct {
	out    io.Writer
	logger Logger
}

var _ MailSender = (*LogMailer)(nil)

// NewLogMailer writes to stdout when out is nil
func NewLogMailer(out io.Writer, logger Logger) *LogMailer {
	if out == nil {
		out = os.Stdout
	}

	if logger == nil {
		logger = defLogger{}
	}

	return &LogMailer{out: out, logger: logger}
}

func (m *LogMailer) SendConfirmAccountMail(ctx context.Context, mail ConfirmAccountMail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.logger.Info("confirm account mail for %d recipient(s)", len(mail.To))

	if _, err := fmt.Fprintln(m.out, print.MaybePrettyJSON(mail)); err != nil {
		return err
	}

	return nil
}
