package contacts

import (
	"context"
)

// logMailer is the default Mailer: it writes the verification link to the
// logger instead of sending mail. Useful for development and as a stand-in
// until an SMTP collaborator is wired.
type logMailer struct {
	logger Logger
}

// NewLogMailer returns a Mailer that records verification links in the log
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &logMailer{logger: logger}
}

func (m *logMailer) SendVerification(ctx context.Context, email, link string) error {
	m.logger.Info("verification mail to %s: %s", email, link)
	return nil
}
