package contacts

import (
	"context"
	"fmt"
	"io"
)

// Logger is the minimal logging surface library code depends on. The
// service binary plugs in a structured logger; tests and zero-config use
// fall back to defLogger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config carries the process-wide settings consumed by the token service
// and the credential flows. Values are read once at startup.
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetBaseURL() string
}

// Mailer delivers verification mail. Best effort contract: callers
// dispatch sends fire-and-forget and only log failures, delivery is never
// part of a request's consistency guarantee.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
}

// AvatarStore persists uploaded avatar images and returns the public URL
// for the stored file. Resizing and transport are the collaborator's
// concern; this core only records the resulting URL.
type AvatarStore interface {
	Save(ctx context.Context, userID string, filename string, r io.Reader) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CONTACTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CONTACTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CONTACTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CONTACTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
