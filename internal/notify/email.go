// Package notify delivers notifications to operators: e-mail over SMTP or
// to a directory, optionally PGP-signed, and issues on a GitHub tracker.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Email is a plain-text message independent of its recipient.
type Email interface {
	Subject() string
	Body() string
}

// Mailer delivers an Email to one recipient.
type Mailer interface {
	Send(ctx context.Context, recipient string, email Email) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, recipient string, email Email) error

// Send calls f.
func (f MailerFunc) Send(ctx context.Context, recipient string, email Email) error {
	return f(ctx, recipient, email)
}

// Render formats email as an RFC 5322 message with a UTF-8 plain-text
// body.
func Render(from, to string, email Email, date time.Time) []byte {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = strings.Trim(from[at+1:], "<> ")
	}

	var b bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", email.Subject()))
	header("Date", date.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(email.Body(), "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

type staticEmail struct {
	subject, body string
}

func (e staticEmail) Subject() string { return e.subject }
func (e staticEmail) Body() string    { return e.body }

// NewEmail returns an Email with a fixed subject and body.
func NewEmail(subject, body string) Email {
	return staticEmail{subject: subject, body: body}
}
