package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// EmailAdapter delivers ticket notifications over SMTP. No pack library
// wraps a transactional-email provider; net/smtp is the stdlib-only
// component DESIGN.md documents for this concern.
type EmailAdapter struct {
	host     string
	port     string
	username string
	password string
	fromAddr string
	to       []string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger   *slog.Logger
}

// NewEmailAdapter builds an EmailAdapter for the given SMTP server and
// recipient list.
func NewEmailAdapter(host, port, username, password, fromAddr string, to []string) *EmailAdapter {
	return &EmailAdapter{
		host:     host,
		port:     port,
		username: username,
		password: password,
		fromAddr: fromAddr,
		to:       to,
		sendMail: smtp.SendMail,
		logger:   slog.Default().With("component", "email-adapter"),
	}
}

func (a *EmailAdapter) Send(ctx context.Context, evt Event) bool {
	if a == nil || len(a.to) == 0 {
		return false
	}

	subject := evt.EmailSubject
	body := evt.EmailBody
	if subject == "" {
		subject = fmt.Sprintf("[%s] %s", strings.ToUpper(evt.Severity), evt.Title)
	}
	if body == "" {
		body = evt.Description
	}

	msg := buildMIMEMessage(a.fromAddr, a.to, subject, body)

	var auth smtp.Auth
	if a.username != "" {
		auth = smtp.PlainAuth("", a.username, a.password, a.host)
	}

	addr := a.host + ":" + a.port
	if err := a.sendMail(addr, auth, a.fromAddr, a.to, msg); err != nil {
		a.logger.Error("failed to send email notification", "ticket_id", evt.TicketID, "error", err)
		return false
	}
	return true
}

func buildMIMEMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
