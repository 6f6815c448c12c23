package jobs

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer talks to a plain SMTP relay (Mailpit locally).
type SMTPMailer struct {
	Host string
	Port int
	From string
}

// Send delivers one message without authentication.
func (m SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	return smtp.SendMail(addr, nil, m.From, []string{to}, []byte(msg.String()))
}
