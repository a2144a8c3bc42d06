package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer is the out-of-band delivery channel for password-reset tokens.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPMailer struct {
	host string
	port int
	from string
	auth smtp.Auth
}

func NewSMTP(host string, port int, from string, username string, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{host: host, port: port, from: from, auth: auth}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// ResetMessage builds the password-reset mail carrying the plaintext token.
func ResetMessage(to string, resetURL string) Message {
	return Message{
		To:      to,
		Subject: "Password reset token",
		Body: "You are receiving this email because you, or someone else, has requested " +
			"the reset of a password. Please make a PUT request to: \n\n " + resetURL,
	}
}
