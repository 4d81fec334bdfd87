// Package mail sends transactional email over SMTP.
package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// Sender delivers plain-text mail through one SMTP account. Sends are
// synchronous single attempts; the caller decides whether a failure aborts
// the surrounding operation.
type Sender struct {
	host     string
	port     string
	username string
	password string
}

// NewSender creates an SMTP sender for the given account.
func NewSender(host, port, user, pass string) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: user,
		password: pass,
	}
}

// Send delivers one message. Port 465 uses implicit TLS, anything else
// STARTTLS.
func (s *Sender) Send(to, subject, body string) error {
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", s.username) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)

	addr := s.host + ":" + s.port
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	if s.port != "465" {
		if err := smtp.SendMail(addr, auth, s.username, []string{to}, msg); err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.host})
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(s.username); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}

	return nil
}
