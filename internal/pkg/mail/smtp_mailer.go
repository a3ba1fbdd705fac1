package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
)

// SMTPMailer sends confirmation and recovery emails via SMTP.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailerFromEnv reads SMTP_* settings.
func NewSMTPMailerFromEnv() *SMTPMailer {
	m := &SMTPMailer{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", ""),
		send:     smtp.SendMail,
	}
	if m.Sender == "" {
		m.Sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", m.Sender)
	}
	return m
}

// Configured reports whether an SMTP host is set.
func (m *SMTPMailer) Configured() bool {
	return m.Host != ""
}

func (m *SMTPMailer) SendMail(to, subject, body string) error {
	var auth smtp.Auth
	if m.Username != "" && m.Password != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	err := m.send(addr, auth, m.Sender, []string{to}, buildMessage(m.Sender, to, subject, body))
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return err
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	// Header injection guard
	clean := strings.NewReplacer("\r", "", "\n", "")
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", clean.Replace(from), clean.Replace(to), clean.Replace(subject)) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)
}

// LogMailer writes mails to the log instead of sending them. Used in
// development when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) SendMail(to, subject, body string) error {
	log.Infof("[Mail] (not sent) to=%s subject=%q body=%s", to, subject, body)
	return nil
}
