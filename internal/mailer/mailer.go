package mailer

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer sends transactional email. Workflow notifications treat send
// failures as best-effort; OTP delivery does not (no email, no code).
type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewFromEnv builds a Mailer from SMTP_* environment variables. Without an
// SMTP_HOST the returned mailer only logs messages, which keeps local
// development working without a mail server.
func NewFromEnv() Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return &logMailer{}
	}

	port := 587
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
		port = p
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	return &smtpMailer{
		host: host,
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASSWORD"),
		from: from,
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return dialer.DialAndSend(msg)
}

// logMailer is the development fallback: record instead of send.
type logMailer struct{}

func (m *logMailer) Send(to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("SMTP not configured, logging mail instead of sending")
	return nil
}
