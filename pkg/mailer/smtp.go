package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"toolcart/pkg/utils"

	"go.uber.org/zap"
)

// Mailer delivers HTML notifications to a single recipient.
type Mailer interface {
	SendNotification(ctx context.Context, to, subject, htmlBody string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpMailer struct {
	host     string
	port     int
	from     string
	username string
	password string
	send     sendFunc
	log      *zap.Logger
}

// NewMailer returns an SMTP mailer, or a logging mailer when no SMTP host is
// configured (local development).
func NewMailer(cfg utils.EmailConfig, log *zap.Logger) Mailer {
	if cfg.Host == "" {
		log.Warn("SMTP_HOST not set, emails will only be logged")
		return &logMailer{log: log.With(zap.String("component", "mailer"))}
	}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}

	return &smtpMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     from,
		username: cfg.User,
		password: cfg.Password,
		send:     smtp.SendMail,
		log:      log.With(zap.String("component", "mailer")),
	}
}

func (m *smtpMailer) SendNotification(ctx context.Context, to, subject, htmlBody string) error {
	msg := buildMessage(m.from, to, subject, htmlBody, time.Now())
	addr := m.host + ":" + strconv.Itoa(m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	// net/smtp has no context support, so give up waiting when ctx ends.
	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.log.Error("Failed to send email", zap.Error(err), zap.String("to", to), zap.String("subject", subject))
			return fmt.Errorf("send email to %s: %w", to, err)
		}
		m.log.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", to, ctx.Err())
	}
}

func buildMessage(from, to, subject, htmlBody string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// logMailer is used in development when SMTP is not configured.
type logMailer struct {
	log *zap.Logger
}

func (m *logMailer) SendNotification(ctx context.Context, to, subject, htmlBody string) error {
	m.log.Info("Email (not sent, SMTP disabled)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", htmlBody),
	)
	return nil
}
