package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/marketworks/listing-service/internal/config"
)

// SMTPMailer sends operational reports over SMTP.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendReindexReport mails the outcome of a full search reindex run to the
// given operator address.
func (m *SMTPMailer) SendReindexReport(toEmail string, indexed int, took time.Duration, reindexErr error) error {
	subject, body := reportMessage(indexed, took, reindexErr)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.SenderEmail)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send reindex report to %s: %w", toEmail, err)
	}
	return nil
}

func reportMessage(indexed int, took time.Duration, reindexErr error) (subject, body string) {
	if reindexErr != nil {
		return "Search reindex failed",
			fmt.Sprintf("Search reindex failed after %s: %v", took.Round(time.Millisecond), reindexErr)
	}
	return "Search reindex completed",
		fmt.Sprintf("Search reindex finished in %s. Listings indexed: %d.", took.Round(time.Millisecond), indexed)
}
