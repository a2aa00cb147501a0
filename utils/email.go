package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds email configuration
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends HTML e-mail.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends mail through an SMTP relay with gomail.
type SMTPMailer struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg EmailConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// NopMailer drops every message. Used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) Send(to, subject, htmlBody string) error {
	LogDebug("Mail to %s dropped (SMTP not configured): %s", to, subject)
	return nil
}

// PaymentReceivedEmail renders the message sent to a farmer when an order is paid.
func PaymentReceivedEmail(farmerName, orderRef, amount, receipt string) (string, string) {
	subject := fmt.Sprintf("%s: payment received for order %s", AppName, orderRef)
	body := fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>A buyer has paid <strong>KES %s</strong> for order <strong>%s</strong>.</p>
		<p>M-Pesa receipt: %s</p>
		<p>Please log in to confirm or reject the order.</p>
	`, farmerName, amount, orderRef, receipt)
	return subject, body
}
