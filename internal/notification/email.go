package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService delivers codes and links over SMTP.
type EmailService struct {
	config EmailConfig
	dialer *gomail.Dialer
}

// NewEmailService creates a new email delivery channel.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Password),
	}
}

// SendSigninCode emails a one-time sign-in code.
func (s *EmailService) SendSigninCode(_ context.Context, destination, code string) error {
	body := fmt.Sprintf(`<html><body>
		<h2>Your sign-in code</h2>
		<p>Enter this code to sign in:</p>
		<p style="font-size:28px;letter-spacing:4px;"><strong>%s</strong></p>
		<p>The code expires in 10 minutes. If you did not request it, you can ignore this email.</p>
	</body></html>`, code)
	return s.send(destination, "Your sign-in code", body)
}

// SendVerificationLink emails a verification URL.
func (s *EmailService) SendVerificationLink(_ context.Context, destination, link string) error {
	body := fmt.Sprintf(`<html><body>
		<h2>Verify your email address</h2>
		<p><a href="%s">Click here to verify your email</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 24 hours.</p>
	</body></html>`, link, link)
	return s.send(destination, "Verify your email address", body)
}

func (s *EmailService) send(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
