package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig holds SMS gateway settings. DryRun skips the HTTP call and
// logs the message instead, for local development.
type SMSConfig struct {
	APIURL string
	APIKey string
	Sender string
	DryRun bool
}

// SMSService delivers codes and links through an HTTP SMS gateway.
type SMSService struct {
	config SMSConfig
	client *http.Client
	logger *slog.Logger
}

// NewSMSService creates a new SMS delivery channel.
func NewSMSService(config SMSConfig, logger *slog.Logger) *SMSService {
	return &SMSService{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type gatewayResponse struct {
	Code int `json:"code"`
	Data struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

// SendSigninCode texts a one-time sign-in code.
func (s *SMSService) SendSigninCode(ctx context.Context, destination, code string) error {
	return s.send(ctx, destination, fmt.Sprintf("Your sign-in code is %s. It expires in 10 minutes.", code))
}

// SendVerificationLink texts a verification URL.
func (s *SMSService) SendVerificationLink(ctx context.Context, destination, link string) error {
	return s.send(ctx, destination, fmt.Sprintf("Confirm your phone number: %s", link))
}

func (s *SMSService) send(ctx context.Context, to, text string) error {
	if s.config.DryRun || s.config.APIKey == "" {
		s.logger.Info("sms dry-run", "to", to, "text", text)
		return nil
	}

	form := url.Values{
		"apiKey":    {s.config.APIKey},
		"recipient": {to},
		"text":      {text},
	}
	if s.config.Sender != "" {
		form.Set("from", s.config.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var gw gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		return fmt.Errorf("failed to decode sms gateway response: %w", err)
	}
	if gw.Code != 0 {
		return fmt.Errorf("sms gateway rejected message: code %d", gw.Code)
	}

	s.logger.Debug("sms sent", "to", to, "message_id", gw.Data.MessageID)
	return nil
}
