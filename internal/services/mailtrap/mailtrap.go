// Package mailtrap provides email sending functionality via Mailtrap API.
package mailtrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

const defaultSendURL = "https://send.api.mailtrap.io/api/send"

var ErrSendFailed = errors.New("mailtrap: send failed")

// Config holds the Mailtrap credentials and sender identity.
type Config struct {
	APIKey    string
	URL       string
	FromEmail string
	FromName  string
}

type MailtrapService struct {
	apiKey string
	url    string
	from   EmailRecipient
	client *http.Client
}

func NewMailtrapService(cfg Config) *MailtrapService {
	url := cfg.URL
	if url == "" {
		url = defaultSendURL
	}

	return &MailtrapService{
		apiKey: cfg.APIKey,
		url:    url,
		from:   EmailRecipient{Email: cfg.FromEmail, Name: cfg.FromName},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// EmailRecipient represents an email recipient
type EmailRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailRequest represents the request payload for sending an email
type EmailRequest struct {
	From     EmailRecipient   `json:"from"`
	To       []EmailRecipient `json:"to"`
	Subject  string           `json:"subject"`
	HTML     string           `json:"html,omitempty"`
	Text     string           `json:"text,omitempty"`
	Category string           `json:"category,omitempty"`
}

var resetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Password Reset Request</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<p>Hello {{.Name}},</p>
		<p>Click this link to reset your password:</p>
		<a href="{{.URL}}">{{.URL}}</a>
		<p>This link will expire in 1 hour.</p>
		<p>If you didn't request a password reset, please ignore this email.</p>
	</div>
</body>
</html>`))

// SendPasswordReset emails the reset link to the account owner.
func (m *MailtrapService) SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error {
	var html bytes.Buffer
	if err := resetHTML.Execute(&html, struct{ Name, URL string }{toName, resetURL}); err != nil {
		return fmt.Errorf("rendering reset email: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\nClick this link to reset your password:\n\n%s\n\nThis link will expire in 1 hour.\n", toName, resetURL)

	return m.sendEmail(ctx, EmailRequest{
		From:     m.from,
		To:       []EmailRecipient{{Email: toEmail, Name: toName}},
		Subject:  "Password Reset Request",
		HTML:     html.String(),
		Text:     text,
		Category: "password_reset",
	})
}

// sendEmail sends an email via the Mailtrap API
func (m *MailtrapService) sendEmail(ctx context.Context, emailReq EmailRequest) error {
	payload, err := json.Marshal(emailReq)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: mailtrap API returned status %d", ErrSendFailed, resp.StatusCode)
	}

	return nil
}
