package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// BrevoSender delivers transactional email through the Brevo SMTP API.
type BrevoSender struct {
	apiKey      string
	senderName  string
	senderEmail string
	client      *http.Client
}

// NewBrevoSender creates a BrevoSender. A nil client defaults to one with a
// 10-second timeout.
func NewBrevoSender(apiKey, senderName, senderEmail string, client *http.Client) *BrevoSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &BrevoSender{
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
		client:      client,
	}
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoRecipient   `json:"sender"`
	To          []brevoRecipient `json:"to"`
	Subject     string           `json:"subject"`
	HTMLContent string           `json:"htmlContent"`
}

// Send posts the email to the Brevo API. Non-2xx responses are returned as
// errors with the response body included for the logs.
func (s *BrevoSender) Send(ctx context.Context, to, subject, html string) error {
	payload := brevoRequest{
		Sender:      brevoRecipient{Name: s.senderName, Email: s.senderEmail},
		To:          []brevoRecipient{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo API error (%d): %s", resp.StatusCode, respBody)
	}

	log.Debug().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

var _ EmailSender = (*BrevoSender)(nil)

// EmailService composes the verification and reset emails and hands them to
// the configured sender.
type EmailService struct {
	sender    EmailSender
	clientURL string
}

// NewEmailService creates an EmailService building links against clientURL.
func NewEmailService(sender EmailSender, clientURL string) *EmailService {
	return &EmailService{sender: sender, clientURL: clientURL}
}

// SendVerificationEmail emails the account verification link for token.
func (s *EmailService) SendVerificationEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.clientURL, url.QueryEscape(token))
	html := emailTemplate(
		"Email Verification",
		"Click the button below to verify your email address. This link will expire in 24 hours.",
		link,
		"Verify Email",
		"If you did not create an account, please ignore this email.",
	)
	return s.sender.Send(ctx, to, "Verify Your Email", html)
}

// SendResetEmail emails the password reset link for token.
func (s *EmailService) SendResetEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, url.QueryEscape(token))
	html := emailTemplate(
		"Password Reset",
		"Click the button below to reset your password. This link will expire in 15 minutes.",
		link,
		"Reset Password",
		"If you did not request a password reset, please ignore this email.",
	)
	return s.sender.Send(ctx, to, "Reset Your Password", html)
}

func emailTemplate(heading, body, link, cta, footer string) string {
	return fmt.Sprintf(`
      <div style="font-family: Arial, sans-serif; max-width: 480px; margin: 0 auto; padding: 32px;">
        <h2 style="color: #1a1a1a;">%s</h2>
        <p style="color: #4a4a4a; line-height: 1.6;">%s</p>
        <a href="%s"
           style="display: inline-block; padding: 12px 24px; background-color: #1a1a1a; color: #ffffff; text-decoration: none; border-radius: 4px; margin-top: 16px;">%s</a>
        <p style="color: #999; font-size: 12px; margin-top: 24px;">%s</p>
      </div>`,
		heading, body, link, cta, footer)
}
