// Package mailer delivers verification emails through an HTTP mail API. The
// state machine only sees success or failure; retries belong to the user
// (resubmitting the email reissues a code).
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Config points the client at a SendGrid-compatible mail API.
type Config struct {
	APIKey  string `env:"VOUCH_MAIL_API_KEY"`
	From    string `env:"VOUCH_MAIL_FROM"`
	BaseURL string `env:"VOUCH_MAIL_BASE_URL" envDefault:"https://api.sendgrid.com"`
}

// Client sends mail via the v3 send endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: []address{{Email: to}}}},
		From:             address{Email: c.cfg.From},
		Subject:          subject,
		Content:          []content{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// LogSender writes the email to the log instead of delivering it. Local runs
// use it so the verification flow works without an API key.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Logger.InfoContext(ctx, "email delivery (log only)", "to", to, "subject", subject, "body", body)
	return nil
}
