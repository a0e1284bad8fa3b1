package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	AccountSID     string        `split_words:"true" required:"true"`
	AuthToken      string        `split_words:"true" required:"true"`
	WhatsAppNumber string        `envconfig:"WHATSAPP_NUMBER" split_words:"true" default:"whatsapp:+14155238886"`
	BaseURL        string        `split_words:"true" default:"https://api.twilio.com"`
	Timeout        time.Duration `split_words:"true" default:"10s"`
}

// Client sends WhatsApp messages through the Twilio REST API.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	accountSID := strings.TrimSpace(cfg.AccountSID)
	if accountSID == "" {
		return nil, errors.New("twilio account sid is required")
	}
	authToken := strings.TrimSpace(cfg.AuthToken)
	if authToken == "" {
		return nil, errors.New("twilio auth token is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    baseURL,
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: strings.TrimSpace(cfg.WhatsAppNumber),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

// SendMessage delivers a WhatsApp message to the given number.
func (c *Client) SendMessage(ctx context.Context, toNumber, body string) error {
	if !strings.HasPrefix(toNumber, "whatsapp:") {
		toNumber = "whatsapp:" + toNumber
	}

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio http status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}

// TwiMLResponse wraps a reply body in the TwiML envelope Twilio expects from
// webhook handlers. An empty message renders a bare ack.
func TwiMLResponse(message string) string {
	if strings.TrimSpace(message) == "" {
		return `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
	}
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(message)
	return `<?xml version="1.0" encoding="UTF-8"?><Response><Message>` + escaped + `</Message></Response>`
}
