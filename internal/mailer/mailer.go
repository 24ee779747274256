package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client posts messages to an HTTP email provider. Delivery is
// fire-and-forget from the caller's perspective: errors are returned for
// logging, never retried here.
type Client struct {
	providerURL string
	apiKey      string
	from        string
	http        *http.Client
}

func New(providerURL, apiKey, from string) *Client {
	return &Client{
		providerURL: providerURL,
		apiKey:      apiKey,
		from:        from,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	if c.providerURL == "" {
		return fmt.Errorf("mailer not configured")
	}

	payload, err := json.Marshal(message{
		From:     c.from,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.providerURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail provider returned %d", resp.StatusCode)
	}
	return nil
}
