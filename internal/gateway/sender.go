package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one outbound plain-text message to a channel identity.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// Client posts outbound messages to the messaging gateway's send endpoint.
type Client struct {
	baseURL    string
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
}

func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		logger:  logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type outboundMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (c *Client) Send(ctx context.Context, to, text string) error {
	body, err := json.Marshal(outboundMessage{To: to, Text: text})
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	url := c.baseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	c.logger.Debug("send outbound message", zap.String("url", url), zap.String("to", to))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return nil
}
