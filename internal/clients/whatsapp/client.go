package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/utils"
)

// Client talks to the WhatsApp gateway that actually delivers messages. The
// engine never marks a task sent from here; the gateway's status callback
// hits the delivery webhook and that is the sole trigger for pending -> sent.
type Client interface {
	Send(ctx context.Context, channel, recipient, payload string) error
}

type Config struct {
	BaseURL    string
	APIToken   string
	SenderID   string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	timeoutSec := utils.GetEnvAsInt("WHATSAPP_TIMEOUT_SECONDS", 30, log)
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("WHATSAPP_BASE_URL")),
		APIToken:   strings.TrimSpace(os.Getenv("WHATSAPP_API_TOKEN")),
		SenderID:   strings.TrimSpace(os.Getenv("WHATSAPP_SENDER_ID")),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: utils.GetEnvAsInt("WHATSAPP_MAX_RETRIES", 3, log),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing WHATSAPP_BASE_URL")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("missing WHATSAPP_API_TOKEN")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &client{
		log:        log.With("client", "WhatsAppClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type sendResponse struct {
	MessageID    string  `json:"message_id,omitempty"`
	Status       string  `json:"status,omitempty"`
	ErrorCode    *int    `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

func (c *client) Send(ctx context.Context, channel, recipient, payload string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("whatsapp: recipient required")
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return fmt.Errorf("whatsapp: payload required")
	}
	if channel == "" {
		channel = "whatsapp"
	}

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("Body", payload)
	form.Set("Channel", channel)
	if c.cfg.SenderID != "" {
		form.Set("From", c.cfg.SenderID)
	}

	endpoint := c.cfg.BaseURL + "/messages"

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("whatsapp: gateway returned %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			var parsed sendResponse
			if err := json.Unmarshal(body, &parsed); err == nil && parsed.ErrorMessage != nil {
				return fmt.Errorf("whatsapp: %s", *parsed.ErrorMessage)
			}
			return fmt.Errorf("whatsapp: gateway rejected message (%d)", resp.StatusCode)
		}

		var parsed sendResponse
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.MessageID != "" {
			c.log.Debug("Message accepted by gateway", "message_id", parsed.MessageID, "status", parsed.Status)
		}
		return nil
	}

	return fmt.Errorf("whatsapp: send failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}
