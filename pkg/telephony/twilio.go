// Package telephony places outbound calls through the Twilio REST API.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// Client is a minimal Twilio REST client for call creation.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the Twilio API endpoint.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Twilio client. Calls are placed from fromNumber.
func NewClient(accountSID, authToken, fromNumber string, opts ...ClientOption) *Client {
	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    defaultTwilioBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call is the subset of Twilio's call resource we care about.
type Call struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateCall dials toNumber and points the call at webhookURL for TwiML
// instructions. Transient Twilio failures are retried with backoff.
func (c *Client) CreateCall(ctx context.Context, toNumber, webhookURL string) (*Call, error) {
	if strings.TrimSpace(toNumber) == "" {
		return nil, fmt.Errorf("destination number is required")
	}

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", c.fromNumber)
	form.Set("Url", webhookURL)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json",
		strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.accountSID))

	var call *Call
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		if resp.StatusCode >= 400 {
			apiErr := parseTwilioError(resp.StatusCode, body)
			// Server-side and throttling failures are worth retrying;
			// anything else is a bad request.
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		var parsed Call
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("parse call response: %w", err)
		}
		call = &parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	return call, nil
}

func parseTwilioError(status int, body []byte) error {
	var parsed twilioError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return fmt.Errorf("twilio error %d (code %d): %s", status, parsed.Code, parsed.Message)
	}
	return fmt.Errorf("twilio error %d: %s", status, strings.TrimSpace(string(body)))
}
