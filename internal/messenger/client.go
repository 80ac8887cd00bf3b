// Package messenger talks to the messaging platform: it receives webhook
// events, looks up participant names and delivers replies.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Graph API root used for sends and profile lookups.
const DefaultBaseURL = "https://graph.facebook.com/v2.6"

// ErrIdentityLookup marks a failed display-name lookup.
var ErrIdentityLookup = errors.New("identity lookup failed")

// IdentityError wraps a failed lookup for one participant.
type IdentityError struct {
	ParticipantID string
	Err           error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("%v for %s: %v", ErrIdentityLookup, e.ParticipantID, e.Err)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

func (e *IdentityError) Is(target error) bool {
	return target == ErrIdentityLookup
}

// Client is an authenticated Graph API client for one page.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	logger      *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL points the client at a different Graph API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client using the page access token.
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// Send delivers text to recipientID. Failures are logged, not returned.
func (c *Client) Send(ctx context.Context, recipientID, text string) {
	if err := c.send(ctx, recipientID, text); err != nil {
		c.logger.Printf("op=send participant=%s: %v", recipientID, err)
	}
}

func (c *Client) send(ctx context.Context, recipientID, text string) error {
	var msg sendRequest
	msg.Recipient.ID = recipientID
	msg.Message.Text = text

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := c.baseURL + "/me/messages?" + url.Values{"access_token": {c.accessToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send API returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

type profileResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DisplayName returns "First Last" for participantID.
func (c *Client) DisplayName(ctx context.Context, participantID string) (string, error) {
	fail := func(err error) (string, error) {
		return "", &IdentityError{ParticipantID: participantID, Err: err}
	}

	params := url.Values{
		"fields":       {"first_name,last_name"},
		"access_token": {c.accessToken},
	}
	endpoint := c.baseURL + "/" + url.PathEscape(participantID) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fail(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("profile request failed: %w", err))
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fail(fmt.Errorf("reading response body: %w", err))
	}

	var profile profileResponse
	if err := json.Unmarshal(body, &profile); err != nil && resp.StatusCode == http.StatusOK {
		return fail(fmt.Errorf("decoding profile response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		if profile.Error != nil {
			return fail(fmt.Errorf("profile API error %d: %s", resp.StatusCode, profile.Error.Message))
		}
		return fail(fmt.Errorf("profile API error %d: %s", resp.StatusCode, string(body)))
	}

	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		return fail(errors.New("profile has no name"))
	}
	return name, nil
}
