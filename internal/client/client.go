// Package client calls the registration API on behalf of a logged-in account.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
)

// GenericMessage is shown when neither the server nor the transport gave a
// usable error message.
const GenericMessage = "An error occurred, please try again"

// TokenSource supplies the bearer token for a request. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Message returns the text to show a user for err: the server's message when
// there is one, GenericMessage otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return GenericMessage
}

// Client is an HTTP client for the registration API.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient, e.g. to set a timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource attaches the token from ts to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger logs failed requests to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("client")
	return c, nil
}

// ListEvents fetches every event.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := c.do(ctx, http.MethodGet, "/events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent fetches one event with its current booked count.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	var event model.Event
	if err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// SetEventStatus opens or closes an event. Administrators only.
func (c *Client) SetEventStatus(ctx context.Context, eventID, status string) (*model.Event, error) {
	var event model.Event
	req := model.EventStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPut, "/events/"+url.PathEscape(eventID)+"/status", req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateRegistration registers a party for an event.
func (c *Client) CreateRegistration(ctx context.Context, eventID string, req model.RegisterRequest) (*model.Registration, error) {
	var reg model.Registration
	if err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/register", req, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetRegistration fetches one registration.
func (c *Client) GetRegistration(ctx context.Context, eventID, regID string) (*model.Registration, error) {
	var reg model.Registration
	if err := c.do(ctx, http.MethodGet, registrationPath(eventID, regID), nil, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// UpdateRegistration replaces the party of a registration.
func (c *Client) UpdateRegistration(ctx context.Context, eventID, regID string, req model.RegisterRequest) (*model.Registration, error) {
	var reg model.Registration
	if err := c.do(ctx, http.MethodPut, registrationPath(eventID, regID), req, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// DeleteRegistration cancels a registration owned by email.
func (c *Client) DeleteRegistration(ctx context.Context, eventID, regID, email string) error {
	return c.do(ctx, http.MethodDelete, registrationPath(eventID, regID), model.CancelRequest{UserEmail: email}, nil)
}

// ListRegistrations fetches the admin view of an event's registrations.
func (c *Client) ListRegistrations(ctx context.Context, eventID string) (*model.RegistrationList, error) {
	var list model.RegistrationList
	if err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID)+"/registrations", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func registrationPath(eventID, regID string) string {
	return "/events/" + url.PathEscape(eventID) + "/registrations/" + url.PathEscape(regID)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		c.logger.Debug("api error", zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the server's message from an error body. The API
// answers {"error": ...}; other gateways in front of it use "message".
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(envelope.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(envelope.Message)
}
