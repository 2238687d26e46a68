package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds Service Layer connection configuration
type Config struct {
	BaseURL   string
	CompanyDB string
	Username  string
	Password  string
	Timeout   time.Duration
}

// Client talks to the SAP Business One Service Layer. It attaches the
// current session to every request and surfaces expired sessions as
// ErrSessionExpired without retrying; the bounded re-authentication
// retry lives in the invoicing orchestrator.
type Client struct {
	cfg      Config
	http     *http.Client
	sessions *SessionStore
	logger   *zap.Logger
}

// NewClient creates a new Service Layer client
func NewClient(cfg Config, sessions *SessionStore, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		sessions: sessions,
		logger:   logger,
	}
}

type loginResponse struct {
	SessionID string `json:"SessionId"`
}

// Login authenticates with the configured service credentials and
// stores the issued session. Any failure leaves the store empty and is
// reported as an AuthError.
func (c *Client) Login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"CompanyDB": c.cfg.CompanyDB,
		"UserName":  c.cfg.Username,
		"Password":  c.cfg.Password,
	})
	if err != nil {
		return &AuthError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/Login", bytes.NewReader(payload))
	if err != nil {
		return &AuthError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Message: serviceMessage(body, fmt.Sprintf("login rejected with status %d", resp.StatusCode))}
	}

	var login loginResponse
	if err := json.Unmarshal(body, &login); err != nil || login.SessionID == "" {
		return &AuthError{Message: "malformed login response"}
	}

	sess := Session{ID: login.SessionID}
	for _, cookie := range resp.Cookies() {
		switch cookie.Name {
		case "B1SESSION":
			sess.ID = cookie.Value
		case "ROUTEID":
			sess.RouteID = cookie.Value
		}
	}
	c.sessions.Set(sess)

	c.logger.Info("Service Layer session established",
		zap.String("company_db", c.cfg.CompanyDB))
	return nil
}

// do performs an authenticated request. An empty session store triggers
// a login first; a 401 invalidates the store and returns ErrSessionExpired.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	sess := c.sessions.Current()
	if sess.Empty() {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		sess = c.sessions.Current()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Cookie", sess.Cookie())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.sessions.Invalidate()
		c.logger.Warn("Service Layer session rejected",
			zap.String("method", method),
			zap.String("path", requestPath(path)))
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &ServiceError{StatusCode: resp.StatusCode, Message: serviceMessage(body, "request failed")}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, payload, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &ServiceError{StatusCode: resp.StatusCode, Message: serviceMessage(body, "request failed")}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ExecuteBatch posts the multipart changeset to the $batch endpoint and
// returns the raw multipart response text.
func (c *Client) ExecuteBatch(ctx context.Context, batch *BatchRequest) (string, error) {
	contentType := "multipart/mixed; boundary=" + batch.Boundary
	resp, err := c.do(ctx, http.MethodPost, "/$batch", batch.Body, contentType)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read batch response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: serviceMessage(body, "batch rejected")}
	}
	return string(body), nil
}

// serviceMessage extracts the Service Layer error message from an error
// body, falling back to the given default.
func serviceMessage(body []byte, fallback string) string {
	var envelope struct {
		Error struct {
			Message json.RawMessage `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error.Message) == 0 {
		return fallback
	}

	// message is either {"lang":...,"value":"..."} or a bare string
	var structured struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(envelope.Error.Message, &structured); err == nil && structured.Value != "" {
		return structured.Value
	}
	var plain string
	if err := json.Unmarshal(envelope.Error.Message, &plain); err == nil && plain != "" {
		return plain
	}
	return fallback
}

// requestPath strips the query string for logging.
func requestPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
