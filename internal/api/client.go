// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the Murabbi backend.
//
// The backend exposes a small JSON API: a chat endpoint, thread listing and
// history, thread creation and claiming, and household login. Every request
// carries the device id in the x-browser-id header and, once a household has
// logged in, a bearer token in the Authorization header. The client is safe
// for concurrent use; credentials are guarded so the UI goroutines can rotate
// the token while requests are in flight.
package api

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
	"sync"
	"time"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the default timeout for API requests. Chat
	// completions can take a while on the retrieval path.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client with connection pooling for all backend requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// Error variables for common backend failures.
var (
	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrAuth indicates the bearer token was missing, invalid, or expired.
	ErrAuth = errors.New("authentication failed")

	// ErrValidation indicates the server rejected the request payload.
	ErrValidation = errors.New("invalid request")

	// ErrServer indicates the backend returned a non-auth, non-validation
	// error status.
	ErrServer = errors.New("server error")
)

// APIError carries the HTTP status and the human-readable message extracted
// from an error response body.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap maps the status onto the error taxonomy so callers can use
// errors.Is against the sentinel values.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrAuth
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrServer
	}
}

// errorMessage extracts a display message from an error response body.
//
// JSON bodies are checked for "detail" then "message" fields. Non-JSON
// bodies are used verbatim unless they look like an HTML error page. The
// fallback names the status code so the user always sees something.
func errorMessage(status int, contentType string, body []byte) string {
	if strings.Contains(contentType, "application/json") {
		var payload struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Detail != "" {
				return payload.Detail
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		if !strings.Contains(strings.ToLower(text), "<html") {
			return text
		}
	}
	return fmt.Sprintf("Request failed (%d)", status)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Persona selects the coaching voice used by the assistant.
type Persona string

// Language selects the Arabic register of the reply.
type Language string

// Known persona and language values. The server tolerates unknown values
// and falls back to the neutral defaults.
const (
	PersonaNeutral Persona = "neutral"
	PersonaYazan   Persona = "yazan"

	LanguageMSA       Language = "msa"
	LanguageJordanian Language = "jordanian"
)

// ChatRequest is the payload for the chat endpoint.
type ChatRequest struct {
	Message     string   `json:"message"`
	Persona     Persona  `json:"persona"`
	Language    Language `json:"language"`
	HouseholdID string   `json:"household_id,omitempty"`
	ThreadID    string   `json:"thread_id,omitempty"`
	BrowserID   string   `json:"browser_id,omitempty"`
}

// ChatResponse is the assistant's reply to a chat request.
type ChatResponse struct {
	Reply         string   `json:"reply"`
	NeedsHuman    bool     `json:"needs_human"`
	SafetyReasons []string `json:"safety_reasons"`
	Context       []string `json:"context"`
	Persona       Persona  `json:"persona"`
	ThreadID      string   `json:"thread_id"`
}

// ThreadSummary is one row of the thread list.
type ThreadSummary struct {
	ThreadID  string   `json:"thread_id"`
	Title     string   `json:"title"`
	Persona   Persona  `json:"persona"`
	Lang      Language `json:"lang"`
	UpdatedAt string   `json:"updated_at"`
}

// Turn is one stored message of a thread transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryResponse is the stored transcript of one thread.
type HistoryResponse struct {
	ThreadID string `json:"thread_id"`
	Turns    []Turn `json:"turns"`
}

type threadsResponse struct {
	Threads []ThreadSummary `json:"threads"`
}

type newThreadRequest struct {
	Persona  Persona  `json:"persona,omitempty"`
	Language Language `json:"language,omitempty"`
}

type newThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

type claimRequest struct {
	BrowserID string `json:"browser_id"`
}

type claimResponse struct {
	Moved int `json:"moved"`
}

type loginRequest struct {
	HouseholdID string `json:"household_id"`
	Secret      string `json:"secret"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Murabbi backend.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	token     string
	browserID string
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
	}
}

// WithTimeout sets the request timeout. The client switches off the shared
// pooled transport onto a private one so other clients keep their timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient = &http.Client{
		Transport: sharedHTTPClient.Transport,
		Timeout:   timeout,
	}
	return c
}

// SetToken installs (or clears, with "") the bearer token sent on
// subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// SetBrowserID installs the device id sent in the x-browser-id header.
func (c *Client) SetBrowserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.browserID = id
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders applies content type and the current credentials.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "murabbi-tui/0.1.0")

	c.mu.RLock()
	token, browserID := c.token, c.browserID
	c.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if browserID != "" {
		req.Header.Set("x-browser-id", browserID)
	}
}

// readResponse reads the response body with size limits.
//
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// doJSON performs one request and decodes the JSON response into out.
// reqBody may be nil for GET requests.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)

	// SECURITY: Clear Authorization header immediately after the request
	// so a logged request never carries the token.
	req.Header.Del("Authorization")

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, resp.Header.Get("Content-Type"), body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SendChat submits a user message and returns the assistant reply.
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Threads lists the threads visible to the current credentials, most
// recently active first. An empty list is a valid response, not an error.
func (c *Client) Threads(ctx context.Context) ([]ThreadSummary, error) {
	var resp threadsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/threads", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Threads, nil
}

// History fetches the stored transcript of one thread.
func (c *Client) History(ctx context.Context, threadID string) (*HistoryResponse, error) {
	var resp HistoryResponse
	path := "/chat/history?" + url.Values{"thread_id": {threadID}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateThread asks the server for a fresh thread and returns its id.
func (c *Client) CreateThread(ctx context.Context, persona Persona, language Language) (string, error) {
	var resp newThreadResponse
	req := newThreadRequest{Persona: persona, Language: language}
	if err := c.doJSON(ctx, http.MethodPost, "/chat/new", req, &resp); err != nil {
		return "", err
	}
	return resp.ThreadID, nil
}

// ClaimThreads moves anonymous threads created under browserID into the
// logged-in household and returns how many were moved.
func (c *Client) ClaimThreads(ctx context.Context, browserID string) (int, error) {
	var resp claimResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/claim", claimRequest{BrowserID: browserID}, &resp); err != nil {
		return 0, err
	}
	return resp.Moved, nil
}

// Login exchanges household credentials for a bearer token. The token is
// returned, not installed; the identity manager decides whether to keep it.
func (c *Client) Login(ctx context.Context, householdID, secret string) (string, error) {
	var resp loginResponse
	req := loginRequest{HouseholdID: householdID, Secret: secret}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/household/login", req, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}
