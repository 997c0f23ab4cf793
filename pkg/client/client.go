package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/devclub-edu/leaderboard/internal/models"
)

// Client is a Go SDK for the leaderboard API
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken sets the bearer token used for authenticated calls
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a new leaderboard client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a failed response from the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Signup registers a student
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.Profile, error) {
	var result struct {
		User *models.Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Login authenticates and stores the returned token on the client
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var result models.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Me returns the caller's profile
func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	var result models.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Tasks returns the caller's checklist
func (c *Client) Tasks(ctx context.Context) ([]models.Task, error) {
	var result struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &result); err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

// UpdateTask sets a task's completion flag and returns the new point total
func (c *Client) UpdateTask(ctx context.Context, taskID string, completed bool) (int, error) {
	var result struct {
		Points int `json:"points"`
	}
	body := models.UpdateTaskRequest{Completed: &completed}
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID), body, &result); err != nil {
		return 0, err
	}
	return result.Points, nil
}

// SubmitRequest files a point request
func (c *Client) SubmitRequest(ctx context.Context, req models.CreatePointRequest) (*models.Request, error) {
	var result struct {
		Request *models.Request `json:"request"`
	}
	if err := c.do(ctx, http.MethodPost, "/student/request", req, &result); err != nil {
		return nil, err
	}
	return result.Request, nil
}

// StudentLeaderboard ranks students from the primary store. An empty domain ranks everyone.
func (c *Client) StudentLeaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error) {
	path := "/student/leaderboard"
	if domain != models.DomainNone {
		path += "?domain=" + url.QueryEscape(string(domain))
	}

	var result struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Leaderboard, nil
}

// PendingRequests lists requests awaiting review (admin)
func (c *Client) PendingRequests(ctx context.Context) ([]models.Request, error) {
	var result struct {
		Requests []models.Request `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/requests", nil, &result); err != nil {
		return nil, err
	}
	return result.Requests, nil
}

// DecideRequest accepts or declines a request (admin) and returns the student's total
func (c *Client) DecideRequest(ctx context.Context, id string, req models.DecideRequest) (int, error) {
	var result struct {
		Points int `json:"points"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/requests/"+url.PathEscape(id), req, &result); err != nil {
		return 0, err
	}
	return result.Points, nil
}

// AssignPoints grants points to a student (admin) and returns the new total
func (c *Client) AssignPoints(ctx context.Context, req models.AssignPointsRequest) (int, error) {
	var result struct {
		Points int `json:"points"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/assign-points", req, &result); err != nil {
		return 0, err
	}
	return result.Points, nil
}

// Leaderboard reads a domain's mirrored ranking
func (c *Client) Leaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error) {
	var result struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, "/leaderboard/"+url.PathEscape(string(domain)), nil, &result); err != nil {
		return nil, err
	}
	return result.Leaderboard, nil
}

// Domains lists the task catalog of every domain
func (c *Client) Domains(ctx context.Context) ([]models.DomainInfo, error) {
	var result struct {
		Domains []models.DomainInfo `json:"domains"`
	}
	if err := c.do(ctx, http.MethodGet, "/domains", nil, &result); err != nil {
		return nil, err
	}
	return result.Domains, nil
}

// Health checks if the API is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do sends in as JSON and decodes the envelope's data into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
			apiErr.Fields = result.Error.Fields
		}
		return apiErr
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
