// Package remote is the HTTP client of the revision-versioned list service.
package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"todosync/backend"
)

const (
	// RevisionHeader carries the caller's last known revision
	RevisionHeader = "X-Last-Known-Revision"

	// DefaultTimeout bounds a single request when the config sets none
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4096
)

// Config configures a Client
type Config struct {
	BaseURL            string
	Token              string
	AuthScheme         string // "Bearer" or "OAuth"
	DeviceID           string
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
	InsecureSkipVerify bool

	// HTTPClient overrides the client built from the fields above
	HTTPClient *http.Client
}

// Client implements backend.RemoteClient over HTTP/JSON
type Client struct {
	baseURL    *url.URL
	authHeader string
	deviceID   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ backend.RemoteClient = (*Client)(nil)

// NewClient creates a list service client
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported remote URL scheme %q", u.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
		if cfg.InsecureSkipVerify {
			httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:    u,
		deviceID:   cfg.DeviceID,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
	if cfg.Token != "" {
		scheme := cfg.AuthScheme
		if scheme == "" {
			scheme = "Bearer"
		}
		c.authHeader = scheme + " " + cfg.Token
	}
	return c, nil
}

type listRequest struct {
	List []Element `json:"list"`
}

type elementRequest struct {
	Element Element `json:"element"`
}

type listResponse struct {
	Status   string    `json:"status"`
	List     []Element `json:"list"`
	Revision *int64    `json:"revision"`
}

type elementResponse struct {
	Status   string   `json:"status"`
	Element  *Element `json:"element"`
	Revision *int64   `json:"revision"`
}

// List fetches the full list
func (c *Client) List(ctx context.Context, revision int64) (backend.ListResult, error) {
	var resp listResponse
	if err := c.do(ctx, backend.OpList, http.MethodGet, "list", revision, nil, &resp); err != nil {
		return backend.ListResult{}, err
	}
	return c.listResult(backend.OpList, resp)
}

// BulkUpdate uploads the full local list and returns the merged canonical list
func (c *Client) BulkUpdate(ctx context.Context, revision int64, tasks []backend.Task) (backend.ListResult, error) {
	body := listRequest{List: toElements(tasks, c.deviceID)}
	var resp listResponse
	if err := c.do(ctx, backend.OpBulkUpdate, http.MethodPatch, "list", revision, body, &resp); err != nil {
		return backend.ListResult{}, err
	}
	return c.listResult(backend.OpBulkUpdate, resp)
}

// Get fetches a single element
func (c *Client) Get(ctx context.Context, revision int64, id string) (backend.ItemResult, error) {
	var resp elementResponse
	if err := c.do(ctx, backend.OpGet, http.MethodGet, "list/"+url.PathEscape(id), revision, nil, &resp); err != nil {
		return backend.ItemResult{}, withTask(err, id)
	}
	return c.itemResult(backend.OpGet, resp)
}

// Add creates an element
func (c *Client) Add(ctx context.Context, revision int64, task backend.Task) (backend.ItemResult, error) {
	body := elementRequest{Element: toElement(task, c.deviceID)}
	var resp elementResponse
	if err := c.do(ctx, backend.OpAdd, http.MethodPost, "list", revision, body, &resp); err != nil {
		return backend.ItemResult{}, withTask(err, task.ID)
	}
	return c.itemResult(backend.OpAdd, resp)
}

// Edit replaces an element
func (c *Client) Edit(ctx context.Context, revision int64, task backend.Task) (backend.ItemResult, error) {
	body := elementRequest{Element: toElement(task, c.deviceID)}
	var resp elementResponse
	if err := c.do(ctx, backend.OpEdit, http.MethodPut, "list/"+url.PathEscape(task.ID), revision, body, &resp); err != nil {
		return backend.ItemResult{}, withTask(err, task.ID)
	}
	return c.itemResult(backend.OpEdit, resp)
}

// Delete removes an element and returns it
func (c *Client) Delete(ctx context.Context, revision int64, id string) (backend.ItemResult, error) {
	var resp elementResponse
	if err := c.do(ctx, backend.OpDelete, http.MethodDelete, "list/"+url.PathEscape(id), revision, nil, &resp); err != nil {
		return backend.ItemResult{}, withTask(err, id)
	}
	return c.itemResult(backend.OpDelete, resp)
}

func (c *Client) listResult(op string, resp listResponse) (backend.ListResult, error) {
	if err := checkEnvelope(resp.Status, resp.Revision); err != nil {
		return backend.ListResult{}, backend.NewDecodingError(op, err)
	}
	tasks, err := toTasks(resp.List)
	if err != nil {
		return backend.ListResult{}, backend.NewDecodingError(op, err)
	}
	return backend.ListResult{Items: tasks, Revision: *resp.Revision}, nil
}

func (c *Client) itemResult(op string, resp elementResponse) (backend.ItemResult, error) {
	if err := checkEnvelope(resp.Status, resp.Revision); err != nil {
		return backend.ItemResult{}, backend.NewDecodingError(op, err)
	}
	if resp.Element == nil {
		return backend.ItemResult{}, backend.NewDecodingError(op, errors.New("response has no element"))
	}
	task, err := toTask(*resp.Element)
	if err != nil {
		return backend.ItemResult{}, backend.NewDecodingError(op, err)
	}
	return backend.ItemResult{Item: task, Revision: *resp.Revision}, nil
}

func checkEnvelope(status string, revision *int64) error {
	if status != "" && status != "ok" {
		return fmt.Errorf("unexpected status %q", status)
	}
	if revision == nil {
		return errors.New("response has no revision")
	}
	return nil
}

// do performs an authenticated request and decodes a 2xx JSON answer into out
func (c *Client) do(ctx context.Context, op, method, path string, revision int64, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return backend.NewTransportError(op, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &backend.BackendError{Operation: op, Kind: backend.KindRejected, Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return backend.NewTransportError(op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	if revision != backend.UnknownRevision {
		req.Header.Set(RevisionHeader, strconv.FormatInt(revision, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return backend.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := strings.TrimSpace(string(data))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return backend.NewBackendError(op, resp.StatusCode, message).WithBody(string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backend.NewDecodingError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func withTask(err error, id string) error {
	var be *backend.BackendError
	if errors.As(err, &be) {
		be.WithTaskUID(id)
	}
	return err
}
