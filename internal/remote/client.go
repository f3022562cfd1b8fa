// Package remote talks to the graph-data service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/graphload/internal/upload"
)

// Service paths.
const (
	PathResources = "/v2/resources"
	PathValues    = "/v2/values"
	PathAssets    = "/v2/assets"
)

// RequestIDHeader carries a fresh id on every request.
const RequestIDHeader = "X-Request-ID"

// Client implements upload.Remote.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

var _ upload.Remote = (*Client)(nil)

// New creates a client for the service at server. token, when set, is sent
// as a bearer token.
func New(server, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(server))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL: %q", server)
	}
	return &Client{
		baseURL:    u,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Create implements upload.Remote.
func (c *Client) Create(ctx context.Context, payload []byte) (string, error) {
	var out struct {
		ID string `json:"@id"`
	}
	if err := c.do(ctx, "create", http.MethodPost, PathResources, "application/json", bytes.NewReader(payload), &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", upload.NewRemoteError(upload.KindRejected, "create", errors.New("response has no @id"))
	}
	return out.ID, nil
}

// Update implements upload.Remote.
func (c *Client) Update(ctx context.Context, u upload.Update) error {
	body, err := json.Marshal(u)
	if err != nil {
		return upload.NewRemoteError(upload.KindRejected, "update", err)
	}
	return c.do(ctx, "update", http.MethodPut, PathValues, "application/json", bytes.NewReader(body), nil)
}

// Ingest implements upload.Remote. A file that cannot be read is a
// rejection of this record, not a connection problem.
func (c *Client) Ingest(ctx context.Context, asset string) (string, error) {
	f, err := os.Open(asset)
	if err != nil {
		return "", upload.NewRemoteError(upload.KindRejected, "ingest", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(asset))
	if err != nil {
		return "", upload.NewRemoteError(upload.KindRejected, "ingest", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", upload.NewRemoteError(upload.KindRejected, "ingest", fmt.Errorf("read %s: %w", asset, err))
	}
	if err := w.Close(); err != nil {
		return "", upload.NewRemoteError(upload.KindRejected, "ingest", err)
	}

	var out struct {
		Filename string `json:"internalFilename"`
	}
	if err := c.do(ctx, "ingest", http.MethodPost, PathAssets, w.FormDataContentType(), &buf, &out); err != nil {
		return "", err
	}
	if out.Filename == "" {
		return "", upload.NewRemoteError(upload.KindRejected, "ingest", errors.New("response has no internalFilename"))
	}
	return out.Filename, nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return upload.NewRemoteError(upload.KindRejected, op, fmt.Errorf("http request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upload.NewRemoteError(transportKind(ctx, err), op, fmt.Errorf("http do: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return upload.NewRemoteError(transportKind(ctx, err), op, fmt.Errorf("http read: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upload.NewRemoteError(statusKind(resp.StatusCode), op,
			fmt.Errorf("http status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return upload.NewRemoteError(upload.KindRejected, op, fmt.Errorf("json unmarshal response: %w", err))
	}
	return nil
}

// statusKind classifies a non-2xx status. Gateway errors and 404 mean the
// service is not reachable at this address right now.
func statusKind(status int) upload.ErrorKind {
	switch status {
	case http.StatusNotFound, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return upload.KindConnection
	}
	return upload.KindRejected
}

func transportKind(ctx context.Context, err error) upload.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return upload.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return upload.KindTimeout
	}
	return upload.KindConnection
}
