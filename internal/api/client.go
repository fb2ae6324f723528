package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"docstore/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "DOCSTORE_HTTP_TIMEOUT"
	apiTokenEnvKey     = "DOCSTORE_API_TOKEN"
)

// Client is a simple HTTP client for the docstore API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// WithToken overrides the bearer token taken from the environment.
func (c *Client) WithToken(token string) *Client {
	if token = strings.TrimSpace(token); token != "" {
		c.authToken = token
	}
	return c
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateDocument(ctx context.Context, req DocumentCreateRequest) (DocumentResponse, error) {
	var resp DocumentResponse
	err := c.do(ctx, http.MethodPost, "/v1/documents", nil, req, &resp)
	return resp, err
}

func (c *Client) GetDocument(ctx context.Context, id string) (DocumentResponse, error) {
	var resp DocumentResponse
	err := c.do(ctx, http.MethodGet, "/v1/documents/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	var resp []models.Document
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	err := c.do(ctx, http.MethodGet, "/v1/documents", query, nil, &resp)
	return resp, err
}

func (c *Client) UpdateDocument(ctx context.Context, id string, req DocumentUpdateRequest) (DocumentResponse, error) {
	var resp DocumentResponse
	err := c.do(ctx, http.MethodPatch, "/v1/documents/"+url.PathEscape(id), nil, req, &resp)
	return resp, err
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/documents/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListContents(ctx context.Context, documentID string) ([]models.Content, error) {
	var resp []models.Content
	err := c.do(ctx, http.MethodGet, "/v1/documents/"+url.PathEscape(documentID)+"/contents", nil, nil, &resp)
	return resp, err
}

// UploadContent sends a document's initial content as a multipart form.
func (c *Client) UploadContent(ctx context.Context, documentID, filename string, r io.Reader) (UploadResponse, error) {
	var resp UploadResponse

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("content", filename)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return resp, err
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	endpoint := c.baseURL + "/v1/documents/" + url.PathEscape(documentID) + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// RequestRendition asks the server to render a document's original to PDF,
// waiting up to wait for the attempt. A zero wait returns as soon as the
// job is queued. The returned job may still be running.
func (c *Client) RequestRendition(ctx context.Context, documentID string, wait time.Duration) (JobResponse, error) {
	var resp JobResponse
	query := url.Values{}
	query.Set("wait", wait.String())
	client := *c
	client.http = &http.Client{Timeout: c.http.Timeout + wait}
	err := client.do(ctx, http.MethodPost, "/v1/documents/"+url.PathEscape(documentID)+"/rendition", query, nil, &resp)
	return resp, err
}

// GetRendition returns the newest PDF content of a document.
func (c *Client) GetRendition(ctx context.Context, documentID string) (models.Content, error) {
	var resp models.Content
	err := c.do(ctx, http.MethodGet, "/v1/documents/"+url.PathEscape(documentID)+"/rendition", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetJob(ctx context.Context, id string) (JobResponse, error) {
	var resp JobResponse
	err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) GetContent(ctx context.Context, id string) (models.Content, error) {
	var resp models.Content
	err := c.do(ctx, http.MethodGet, "/v1/contents/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// DownloadContent streams a content's bytes to w.
func (c *Client) DownloadContent(ctx context.Context, id string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/contents/"+url.PathEscape(id)+"/raw", nil)
	if err != nil {
		return 0, err
	}
	c.setAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) ListFormats(ctx context.Context) ([]models.Format, error) {
	var resp []models.Format
	err := c.do(ctx, http.MethodGet, "/v1/formats", nil, nil, &resp)
	return resp, err
}

func (c *Client) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	var resp VerifyResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/verify", nil, req, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
