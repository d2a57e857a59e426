// Package api is the typed client of the manifest/search HTTP API, plus the
// wire types shared with the server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/drummonds/goIIIF/iiif"
)

// Client calls the API rooted at BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL, e.g. "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Recent lists the newest manifests. limit <= 0 uses the server default.
func (c *Client) Recent(ctx context.Context, limit int) ([]ManifestSummary, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []ManifestSummary
	if err := c.getJSON(ctx, "/api/manifests/recent", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search runs a query. page < 1 asks for the first page.
func (c *Client) Search(ctx context.Context, query string, page int) (SearchResults, error) {
	q := url.Values{"q": {query}}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	var out SearchResults
	err := c.getJSON(ctx, "/api/search", q, &out)
	return out, err
}

// Manifest fetches and parses one manifest.
func (c *Client) Manifest(ctx context.Context, id string) (iiif.Manifest, error) {
	body, err := c.get(ctx, "/api/manifests/"+url.PathEscape(id), nil)
	if err != nil {
		return iiif.Manifest{}, err
	}
	return iiif.Parse(body)
}

// Import asks the server to import remoteURL.
func (c *Client) Import(ctx context.Context, remoteURL string) ([]ImportResult, error) {
	payload, err := json.Marshal(ImportRequest{RemoteURL: remoteURL})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/manifests", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var out []ImportResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding import results: %w", err)
	}
	return out, nil
}

// About fetches server information.
func (c *Client) About(ctx context.Context) (About, error) {
	var out About
	err := c.getJSON(ctx, "/api/about", nil, &out)
	return out, err
}

// ThumbnailURL is the address of the resized thumbnail of manifest id.
func (c *Client) ThumbnailURL(id string, width int) string {
	return c.BaseURL + ThumbnailPath(id, width)
}

// ThumbnailPath is ThumbnailURL relative to the server root. width <= 0
// uses the server default.
func ThumbnailPath(id string, width int) string {
	path := fmt.Sprintf("/api/manifests/%s/thumbnail", url.PathEscape(id))
	if width <= 0 {
		return path
	}
	return fmt.Sprintf("%s?w=%d", path, width)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb ErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
		}
		return nil, apiErr
	}
	return body, nil
}
