package api

import (
	"fmt"
	"time"
)

// ManifestSummary is what lists and result pages show of a manifest.
type ManifestSummary struct {
	ID          string    `json:"id"`
	RemoteURL   string    `json:"remote_url"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Attribution string    `json:"attribution,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Logo        string    `json:"logo,omitempty"`
	Created     time.Time `json:"created"`
}

// SearchResults is one page of hits for a query.
type SearchResults struct {
	Query    string            `json:"query"`
	Total    uint64            `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Hits     []ManifestSummary `json:"hits"`
}

// HasNext reports whether another page follows.
func (r SearchResults) HasNext() bool {
	return uint64(r.Page*r.PageSize) < r.Total
}

// ImportRequest asks the server to import a manifest or collection URL.
type ImportRequest struct {
	RemoteURL string `json:"remote_url"`
}

// Import statuses.
const (
	ImportCreated = "created"
	ImportUpdated = "updated"
	ImportFailed  = "failed"
)

// ImportResult reports the outcome for one manifest URL.
type ImportResult struct {
	ID        string   `json:"id,omitempty"`
	RemoteURL string   `json:"remote_url"`
	Status    string   `json:"status"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// About describes the running server.
type About struct {
	Version       string `json:"version"`
	DatabaseType  string `json:"databaseType"`
	IsEphemeral   bool   `json:"isEphemeral"`
	ManifestCount int    `json:"manifestCount"`
	IndexedCount  uint64 `json:"indexedCount"`
}

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Error is a non-2xx response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// ErrorMessage is the server's message without the status.
func (e *Error) ErrorMessage() string {
	return e.Message
}

// StatusCode is the HTTP status of the response.
func (e *Error) StatusCode() int {
	return e.Status
}
