package engine

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/labstack/echo/v4"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/config"
	"github.com/drummonds/goIIIF/database"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.DBInterface
	SearchDB     bleve.Index
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	IsEphemeral  bool
	// Client fetches remote manifests and images. Nil uses a client with a
	// 30 second timeout.
	Client  *http.Client
	Metrics *Metrics
}

var defaultClient = &http.Client{Timeout: 30 * time.Second}

func (serverHandler *ServerHandler) client() *http.Client {
	if serverHandler.Client != nil {
		return serverHandler.Client
	}
	return defaultClient
}

// RegisterRoutes adds the API routes to the echo instance
func (serverHandler *ServerHandler) RegisterRoutes(e *echo.Echo) {
	e.Use(serverHandler.metrics().Middleware())
	e.GET("/metrics", serverHandler.metrics().Handler())

	g := e.Group("/api")
	g.GET("/manifests/recent", serverHandler.GetRecentManifests)
	g.GET("/manifests/:id", serverHandler.GetManifest)
	g.GET("/manifests/:id/thumbnail", serverHandler.GetThumbnail)
	g.POST("/manifests", serverHandler.ImportManifest)
	g.GET("/search", serverHandler.SearchManifests)
	g.GET("/about", serverHandler.GetAboutInfo)
}

func jsonError(context echo.Context, status int, msg string) error {
	return context.JSON(status, api.ErrorBody{Error: msg})
}

func summaryOf(m database.Manifest) api.ManifestSummary {
	return api.ManifestSummary{
		ID:          m.ID,
		RemoteURL:   m.RemoteURL,
		Label:       m.Label,
		Description: m.Description,
		Attribution: m.Attribution,
		Thumbnail:   m.Thumbnail,
		Logo:        m.Logo,
		Created:     m.Created,
	}
}

func summariesOf(ms []database.Manifest) []api.ManifestSummary {
	out := make([]api.ManifestSummary, len(ms))
	for i, m := range ms {
		out[i] = summaryOf(m)
	}
	return out
}

// GetRecentManifests returns the newest manifests
func (serverHandler *ServerHandler) GetRecentManifests(context echo.Context) error {
	limit := serverHandler.ServerConfig.RecentManifestNumber
	if raw := context.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return jsonError(context, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, 100)
	}
	manifests, err := serverHandler.DB.GetNewestManifests(limit)
	if err != nil {
		Logger.Error("Unable to fetch newest manifests", "error", err)
		return jsonError(context, http.StatusInternalServerError, "unable to fetch recent manifests")
	}
	return context.JSON(http.StatusOK, summariesOf(manifests))
}

// GetManifest returns the stored JSON-LD document of a manifest
func (serverHandler *ServerHandler) GetManifest(context echo.Context) error {
	id := context.Param("id")
	manifest, err := serverHandler.DB.GetManifest(id)
	if errors.Is(err, database.ErrNotFound) {
		return jsonError(context, http.StatusNotFound, "not found")
	}
	if err != nil {
		Logger.Error("Unable to fetch manifest", "id", id, "error", err)
		return jsonError(context, http.StatusInternalServerError, "unable to fetch manifest")
	}
	return context.Blob(http.StatusOK, echo.MIMEApplicationJSON, manifest.Document)
}

// SearchManifests runs a full text query against the index
func (serverHandler *ServerHandler) SearchManifests(context echo.Context) error {
	query := strings.TrimSpace(context.QueryParam("q"))
	if query == "" {
		return jsonError(context, http.StatusBadRequest, "Empty search term")
	}
	page := 1
	if raw := context.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return jsonError(context, http.StatusBadRequest, "page must be a positive integer")
		}
		page = n
	}
	pageSize := max(serverHandler.ServerConfig.SearchPageSize, 1)

	result, err := serverHandler.search(query, page, pageSize)
	if err != nil {
		Logger.Error("Search failed", "query", query, "error", err)
		return jsonError(context, http.StatusInternalServerError, "search failed")
	}
	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	manifests, err := serverHandler.DB.GetManifestsByIDs(ids)
	if err != nil {
		Logger.Error("Unable to fetch search hits", "query", query, "error", err)
		return jsonError(context, http.StatusInternalServerError, "search failed")
	}
	Logger.Debug("Search complete", "query", query, "total", result.Total, "page", page)
	return context.JSON(http.StatusOK, api.SearchResults{
		Query:    query,
		Total:    result.Total,
		Page:     page,
		PageSize: pageSize,
		Hits:     summariesOf(manifests),
	})
}

// search tries the query string syntax first and falls back to a plain
// match query when the query does not parse.
func (serverHandler *ServerHandler) search(query string, page, pageSize int) (*bleve.SearchResult, error) {
	from := (page - 1) * pageSize
	request := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), pageSize, from, false)
	result, err := serverHandler.SearchDB.Search(request)
	if err == nil {
		return result, nil
	}
	Logger.Debug("Query string search failed, using match query", "query", query, "error", err)
	request = bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), pageSize, from, false)
	return serverHandler.SearchDB.Search(request)
}

// ImportManifest imports the manifest or collection in the request body
func (serverHandler *ServerHandler) ImportManifest(context echo.Context) error {
	var request api.ImportRequest
	if err := context.Bind(&request); err != nil {
		return jsonError(context, http.StatusBadRequest, "invalid request body")
	}
	request.RemoteURL = strings.TrimSpace(request.RemoteURL)
	if !isHTTPURL(request.RemoteURL) {
		return jsonError(context, http.StatusBadRequest, "remote_url must be an http(s) URL")
	}
	results := serverHandler.Import(context.Request().Context(), request.RemoteURL)
	status := http.StatusOK
	if allFailed(results) {
		status = http.StatusUnprocessableEntity
	}
	return context.JSON(status, results)
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func allFailed(results []api.ImportResult) bool {
	for _, r := range results {
		if r.Status != api.ImportFailed {
			return false
		}
	}
	return true
}

// GetAboutInfo returns information about the running server
func (serverHandler *ServerHandler) GetAboutInfo(context echo.Context) error {
	count, err := serverHandler.DB.CountManifests()
	if err != nil {
		Logger.Error("Unable to count manifests", "error", err)
		return jsonError(context, http.StatusInternalServerError, "unable to count manifests")
	}
	indexed, err := serverHandler.SearchDB.DocCount()
	if err != nil {
		Logger.Error("Unable to count indexed documents", "error", err)
	}
	databaseType := serverHandler.ServerConfig.DatabaseType
	if serverHandler.IsEphemeral {
		databaseType = "postgres"
	}
	return context.JSON(http.StatusOK, api.About{
		Version:       serverHandler.ServerConfig.Version,
		DatabaseType:  databaseType,
		IsEphemeral:   serverHandler.IsEphemeral,
		ManifestCount: count,
		IndexedCount:  indexed,
	})
}
