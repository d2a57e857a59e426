package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/config"
	"github.com/drummonds/goIIIF/database"
	"github.com/drummonds/goIIIF/iiif"
)

// remote serves IIIF documents from memory
type remote struct {
	mu   sync.Mutex
	docs map[string][]byte
	srv  *httptest.Server
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	r := &remote{docs: make(map[string][]byte)}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		body, ok := r.docs[req.URL.Path]
		r.mu.Unlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *remote) url(path string) string {
	return r.srv.URL + path
}

func (r *remote) set(path string, body []byte) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[path] = body
	return r.url(path)
}

func (r *remote) manifest(path, label string) string {
	id := r.url(path)
	doc := fmt.Sprintf(`{
		"@context": "http://iiif.io/api/presentation/2/context.json",
		"@id": %q,
		"@type": "sc:Manifest",
		"label": %q,
		"thumbnail": {"@id": %q},
		"metadata": [{"label": "Author", "value": "Jean Pucelle"}],
		"sequences": [{"canvases": [{"@id": %q, "label": "f. 1r", "width": 400, "height": 300,
			"images": [{"resource": {"@id": %q}}]}]}]
	}`, id, label, r.url("/thumb.png"), id+"/canvas/1", r.url("/thumb.png"))
	return r.set(path, []byte(doc))
}

func newTestHandler(t *testing.T) *ServerHandler {
	t.Helper()
	db, err := database.SetupSQLiteDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("SetupSQLiteDatabase() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	index, err := database.SetupSearchDB("")
	if err != nil {
		t.Fatalf("SetupSearchDB() error: %v", err)
	}
	t.Cleanup(func() { index.Close() })
	serverConfig := config.ServerConfig{
		DatabaseType:          "sqlite",
		MaxConcurrentRequests: 2,
		Version:               "test",
		FrontEndConfig: config.FrontEndConfig{
			RecentManifestNumber: 12,
			ThumbnailWidth:       100,
			SearchPageSize:       10,
		},
	}
	h := &ServerHandler{DB: db, SearchDB: index, Echo: echo.New(), ServerConfig: serverConfig, Metrics: NewMetrics()}
	h.RegisterRoutes(h.Echo)
	return h
}

func (h *ServerHandler) serve(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

func TestImportManifestCreatedThenUpdated(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	u := r.manifest("/book/manifest", "Book of Hours")

	results := h.Import(context.Background(), u)
	if len(results) != 1 || results[0].Status != api.ImportCreated {
		t.Fatalf("first import = %+v, want one created result", results)
	}
	id := results[0].ID

	r.manifest("/book/manifest", "Book of Hours, revised")
	results = h.Import(context.Background(), u)
	if len(results) != 1 || results[0].Status != api.ImportUpdated {
		t.Fatalf("second import = %+v, want one updated result", results)
	}
	if results[0].ID != id {
		t.Errorf("re-import changed ID from %s to %s", id, results[0].ID)
	}
	stored, err := h.DB.GetManifest(id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Label != "Book of Hours, revised" {
		t.Errorf("stored label = %q", stored.Label)
	}
	if n, _ := h.SearchDB.DocCount(); n != 1 {
		t.Errorf("DocCount() = %d, want 1", n)
	}
}

func TestImportCollection(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	a := r.manifest("/a", "Alpha")
	b := r.manifest("/b", "Beta")
	c := r.manifest("/c", "Gamma")
	sub := r.set("/sub", []byte(fmt.Sprintf(`{"@id": %q, "@type": "sc:Collection", "manifests": [{"@id": %q}, {"@id": %q}]}`,
		r.url("/sub"), c, a)))
	top := r.set("/top", []byte(fmt.Sprintf(`{"@type": "sc:Collection", "manifests": [{"@id": %q}, {"@id": %q}], "collections": [{"@id": %q}]}`,
		a, b, sub)))

	results := h.Import(context.Background(), top)
	if len(results) != 3 {
		t.Fatalf("Import() returned %d results, want 3: %+v", len(results), results)
	}
	for _, res := range results {
		if res.Status != api.ImportCreated {
			t.Errorf("result %s status = %s, errors %v", res.RemoteURL, res.Status, res.Errors)
		}
	}
	if len(results[0].Warnings) == 0 || results[0].Warnings[0] != "Collection has no @id value." {
		t.Errorf("warnings = %v, want collection warning first", results[0].Warnings)
	}
	if n, _ := h.DB.CountManifests(); n != 3 {
		t.Errorf("CountManifests() = %d, want 3", n)
	}
}

func TestImportRejectsInvalidDocuments(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not json", `<html>`, "Retrieved document is not valid JSON."},
		{"no type", `{"@id": "x"}`, "Parsed document has no @type."},
		{"manifest without id", `{"@type": "sc:Manifest"}`, "Manifest has no @id value."},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := r.set(fmt.Sprintf("/bad/%d", i), []byte(tt.body))
			results := h.Import(context.Background(), u)
			if len(results) != 1 || results[0].Status != api.ImportFailed {
				t.Fatalf("Import() = %+v, want one failed result", results)
			}
			if len(results[0].Errors) == 0 || results[0].Errors[0] != tt.wantErr {
				t.Errorf("errors = %v, want %q", results[0].Errors, tt.wantErr)
			}
		})
	}
	t.Run("unreachable", func(t *testing.T) {
		results := h.Import(context.Background(), r.url("/missing"))
		if len(results) != 1 || results[0].Status != api.ImportFailed {
			t.Fatalf("Import() = %+v, want one failed result", results)
		}
	})
	if n, _ := h.DB.CountManifests(); n != 0 {
		t.Errorf("CountManifests() = %d, want 0", n)
	}
}

func TestImportEndpoint(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	u := r.manifest("/m", "Psalter")

	rec := h.serve(http.MethodPost, "/api/manifests", []byte(`{"remote_url": "ftp://nope"}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad scheme status = %d, want 400", rec.Code)
	}

	rec = h.serve(http.MethodPost, "/api/manifests", []byte(`{"remote_url": "`+r.url("/missing")+`"}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("failed import status = %d, want 422", rec.Code)
	}

	rec = h.serve(http.MethodPost, "/api/manifests", []byte(`{"remote_url": " `+u+` "}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body)
	}
	var results []api.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID == "" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	h.Import(context.Background(), r.manifest("/hours", "Book of Hours"))
	h.Import(context.Background(), r.manifest("/psalter", "Psalter"))

	rec := h.serve(http.MethodGet, "/api/search?q=hours", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var results api.SearchResults
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if results.Total != 1 || len(results.Hits) != 1 || results.Hits[0].Label != "Book of Hours" {
		t.Errorf("results = %+v", results)
	}
	if results.Page != 1 || results.PageSize != 10 || results.HasNext() {
		t.Errorf("paging = page %d size %d", results.Page, results.PageSize)
	}

	t.Run("metadata is searchable", func(t *testing.T) {
		rec := h.serve(http.MethodGet, "/api/search?q=pucelle", nil)
		var results api.SearchResults
		json.Unmarshal(rec.Body.Bytes(), &results)
		if results.Total != 2 {
			t.Errorf("Total = %d, want 2", results.Total)
		}
	})

	t.Run("malformed query falls back to match", func(t *testing.T) {
		rec := h.serve(http.MethodGet, "/api/search?q=%22psalter", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, body %s", rec.Code, rec.Body)
		}
	})

	for _, target := range []string{"/api/search", "/api/search?q=%20%20", "/api/search?q=x&page=0"} {
		rec := h.serve(http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestRecentAndManifestEndpoints(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	first := h.Import(context.Background(), r.manifest("/first", "First"))[0]
	h.Import(context.Background(), r.manifest("/second", "Second"))

	rec := h.serve(http.MethodGet, "/api/manifests/recent", nil)
	var recent []api.ManifestSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &recent); err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Label != "Second" || recent[1].Label != "First" {
		t.Errorf("recent = %+v, want Second then First", recent)
	}

	rec = h.serve(http.MethodGet, "/api/manifests/recent?limit=1", nil)
	json.Unmarshal(rec.Body.Bytes(), &recent)
	if len(recent) != 1 {
		t.Errorf("limit=1 returned %d", len(recent))
	}
	if rec := h.serve(http.MethodGet, "/api/manifests/recent?limit=zero", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	rec = h.serve(http.MethodGet, "/api/manifests/"+first.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m, err := iiif.Parse(rec.Body.Bytes())
	if err != nil || m.Title() != "First" {
		t.Errorf("manifest = %+v, %v", m, err)
	}

	rec = h.serve(http.MethodGet, "/api/manifests/unknown", nil)
	var body api.ErrorBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusNotFound || body.Error != "not found" {
		t.Errorf("unknown manifest = %d %q", rec.Code, body.Error)
	}
}

func TestThumbnailEndpoint(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	var png bytes.Buffer
	if err := imaging.Encode(&png, imaging.New(400, 300, color.NRGBA{R: 200, A: 255}), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	r.set("/thumb.png", png.Bytes())
	res := h.Import(context.Background(), r.manifest("/m", "Illuminated"))[0]

	rec := h.serve(http.MethodGet, "/api/manifests/"+res.ID+"/thumbnail?w=50", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := imaging.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 38 {
		t.Errorf("thumbnail size = %v, want 50x38", img.Bounds().Size())
	}

	if rec := h.serve(http.MethodGet, "/api/manifests/unknown/thumbnail", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown thumbnail status = %d", rec.Code)
	}

	r.mu.Lock()
	delete(r.docs, "/thumb.png")
	r.mu.Unlock()
	if rec := h.serve(http.MethodGet, "/api/manifests/"+res.ID+"/thumbnail", nil); rec.Code != http.StatusBadGateway {
		t.Errorf("unreachable image status = %d, want 502", rec.Code)
	}
}

func TestRefreshManifests(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	res := h.Import(context.Background(), r.manifest("/m", "Old title"))[0]
	h.Import(context.Background(), r.manifest("/n", "Untouched"))

	if n := h.RefreshManifests(context.Background()); n != 0 {
		t.Errorf("unchanged refresh updated %d", n)
	}
	r.manifest("/m", "New title")
	if n := h.RefreshManifests(context.Background()); n != 1 {
		t.Errorf("refresh updated %d, want 1", n)
	}
	stored, _ := h.DB.GetManifest(res.ID)
	if stored.Label != "New title" {
		t.Errorf("label = %q after refresh", stored.Label)
	}

	metrics := h.serve(http.MethodGet, "/metrics", nil).Body.String()
	for _, want := range []string{
		`goiiif_manifest_imports_total{status="created"} 2`,
		`goiiif_manifest_refreshes_total{outcome="updated"} 1`,
		`goiiif_manifest_refreshes_total{outcome="unchanged"} 3`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
	if strings.Contains(metrics, `goiiif_manifest_imports_total{status="updated"}`) {
		t.Error("refreshed manifest was also counted as an import")
	}
}

// failingStore accepts reads and rejects every write
type failingStore struct {
	database.DBInterface
}

func (failingStore) SaveManifest(*database.Manifest) error {
	return errors.New("disk full")
}

func TestImportRollsBackIndexWhenStoreFails(t *testing.T) {
	t.Run("new manifest", func(t *testing.T) {
		h := newTestHandler(t)
		r := newRemote(t)
		h.DB = failingStore{h.DB}

		results := h.Import(context.Background(), r.manifest("/m", "Never stored"))
		if len(results) != 1 || results[0].Status != api.ImportFailed {
			t.Fatalf("Import() = %+v, want one failed result", results)
		}
		if n, _ := h.SearchDB.DocCount(); n != 0 {
			t.Errorf("DocCount() = %d, want 0 after rollback", n)
		}
		if n, _ := h.DB.CountManifests(); n != 0 {
			t.Errorf("CountManifests() = %d, want 0", n)
		}
	})

	t.Run("existing manifest", func(t *testing.T) {
		h := newTestHandler(t)
		r := newRemote(t)
		u := r.manifest("/m", "First version")
		res := h.Import(context.Background(), u)[0]
		if res.Status != api.ImportCreated {
			t.Fatalf("first import = %+v", res)
		}

		store := h.DB
		h.DB = failingStore{store}
		r.manifest("/m", "Second version")
		results := h.Import(context.Background(), u)
		if len(results) != 1 || results[0].Status != api.ImportFailed {
			t.Fatalf("Import() = %+v, want one failed result", results)
		}
		if n, _ := h.SearchDB.DocCount(); n != 1 {
			t.Errorf("DocCount() = %d, want 1", n)
		}
		doc, err := h.SearchDB.Document(res.ID)
		if err != nil || doc == nil {
			t.Errorf("index entry of %s removed: %v", res.ID, err)
		}
		stored, err := store.GetManifest(res.ID)
		if err != nil || stored.Label != "First version" {
			t.Errorf("stored manifest = %+v, %v", stored, err)
		}
	})
}

func TestAboutAndMetricsEndpoints(t *testing.T) {
	h := newTestHandler(t)
	r := newRemote(t)
	h.Import(context.Background(), r.manifest("/m", "Counted"))

	rec := h.serve(http.MethodGet, "/api/about", nil)
	var about api.About
	if err := json.Unmarshal(rec.Body.Bytes(), &about); err != nil {
		t.Fatal(err)
	}
	if about.Version != "test" || about.DatabaseType != "sqlite" || about.ManifestCount != 1 || about.IndexedCount != 1 {
		t.Errorf("about = %+v", about)
	}

	rec = h.serve(http.MethodGet, "/metrics", nil)
	for _, want := range []string{"goiiif_http_requests_total", `route="/api/about"`, `goiiif_manifest_imports_total{status="created"} 1`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestIndexDocument(t *testing.T) {
	m, err := iiif.Parse([]byte(`{
		"@id": "https://example.org/m", "@type": "sc:Manifest",
		"label": [{"@value": "Livre d'heures", "@language": "fr"}, {"@value": "Book of Hours", "@language": "en"}],
		"metadata": [
			{"label": [{"@value": "Auteur", "@language": "fr"}, {"@value": "Author", "@language": "en"}], "value": "Pucelle"},
			{"label": "Binding", "value": "Red velvet"},
			{"label": "Notes", "value": [{"@value": "Rubriques", "@language": "fr"}]}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	doc := indexDocument(&database.Manifest{ID: "01", RemoteURL: "https://example.org/m"}, m)

	if doc["label"] != "Book of Hours" {
		t.Errorf("label = %v", doc["label"])
	}
	if doc["label_txt_fr"] != "Livre d'heures" {
		t.Errorf("label_txt_fr = %v", doc["label_txt_fr"])
	}
	if got, _ := doc["author"].([]string); len(got) != 1 || got[0] != "Pucelle" {
		t.Errorf("author = %v", doc["author"])
	}
	if got, _ := doc["metadata_txt_fr"].([]string); len(got) != 1 || got[0] != "Rubriques" {
		t.Errorf("metadata_txt_fr = %v", doc["metadata_txt_fr"])
	}
	metadata, _ := doc["metadata"].([]string)
	if strings.Join(metadata, "|") != "Pucelle|Red velvet" {
		t.Errorf("metadata = %v", metadata)
	}
}
