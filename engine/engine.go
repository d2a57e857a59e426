package engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/database"
	"github.com/drummonds/goIIIF/iiif"
)

// maxDocumentSize bounds how much of a remote document is read.
const maxDocumentSize = 32 << 20

// fetchDocument downloads the document at rawURL
func (serverHandler *ServerHandler) fetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/ld+json, application/json")
	resp, err := serverHandler.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned %s", rawURL, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}

// Import imports the manifest or every manifest nested in the collection at
// remoteURL. One result is returned per manifest URL; a document that cannot
// be imported at all yields a single failed result.
func (serverHandler *ServerHandler) Import(ctx context.Context, remoteURL string) []api.ImportResult {
	results := serverHandler.importURL(ctx, remoteURL)
	for _, r := range results {
		serverHandler.metrics().imports.WithLabelValues(r.Status).Inc()
	}
	return results
}

func (serverHandler *ServerHandler) importURL(ctx context.Context, remoteURL string) []api.ImportResult {
	Logger.Info("Starting import", "remoteURL", remoteURL)
	data, err := serverHandler.fetchDocument(ctx, remoteURL)
	if err != nil {
		Logger.Error("Unable to fetch document for import", "remoteURL", remoteURL, "error", err)
		return []api.ImportResult{failed(remoteURL, err.Error())}
	}
	inspection := iiif.Inspect(data)
	if !inspection.OK() {
		return []api.ImportResult{{RemoteURL: remoteURL, Status: api.ImportFailed, Errors: inspection.Errors, Warnings: inspection.Warnings}}
	}
	if inspection.Type == iiif.TypeManifest {
		result := serverHandler.importManifest(ctx, remoteURL, data)
		result.Warnings = append(inspection.Warnings, result.Warnings...)
		return []api.ImportResult{result}
	}

	urls, err := inspection.ManifestURLs(ctx, remoteURL, serverHandler.fetchDocument)
	if err != nil {
		Logger.Error("Unable to expand collection", "remoteURL", remoteURL, "error", err)
		return []api.ImportResult{failed(remoteURL, err.Error())}
	}
	Logger.Info("Importing collection", "remoteURL", remoteURL, "manifests", len(urls))
	results := make([]api.ImportResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(serverHandler.ServerConfig.MaxConcurrentRequests, 1))
	for i, u := range urls {
		g.Go(func() error {
			results[i] = serverHandler.importManifest(gctx, u, nil)
			return nil
		})
	}
	g.Wait()
	if len(inspection.Warnings) > 0 && len(results) > 0 {
		results[0].Warnings = append(inspection.Warnings, results[0].Warnings...)
	}
	return results
}

// importManifest validates, indexes and stores a single manifest. data may
// hold the already fetched document.
func (serverHandler *ServerHandler) importManifest(ctx context.Context, remoteURL string, data []byte) (result api.ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered while importing manifest", "remoteURL", remoteURL, "panic", r)
			result = failed(remoteURL, fmt.Sprint("internal error: ", r))
		}
	}()
	if data == nil {
		var err error
		data, err = serverHandler.fetchDocument(ctx, remoteURL)
		if err != nil {
			return failed(remoteURL, err.Error())
		}
	}
	inspection := iiif.Inspect(data)
	if !inspection.OK() {
		return api.ImportResult{RemoteURL: remoteURL, Status: api.ImportFailed, Errors: inspection.Errors}
	}
	if inspection.Type != iiif.TypeManifest {
		return failed(remoteURL, fmt.Sprintf("Document is %s, not %s.", inspection.Type, iiif.TypeManifest))
	}
	manifest, err := iiif.Parse(data)
	if err != nil {
		return failed(remoteURL, err.Error())
	}
	if iiif.SameHost(remoteURL, manifest.ID) {
		remoteURL = manifest.ID
	}
	result.RemoteURL = remoteURL
	if manifest.Label.Pick() == "" {
		result.Warnings = append(result.Warnings, "Manifest has no label.")
	}

	record := &database.Manifest{RemoteURL: remoteURL}
	existing, err := serverHandler.DB.GetManifestByRemoteURL(remoteURL)
	switch {
	case err == nil:
		record.ID = existing.ID
		record.Created = existing.Created
	case errors.Is(err, database.ErrNotFound):
		record.Created = time.Now()
		record.ID, err = database.NewID(record.Created)
		if err != nil {
			return failed(remoteURL, err.Error())
		}
	default:
		Logger.Error("Unable to check for duplicate manifest", "remoteURL", remoteURL, "error", err)
		return failed(remoteURL, err.Error())
	}
	fillRecord(record, manifest, data)

	if err := serverHandler.SearchDB.Index(record.ID, indexDocument(record, manifest)); err != nil {
		Logger.Error("Unable to index manifest", "remoteURL", remoteURL, "error", err)
		return failed(remoteURL, err.Error())
	}
	if err := serverHandler.DB.SaveManifest(record); err != nil {
		Logger.Error("Unable to store manifest", "remoteURL", remoteURL, "error", err)
		if existing == nil {
			if delErr := serverHandler.SearchDB.Delete(record.ID); delErr != nil {
				Logger.Error("Unable to remove manifest from index", "id", record.ID, "error", delErr)
			}
		}
		return failed(remoteURL, err.Error())
	}

	result.ID = record.ID
	result.Status = api.ImportCreated
	if existing != nil {
		result.Status = api.ImportUpdated
	}
	Logger.Info("Imported manifest", "id", record.ID, "remoteURL", remoteURL, "status", result.Status)
	return result
}

func failed(remoteURL string, msg string) api.ImportResult {
	return api.ImportResult{RemoteURL: remoteURL, Status: api.ImportFailed, Errors: []string{msg}}
}

func hashDocument(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func fillRecord(record *database.Manifest, m iiif.Manifest, data []byte) {
	record.Hash = hashDocument(data)
	record.Label = m.Title()
	record.Description = m.Description.Pick()
	record.Attribution = m.Attribution.Pick()
	record.Thumbnail = m.Thumbnail
	record.Logo = m.Logo
	record.Document = data
}

// indexedLangs are the languages whose translations get their own fields.
var indexedLangs = map[string]bool{"en": true, "fr": true, "it": true, "de": true}

// knownFields maps lowercased metadata labels to dedicated index fields.
var knownFields = map[string]string{
	"title":           "title",
	"author":          "author",
	"creator":         "author",
	"date":            "date",
	"date of origin":  "date",
	"place of origin": "location",
	"location":        "location",
	"repository":      "repository",
	"shelfmark":       "shelfmark",
	"shelf mark":      "shelfmark",
	"language":        "language",
}

// indexDocument builds the bleve document of a manifest.
func indexDocument(record *database.Manifest, m iiif.Manifest) map[string]any {
	doc := map[string]any{
		"id":         record.ID,
		"type":       m.Type,
		"remote_url": record.RemoteURL,
		"created":    record.Created,
		"thumbnail":  record.Thumbnail,
		"logo":       record.Logo,
	}
	for field, value := range map[string]iiif.LangValue{
		"label":       m.Label,
		"description": m.Description,
		"attribution": m.Attribution,
	} {
		addMultilang(doc, field, value)
	}

	var metadata []string
	for _, entry := range m.Metadata {
		norm := normalizeLabel(entry.Label)
		if norm == "" {
			for lang, values := range entry.Value.ByLanguage() {
				switch {
				case lang == "":
					metadata = append(metadata, strings.Join(values, " "))
				case indexedLangs[lang]:
					appendField(doc, "metadata_txt_"+lang, values...)
				}
			}
			continue
		}
		if v := entry.Value.Pick(); v != "" {
			appendField(doc, norm, v)
		}
		for lang, values := range entry.Value.ByLanguage() {
			if lang != "" && lang != "en" && indexedLangs[lang] {
				appendField(doc, norm+"_txt_"+lang, values...)
			}
		}
		metadata = append(metadata, joinValues(entry.Value))
	}
	doc["metadata"] = metadata
	return doc
}

// addMultilang stores the default (English or first) value under field and
// every other indexed language under field_txt_<lang>.
func addMultilang(doc map[string]any, field string, value iiif.LangValue) {
	if len(value) == 0 {
		return
	}
	doc[field] = value.Pick()
	for lang, values := range value.ByLanguage() {
		if lang != "" && lang != "en" && indexedLangs[lang] {
			doc[field+"_txt_"+lang] = strings.Join(values, " ")
		}
	}
}

// normalizeLabel finds the dedicated field for a metadata label, preferring
// the English label. It returns "" when the label maps to no known field.
func normalizeLabel(label iiif.LangValue) string {
	for _, ls := range label {
		if strings.EqualFold(ls.Language, "en") {
			if f, ok := knownFields[strings.ToLower(ls.Value)]; ok {
				return f
			}
		}
	}
	for _, ls := range label {
		if f, ok := knownFields[strings.ToLower(ls.Value)]; ok {
			return f
		}
	}
	return ""
}

func appendField(doc map[string]any, key string, values ...string) {
	existing, _ := doc[key].([]string)
	doc[key] = append(existing, values...)
}

func joinValues(v iiif.LangValue) string {
	parts := make([]string, 0, len(v))
	seen := make(map[string]bool)
	for _, ls := range v {
		if !seen[ls.Value] {
			seen[ls.Value] = true
			parts = append(parts, ls.Value)
		}
	}
	return strings.Join(parts, " ")
}
