package iiif

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Inspection is the outcome of the checks run on a document before import.
type Inspection struct {
	Type     string
	ID       string
	Errors   []string
	Warnings []string

	doc map[string]json.RawMessage
}

// OK reports whether the document may be imported.
func (i Inspection) OK() bool {
	return len(i.Errors) == 0
}

// Inspect checks that data is JSON with an @type, and that a manifest names
// itself with @id. A collection without @id only earns a warning.
func Inspect(data []byte) Inspection {
	var ins Inspection
	if err := json.Unmarshal(data, &ins.doc); err != nil {
		ins.Errors = append(ins.Errors, "Retrieved document is not valid JSON.")
		return ins
	}
	_ = json.Unmarshal(ins.doc["@type"], &ins.Type)
	if ins.Type == "" {
		ins.Errors = append(ins.Errors, "Parsed document has no @type.")
		return ins
	}
	_ = json.Unmarshal(ins.doc["@id"], &ins.ID)
	if ins.ID == "" {
		switch ins.Type {
		case TypeCollection:
			ins.Warnings = append(ins.Warnings, "Collection has no @id value.")
		case TypeManifest:
			ins.Errors = append(ins.Errors, "Manifest has no @id value.")
		}
	}
	return ins
}

// FetchFunc retrieves the document at a URL.
type FetchFunc func(ctx context.Context, rawURL string) ([]byte, error)

// ManifestURLs lists every manifest reachable from the inspected document:
// remoteURL itself for a manifest, or the manifests nested anywhere inside a
// collection, fetching sub-collections with fetch. Each URL appears once.
func (i Inspection) ManifestURLs(ctx context.Context, remoteURL string, fetch FetchFunc) ([]string, error) {
	if !i.OK() {
		return nil, nil
	}
	switch i.Type {
	case TypeManifest:
		return []string{remoteURL}, nil
	case TypeCollection:
		seen := make(map[string]bool)
		visited := make(map[string]bool)
		var out []string
		if err := nestedManifests(ctx, i.doc, fetch, seen, visited, &out); err != nil {
			return out, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot import document of type %q", i.Type)
}

type reference struct {
	ID string `json:"@id"`
}

func nestedManifests(ctx context.Context, doc map[string]json.RawMessage, fetch FetchFunc, seen, visited map[string]bool, out *[]string) error {
	var manifests []reference
	_ = json.Unmarshal(doc["manifests"], &manifests)
	for _, m := range manifests {
		if m.ID != "" && !seen[m.ID] {
			seen[m.ID] = true
			*out = append(*out, m.ID)
		}
	}

	var collections []reference
	_ = json.Unmarshal(doc["collections"], &collections)
	for _, c := range collections {
		if c.ID == "" || visited[c.ID] {
			continue
		}
		visited[c.ID] = true
		data, err := fetch(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("fetching collection %s: %w", c.ID, err)
		}
		var sub map[string]json.RawMessage
		if err := json.Unmarshal(data, &sub); err != nil {
			return fmt.Errorf("collection %s is not valid JSON: %w", c.ID, err)
		}
		if err := nestedManifests(ctx, sub, fetch, seen, visited, out); err != nil {
			return err
		}
	}
	return nil
}

// SameHost reports whether two URLs share a host, in which case a document's
// own @id may replace the URL it was fetched from.
func SameHost(remoteURL, docID string) bool {
	a, err := url.Parse(remoteURL)
	if err != nil {
		return false
	}
	b, err := url.Parse(docID)
	if err != nil {
		return false
	}
	return a.Host == b.Host
}
