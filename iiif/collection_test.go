package iiif

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantType     string
		wantErrors   []string
		wantWarnings []string
	}{
		{"manifest", `{"@id": "m", "@type": "sc:Manifest"}`, TypeManifest, nil, nil},
		{"invalid json", `{`, "", []string{"Retrieved document is not valid JSON."}, nil},
		{"no type", `{"@id": "m"}`, "", []string{"Parsed document has no @type."}, nil},
		{"manifest without id", `{"@type": "sc:Manifest"}`, TypeManifest, []string{"Manifest has no @id value."}, nil},
		{"collection without id", `{"@type": "sc:Collection"}`, TypeCollection, nil, []string{"Collection has no @id value."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Inspect([]byte(tt.input))
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if !reflect.DeepEqual(got.Errors, tt.wantErrors) {
				t.Errorf("Errors = %v, want %v", got.Errors, tt.wantErrors)
			}
			if !reflect.DeepEqual(got.Warnings, tt.wantWarnings) {
				t.Errorf("Warnings = %v, want %v", got.Warnings, tt.wantWarnings)
			}
			if got.OK() != (len(tt.wantErrors) == 0) {
				t.Errorf("OK() = %v", got.OK())
			}
		})
	}
}

func TestManifestURLs(t *testing.T) {
	docs := map[string]string{
		"https://ex.org/sub": `{"@type": "sc:Collection", "manifests": [{"@id": "https://ex.org/m3"}, {"@id": "https://ex.org/m1"}],
			"collections": [{"@id": "https://ex.org/top"}]}`,
		"https://ex.org/top": `{"@type": "sc:Collection", "collections": [{"@id": "https://ex.org/sub"}]}`,
	}
	fetches := 0
	fetch := func(_ context.Context, u string) ([]byte, error) {
		fetches++
		d, ok := docs[u]
		if !ok {
			return nil, errors.New("not found")
		}
		return []byte(d), nil
	}

	t.Run("manifest is itself", func(t *testing.T) {
		ins := Inspect([]byte(`{"@id": "m", "@type": "sc:Manifest"}`))
		got, err := ins.ManifestURLs(context.Background(), "https://ex.org/m", fetch)
		if err != nil || !reflect.DeepEqual(got, []string{"https://ex.org/m"}) {
			t.Errorf("ManifestURLs() = %v, %v", got, err)
		}
	})

	t.Run("nested collections are walked once", func(t *testing.T) {
		ins := Inspect([]byte(`{"@id": "https://ex.org/root", "@type": "sc:Collection",
			"manifests": [{"@id": "https://ex.org/m1"}, {"@id": "https://ex.org/m2"}],
			"collections": [{"@id": "https://ex.org/sub"}]}`))
		fetches = 0
		got, err := ins.ManifestURLs(context.Background(), "https://ex.org/root", fetch)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"https://ex.org/m1", "https://ex.org/m2", "https://ex.org/m3"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ManifestURLs() = %v, want %v", got, want)
		}
		if fetches != 2 {
			t.Errorf("fetched %d collections, want 2", fetches)
		}
	})

	t.Run("unreachable sub-collection", func(t *testing.T) {
		ins := Inspect([]byte(`{"@type": "sc:Collection", "collections": [{"@id": "https://ex.org/gone"}]}`))
		if _, err := ins.ManifestURLs(context.Background(), "https://ex.org/root", fetch); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		ins := Inspect([]byte(`{"@id": "x", "@type": "sc:Canvas"}`))
		if _, err := ins.ManifestURLs(context.Background(), "x", fetch); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestSameHost(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"https://ex.org/a", "https://ex.org/b/manifest", true},
		{"https://ex.org/a", "http://ex.org/a", true},
		{"https://ex.org/a", "https://other.org/a", false},
		{"https://ex.org/a", "relative/id", false},
	}
	for _, tt := range tests {
		if got := SameHost(tt.a, tt.b); got != tt.want {
			t.Errorf("SameHost(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
