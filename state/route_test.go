package state

import (
	"net/url"
	"testing"

	"github.com/drummonds/goIIIF/iiif"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in          string
		want        string
		wantChanged bool
	}{
		{"/", "/", false},
		{"/?q=cat", "/?q=cat", false},
		{"/?q=", "/", true},
		{"/?q=%20%20&m=42", "/", true},
		{"/?q=+cat+&m=42", "/?m=42&q=cat", true},
		{"/manifests/42?q=", "/manifests/42", true},
		{"/manifests/42", "/manifests/42", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := url.Parse(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			out, changed := NormalizeURL(u)
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if out.String() != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, out.String(), tt.want)
			}
		})
	}
}

func TestDecideLayout(t *testing.T) {
	tests := []struct {
		name   string
		params RouteParams
		layout Layout
		detail string
	}{
		{"plain landing", RouteParams{}, LayoutLanding, ""},
		{"search", RouteParams{Query: "cat"}, LayoutSearch, ""},
		{"search with selection", RouteParams{Query: "cat", Selected: "7"}, LayoutSearch, "7"},
		{"search over bound id", RouteParams{Query: "cat", ManifestID: "42"}, LayoutSearch, "42"},
		{"detail only", RouteParams{ManifestID: "42"}, LayoutDetail, "42"},
		{"selection without query ignored", RouteParams{Selected: "7"}, LayoutLanding, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideLayout(tt.params); got != tt.layout {
				t.Errorf("DecideLayout() = %s, want %s", got, tt.layout)
			}
			if got := DetailID(tt.params); got != tt.detail {
				t.Errorf("DetailID() = %q, want %q", got, tt.detail)
			}
		})
	}
}

func TestParamsFromURL(t *testing.T) {
	u, _ := url.Parse("/manifests/42?q=+dog&m=9")
	p := ParamsFromURL(u, map[string]string{"manifestId": "42"})
	want := RouteParams{ManifestID: "42", Query: "dog", Selected: "9"}
	if p != want {
		t.Errorf("ParamsFromURL() = %+v, want %+v", p, want)
	}
}

func TestSearchAndManifestURL(t *testing.T) {
	if got := SearchURL(" cat ", ""); got != "/?q=cat" {
		t.Errorf("SearchURL() = %q", got)
	}
	if got := SearchURL("cat", "42"); got != "/?m=42&q=cat" {
		t.Errorf("SearchURL() = %q", got)
	}
	if got := ManifestURL("a b"); got != "/manifests/a%20b" {
		t.Errorf("ManifestURL() = %q", got)
	}
}

func TestSelectorMemoization(t *testing.T) {
	s, q := newTestStore(&fakeBackend{manifests: map[string]iiif.Manifest{"42": {ID: "x"}}})
	sel := NewManifestSelector()
	p := RouteParams{ManifestID: "42"}

	absent := sel.Select(s.State(), p)
	if absent.Resource != nil {
		t.Fatal("never-requested key must select a nil resource")
	}
	if again := sel.Select(s.State(), p); again != absent {
		t.Error("unchanged inputs must return the same selection")
	}

	s.Dispatch(ManifestRequest("42"))
	pending := sel.Select(s.State(), p)
	if pending == absent || pending.Resource.Status() != StatusPending {
		t.Error("selection must change once a request is dispatched")
	}

	// Unrelated state changes keep the selection stable.
	s.Dispatch(SearchRequest("cat"))
	if sel.Select(s.State(), p) != pending {
		t.Error("unrelated change recomputed the selection")
	}

	q.flush()
	settled := sel.Select(s.State(), p)
	if settled == pending {
		t.Error("settling must produce a new selection")
	}
	if other := sel.Select(s.State(), RouteParams{ManifestID: "7"}); other.Key != "7" || other.Resource != nil {
		t.Errorf("selection for other key = %+v", other)
	}
}

func TestRecentSelectorKey(t *testing.T) {
	sel := NewRecentSelector()
	s := NewMemStore()
	if got := sel.Select(s.State(), RouteParams{ManifestID: "1"}).Key; got != RecentKey {
		t.Errorf("Key = %q, want %q", got, RecentKey)
	}
}
