package router

import (
	"regexp"
	"testing"
)

func TestDefaultTableMatch(t *testing.T) {
	table := Default()

	tests := []struct {
		path       string
		wantView   View
		wantParams Params
		wantOK     bool
	}{
		{"/", ViewLanding, Params{}, true},
		{"", ViewLanding, Params{}, true},
		{"/about", ViewAbout, Params{}, true},
		{"/about/", ViewAbout, Params{}, true},
		{"/manifests/upload", ViewUpload, Params{}, true},
		{"/manifests/42", ViewLanding, Params{"manifestId": "42"}, true},
		{"/manifests/01HZX%2Fa", ViewLanding, Params{"manifestId": "01HZX/a"}, true},
		{"/manifests", "", nil, false},
		{"/manifests/42/extra", "", nil, false},
		{"/nowhere", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, params, ok := table.Match(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if route.View != tt.wantView {
				t.Errorf("Match(%q) view = %q, want %q", tt.path, route.View, tt.wantView)
			}
			if len(params) != len(tt.wantParams) {
				t.Fatalf("Match(%q) params = %v, want %v", tt.path, params, tt.wantParams)
			}
			for k, v := range tt.wantParams {
				if params[k] != v {
					t.Errorf("param %q = %q, want %q", k, params[k], v)
				}
			}
		})
	}
}

func TestStaticBeatsParamRegardlessOfOrder(t *testing.T) {
	table, err := New(
		Route{Pattern: "/manifests/:manifestId", View: ViewLanding},
		Route{Pattern: "/manifests/upload", View: ViewUpload},
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	route, params, ok := table.Match("/manifests/upload")
	if !ok || route.View != ViewUpload {
		t.Fatalf("Match() = %v, %v; want upload route", route, ok)
	}
	if _, bound := params["manifestId"]; bound {
		t.Error("upload route must not bind manifestId")
	}
}

func TestNewRejectsBadPatterns(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
	}{
		{"no leading slash", []Route{{Pattern: "about"}}},
		{"unnamed param", []Route{{Pattern: "/manifests/:"}}},
		{"duplicate shape", []Route{{Pattern: "/m/:a"}, {Pattern: "/m/:b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.routes...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRouteRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		match   []string
		reject  []string
	}{
		{"/", []string{"/"}, []string{"/about", "/manifests/1"}},
		{"/about", []string{"/about", "/about/"}, []string{"/about/x", "/aboutx"}},
		{"/manifests/:manifestId", []string{"/manifests/42", "/manifests/abc/"}, []string{"/manifests/", "/manifests/a/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			re := regexp.MustCompile(Route{Pattern: tt.pattern}.Regexp())
			for _, p := range tt.match {
				if !re.MatchString(p) {
					t.Errorf("%s should match %q", re, p)
				}
			}
			for _, p := range tt.reject {
				if re.MatchString(p) {
					t.Errorf("%s should not match %q", re, p)
				}
			}
		})
	}
}
