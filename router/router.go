// Package router is the table mapping URL path patterns to the views of the
// web app. It knows nothing about rendering so it can be tested on its own.
package router

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// View names a top-level view.
type View string

const (
	ViewLanding View = "landing"
	ViewUpload  View = "upload"
	ViewAbout   View = "about"
)

// Route maps a pattern such as /manifests/:manifestId to a view.
type Route struct {
	Pattern string
	View    View

	segments []string
}

// Params are the path parameters bound by a match.
type Params map[string]string

// Table is an ordered set of routes.
type Table struct {
	routes []Route
}

// New builds a table. It fails on malformed patterns or duplicates.
func New(routes ...Route) (*Table, error) {
	t := &Table{}
	seen := make(map[string]bool)
	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route pattern %q must start with /", r.Pattern)
		}
		r.segments = split(r.Pattern)
		shape := shapeOf(r.segments)
		if seen[shape] {
			return nil, fmt.Errorf("route pattern %q duplicates an earlier route", r.Pattern)
		}
		seen[shape] = true
		for _, seg := range r.segments {
			if seg == ":" {
				return nil, fmt.Errorf("route pattern %q has an unnamed parameter", r.Pattern)
			}
		}
		t.routes = append(t.routes, r)
	}
	return t, nil
}

// Default is the app's route table.
func Default() *Table {
	t, err := New(
		Route{Pattern: "/", View: ViewLanding},
		Route{Pattern: "/manifests/upload", View: ViewUpload},
		Route{Pattern: "/manifests/:manifestId", View: ViewLanding},
		Route{Pattern: "/about", View: ViewAbout},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Match finds the route for path. When several routes match, the one with
// the most static segments wins, so /manifests/upload never binds
// manifestId to "upload".
func (t *Table) Match(path string) (Route, Params, bool) {
	segs := split(path)
	best := -1
	bestStatic := -1
	var bestParams Params
	for i, r := range t.routes {
		params, static, ok := r.match(segs)
		if ok && static > bestStatic {
			best, bestStatic, bestParams = i, static, params
		}
	}
	if best < 0 {
		return Route{}, nil, false
	}
	return t.routes[best], bestParams, true
}

func (r Route) match(segs []string) (Params, int, bool) {
	if len(segs) != len(r.segments) {
		return nil, 0, false
	}
	params := Params{}
	static := 0
	for i, seg := range r.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			v, err := url.PathUnescape(segs[i])
			if err != nil || v == "" {
				return nil, 0, false
			}
			params[name] = v
			continue
		}
		if seg != segs[i] {
			return nil, 0, false
		}
		static++
	}
	return params, static, true
}

// Regexp is the anchored expression matching the route, for frameworks that
// register routes by regular expression.
func (r Route) Regexp() string {
	segs := r.segments
	if segs == nil {
		segs = split(r.Pattern)
	}
	if len(segs) == 0 {
		return "^/$"
	}
	var b strings.Builder
	b.WriteString("^")
	for _, seg := range segs {
		b.WriteString("/")
		if strings.HasPrefix(seg, ":") {
			b.WriteString("[^/]+")
		} else {
			b.WriteString(regexp.QuoteMeta(seg))
		}
	}
	b.WriteString("/?$")
	return b.String()
}

// HasParams reports whether the pattern binds path parameters.
func (r Route) HasParams() bool {
	return strings.Contains(r.Pattern, "/:")
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func shapeOf(segs []string) string {
	out := make([]string, len(segs))
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			out[i] = ":"
		} else {
			out[i] = s
		}
	}
	return "/" + strings.Join(out, "/")
}
