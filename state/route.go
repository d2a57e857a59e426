package state

import (
	"net/url"
	"strings"
)

// Query-string parameters read by the landing container.
const (
	QueryParam    = "q"
	SelectedParam = "m"
)

// RouteParams is the read-only snapshot of the route driving a render.
type RouteParams struct {
	ManifestID string // bound by /manifests/:manifestId
	Query      string // q
	Selected   string // m, the manifest opened next to search results
}

// ParamsFromURL builds RouteParams from the path parameters matched by the
// router and the URL's query string.
func ParamsFromURL(u *url.URL, pathParams map[string]string) RouteParams {
	q := u.Query()
	return RouteParams{
		ManifestID: strings.TrimSpace(pathParams["manifestId"]),
		Query:      strings.TrimSpace(q.Get(QueryParam)),
		Selected:   strings.TrimSpace(q.Get(SelectedParam)),
	}
}

// NormalizeURL trims the search query in u. A blank query is not a search:
// both q and m are removed. changed reports whether the caller must replace
// the current location with the returned URL.
func NormalizeURL(u *url.URL) (out *url.URL, changed bool) {
	q := u.Query()
	if _, ok := q[QueryParam]; !ok {
		return u, false
	}
	raw := q.Get(QueryParam)
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		q.Del(QueryParam)
		q.Del(SelectedParam)
	case trimmed != raw:
		q.Set(QueryParam, trimmed)
	default:
		return u, false
	}
	next := *u
	next.RawQuery = q.Encode()
	return &next, true
}

// SearchURL is the location of a search for query, optionally with a
// manifest opened beside the results.
func SearchURL(query, selected string) string {
	q := url.Values{}
	q.Set(QueryParam, strings.TrimSpace(query))
	if selected != "" {
		q.Set(SelectedParam, selected)
	}
	return "/?" + q.Encode()
}

// ManifestURL is the location of the detail view for id.
func ManifestURL(id string) string {
	return "/manifests/" + url.PathEscape(id)
}

// Layout is one of the mutually exclusive landing layouts.
type Layout int

const (
	LayoutLanding Layout = iota // recent items cascade
	LayoutSearch                // search results with an optional detail pane
	LayoutDetail                // manifest detail only
)

func (l Layout) String() string {
	switch l {
	case LayoutSearch:
		return "search"
	case LayoutDetail:
		return "detail"
	default:
		return "landing"
	}
}

// DecideLayout picks the landing layout for p. It depends on volatile route
// state and must be called on every update.
func DecideLayout(p RouteParams) Layout {
	switch {
	case p.Query != "":
		return LayoutSearch
	case p.ManifestID != "":
		return LayoutDetail
	default:
		return LayoutLanding
	}
}

// DetailID is the manifest shown in the detail pane, if any.
func DetailID(p RouteParams) string {
	if p.Query != "" && p.Selected != "" {
		return p.Selected
	}
	return p.ManifestID
}
