package state

import "net/url"

// Kind names the resource map a request targets.
type Kind string

const (
	KindSearch   Kind = "search"
	KindManifest Kind = "manifest"
	KindRecent   Kind = "recent"
)

// Action is a descriptor consumed by a Store.
type Action interface {
	Type() string
}

// Request asks the store to load the resource for Key.
type Request struct {
	Kind   Kind
	Key    string
	Params url.Values
}

func (Request) Type() string { return "REQUEST" }

// Resolve delivers the outcome of the request stamped Seq. Exactly one of
// Value and Err is meaningful: Err non-nil marks a failure.
type Resolve struct {
	Kind  Kind
	Key   string
	Seq   uint64
	Value any
	Err   *ErrorInfo
}

func (Resolve) Type() string { return "RESOLVE" }

// SearchRequest builds the request for a search query.
func SearchRequest(query string) Request {
	return Request{Kind: KindSearch, Key: query, Params: url.Values{"q": {query}}}
}

// ManifestRequest builds the request for a manifest id.
func ManifestRequest(id string) Request {
	return Request{Kind: KindManifest, Key: id, Params: url.Values{"id": {id}}}
}

// RecentRequest builds the request for the recent manifests list.
func RecentRequest(limit string) Request {
	p := url.Values{}
	if limit != "" {
		p.Set("limit", limit)
	}
	return Request{Kind: KindRecent, Key: RecentKey, Params: p}
}
