// Package state holds the browser application's state: async resources keyed
// by request, the store that reduces actions into immutable snapshots, the
// memoized selectors containers read through, and the route-driven loading
// rules containers follow.
package state

import (
	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/iiif"
)

// RecentKey is the single key under which the recent manifests list is stored.
const RecentKey = "latest"

// ResourceMap maps a request key to the resource of its latest request.
type ResourceMap[T any] map[string]*Resource[T]

// with returns a copy of m where key maps to r. The receiver is untouched so
// snapshots handed out earlier keep their contents.
func (m ResourceMap[T]) with(key string, r *Resource[T]) ResourceMap[T] {
	out := make(ResourceMap[T], len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = r
	return out
}

// State is an immutable snapshot of everything the UI has requested.
type State struct {
	Searches  ResourceMap[api.SearchResults]
	Manifests ResourceMap[iiif.Manifest]
	Recent    ResourceMap[[]api.ManifestSummary]
}

// Search returns the resource for a query, or nil when it was never requested.
func (s State) Search(query string) *Resource[api.SearchResults] {
	return s.Searches[query]
}

// Manifest returns the resource for a manifest id, or nil when it was never requested.
func (s State) Manifest(id string) *Resource[iiif.Manifest] {
	return s.Manifests[id]
}

// Has reports whether a request for key of the given kind was ever dispatched.
func (s State) Has(kind Kind, key string) bool {
	switch kind {
	case KindSearch:
		_, ok := s.Searches[key]
		return ok
	case KindManifest:
		_, ok := s.Manifests[key]
		return ok
	case KindRecent:
		_, ok := s.Recent[key]
		return ok
	}
	return false
}
