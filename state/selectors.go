package state

import (
	"sync"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/iiif"
)

// Selection is the render input a selector derives for one container.
// Resource is nil when nothing was ever requested for Key.
type Selection[T any] struct {
	Key      string
	Resource *Resource[T]
}

// Selector derives a Selection from a snapshot and route params. It returns
// the previous *Selection as long as the key and the resource stored under it
// are unchanged, so callers can compare pointers to skip re-rendering.
type Selector[T any] struct {
	key    func(RouteParams) string
	lookup func(State) ResourceMap[T]

	mu   sync.Mutex
	last *Selection[T]
}

// NewSelector builds a selector from a key derivation and the map it reads.
func NewSelector[T any](key func(RouteParams) string, lookup func(State) ResourceMap[T]) *Selector[T] {
	return &Selector[T]{key: key, lookup: lookup}
}

// Select returns the memoized selection for st and p.
func (s *Selector[T]) Select(st State, p RouteParams) *Selection[T] {
	key := s.key(p)
	var res *Resource[T]
	if key != "" {
		res = s.lookup(st)[key]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && s.last.Key == key && s.last.Resource == res {
		return s.last
	}
	s.last = &Selection[T]{Key: key, Resource: res}
	return s.last
}

// SelectQuery is the active search query.
func SelectQuery(p RouteParams) string {
	return p.Query
}

// NewSearchSelector selects the results of the active query.
func NewSearchSelector() *Selector[api.SearchResults] {
	return NewSelector(SelectQuery, func(st State) ResourceMap[api.SearchResults] { return st.Searches })
}

// NewManifestSelector selects the manifest shown in the detail view.
func NewManifestSelector() *Selector[iiif.Manifest] {
	return NewSelector(DetailID, func(st State) ResourceMap[iiif.Manifest] { return st.Manifests })
}

// NewRecentSelector selects the recent manifests list.
func NewRecentSelector() *Selector[[]api.ManifestSummary] {
	return NewSelector(
		func(RouteParams) string { return RecentKey },
		func(st State) ResourceMap[[]api.ManifestSummary] { return st.Recent },
	)
}
