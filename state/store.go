package state

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/iiif"
)

// Reader gives read access to the current snapshot.
type Reader interface {
	State() State
}

// Dispatcher accepts actions.
type Dispatcher interface {
	Dispatch(Action)
}

// Store is what containers are handed: read the snapshot, dispatch actions
// and be told when the snapshot changed.
type Store interface {
	Reader
	Dispatcher
	Subscribe(fn func()) (unsubscribe func())
}

// Fetcher performs the load behind a Request.
type Fetcher func(ctx context.Context, req Request) (any, error)

// Backend is the manifest/search API the default fetchers call.
type Backend interface {
	Search(ctx context.Context, query string, page int) (api.SearchResults, error)
	Manifest(ctx context.Context, id string) (iiif.Manifest, error)
	Recent(ctx context.Context, limit int) ([]api.ManifestSummary, error)
}

// Option configures a MemStore.
type Option func(*MemStore)

// WithFetcher registers the fetcher run for requests of kind.
func WithFetcher(kind Kind, f Fetcher) Option {
	return func(s *MemStore) { s.fetchers[kind] = f }
}

// WithBackend registers fetchers for every kind backed by b.
func WithBackend(b Backend) Option {
	return func(s *MemStore) {
		s.fetchers[KindSearch] = func(ctx context.Context, req Request) (any, error) {
			page, _ := strconv.Atoi(req.Params.Get("page"))
			return b.Search(ctx, req.Key, page)
		}
		s.fetchers[KindManifest] = func(ctx context.Context, req Request) (any, error) {
			return b.Manifest(ctx, req.Key)
		}
		s.fetchers[KindRecent] = func(ctx context.Context, req Request) (any, error) {
			limit, _ := strconv.Atoi(req.Params.Get("limit"))
			return b.Recent(ctx, limit)
		}
	}
}

// WithAsync sets how fetches are started. The default starts a goroutine,
// which go-app schedules on the browser event loop.
func WithAsync(run func(func())) Option {
	return func(s *MemStore) { s.async = run }
}

// WithLogger sets the logger used for dropped responses.
func WithLogger(l *slog.Logger) Option {
	return func(s *MemStore) { s.logger = l }
}

// MemStore is the in-memory Store. Every change replaces the touched map so
// snapshots returned by State are never modified afterwards.
type MemStore struct {
	mu       sync.Mutex
	state    State
	seq      uint64
	fetchers map[Kind]Fetcher
	subs     map[int]func()
	nextSub  int

	async  func(func())
	logger *slog.Logger
	ctx    context.Context
}

// NewMemStore returns an empty store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		state: State{
			Searches:  ResourceMap[api.SearchResults]{},
			Manifests: ResourceMap[iiif.Manifest]{},
			Recent:    ResourceMap[[]api.ManifestSummary]{},
		},
		fetchers: make(map[Kind]Fetcher),
		subs:     make(map[int]func()),
		async:    func(f func()) { go f() },
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *MemStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every change.
func (s *MemStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Dispatch reduces the action. A Request immediately stores a pending
// resource and hands its fetch to the async runner; the outcome comes back
// later as a Resolve.
func (s *MemStore) Dispatch(a Action) {
	s.mu.Lock()
	var (
		changed bool
		effect  func()
	)
	switch a := a.(type) {
	case Request:
		s.seq++
		seq := s.seq
		changed = s.request(a, seq)
		if f, ok := s.fetchers[a.Kind]; ok && changed {
			ctx := s.ctx
			effect = func() {
				res := Resolve{Kind: a.Kind, Key: a.Key, Seq: seq}
				v, err := f(ctx, a)
				if err != nil {
					info := ErrorFrom(err)
					res.Err = &info
				} else {
					res.Value = v
				}
				s.Dispatch(res)
			}
		}
	case Resolve:
		changed = s.resolve(a)
		if !changed {
			s.logger.Debug("Dropping stale response", "kind", a.Kind, "key", a.Key, "seq", a.Seq)
		}
	default:
		s.logger.Warn("Ignoring unknown action", "type", a.Type())
	}
	var subs []func()
	if changed {
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	if effect != nil {
		s.async(effect)
	}
}

func (s *MemStore) request(a Request, seq uint64) bool {
	switch a.Kind {
	case KindSearch:
		s.state.Searches = s.state.Searches.with(a.Key, Pending[api.SearchResults](seq))
	case KindManifest:
		s.state.Manifests = s.state.Manifests.with(a.Key, Pending[iiif.Manifest](seq))
	case KindRecent:
		s.state.Recent = s.state.Recent.with(a.Key, Pending[[]api.ManifestSummary](seq))
	default:
		s.logger.Warn("Ignoring request of unknown kind", "kind", a.Kind, "key", a.Key)
		return false
	}
	return true
}

func (s *MemStore) resolve(a Resolve) bool {
	var applied bool
	switch a.Kind {
	case KindSearch:
		s.state.Searches, applied = settle(s.state.Searches, a)
	case KindManifest:
		s.state.Manifests, applied = settle(s.state.Manifests, a)
	case KindRecent:
		s.state.Recent, applied = settle(s.state.Recent, a)
	}
	return applied
}

// settle applies a only when it answers the request currently stored under
// its key. Responses to superseded requests are dropped.
func settle[T any](m ResourceMap[T], a Resolve) (ResourceMap[T], bool) {
	cur, ok := m[a.Key]
	if !ok || cur.Seq() != a.Seq || cur.Status() != StatusPending {
		return m, false
	}
	var next *Resource[T]
	switch v, ok := a.Value.(T); {
	case a.Err != nil:
		next, _ = cur.Fail(*a.Err)
	case ok:
		next, _ = cur.Succeed(v)
	default:
		next, _ = cur.Fail(ErrorInfo{Message: fmt.Sprintf("unexpected %T response for %s", a.Value, a.Kind)})
	}
	return m.with(a.Key, next), true
}
