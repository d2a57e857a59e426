package state

// Loader implements the load rules of one container: it remembers the
// identifier seen on the previous render and decides when to dispatch.
type Loader struct {
	build   func(key string) Request
	prev    string
	mounted bool
}

// NewLoader returns a loader dispatching the requests built by build.
func NewLoader(build func(key string) Request) *Loader {
	return &Loader{build: build}
}

// Mount dispatches a request for key if key is present and no request for
// it exists yet. It reports whether a request was dispatched.
func (l *Loader) Mount(st Reader, d Dispatcher, key string) bool {
	l.mounted = true
	l.prev = key
	if key == "" {
		return false
	}
	req := l.build(key)
	if st.State().Has(req.Kind, req.Key) {
		return false
	}
	d.Dispatch(req)
	return true
}

// Update dispatches a request when key differs from the previous one and is
// present. Moving to an absent key only forgets the previous one.
func (l *Loader) Update(st Reader, d Dispatcher, key string) bool {
	if !l.mounted {
		return l.Mount(st, d, key)
	}
	if key == l.prev {
		return false
	}
	l.prev = key
	if key == "" {
		return false
	}
	d.Dispatch(l.build(key))
	return true
}

// Current is the identifier seen on the last Mount or Update.
func (l *Loader) Current() string {
	return l.prev
}
