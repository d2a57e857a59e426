package webapp

import (
	"net/http"
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/router"
	"github.com/drummonds/goIIIF/state"
)

// FrontEnd holds the display settings shared by the pages. Zero values leave
// the choice to the server configuration.
type FrontEnd struct {
	RecentManifestNumber int
	ThumbnailWidth       int
}

func (f FrontEnd) recentLimit() string {
	if f.RecentManifestNumber <= 0 {
		return ""
	}
	return strconv.Itoa(f.RecentManifestNumber)
}

// DefaultFrontEnd defers every setting to the server
var DefaultFrontEnd = FrontEnd{}

// StoreFunc returns the store injected into a new page
type StoreFunc func() state.Store

// Shared always injects store
func Shared(store state.Store) StoreFunc {
	return func() state.Store { return store }
}

// Compose builds the component for a route of the table
func Compose(r router.Route, routes *router.Table, store StoreFunc, client *api.Client, cfg FrontEnd) func() app.Composer {
	switch r.View {
	case router.ViewUpload:
		return func() app.Composer {
			page := &UploadPage{Store: store(), Config: cfg}
			if client != nil {
				page.Importer = client
			}
			return page
		}
	case router.ViewAbout:
		return func() app.Composer {
			page := &AboutPage{}
			if client != nil {
				page.Source = client
			}
			return page
		}
	default:
		return func() app.Composer {
			return &LandingPage{Store: store(), Routes: routes, Config: cfg}
		}
	}
}

// RegisterRoutes registers every route of the table with go-app. The store
// and client are injected into the pages; client may be nil on the server.
func RegisterRoutes(routes *router.Table, store StoreFunc, client *api.Client, cfg FrontEnd) {
	for _, r := range routes.Routes() {
		compose := Compose(r, routes, store, client, cfg)
		if r.HasParams() {
			app.RouteWithRegexp(r.Regexp(), compose)
		} else {
			app.Route(r.Pattern, compose)
		}
	}
}

// Handler returns an HTTP handler for the web app
func Handler(version string) http.Handler {
	// The server only prerenders: every page gets its own store without
	// fetchers, dropped with the page.
	RegisterRoutes(router.Default(), func() state.Store { return state.NewMemStore() }, nil, DefaultFrontEnd)
	app.RunWhenOnBrowser()

	// wasm_exec.js is served at /wasm_exec.js by Echo
	// app.wasm is served from /web/app.wasm by Echo
	return &app.Handler{
		Name:        "goIIIF",
		Description: "IIIF manifest search and viewer",
		Version:     version,
		Icon: app.Icon{
			Default: "/favicon.ico",
		},
		RawHeaders: []string{
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		},
	}
}
