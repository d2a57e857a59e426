package webapp

import (
	"net/url"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/router"
	"github.com/drummonds/goIIIF/state"
)

// LandingPage serves /, searches and /manifests/:manifestId. It picks one of
// three layouts from the route on every navigation.
type LandingPage struct {
	app.Compo
	Store  state.Store
	Routes *router.Table
	Config FrontEnd

	params state.RouteParams
	synced bool
}

// OnMount reads the route before the first layout is chosen
func (p *LandingPage) OnMount(ctx app.Context) {
	p.sync(ctx)
}

// OnNav reads the new route
func (p *LandingPage) OnNav(ctx app.Context) {
	p.sync(ctx)
}

// sync normalizes the query in the address bar, replacing the history entry,
// and derives the route params from the result.
func (p *LandingPage) sync(ctx app.Context) {
	u := ctx.Page().URL()
	if normalized, changed := state.NormalizeURL(u); changed {
		ctx.Page().ReplaceURL(normalized)
		u = normalized
	}
	p.params = p.paramsFrom(u)
	p.synced = true
}

func (p *LandingPage) paramsFrom(u *url.URL) state.RouteParams {
	var pathParams router.Params
	if p.Routes != nil {
		_, pathParams, _ = p.Routes.Match(u.Path)
	}
	return state.ParamsFromURL(u, pathParams)
}

// Render renders the layout for the current route
func (p *LandingPage) Render() app.UI {
	if !p.synced {
		return shell("", &LoadingPlaceholder{})
	}
	return shell(p.params.Query, p.body(state.DecideLayout(p.params)))
}

func (p *LandingPage) body(layout state.Layout) app.UI {
	panes := p.panes(layout)
	switch layout {
	case state.LayoutSearch:
		return app.Div().Class("search-layout").Body(
			panes[0],
			app.Aside().Class("detail-pane").Body(panes[1]),
		)
	case state.LayoutDetail:
		return panes[0]
	default:
		return app.Div().Class("landing").Body(
			app.P().Class("intro").Text("Search and view IIIF manifests from libraries and archives."),
			panes[0],
		)
	}
}

// panes are the containers of a layout, in display order
func (p *LandingPage) panes(layout state.Layout) []app.UI {
	switch layout {
	case state.LayoutSearch:
		var detail app.UI = app.P().Class("detail-hint").Text("Select a manifest to see it here.")
		if state.DetailID(p.params) != "" {
			detail = &ManifestDetail{Store: p.Store, Params: p.params}
		}
		return []app.UI{
			&SearchResults{Store: p.Store, Params: p.params, Width: p.Config.ThumbnailWidth},
			detail,
		}
	case state.LayoutDetail:
		return []app.UI{&ManifestDetail{Store: p.Store, Params: p.params}}
	default:
		return []app.UI{&RecentCascade{Store: p.Store, Limit: p.Config.RecentManifestNumber, Width: p.Config.ThumbnailWidth}}
	}
}

// RecentCascade shows the newest manifests
type RecentCascade struct {
	app.Compo
	Store state.Store
	Limit int
	Width int

	loader      *state.Loader
	selector    *state.Selector[[]api.ManifestSummary]
	shown       *state.Selection[[]api.ManifestSummary]
	unsubscribe func()
}

func (c *RecentCascade) init() {
	if c.loader == nil {
		limit := FrontEnd{RecentManifestNumber: c.Limit}.recentLimit()
		c.loader = state.NewLoader(func(string) state.Request { return state.RecentRequest(limit) })
		c.selector = state.NewRecentSelector()
	}
}

// OnMount requests the recent list unless it is already loaded
func (c *RecentCascade) OnMount(ctx app.Context) {
	c.init()
	c.unsubscribe = watch(ctx, c.Store, func() bool {
		return c.selector.Select(c.Store.State(), state.RouteParams{}) != c.shown
	})
	c.loader.Mount(c.Store, c.Store, state.RecentKey)
}

// OnDismount stops listening to the store
func (c *RecentCascade) OnDismount() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Render renders the cascade
func (c *RecentCascade) Render() app.UI {
	c.init()
	c.shown = c.selector.Select(c.Store.State(), state.RouteParams{})
	return app.Section().
		Class("recent-cascade").
		Body(
			app.H2().Text("Recently added"),
			renderView(state.ViewOf(c.shown.Resource), c.renderRecent),
		)
}

func (c *RecentCascade) renderRecent(recent []api.ManifestSummary) app.UI {
	if len(recent) == 0 {
		return app.P().Class("no-results").Body(
			app.Text("No manifests yet. "),
			app.A().Href("/manifests/upload").Text("Import one"),
		)
	}
	return app.Div().Class("manifest-grid").Body(
		app.Range(recent).Slice(func(i int) app.UI {
			return &ManifestCard{Summary: recent[i], Href: state.ManifestURL(recent[i].ID), Width: c.Width}
		}),
	)
}
