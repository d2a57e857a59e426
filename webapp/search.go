package webapp

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/state"
)

// SearchResults lists the hits of the query in Params
type SearchResults struct {
	app.Compo
	Store  state.Store
	Params state.RouteParams
	Width  int

	loader      *state.Loader
	selector    *state.Selector[api.SearchResults]
	shown       *state.Selection[api.SearchResults]
	unsubscribe func()
}

func (c *SearchResults) init() {
	if c.loader == nil {
		c.loader = state.NewLoader(state.SearchRequest)
		c.selector = state.NewSearchSelector()
	}
}

// OnMount requests the results if nobody did yet
func (c *SearchResults) OnMount(ctx app.Context) {
	c.init()
	c.unsubscribe = watch(ctx, c.Store, func() bool {
		return c.selector.Select(c.Store.State(), c.Params) != c.shown
	})
	c.loader.Mount(c.Store, c.Store, state.SelectQuery(c.Params))
}

// OnUpdate requests the results of a changed query
func (c *SearchResults) OnUpdate(ctx app.Context) {
	c.init()
	c.loader.Update(c.Store, c.Store, state.SelectQuery(c.Params))
}

// OnDismount stops listening to the store
func (c *SearchResults) OnDismount() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Render renders the result list
func (c *SearchResults) Render() app.UI {
	c.init()
	c.shown = c.selector.Select(c.Store.State(), c.Params)
	return app.Section().
		Class("search-results").
		Body(renderView(state.ViewOf(c.shown.Resource), c.renderResults))
}

func (c *SearchResults) renderResults(results api.SearchResults) app.UI {
	if len(results.Hits) == 0 {
		return app.P().Class("no-results").Text(fmt.Sprintf("No manifests match %q.", results.Query))
	}
	summary := fmt.Sprintf("%d results for %q", results.Total, results.Query)
	if results.Total == 1 {
		summary = fmt.Sprintf("1 result for %q", results.Query)
	}
	return app.Div().Body(
		app.P().Class("result-count").Text(summary),
		app.Div().Class("result-list").Body(
			app.Range(results.Hits).Slice(func(i int) app.UI {
				hit := results.Hits[i]
				return &ManifestCard{
					Summary:  hit,
					Href:     state.SearchURL(results.Query, hit.ID),
					Width:    c.Width,
					Selected: hit.ID == c.Params.Selected,
				}
			}),
		),
	)
}
