package webapp

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/iiif"
	"github.com/drummonds/goIIIF/state"
)

// maxCanvases caps the canvases shown in the detail view.
const maxCanvases = 24

// ManifestDetail shows the manifest selected by Params
type ManifestDetail struct {
	app.Compo
	Store  state.Store
	Params state.RouteParams

	loader      *state.Loader
	selector    *state.Selector[iiif.Manifest]
	shown       *state.Selection[iiif.Manifest]
	unsubscribe func()
}

func (c *ManifestDetail) init() {
	if c.loader == nil {
		c.loader = state.NewLoader(state.ManifestRequest)
		c.selector = state.NewManifestSelector()
	}
}

// OnMount requests the manifest if nobody did yet
func (c *ManifestDetail) OnMount(ctx app.Context) {
	c.init()
	c.unsubscribe = watch(ctx, c.Store, func() bool {
		return c.selector.Select(c.Store.State(), c.Params) != c.shown
	})
	c.loader.Mount(c.Store, c.Store, state.DetailID(c.Params))
}

// OnUpdate requests a newly selected manifest
func (c *ManifestDetail) OnUpdate(ctx app.Context) {
	c.init()
	c.loader.Update(c.Store, c.Store, state.DetailID(c.Params))
}

// OnDismount stops listening to the store
func (c *ManifestDetail) OnDismount() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Render renders the manifest
func (c *ManifestDetail) Render() app.UI {
	c.init()
	c.shown = c.selector.Select(c.Store.State(), c.Params)
	return app.Article().
		Class("manifest-detail").
		Body(renderView(state.ViewOf(c.shown.Resource), renderManifest))
}

// renderManifest shows whatever the manifest provides and skips the rest
func renderManifest(m iiif.Manifest) app.UI {
	body := []app.UI{
		app.H2().Body(&ManifestLabel{Label: m.Title()}),
	}
	if d := m.Description.Pick(); d != "" {
		body = append(body, app.P().Class("manifest-description").Text(d))
	}
	if a := m.Attribution.Pick(); a != "" {
		attribution := app.Div().Class("manifest-attribution").Body(app.Text(a))
		if m.Logo != "" {
			attribution = app.Div().Class("manifest-attribution").Body(
				app.Img().Class("manifest-logo").Src(m.Logo).Alt(""),
				app.Text(a),
			)
		}
		body = append(body, attribution)
	}
	if len(m.Metadata) > 0 {
		body = append(body, renderMetadata(m.Metadata))
	}
	body = append(body, renderCanvases(m.Canvases))
	if m.ID != "" {
		body = append(body, app.P().Class("manifest-source").Body(
			app.A().Href(m.ID).Target("_blank").Text("IIIF manifest"),
		))
	}
	return app.Div().Body(body...)
}

func renderMetadata(entries []iiif.MetadataEntry) app.UI {
	return app.Dl().Class("manifest-metadata").Body(
		app.Range(entries).Slice(func(i int) app.UI {
			label := entries[i].Label.Pick()
			if label == "" {
				label = "-"
			}
			return app.Div().Body(
				app.Dt().Text(label),
				app.Dd().Text(entries[i].Value.Pick()),
			)
		}),
	)
}

func renderCanvases(canvases []iiif.Canvas) app.UI {
	if len(canvases) == 0 {
		return app.P().Class("no-canvases").Text("This manifest has no images.")
	}
	shown := canvases
	if len(shown) > maxCanvases {
		shown = shown[:maxCanvases]
	}
	items := []app.UI{
		app.Range(shown).Slice(func(i int) app.UI {
			label := shown[i].Label
			if label == "" {
				label = fmt.Sprintf("Image %d", i+1)
			}
			return app.Figure().Class("canvas").Body(
				&Thumbnail{Src: shown[i].Image, Alt: label},
				app.Div().Class("canvas-label").Text(label),
			)
		}),
	}
	if more := len(canvases) - len(shown); more > 0 {
		items = append(items, app.P().Class("more-canvases").Text(fmt.Sprintf("and %d more", more)))
	}
	return app.Div().Class("canvas-gallery").Body(items...)
}
