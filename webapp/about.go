package webapp

import (
	"context"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/api"
)

// AboutSource reports server details
type AboutSource interface {
	About(ctx context.Context) (api.About, error)
}

// AboutPage is the static informational view. Server details are shown when
// Source is set and answers.
type AboutPage struct {
	app.Compo
	Source AboutSource

	about *api.About
}

// OnMount fetches the server details
func (a *AboutPage) OnMount(ctx app.Context) {
	if a.Source == nil {
		return
	}
	ctx.Async(func() {
		about, err := a.Source.About(ctx)
		if err != nil {
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			a.about = &about
		})
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	body := []app.UI{
		app.H2().Text("About goIIIF"),
		app.P().Text("goIIIF collects IIIF manifests published by libraries, museums and archives, " +
			"indexes their labels, descriptions and metadata, and lets you search and browse them in one place."),
		app.P().Body(
			app.Text("Manifests follow the "),
			app.A().Href("https://iiif.io/api/presentation/2.1/").Target("_blank").Text("IIIF Presentation API 2.1"),
			app.Text(". Import a manifest or a whole collection from the "),
			app.A().Href("/manifests/upload").Text("upload page"),
			app.Text("."),
		),
	}
	if a.about != nil {
		body = append(body, renderServerDetails(*a.about))
	}
	return shell("", app.Div().Class("about-page").Body(body...))
}

func renderServerDetails(about api.About) app.UI {
	database := about.DatabaseType
	if about.IsEphemeral {
		database += " (ephemeral)"
	}
	return app.Dl().Class("server-details").Body(
		app.Dt().Text("Version"),
		app.Dd().Text(about.Version),
		app.Dt().Text("Database"),
		app.Dd().Text(database),
		app.Dt().Text("Manifests"),
		app.Dd().Text(fmt.Sprintf("%d stored, %d indexed", about.ManifestCount, about.IndexedCount)),
	)
}
