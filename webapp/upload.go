package webapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/state"
)

// Importer imports a manifest or collection by URL
type Importer interface {
	Import(ctx context.Context, remoteURL string) ([]api.ImportResult, error)
}

// UploadPage lets users import a manifest or collection by URL
type UploadPage struct {
	app.Compo
	Store    state.Store
	Importer Importer
	Config   FrontEnd

	remoteURL string
	running   bool
	results   []api.ImportResult
	error     string
}

// Render renders the upload page
func (u *UploadPage) Render() app.UI {
	buttonText := "Import"
	if u.running {
		buttonText = "Importing..."
	}

	return shell("",
		app.Div().
			Class("upload-page").
			Body(
				app.H2().Text("Import a manifest"),
				app.P().Text("Paste the URL of a IIIF manifest or collection. Every manifest in a collection is imported."),
				app.Form().
					Class("upload-form").
					OnSubmit(u.onSubmit).
					Body(
						app.Input().
							Type("url").
							Name("remote_url").
							Placeholder("https://example.org/iiif/manifest.json").
							Value(u.remoteURL).
							OnInput(u.onInput),
						app.Button().
							Type("submit").
							Disabled(u.running || strings.TrimSpace(u.remoteURL) == "").
							Body(app.Text(buttonText)),
					),
				u.renderStatus(),
			),
	)
}

// renderStatus renders the outcome of the last import
func (u *UploadPage) renderStatus() app.UI {
	if u.running {
		return &LoadingPlaceholder{Text: "Fetching and indexing..."}
	}
	if u.error != "" {
		return &ErrorAlert{Err: state.ErrorInfo{Message: u.error}}
	}
	if len(u.results) == 0 {
		return app.Div()
	}
	return app.Div().Class("import-results").Body(
		app.P().Text(importSummary(u.results)),
		app.Ul().Body(
			app.Range(u.results).Slice(func(i int) app.UI {
				return renderImportResult(u.results[i], u.Config.ThumbnailWidth)
			}),
		),
	)
}

func renderImportResult(r api.ImportResult, width int) app.UI {
	if r.Status == api.ImportFailed {
		return app.Li().Class("import-failed").Body(
			app.Text(r.RemoteURL+": "),
			app.Text(strings.Join(r.Errors, " ")),
		)
	}
	item := []app.UI{
		app.A().Href(state.ManifestURL(r.ID)).Text(r.RemoteURL),
		app.Text(" " + r.Status),
	}
	if len(r.Warnings) > 0 {
		item = append(item, app.Span().Class("import-warnings").Text(" ("+strings.Join(r.Warnings, " ")+")"))
	}
	return app.Li().Class("import-"+r.Status).Body(item...)
}

// importSummary counts the outcomes of an import
func importSummary(results []api.ImportResult) string {
	var created, updated, failed int
	for _, r := range results {
		switch r.Status {
		case api.ImportCreated:
			created++
		case api.ImportUpdated:
			updated++
		default:
			failed++
		}
	}
	return fmt.Sprintf("%d imported, %d updated, %d failed.", created, updated, failed)
}

func anyImported(results []api.ImportResult) bool {
	for _, r := range results {
		if r.Status != api.ImportFailed {
			return true
		}
	}
	return false
}

func (u *UploadPage) onInput(ctx app.Context, e app.Event) {
	u.remoteURL = ctx.JSSrc().Get("value").String()
}

// onSubmit runs the import in the background
func (u *UploadPage) onSubmit(ctx app.Context, e app.Event) {
	e.PreventDefault()
	remoteURL := strings.TrimSpace(u.remoteURL)
	if remoteURL == "" || u.running || u.Importer == nil {
		return
	}
	u.running = true
	u.results = nil
	u.error = ""

	ctx.Async(func() {
		results, err := u.Importer.Import(ctx, remoteURL)
		ctx.Dispatch(func(ctx app.Context) {
			u.running = false
			if err != nil {
				u.error = state.ErrorFrom(err).Message
				return
			}
			u.results = results
			if anyImported(results) && u.Store != nil {
				// the recent cascade must show the new manifests
				u.Store.Dispatch(state.RecentRequest(u.Config.recentLimit()))
			}
		})
	})
}
