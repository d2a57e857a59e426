package webapp

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/state"
)

// shell wraps a page body with the header and navigation bar
func shell(query string, body ...app.UI) app.UI {
	return app.Div().
		Class("app-container").
		Body(
			app.Header().Body(
				&NavBar{Query: query},
			),
			app.Main().Body(
				app.Div().Class("content").Body(body...),
			),
		)
}

// watch re-renders the component after store changes that move its
// selection. changed runs on the goroutine that settled the resource.
func watch(ctx app.Context, store state.Store, changed func() bool) func() {
	return store.Subscribe(func() {
		if changed() {
			ctx.Dispatch(func(ctx app.Context) {})
		}
	})
}
