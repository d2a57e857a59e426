package webapp

import (
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/state"
)

// NavBar is the navigation bar component
type NavBar struct {
	app.Compo
	Query string
}

// Render renders the navigation bar
func (n *NavBar) Render() app.UI {
	return app.Nav().
		Class("navbar").
		Body(
			app.Div().Class("navbar-brand").Body(
				app.A().Href("/").Body(app.H1().Text("goIIIF")),
			),
			&SearchBar{Query: n.Query},
			app.Div().Class("navbar-menu").Body(
				app.A().
					Href("/").
					Class("navbar-item").
					Body(app.Text("Recent")),
				app.A().
					Href("/manifests/upload").
					Class("navbar-item").
					Body(app.Text("Upload")),
				app.A().
					Href("/about").
					Class("navbar-item").
					Body(app.Text("About")),
			),
		)
}

// SearchBar submits a query by navigating to the search URL
type SearchBar struct {
	app.Compo
	Query string

	value   string
	touched bool
}

// OnUpdate drops the typed text when the route brings a new query
func (s *SearchBar) OnUpdate(ctx app.Context) {
	s.value = s.Query
	s.touched = false
}

// Render renders the search form
func (s *SearchBar) Render() app.UI {
	value := s.Query
	if s.touched {
		value = s.value
	}
	return app.Form().
		Class("search-bar").
		OnSubmit(s.onSubmit).
		Body(
			app.Input().
				Type("search").
				Name(state.QueryParam).
				Placeholder("Search manifests").
				Value(value).
				OnInput(s.onInput),
			app.Button().Type("submit").Text("Search"),
		)
}

func (s *SearchBar) onInput(ctx app.Context, e app.Event) {
	s.value = ctx.JSSrc().Get("value").String()
	s.touched = true
}

func (s *SearchBar) onSubmit(ctx app.Context, e app.Event) {
	e.PreventDefault()
	ctx.Navigate(searchTarget(s.value, s.touched, s.Query))
}

// searchTarget is where submitting the bar leads. A blank query goes back to
// the landing page.
func searchTarget(value string, touched bool, query string) string {
	if !touched {
		value = query
	}
	if strings.TrimSpace(value) == "" {
		return "/"
	}
	return state.SearchURL(value, "")
}
