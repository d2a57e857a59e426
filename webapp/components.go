package webapp

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/state"
)

// Thumbnail shows an image, or a placeholder box when Src is empty
type Thumbnail struct {
	app.Compo
	Src string
	Alt string
}

// Render renders the thumbnail
func (t *Thumbnail) Render() app.UI {
	if t.Src == "" {
		return app.Div().Class("thumbnail", "thumbnail-missing").Body(app.Text("No image"))
	}
	return app.Img().Class("thumbnail").Src(t.Src).Alt(t.Alt)
}

// ManifestLabel shows a manifest title
type ManifestLabel struct {
	app.Compo
	Label string
}

// Render renders the label
func (l *ManifestLabel) Render() app.UI {
	label := l.Label
	if label == "" {
		label = "Untitled manifest"
	}
	return app.Span().Class("manifest-label").Text(label)
}

// LoadingPlaceholder is shown while a resource is pending
type LoadingPlaceholder struct {
	app.Compo
	Text string
}

// Render renders the placeholder
func (p *LoadingPlaceholder) Render() app.UI {
	text := p.Text
	if text == "" {
		text = "Loading..."
	}
	return app.Div().Class("loading").Attr("aria-busy", "true").Body(app.Text(text))
}

// ErrorAlert shows a failed resource inline
type ErrorAlert struct {
	app.Compo
	Err state.ErrorInfo
}

// Render renders the alert
func (a *ErrorAlert) Render() app.UI {
	return app.Div().Class("error").Attr("role", "alert").Body(app.Text(alertText(a.Err)))
}

func alertText(err state.ErrorInfo) string {
	if err.Status != 0 {
		return fmt.Sprintf("Error: %s (%d)", err.Message, err.Status)
	}
	return "Error: " + err.Message
}

// ManifestCard links to a manifest and shows its thumbnail and label
type ManifestCard struct {
	app.Compo
	Summary  api.ManifestSummary
	Href     string
	Width    int
	Selected bool
}

func (c *ManifestCard) thumbnailSrc() string {
	if c.Summary.Thumbnail == "" {
		return ""
	}
	return api.ThumbnailPath(c.Summary.ID, c.Width)
}

// Render renders the card
func (c *ManifestCard) Render() app.UI {
	src := c.thumbnailSrc()
	class := "manifest-card"
	if c.Selected {
		class += " selected"
	}
	info := []app.UI{
		app.H3().Body(&ManifestLabel{Label: c.Summary.Label}),
	}
	if c.Summary.Attribution != "" {
		info = append(info, app.P().Class("manifest-attribution").Text(c.Summary.Attribution))
	}
	return app.A().
		Href(c.Href).
		Class(class).
		Body(
			&Thumbnail{Src: src, Alt: c.Summary.Label},
			app.Div().Class("manifest-info").Body(info...),
		)
}

// renderView picks the component for a resource branch. ready renders the
// loaded value.
func renderView[T any](v state.View, ready func(T) app.UI) app.UI {
	switch v := v.(type) {
	case state.Failed:
		return &ErrorAlert{Err: v.Err}
	case state.Ready[T]:
		return ready(v.Value)
	default:
		return &LoadingPlaceholder{}
	}
}
