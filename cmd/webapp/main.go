//go:build js && wasm
// +build js,wasm

package main

import (
	"log/slog"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/router"
	"github.com/drummonds/goIIIF/state"
	"github.com/drummonds/goIIIF/webapp"
)

func main() {
	u := app.Window().URL()
	client := api.NewClient(u.Scheme + "://" + u.Host)
	store := state.NewMemStore(
		state.WithBackend(client),
		state.WithLogger(slog.Default()),
	)

	// Register routes for the client-side app
	webapp.RegisterRoutes(router.Default(), webapp.Shared(store), client, webapp.DefaultFrontEnd)

	// This main function is for the WASM build only
	// It initializes the go-app when running in the browser
	app.RunWhenOnBrowser()
}
