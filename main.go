package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/drummonds/goIIIF/api"
	"github.com/drummonds/goIIIF/config"
	"github.com/drummonds/goIIIF/database"
	"github.com/drummonds/goIIIF/engine"
	"github.com/drummonds/goIIIF/webapp"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "goiiif",
		Short: "Search and view IIIF manifests",
		Long: `goIIIF imports IIIF manifests and collections, indexes them for full
text search and serves a web app to browse and view them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), importCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// backend is the storage a command runs against
type backend struct {
	db        database.DBInterface
	searchDB  bleve.Index
	ephemeral bool
}

func (b *backend) Close() {
	if err := b.searchDB.Close(); err != nil {
		Logger.Error("Unable to close search index", "error", err)
	}
	if b.ephemeral {
		Logger.Info("Shutting down ephemeral PostgreSQL...")
	}
	if err := b.db.Close(); err != nil {
		Logger.Error("Unable to close database", "error", err)
	}
}

// setupBackend opens the configured database and search index. In dev mode
// an embedded PostgreSQL and an in-memory index are used instead.
func setupBackend(serverConfig config.ServerConfig, devMode bool) (*backend, error) {
	b := &backend{ephemeral: devMode}
	indexPath := serverConfig.IndexPath
	if devMode {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  DEVELOPMENT MODE - Ephemeral PostgreSQL")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Database and index will be destroyed on exit")
		fmt.Println("• No persistent data storage")
		fmt.Println(strings.Repeat("=", 50) + "\n")

		Logger.Info("Starting ephemeral PostgreSQL for development")
		ephemeralDB, err := database.SetupEphemeralPostgresDatabase()
		if err != nil {
			return nil, fmt.Errorf("setting up ephemeral PostgreSQL: %w", err)
		}
		b.db = ephemeralDB
		indexPath = ""
	} else {
		Logger.Info("About to setup database", "type", serverConfig.DatabaseType)
		db, err := database.SetupDatabase(serverConfig.DatabaseType, serverConfig.DatabaseConnString)
		if err != nil {
			return nil, err
		}
		b.db = db
	}
	Logger.Info("Database setup complete, about to setup search DB")
	searchDB, err := database.SetupSearchDB(indexPath)
	if err != nil {
		b.db.Close()
		return nil, fmt.Errorf("setting up index database: %w", err)
	}
	b.searchDB = searchDB
	Logger.Info("Search DB setup complete")
	return b, nil
}

// newServer registers the API, the static assets and the web app
func newServer(serverHandler *engine.ServerHandler, appHandler http.Handler) *echo.Echo {
	e := serverHandler.Echo
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	serverHandler.RegisterRoutes(e)

	// Serve wasm_exec.js (go-app expects it here)
	e.GET("/wasm_exec.js", func(c echo.Context) error {
		return c.File("web/wasm_exec.js")
	})

	// Register go-app specific resources
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	// Serve static assets
	e.Static("/web", "web")

	// Serve go-app handler for all other routes (must be last)
	e.Any("/*", echo.WrapHandler(appHandler))
	return e
}

func serveCmd() *cobra.Command {
	var devMode bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), devMode)
		},
	}
	cmd.Flags().BoolVar(&devMode, "dev", false, "Run in development mode with ephemeral PostgreSQL")
	return cmd
}

func serve(ctx context.Context, devMode bool) error {
	serverConfig, logger, err := config.SetupServer()
	if err != nil {
		return err
	}
	injectGlobals(logger) //inject the logger into all of the packages

	b, err := setupBackend(serverConfig, devMode)
	if err != nil {
		return err
	}
	defer b.Close()

	e := echo.New()
	Logger.Info("Echo created")
	serverHandler := &engine.ServerHandler{
		DB:           b.db,
		SearchDB:     b.searchDB,
		Echo:         e,
		ServerConfig: serverConfig,
		IsEphemeral:  b.ephemeral,
		Metrics:      engine.NewMetrics(),
	} //injecting the database into the handler for routes
	Logger.Info("About to initialize schedules")
	if scheduler := serverHandler.InitializeSchedules(); scheduler != nil {
		defer scheduler.Stop()
	}

	Logger.Info("Setting up go-app WASM UI")
	version := serverConfig.Version
	if version == "dev" {
		version = ""
	}
	newServer(serverHandler, webapp.Handler(version))

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			Logger.Error("Unable to shut down server", "error", err)
		}
	}()

	Logger.Info("Starting HTTP server")
	return startWithRetry(e, serverConfig)
}

// startWithRetry starts the server, moving to the next port while the
// requested one is in use
func startWithRetry(e *echo.Echo, serverConfig config.ServerConfig) error {
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)
		if serverConfig.ListenAddrPort != startPort {
			Logger.Warn("Server starting on alternative port due to conflicts",
				"requested_port", startPort,
				"actual_port", serverConfig.ListenAddrPort)
		}

		startErr := e.Start(addr)
		switch {
		case startErr == nil || errors.Is(startErr, http.ErrServerClosed):
			return nil
		case isAddressInUse(startErr):
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)
			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)
		default:
			return fmt.Errorf("failed to start server: %w", startErr)
		}
	}
	return fmt.Errorf("failed to find available port after %d attempts starting at %s", maxRetries, startPort)
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "address already in use")
}

func importCmd() *cobra.Command {
	var devMode bool
	cmd := &cobra.Command{
		Use:   "import <url>...",
		Short: "Import IIIF manifests or collections",
		Long: `Import fetches each URL, imports the manifest it points to or every
manifest nested in the collection, and indexes them for search.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConfig, logger, err := config.SetupServer()
			if err != nil {
				return err
			}
			injectGlobals(logger)
			b, err := setupBackend(serverConfig, devMode)
			if err != nil {
				return err
			}
			defer b.Close()

			serverHandler := &engine.ServerHandler{DB: b.db, SearchDB: b.searchDB, ServerConfig: serverConfig}
			failures := 0
			for _, remoteURL := range args {
				results := serverHandler.Import(cmd.Context(), remoteURL)
				failures += printImportResults(cmd, results)
			}
			if failures > 0 {
				return fmt.Errorf("%d manifests failed to import", failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&devMode, "dev", false, "Import into an ephemeral PostgreSQL")
	return cmd
}

// printImportResults writes one line per result and returns the failures
func printImportResults(cmd *cobra.Command, results []api.ImportResult) int {
	failures := 0
	out := cmd.OutOrStdout()
	for _, r := range results {
		switch r.Status {
		case api.ImportFailed:
			failures++
			fmt.Fprintf(out, "FAILED  %s: %s\n", r.RemoteURL, strings.Join(r.Errors, " "))
		default:
			fmt.Fprintf(out, "%-7s %s %s\n", strings.ToUpper(r.Status), r.ID, r.RemoteURL)
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(out, "        warning: %s\n", w)
		}
	}
	return failures
}
