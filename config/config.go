package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings defined in the TOML file
type ServerConfig struct {
	ListenAddrIP          string
	ListenAddrPort        string
	DatabaseType          string // sqlite or postgres
	DatabaseConnString    string // path for sqlite, DSN for postgres
	IndexPath             string // bleve index directory, empty for in-memory
	MaxConcurrentRequests int
	RefreshInterval       int // minutes between manifest refreshes, 0 disables
	Version               string
	FrontEndConfig
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	RecentManifestNumber int
	ThumbnailWidth       int
	SearchPageSize       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serverConfig.ServerAddr", "")
	v.SetDefault("serverConfig.ServerPort", "8000")
	v.SetDefault("serverConfig.Version", "dev")
	v.SetDefault("database.Type", "sqlite")
	v.SetDefault("database.ConnString", "databases/goIIIF.db")
	v.SetDefault("search.IndexPath", "databases/goIIIFIndex.bleve")
	v.SetDefault("import.MaxConcurrentRequests", 5)
	v.SetDefault("import.RefreshInterval", 60)
	v.SetDefault("frontend.RecentManifestNumber", 12)
	v.SetDefault("frontend.ThumbnailWidth", 200)
	v.SetDefault("frontend.SearchPageSize", 10)
	v.SetDefault("logging.Level", "warn")
	v.SetDefault("logging.OutputPath", "stdout")
	v.SetDefault("logging.LogFileLocation", "goIIIF.log")
}

// SetupServer does the initial configuration. A missing config file is not
// an error: every setting has a default.
func SetupServer() (ServerConfig, *slog.Logger, error) {
	v := viper.New()
	v.AddConfigPath("config/")
	v.AddConfigPath(".")
	v.SetConfigName("serverConfig")
	v.SetEnvPrefix("GOIIIF")
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return ServerConfig{}, nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds the config from an already loaded viper instance.
func FromViper(v *viper.Viper) (ServerConfig, *slog.Logger, error) {
	setDefaults(v)
	logger := setupLogging(v)
	var serverConfigLive ServerConfig
	serverConfigLive.ListenAddrIP = v.GetString("serverConfig.ServerAddr")
	serverConfigLive.ListenAddrPort = v.GetString("serverConfig.ServerPort")
	serverConfigLive.Version = v.GetString("serverConfig.Version")
	serverConfigLive.DatabaseType = v.GetString("database.Type")
	serverConfigLive.DatabaseConnString = v.GetString("database.ConnString")
	switch serverConfigLive.DatabaseType {
	case "sqlite", "postgres":
	default:
		return serverConfigLive, logger, fmt.Errorf("unknown database type %q", serverConfigLive.DatabaseType)
	}
	if serverConfigLive.DatabaseType == "sqlite" && serverConfigLive.DatabaseConnString != ":memory:" {
		dbPath, err := filepath.Abs(filepath.ToSlash(serverConfigLive.DatabaseConnString))
		if err != nil {
			return serverConfigLive, logger, fmt.Errorf("creating absolute path for database: %w", err)
		}
		serverConfigLive.DatabaseConnString = dbPath
	}
	if indexPath := v.GetString("search.IndexPath"); indexPath != "" {
		indexPathAbs, err := filepath.Abs(filepath.ToSlash(indexPath))
		if err != nil {
			return serverConfigLive, logger, fmt.Errorf("creating absolute path for search index: %w", err)
		}
		serverConfigLive.IndexPath = indexPathAbs
	}
	serverConfigLive.MaxConcurrentRequests = v.GetInt("import.MaxConcurrentRequests")
	if serverConfigLive.MaxConcurrentRequests < 1 {
		logger.Warn("MaxConcurrentRequests below 1, using 1", "configured", serverConfigLive.MaxConcurrentRequests)
		serverConfigLive.MaxConcurrentRequests = 1
	}
	serverConfigLive.RefreshInterval = v.GetInt("import.RefreshInterval")
	serverConfigLive.FrontEndConfig = FrontEndConfig{
		RecentManifestNumber: v.GetInt("frontend.RecentManifestNumber"),
		ThumbnailWidth:       v.GetInt("frontend.ThumbnailWidth"),
		SearchPageSize:       v.GetInt("frontend.SearchPageSize"),
	}
	logger.Info("Base Logger is setup!")
	return serverConfigLive, logger, nil
}

// ParseLevel maps a config string to a slog level, defaulting to warn.
func ParseLevel(logLevelString string) slog.Level {
	switch logLevelString {
	case "Debug", "debug":
		return slog.LevelDebug
	case "Info", "info":
		return slog.LevelInfo
	case "Warn", "warn":
		return slog.LevelWarn
	case "Error", "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func setupLogging(v *viper.Viper) *slog.Logger {
	loglevel := ParseLevel(v.GetString("logging.Level"))

	var logWriter io.Writer
	logOutput := v.GetString("logging.OutputPath")
	if logOutput == "file" {
		logPath, err := filepath.Abs(filepath.ToSlash(v.GetString("logging.LogFileLocation")))
		if err != nil {
			fmt.Println("Unable to create log file path: ", err)
			logPath = "output.log"
		}
		logFile, err := os.Create(logPath)
		if err != nil {
			fmt.Println("Unable to create log file: ", err)
			logWriter = os.Stdout
		} else {
			logWriter = logFile
		}
	} else {
		logWriter = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: loglevel,
	}
	handler := slog.NewTextHandler(logWriter, opts)
	return slog.New(handler)
}
