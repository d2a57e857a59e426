package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// InitializeSchedules starts the manifest refresh job. It returns nil when
// the refresh interval is 0.
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	interval := serverHandler.ServerConfig.RefreshInterval
	if interval <= 0 {
		Logger.Info("Manifest refresh disabled")
		return nil
	}
	c := cron.New()
	var refreshJob cron.Job
	refreshJob = cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(interval)*time.Minute)
		defer cancel()
		serverHandler.RefreshManifests(ctx)
	})
	refreshJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(refreshJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), refreshJob); err != nil {
		Logger.Error("Unable to schedule manifest refresh", "error", err)
		return nil
	}
	Logger.Info("Adding manifest refresh scheduler", "interval_minutes", interval)
	c.Start()
	return c
}

// RefreshManifests downloads every stored manifest again and re-imports the
// ones whose document changed. It returns the number of updated manifests.
func (serverHandler *ServerHandler) RefreshManifests(ctx context.Context) (updated int) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in manifest refresh", "panic", r)
		}
	}()
	manifests, err := serverHandler.DB.GetAllManifests()
	if err != nil {
		Logger.Error("Unable to list manifests for refresh", "error", err)
		return 0
	}
	Logger.Info("Refreshing manifests", "count", len(manifests))
	for _, m := range manifests {
		if ctx.Err() != nil {
			Logger.Warn("Manifest refresh interrupted", "error", ctx.Err())
			return updated
		}
		data, err := serverHandler.fetchDocument(ctx, m.RemoteURL)
		if err != nil {
			Logger.Warn("Unable to fetch manifest for refresh", "id", m.ID, "remoteURL", m.RemoteURL, "error", err)
			serverHandler.metrics().refreshes.WithLabelValues("unreachable").Inc()
			continue
		}
		if hashDocument(data) == m.Hash {
			serverHandler.metrics().refreshes.WithLabelValues("unchanged").Inc()
			continue
		}
		result := serverHandler.importManifest(ctx, m.RemoteURL, data)
		if len(result.Errors) > 0 {
			Logger.Warn("Refreshed manifest failed to import", "id", m.ID, "errors", result.Errors)
			serverHandler.metrics().refreshes.WithLabelValues("failed").Inc()
			continue
		}
		serverHandler.metrics().refreshes.WithLabelValues("updated").Inc()
		updated++
	}
	Logger.Info("Manifest refresh complete", "updated", updated)
	return updated
}
