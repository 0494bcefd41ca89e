package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/spf13/cobra"
	"github.com/vacstatus/vacstatus/internal/profile"
	"github.com/vacstatus/vacstatus/internal/queue"
	"github.com/vacstatus/vacstatus/internal/watch"
	"github.com/vacstatus/vacstatus/pkg/log"
)

// serveCmd represents the serve command.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the tracker service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, errApp := newApplication(ctx)
			if errApp != nil {
				return errApp
			}

			defer app.Close()

			workers := river.NewWorkers()
			river.AddWorker[profile.AliasArgs](workers,
				profile.NewAliasWorker(app.profiles, app.cache, app.conf.Profile.AliasCooldown))

			if errInit := queue.Init(ctx, app.db.Pool()); errInit != nil {
				return errInit
			}

			client, errClient := queue.Client(app.db.Pool(), workers)
			if errClient != nil {
				return errClient
			}

			if errStart := client.Start(ctx); errStart != nil {
				return errStart
			}

			defer func() {
				stopCtx, cancelStop := context.WithTimeout(context.Background(), time.Second*10)
				defer cancelStop()

				if errStop := client.Stop(stopCtx); errStop != nil {
					slog.Error("Failed to stop queue client", log.ErrAttr(errStop))
				}
			}()

			if app.conf.Metrics.Addr != "" {
				go serveMetrics(ctx, app.conf.Metrics.Addr)
			}

			detector := watch.NewDetector(app.watches, app.profiles, app.provider)
			dispatcher := watch.LogDispatcher{}

			cursor := watch.CursorStart

			var stored int64
			if errCursor := app.cache.Get(ctx, watch.CursorCacheKey, &stored); errCursor == nil {
				cursor = stored
			}

			ticker := time.NewTicker(app.conf.Detector.Interval)
			defer ticker.Stop()

			slog.Info("Starting change detector",
				slog.Duration("interval", app.conf.Detector.Interval),
				slog.Int64("cursor", cursor))

			for {
				select {
				case <-ticker.C:
					cursor = runDetection(ctx, app, detector, dispatcher, cursor)
				case <-ctx.Done():
					slog.Info("Shutting down")

					return nil
				}
			}
		},
	}
}

// runDetection executes one pass and persists the advanced cursor whatever
// the outcome, so one failing recipient cannot wedge the rotation.
func runDetection(ctx context.Context, app *application, detector *watch.Detector,
	dispatcher watch.Dispatcher, cursor int64,
) int64 {
	result, errRun := detector.Run(ctx, cursor)

	if errPersist := app.cache.Forever(ctx, watch.CursorCacheKey, result.Cursor); errPersist != nil {
		slog.Warn("Failed to persist detector cursor", log.ErrAttr(errPersist))
	}

	if errRun != nil {
		if errors.Is(errRun, watch.ErrNoRecipients) {
			slog.Debug("No notifiable recipients")
		} else {
			slog.Error("Detection pass failed", log.ErrAttr(errRun))
		}

		return result.Cursor
	}

	if result.Notify() {
		if errDispatch := dispatcher.Dispatch(ctx, result); errDispatch != nil {
			slog.Error("Failed to dispatch notification", log.ErrAttr(errDispatch))
		}
	}

	return result.Cursor
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		<-ctx.Done()

		shutCtx, cancelShut := context.WithTimeout(context.Background(), time.Second*5)
		defer cancelShut()

		if errShutdown := server.Shutdown(shutCtx); errShutdown != nil {
			slog.Error("Failed to shutdown metrics listener", log.ErrAttr(errShutdown))
		}
	}()

	slog.Info("Starting metrics listener", slog.String("addr", addr))

	if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		slog.Error("Metrics listener failed", log.ErrAttr(errServe))
	}
}
