package cmd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vacstatus/vacstatus/internal/watch"
	"github.com/vacstatus/vacstatus/pkg/log"
)

// checkCmd runs a single change detection pass against the persisted
// cursor and prints the outcome.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one change detection pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, errApp := newApplication(ctx)
			if errApp != nil {
				return errApp
			}

			defer app.Close()

			detector := watch.NewDetector(app.watches, app.profiles, app.provider)

			cursor := watch.CursorStart

			var stored int64
			if errCursor := app.cache.Get(ctx, watch.CursorCacheKey, &stored); errCursor == nil {
				cursor = stored
			}

			result, errRun := detector.Run(ctx, cursor)

			if errPersist := app.cache.Forever(ctx, watch.CursorCacheKey, result.Cursor); errPersist != nil {
				slog.Warn("Failed to persist detector cursor", log.ErrAttr(errPersist))
			}

			if errRun != nil {
				if errors.Is(errRun, watch.ErrNoRecipients) {
					slog.Info("No notifiable recipients")

					return nil
				}

				return errRun
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(result) //nolint:wrapcheck
		},
	}
}
