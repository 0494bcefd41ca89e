package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vacstatus/vacstatus/internal/profile"
	"github.com/vacstatus/vacstatus/internal/queue"
	"github.com/vacstatus/vacstatus/internal/steam"
	"github.com/vacstatus/vacstatus/pkg/fp"
)

// refreshCmd fetches fresh data for the given accounts and prints the
// merged snapshots. Accepts 64 bit community ids or canonical account ids.
func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <steam_id>...",
		Short: "Refresh profiles by steam id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, errApp := newApplication(ctx)
			if errApp != nil {
				return errApp
			}

			defer app.Close()

			var (
				snapshots []profile.Snapshot
				seen      []int64
			)

			for _, arg := range args {
				smallID, errParse := steam.ParseAccountID(arg)
				if errParse != nil {
					return fmt.Errorf("%w: %s", errParse, arg)
				}

				if fp.Contains(seen, smallID) {
					continue
				}

				seen = append(seen, smallID)
				snapshots = append(snapshots, profile.NewStub(smallID))
			}

			if errInit := queue.Init(ctx, app.db.Pool()); errInit != nil {
				return errInit
			}

			client, errClient := queue.InsertOnlyClient(app.db.Pool())
			if errClient != nil {
				return errClient
			}

			batcher := profile.NewBatcher(app.profiles, app.cache, app.provider,
				queue.NewEnqueuer(client), app.conf.Profile.CacheTTL, app.conf.Profile.AliasCooldown)

			merged, errRefresh := batcher.Refresh(ctx, snapshots)
			if errRefresh != nil {
				return errRefresh
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(merged) //nolint:wrapcheck
		},
	}
}
