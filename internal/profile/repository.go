package profile

import (
	"context"
)

// Repository is the persistence contract for profiles and their owned ban
// and alias records. Implementations return database.ErrNoResult for
// missing rows; relations are always loaded explicitly, never lazily.
type Repository interface {
	// GetOrCreate loads the profile for a canonical account id, inserting
	// an empty record when none exists yet.
	GetOrCreate(ctx context.Context, smallID int64) (Profile, error)
	Save(ctx context.Context, profile *Profile) error

	// Ban loads the stored ban snapshot for a profile.
	Ban(ctx context.Context, profileID int64) (Ban, error)
	// SaveBan inserts or updates a ban snapshot. advanceUpdated controls
	// whether the audit timestamp moves; ban reversals keep it frozen.
	SaveBan(ctx context.Context, ban *Ban, advanceUpdated bool) error

	// Aliases returns the alias history most-recent-first.
	Aliases(ctx context.Context, profileID int64) ([]OldAlias, error)
	AddAlias(ctx context.Context, alias *OldAlias) error

	// ListStats returns the active watchlist membership aggregate per
	// canonical account id. Ids without any membership are absent.
	ListStats(ctx context.Context, smallIDs []int64) (map[int64]ListStats, error)
}
