package watch

import "context"

// Repository exposes the joined queries the detector needs. Writes to the
// profile side go through the profile package's own repository.
type Repository interface {
	// NextRecipient returns the lowest-id recipient above afterID that has
	// at least one verified channel. database.ErrNoResult when none remain.
	NextRecipient(ctx context.Context, afterID int64) (Recipient, error)
	// Lists returns the recipient's active subscriptions joined to their
	// active watchlists.
	Lists(ctx context.Context, userID int64) ([]SubscribedList, error)
	// Members returns every active membership row for the given lists with
	// profile and stored ban joined in.
	Members(ctx context.Context, listIDs []int64) ([]WatchedProfile, error)
	// TouchSubscriptions advances updated_on for the given subscriptions so
	// future staleness passes compare against this run.
	TouchSubscriptions(ctx context.Context, subscriptionIDs []int64) error
}
