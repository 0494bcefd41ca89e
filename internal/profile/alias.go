package profile

import (
	"context"
	"time"

	"github.com/vacstatus/vacstatus/internal/metrics"
)

// MaintainAlias enforces the alias history rules for a profile that is
// currently displaying name. History is append-only and never contains two
// consecutive entries with the same value: a name already present anywhere
// in the history is not re-recorded, which also guards against logging a
// reverted name twice. A genuinely new name is only recorded once the most
// recent entry is older than coolDown, suppressing transient flapping.
//
// Returns the history most-recent-first, including any entry added.
func MaintainAlias(ctx context.Context, repo Repository, profileID int64, name string, now time.Time, coolDown time.Duration) ([]OldAlias, error) {
	history, errHistory := repo.Aliases(ctx, profileID)
	if errHistory != nil {
		return nil, errHistory
	}

	entry := OldAlias{ProfileID: profileID, Seen: now, Alias: name}

	if len(history) == 0 {
		if errAdd := repo.AddAlias(ctx, &entry); errAdd != nil {
			return nil, errAdd
		}

		metrics.AliasesRecorded.Inc()

		return []OldAlias{entry}, nil
	}

	var mostRecent time.Time

	for _, oldAlias := range history {
		if oldAlias.Alias == name {
			return history, nil
		}

		if oldAlias.Seen.After(mostRecent) {
			mostRecent = oldAlias.Seen
		}
	}

	if !mostRecent.Add(coolDown).Before(now) {
		return history, nil
	}

	if errAdd := repo.AddAlias(ctx, &entry); errAdd != nil {
		return nil, errAdd
	}

	metrics.AliasesRecorded.Inc()

	return append([]OldAlias{entry}, history...), nil
}
