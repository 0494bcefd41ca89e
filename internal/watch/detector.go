package watch

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/vacstatus/vacstatus/internal/database"
	"github.com/vacstatus/vacstatus/internal/metrics"
	"github.com/vacstatus/vacstatus/internal/profile"
	"github.com/vacstatus/vacstatus/internal/steam"
)

// CursorStart is the "before first recipient" sentinel.
const CursorStart int64 = -1

// CursorCacheKey holds the persisted rotation position between passes.
const CursorCacheKey = "detector_cursor"

var (
	// ErrNoRecipients means no notifiable recipient exists even after the
	// cursor wrapped around. Callers decide whether that is idle or fatal.
	ErrNoRecipients = errors.New("no notifiable recipient to process")
	// ErrEmptyUpstream means the provider answered but returned no usable
	// records for a non-empty request. Subscriptions are not touched.
	ErrEmptyUpstream = errors.New("upstream returned no ban records")
	ErrRecheckBans   = errors.New("failed to re-check ban status upstream")
)

// Result is the outcome of one detection pass. Cursor always carries the
// position the caller should persist for the next pass, even on error.
type Result struct {
	Cursor    int64            `json:"cursor"`
	Recipient Recipient        `json:"recipient"`
	Channels  Channels         `json:"channels"`
	Changed   []ChangedProfile `json:"changed"`
}

// Notify reports whether the pass produced anything worth dispatching.
func (r Result) Notify() bool {
	return len(r.Changed) > 0
}

// Detector walks recipients one per pass, re-checks the ban state of every
// account their watchlists cover and produces the notification payload for
// whatever changed.
type Detector struct {
	repo     Repository
	profiles profile.Repository
	provider steam.Provider
}

func NewDetector(repo Repository, profiles profile.Repository, provider steam.Provider) *Detector {
	return &Detector{repo: repo, profiles: profiles, provider: provider}
}

// Run processes the next recipient after cursor. The returned cursor must
// be persisted by the caller regardless of the error value so a failing
// recipient cannot wedge the rotation.
func (d *Detector) Run(ctx context.Context, cursor int64) (Result, error) {
	result := Result{Cursor: cursor}

	recipient, errNext := d.repo.NextRecipient(ctx, cursor)
	if errors.Is(errNext, database.ErrNoResult) && cursor != CursorStart {
		// End of the rotation, wrap around once.
		recipient, errNext = d.repo.NextRecipient(ctx, CursorStart)
	}

	if errNext != nil {
		if errors.Is(errNext, database.ErrNoResult) {
			result.Cursor = CursorStart

			return result, ErrNoRecipients
		}

		return result, errNext
	}

	result.Cursor = recipient.RecipientID
	result.Recipient = recipient
	result.Channels = recipient.Channels()

	metrics.DetectorPasses.Inc()

	lists, errLists := d.repo.Lists(ctx, recipient.UserID)
	if errLists != nil {
		return result, errLists
	}

	if len(lists) == 0 {
		return result, nil
	}

	listIDs := make([]int64, 0, len(lists))
	subscriptionIDs := make([]int64, 0, len(lists))
	listUpdated := make(map[int64]time.Time, len(lists))

	for _, list := range lists {
		listIDs = append(listIDs, list.ListID)
		subscriptionIDs = append(subscriptionIDs, list.SubscriptionID)
		listUpdated[list.ListID] = list.UpdatedOn
	}

	members, errMembers := d.repo.Members(ctx, listIDs)
	if errMembers != nil {
		return result, errMembers
	}

	if len(members) == 0 {
		if errTouch := d.repo.TouchSubscriptions(ctx, subscriptionIDs); errTouch != nil {
			return result, errTouch
		}

		return result, nil
	}

	candidates := map[int64]ChangedProfile{}

	// A ban written after the list was last confirmed clean is already a
	// notification candidate before the upstream re-check.
	for _, member := range members {
		lastChecked, ok := listUpdated[member.ListID]
		if !ok || member.Ban.ProfileID == 0 {
			continue
		}

		if lastChecked.Before(member.Ban.UpdatedOn) {
			candidates[member.Profile.ProfileID] = ChangedProfile{Profile: member.Profile, Ban: member.Ban}
		}
	}

	// Dedup across lists so the upstream batch carries each account once.
	distinct := map[int64]WatchedProfile{}
	ids := steamid.Collection{}

	for _, member := range members {
		if _, seen := distinct[member.Profile.ProfileID]; seen {
			continue
		}

		distinct[member.Profile.ProfileID] = member
		ids = append(ids, steam.FromSmallID(member.Profile.SmallID))
	}

	states, errBans := d.provider.Bans(ctx, ids)

	metrics.SteamCalls.WithLabelValues("ban").Inc()

	if errBans != nil {
		return result, errors.Join(errBans, ErrRecheckBans)
	}

	if len(states) == 0 {
		return result, ErrEmptyUpstream
	}

	banMap := steam.NewBanMap(states)
	now := time.Now()

	for _, member := range distinct {
		fresh, found := banMap[member.Profile.SmallID]
		if !found {
			// Silently skipped upstream, neither diffed nor flagged.
			continue
		}

		stored := member.Ban
		if stored.Vac == fresh.CombinedBanCount() &&
			stored.Community == fresh.CommunityBanned &&
			stored.Trade == fresh.TradeBanned() {
			continue
		}

		merged, _, errMerge := profile.MergeBan(ctx, d.profiles, member.Profile.ProfileID, fresh, now)
		if errMerge != nil {
			return result, errMerge
		}

		candidates[member.Profile.ProfileID] = ChangedProfile{Profile: member.Profile, Ban: merged}
	}

	if errTouch := d.repo.TouchSubscriptions(ctx, subscriptionIDs); errTouch != nil {
		return result, errTouch
	}

	if len(candidates) == 0 {
		return result, nil
	}

	changed := make([]ChangedProfile, 0, len(candidates))
	for _, candidate := range candidates {
		changed = append(changed, candidate)
	}

	sort.Slice(changed, func(i, j int) bool {
		return changed[i].Profile.ProfileID < changed[j].Profile.ProfileID
	})

	result.Changed = changed

	metrics.NotificationsEmitted.Inc()

	return result, nil
}
