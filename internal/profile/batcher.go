package profile

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/vacstatus/vacstatus/internal/cache"
	"github.com/vacstatus/vacstatus/internal/metrics"
	"github.com/vacstatus/vacstatus/internal/queue"
	"github.com/vacstatus/vacstatus/internal/steam"
	"github.com/vacstatus/vacstatus/pkg/fp"
	"github.com/vacstatus/vacstatus/pkg/log"
	"github.com/vacstatus/vacstatus/pkg/stringutil"
	"golang.org/x/sync/errgroup"
)

const (
	profileCachePrefix = "profile_"
	checkedCachePrefix = "profile_checked_"
	aliasTokenPrefix   = "update_alias_"

	tokenLength      = 12
	maxTokenAttempts = 8
)

var (
	ErrFetchSummaries = errors.New("failed to fetch player summaries")
	ErrFetchBans      = errors.New("failed to fetch ban status from steam api")
	ErrSaveProfile    = errors.New("failed to save merged profile")
	ErrSaveBan        = errors.New("failed to save merged ban state")
)

// ProfileCacheKey is the refresh gate key for an account.
func ProfileCacheKey(smallID int64) string {
	return profileCachePrefix + strconv.FormatInt(smallID, 10)
}

func checkedCacheKey(smallID int64) string {
	return checkedCachePrefix + strconv.FormatInt(smallID, 10)
}

// AliasTokenKey is the cache key holding the id batch for a dispatched
// alias processing job.
func AliasTokenKey(token string) string {
	return aliasTokenPrefix + token
}

// Batcher is the profile refresh pipeline. Given a set of account
// snapshots it determines which are refresh-eligible, pulls fresh identity
// and ban data in two batched upstream calls, merges the results into the
// store and hands the id batch to the background alias job.
type Batcher struct {
	repo          Repository
	cache         cache.Cache
	provider      steam.Provider
	jobs          queue.Enqueuer
	cacheTTL      time.Duration
	aliasCoolDown time.Duration
}

func NewBatcher(repo Repository, cacheClient cache.Cache, provider steam.Provider,
	jobs queue.Enqueuer, cacheTTL time.Duration, aliasCoolDown time.Duration,
) *Batcher {
	return &Batcher{
		repo:          repo,
		cache:         cacheClient,
		provider:      provider,
		jobs:          jobs,
		cacheTTL:      cacheTTL,
		aliasCoolDown: aliasCoolDown,
	}
}

type refreshTarget struct {
	index   int
	smallID int64
}

// Refresh merges fresh upstream state into the given snapshots and returns
// the combined set, leaving entries that were cache-gated or not correlated
// untouched. An unreachable upstream aborts the whole pass; an upstream
// that answers with zero usable records degrades to a no-op.
func (b *Batcher) Refresh(ctx context.Context, snapshots []Snapshot) ([]Snapshot, error) {
	targets := b.eligible(ctx, snapshots)
	if len(targets) == 0 {
		return snapshots, nil
	}

	steamIDs := make(steamid.Collection, 0, len(targets))
	smallIDs := make([]int64, 0, len(targets))

	for _, target := range targets {
		steamIDs = append(steamIDs, steam.FromSmallID(target.smallID))
		smallIDs = append(smallIDs, target.smallID)
	}

	var (
		summaries           []steam.PlayerSummary
		bans                []steam.PlayerBanState
		errGroup, cancelCtx = errgroup.WithContext(ctx)
	)

	errGroup.Go(func() error {
		metrics.SteamCalls.WithLabelValues("info").Inc()

		newSummaries, errSummaries := b.provider.Summaries(cancelCtx, steamIDs)
		if errSummaries != nil {
			return errors.Join(errSummaries, ErrFetchSummaries)
		}

		summaries = newSummaries

		return nil
	})

	errGroup.Go(func() error {
		metrics.SteamCalls.WithLabelValues("ban").Inc()

		newBans, errBans := b.provider.Bans(cancelCtx, steamIDs)
		if errBans != nil {
			return errors.Join(errBans, ErrFetchBans)
		}

		bans = newBans

		return nil
	})

	if errFetch := errGroup.Wait(); errFetch != nil {
		return nil, errFetch
	}

	if len(summaries) == 0 || len(bans) == 0 {
		slog.Debug("Upstream returned no players, skipping refresh", slog.Int("requested", len(steamIDs)))

		return snapshots, nil
	}

	var (
		summaryMap = steam.NewSummaryMap(summaries)
		banMap     = steam.NewBanMap(bans)
		now        = time.Now()
		merged     = make([]Snapshot, len(snapshots))
	)

	copy(merged, snapshots)

	listStats, errStats := b.repo.ListStats(ctx, smallIDs)
	if errStats != nil {
		return nil, errStats
	}

	for _, target := range targets {
		summary, okSummary := summaryMap[target.smallID]
		banState, okBan := banMap[target.smallID]

		if !okSummary || !okBan {
			slog.Debug("Account missing from upstream response, skipped",
				slog.Int64("small_id", target.smallID))

			continue
		}

		snapshot, errMerge := b.merge(ctx, target.smallID, summary, banState, listStats[target.smallID], now)
		if errMerge != nil {
			return nil, errMerge
		}

		merged[target.index] = snapshot

		if errCache := b.cache.Put(ctx, ProfileCacheKey(target.smallID), snapshot.stripVolatile(), b.cacheTTL); errCache != nil {
			slog.Warn("Failed to cache refreshed profile", log.ErrAttr(errCache),
				slog.Int64("small_id", target.smallID))
		}

		metrics.ProfilesRefreshed.Inc()
	}

	b.dispatchAliasJob(ctx, fp.Uniq(smallIDs))

	return merged, nil
}

// eligible applies the cache gate: a cached account is skipped unless its
// snapshot is a minimal stub, which always forces a refresh attempt. The
// gate is advisory, not a lock.
func (b *Batcher) eligible(ctx context.Context, snapshots []Snapshot) []refreshTarget {
	var targets []refreshTarget

	for index, snapshot := range snapshots {
		cached, errHas := b.cache.Has(ctx, ProfileCacheKey(snapshot.SmallID))
		if errHas != nil {
			slog.Warn("Cache gate lookup failed, treating as uncached", log.ErrAttr(errHas))

			cached = false
		}

		if cached && !snapshot.Stub() {
			continue
		}

		targets = append(targets, refreshTarget{index: index, smallID: snapshot.SmallID})
	}

	return targets
}

func (b *Batcher) merge(ctx context.Context, smallID int64, summary steam.PlayerSummary,
	banState steam.PlayerBanState, stats ListStats, now time.Time,
) (Snapshot, error) {
	prof, errProfile := b.repo.GetOrCreate(ctx, smallID)
	if errProfile != nil {
		return Snapshot{}, errors.Join(errProfile, ErrSaveProfile)
	}

	if summary.TimeCreated > 0 {
		created := time.Unix(summary.TimeCreated, 0)
		prof.ProfileCreated = &created
	}

	prof.DisplayName = summary.PersonaName
	prof.Avatar = steam.SecureAvatar(summary.AvatarFull)
	prof.AvatarThumb = steam.SecureAvatar(summary.Avatar)
	prof.Privacy = summary.CommunityVisibilityState

	if errSave := b.repo.Save(ctx, &prof); errSave != nil {
		return Snapshot{}, errors.Join(errSave, ErrSaveProfile)
	}

	if errBan := b.mergeBan(ctx, prof.ProfileID, banState, now); errBan != nil {
		return Snapshot{}, errBan
	}

	history, errAlias := MaintainAlias(ctx, b.repo, prof.ProfileID, prof.DisplayName, now, b.aliasCoolDown)
	if errAlias != nil {
		return Snapshot{}, errAlias
	}

	counter := b.bumpChecked(ctx, smallID, now)

	return b.buildSnapshot(prof, banState, history, counter, stats, now), nil
}

func (b *Batcher) mergeBan(ctx context.Context, profileID int64, fresh steam.PlayerBanState, now time.Time) error {
	_, _, errMerge := MergeBan(ctx, b.repo, profileID, fresh, now)

	return errMerge
}

// bumpChecked maintains the per-account refresh counter in the cache with
// no expiry. Counter failures never fail the merge.
func (b *Batcher) bumpChecked(ctx context.Context, smallID int64, now time.Time) CheckCounter {
	key := checkedCacheKey(smallID)

	counter := CheckCounter{Number: 0, Time: now.Format(DateFormat)}
	if errGet := b.cache.Get(ctx, key, &counter); errGet != nil && !errors.Is(errGet, cache.ErrMiss) {
		slog.Warn("Failed to load check counter", log.ErrAttr(errGet))
	}

	counter.Number++
	counter.Time = now.Format(DateFormat)

	if errPut := b.cache.Forever(ctx, key, counter); errPut != nil {
		slog.Warn("Failed to store check counter", log.ErrAttr(errPut))
	}

	return counter
}

func (b *Batcher) buildSnapshot(prof Profile, banState steam.PlayerBanState, history []OldAlias,
	counter CheckCounter, stats ListStats, now time.Time,
) Snapshot {
	profileCreated := "Unknown"
	if prof.ProfileCreated != nil {
		profileCreated = prof.ProfileCreated.Format(DateFormat)
	}

	aliases := make([]AliasEntry, 0, len(history))
	for _, oldAlias := range history {
		aliases = append(aliases, AliasEntry{
			Name:        oldAlias.Alias,
			TimeChanged: oldAlias.Seen.Format(DateFormat),
		})
	}

	timesAdded := TimesAdded{Number: stats.Total}
	if stats.Total > 0 {
		timesAdded.Time = stats.FirstAdded.Format(DateFormat)
	}

	sid := prof.SteamID()

	return Snapshot{
		ProfileID:      prof.ProfileID,
		SmallID:        prof.SmallID,
		SteamID64:      sid.Int64(),
		DisplayName:    prof.DisplayName,
		Avatar:         prof.Avatar,
		AvatarThumb:    prof.AvatarThumb,
		Privacy:        prof.Privacy,
		ProfileCreated: profileCreated,
		CreatedAt:      prof.CreatedOn.Format(DateFormat),
		Vac:            banState.CombinedBanCount(),
		VacBannedOn:    banState.LastBanDate(now).Format(DateFormat),
		Community:      banState.CommunityBanned,
		Trade:          banState.TradeBanned(),
		Aliases:        aliases,
		TimesChecked:   counter,
		TimesAdded:     timesAdded,
	}
}

// dispatchAliasJob stores the refreshed id batch under a collision-checked
// one-time token and hands it to the alias worker. Fire-and-forget: the
// refresh result does not depend on it, failures are only logged. The
// check-then-write against the cache is not atomic; the bounded regenerate
// loop accepts that narrow race.
func (b *Batcher) dispatchAliasJob(ctx context.Context, smallIDs []int64) {
	token := stringutil.SecureRandomString(tokenLength)

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		taken, errHas := b.cache.Has(ctx, AliasTokenKey(token))
		if errHas != nil {
			slog.Warn("Failed to check alias token, skipping alias job", log.ErrAttr(errHas))

			return
		}

		if !taken {
			break
		}

		token = stringutil.SecureRandomString(tokenLength)
	}

	if errStore := b.cache.Forever(ctx, AliasTokenKey(token), smallIDs); errStore != nil {
		slog.Warn("Failed to store alias batch, skipping alias job", log.ErrAttr(errStore))

		return
	}

	if errEnqueue := b.jobs.Enqueue(ctx, AliasArgs{Token: token}); errEnqueue != nil {
		slog.Warn("Failed to enqueue alias job", log.ErrAttr(errEnqueue), slog.String("token", token))
	}
}
