package profile_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
	"github.com/vacstatus/vacstatus/internal/cache"
	"github.com/vacstatus/vacstatus/internal/profile"
	"github.com/vacstatus/vacstatus/internal/steam"
)

var errUpstreamDown = errors.New("upstream down")

type stubProvider struct {
	summaries    []steam.PlayerSummary
	bans         []steam.PlayerBanState
	summariesErr error
	bansErr      error
	summaryCalls int
	banCalls     int
}

func (p *stubProvider) Summaries(_ context.Context, _ steamid.Collection) ([]steam.PlayerSummary, error) {
	p.summaryCalls++

	return p.summaries, p.summariesErr
}

func (p *stubProvider) Bans(_ context.Context, _ steamid.Collection) ([]steam.PlayerBanState, error) {
	p.banCalls++

	return p.bans, p.bansErr
}

type recordingEnqueuer struct {
	jobs []river.JobArgs
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, args river.JobArgs) error {
	e.jobs = append(e.jobs, args)

	return nil
}

func upstreamFor(smallID int64, name string, vacBans int) ([]steam.PlayerSummary, []steam.PlayerBanState) {
	steamID := steam.FromSmallID(smallID)
	sid := steamID.String()

	summaries := []steam.PlayerSummary{{
		SteamID:                  sid,
		PersonaName:              name,
		Avatar:                   "http://avatars.example.com/thumb.jpg",
		AvatarFull:               "http://avatars.example.com/full.jpg",
		CommunityVisibilityState: 3,
		TimeCreated:              1262304000,
	}}

	bans := []steam.PlayerBanState{{
		SteamID:          sid,
		NumberOfVACBans:  vacBans,
		DaysSinceLastBan: 10,
		EconomyBan:       steam.EconBanNone,
	}}

	return summaries, bans
}

func newTestBatcher(repo profile.Repository, memory *cache.Memory, provider steam.Provider,
	jobs *recordingEnqueuer,
) *profile.Batcher {
	return profile.NewBatcher(repo, memory, provider, jobs, time.Hour, time.Hour)
}

func TestRefreshMergesFreshState(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	summaries, bans := upstreamFor(100, "alice", 2)
	provider := &stubProvider{summaries: summaries, bans: bans}

	batcher := newTestBatcher(repo, memory, provider, jobs)

	merged, errRefresh := batcher.Refresh(ctx, []profile.Snapshot{profile.NewStub(100)})
	require.NoError(t, errRefresh)
	require.Len(t, merged, 1)

	snapshot := merged[0]
	require.Equal(t, int64(100), snapshot.SmallID)
	require.Equal(t, "alice", snapshot.DisplayName)
	require.Equal(t, "https://avatars.example.com/full.jpg", snapshot.Avatar)
	require.Equal(t, "https://avatars.example.com/thumb.jpg", snapshot.AvatarThumb)
	require.Equal(t, int64(3), snapshot.Privacy)
	require.Equal(t, 2, snapshot.Vac)
	require.False(t, snapshot.Community)
	require.False(t, snapshot.Trade)
	wantSteamID := steam.FromSmallID(100)
	require.Equal(t, wantSteamID.Int64(), snapshot.SteamID64)
	require.NotEqual(t, "Unknown", snapshot.ProfileCreated)
	require.Equal(t, int64(1), snapshot.TimesChecked.Number)
	require.Len(t, snapshot.Aliases, 1)
	require.Equal(t, "alice", snapshot.Aliases[0].Name)

	// The merged record is persisted, a ban row exists and the account is
	// now refresh-cached.
	prof, errProf := repo.GetOrCreate(ctx, 100)
	require.NoError(t, errProf)
	require.Equal(t, "alice", prof.DisplayName)

	ban, errBan := repo.Ban(ctx, prof.ProfileID)
	require.NoError(t, errBan)
	require.Equal(t, 2, ban.Vac)

	gated, errHas := memory.Has(ctx, profile.ProfileCacheKey(100))
	require.NoError(t, errHas)
	require.True(t, gated)
}

func TestRefreshDispatchesAliasJob(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	summaries, bans := upstreamFor(100, "alice", 0)
	provider := &stubProvider{summaries: summaries, bans: bans}

	_, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx,
		[]profile.Snapshot{profile.NewStub(100)})
	require.NoError(t, errRefresh)

	require.Len(t, jobs.jobs, 1)

	args, isAlias := jobs.jobs[0].(profile.AliasArgs)
	require.True(t, isAlias)
	require.NotEmpty(t, args.Token)

	var smallIDs []int64

	require.NoError(t, memory.Get(ctx, profile.AliasTokenKey(args.Token), &smallIDs))
	require.Equal(t, []int64{100}, smallIDs)
}

func TestRefreshCacheGateSkipsFreshAccounts(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}
	provider := &stubProvider{}

	require.NoError(t, memory.Put(ctx, profile.ProfileCacheKey(100), profile.Snapshot{}, time.Hour))

	populated := profile.Snapshot{ProfileID: 1, SmallID: 100, DisplayName: "alice"}

	merged, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx,
		[]profile.Snapshot{populated})
	require.NoError(t, errRefresh)
	require.Equal(t, []profile.Snapshot{populated}, merged)
	require.Zero(t, provider.summaryCalls)
	require.Zero(t, provider.banCalls)
	require.Empty(t, jobs.jobs)
}

func TestRefreshStubBypassesCacheGate(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	summaries, bans := upstreamFor(100, "alice", 0)
	provider := &stubProvider{summaries: summaries, bans: bans}

	require.NoError(t, memory.Put(ctx, profile.ProfileCacheKey(100), profile.Snapshot{}, time.Hour))

	merged, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx,
		[]profile.Snapshot{profile.NewStub(100)})
	require.NoError(t, errRefresh)
	require.Equal(t, 1, provider.summaryCalls)
	require.Equal(t, "alice", merged[0].DisplayName)
}

func TestRefreshEmptyUpstreamIsNoop(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	summaries, _ := upstreamFor(100, "alice", 0)
	provider := &stubProvider{summaries: summaries, bans: nil}

	input := []profile.Snapshot{profile.NewStub(100)}

	merged, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx, input)
	require.NoError(t, errRefresh)
	require.Equal(t, input, merged)
	require.Empty(t, jobs.jobs)
}

func TestRefreshTransportErrorAborts(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}
	provider := &stubProvider{bansErr: errUpstreamDown}

	merged, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx,
		[]profile.Snapshot{profile.NewStub(100)})
	require.ErrorIs(t, errRefresh, profile.ErrFetchBans)
	require.ErrorIs(t, errRefresh, errUpstreamDown)
	require.Nil(t, merged)
	require.Empty(t, jobs.jobs)
}

func TestRefreshLeavesUncorrelatedUntouched(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	// Upstream only knows account 100, account 200 is silently skipped.
	summaries, bans := upstreamFor(100, "alice", 0)
	provider := &stubProvider{summaries: summaries, bans: bans}

	merged, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx,
		[]profile.Snapshot{profile.NewStub(100), profile.NewStub(200)})
	require.NoError(t, errRefresh)
	require.Equal(t, "alice", merged[0].DisplayName)
	require.Equal(t, profile.NewStub(200), merged[1])
}

func TestRefreshCheckCounterAccumulates(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	summaries, bans := upstreamFor(100, "alice", 0)
	provider := &stubProvider{summaries: summaries, bans: bans}

	batcher := newTestBatcher(repo, memory, provider, jobs)

	first, errFirst := batcher.Refresh(ctx, []profile.Snapshot{profile.NewStub(100)})
	require.NoError(t, errFirst)
	require.Equal(t, int64(1), first[0].TimesChecked.Number)

	// Stubs force through the gate; the counter survives between passes.
	second, errSecond := batcher.Refresh(ctx, []profile.Snapshot{profile.NewStub(100)})
	require.NoError(t, errSecond)
	require.Equal(t, int64(2), second[0].TimesChecked.Number)
}

func TestRefreshReversalKeepsAuditTimestamp(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	prof, errProf := repo.GetOrCreate(ctx, 100)
	require.NoError(t, errProf)

	past := time.Now().AddDate(0, -1, 0)
	require.NoError(t, repo.SaveBan(ctx, &profile.Ban{ProfileID: prof.ProfileID, Vac: 3, UpdatedOn: past}, false))

	summaries, bans := upstreamFor(100, "alice", 1)
	provider := &stubProvider{summaries: summaries, bans: bans}

	merged, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx,
		[]profile.Snapshot{profile.NewStub(100)})
	require.NoError(t, errRefresh)
	require.Equal(t, 1, merged[0].Vac)

	ban, errBan := repo.Ban(ctx, prof.ProfileID)
	require.NoError(t, errBan)
	require.True(t, ban.Unban)
	require.Equal(t, past, ban.UpdatedOn)
}

func TestRefreshTimesAddedFromListStats(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	firstAdded := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	repo.stats[100] = profile.ListStats{Total: 3, FirstAdded: firstAdded}

	summaries, bans := upstreamFor(100, "alice", 0)
	provider := &stubProvider{summaries: summaries, bans: bans}

	merged, errRefresh := newTestBatcher(repo, memory, provider, jobs).Refresh(ctx,
		[]profile.Snapshot{profile.NewStub(100)})
	require.NoError(t, errRefresh)
	require.Equal(t, int64(3), merged[0].TimesAdded.Number)
	require.Equal(t, firstAdded.Format(profile.DateFormat), merged[0].TimesAdded.Time)
}

func TestAliasWorkerProcessesBatch(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()

	prof, errProf := repo.GetOrCreate(ctx, 100)
	require.NoError(t, errProf)

	prof.DisplayName = "alice"
	require.NoError(t, repo.Save(ctx, &prof))

	require.NoError(t, memory.Forever(ctx, profile.AliasTokenKey("tok"), []int64{100}))

	worker := profile.NewAliasWorker(repo, memory, time.Hour)

	errWork := worker.Work(ctx, &river.Job[profile.AliasArgs]{Args: profile.AliasArgs{Token: "tok"}})
	require.NoError(t, errWork)

	history, errHistory := repo.Aliases(ctx, prof.ProfileID)
	require.NoError(t, errHistory)
	require.Len(t, history, 1)
	require.Equal(t, "alice", history[0].Alias)

	// One-shot token, consumed with the batch.
	found, errHas := memory.Has(ctx, profile.AliasTokenKey("tok"))
	require.NoError(t, errHas)
	require.False(t, found)
}

func TestAliasWorkerCancelsOnMissingToken(t *testing.T) {
	t.Parallel()

	worker := profile.NewAliasWorker(newMemRepo(), cache.NewMemory(), time.Hour)

	errWork := worker.Work(t.Context(), &river.Job[profile.AliasArgs]{Args: profile.AliasArgs{Token: "gone"}})
	require.Error(t, errWork)
}

func TestAliasTokensAreUnique(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	memory := cache.NewMemory()
	jobs := &recordingEnqueuer{}

	summaries, bans := upstreamFor(100, "alice", 0)
	provider := &stubProvider{summaries: summaries, bans: bans}

	batcher := newTestBatcher(repo, memory, provider, jobs)

	for range 3 {
		_, errRefresh := batcher.Refresh(ctx, []profile.Snapshot{profile.NewStub(100)})
		require.NoError(t, errRefresh)
	}

	tokens := map[string]struct{}{}

	for _, key := range memory.Keys() {
		if strings.HasPrefix(key, "update_alias_") {
			tokens[key] = struct{}{}
		}
	}

	require.Len(t, tokens, 3)
	require.Len(t, jobs.jobs, 3)
}
