package profile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vacstatus/vacstatus/internal/profile"
	"github.com/vacstatus/vacstatus/internal/steam"
)

func TestDecideBanCreate(t *testing.T) {
	t.Parallel()

	decision := profile.DecideBan(profile.Ban{}, false, steam.PlayerBanState{NumberOfVACBans: 1}, time.Now())
	require.Equal(t, profile.BanCreate, decision)
}

func TestDecideBanReversal(t *testing.T) {
	t.Parallel()

	stored := profile.Ban{Vac: 3}
	fresh := steam.PlayerBanState{NumberOfVACBans: 1, EconomyBan: steam.EconBanNone}

	decision := profile.DecideBan(stored, true, fresh, time.Now())
	require.Equal(t, profile.BanReversalOverride, decision)
}

func TestDecideBanSkipStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	fresh := steam.PlayerBanState{
		NumberOfVACBans:  2,
		DaysSinceLastBan: 10,
		EconomyBan:       steam.EconBanNone,
	}
	stored := profile.Ban{
		Vac:         2,
		VacBannedOn: fresh.LastBanDate(now),
	}

	decision := profile.DecideBan(stored, true, fresh, now)
	require.Equal(t, profile.BanSkipStale, decision)
}

func TestDecideBanUpdateOnNewBan(t *testing.T) {
	t.Parallel()

	stored := profile.Ban{Vac: 1}
	fresh := steam.PlayerBanState{NumberOfVACBans: 1, NumberOfGameBans: 1, EconomyBan: steam.EconBanNone}

	decision := profile.DecideBan(stored, true, fresh, time.Now())
	require.Equal(t, profile.BanUpdateFresh, decision)
}

func TestDecideBanUpdateOnFlagChange(t *testing.T) {
	t.Parallel()

	now := time.Now()
	fresh := steam.PlayerBanState{NumberOfVACBans: 1, CommunityBanned: true, EconomyBan: steam.EconBanNone}
	stored := profile.Ban{Vac: 1, Community: false, VacBannedOn: fresh.LastBanDate(now)}

	decision := profile.DecideBan(stored, true, fresh, now)
	require.Equal(t, profile.BanUpdateFresh, decision)
}

func TestDecideBanUpdateOnNewBanDate(t *testing.T) {
	t.Parallel()

	// Same count, but the last ban moved to a different day.
	now := time.Now()
	fresh := steam.PlayerBanState{NumberOfVACBans: 1, DaysSinceLastBan: 1, EconomyBan: steam.EconBanNone}
	stored := profile.Ban{Vac: 1, VacBannedOn: now.AddDate(0, 0, -200)}

	decision := profile.DecideBan(stored, true, fresh, now)
	require.Equal(t, profile.BanUpdateFresh, decision)
}

func TestMergeBanCreate(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	now := time.Now()

	fresh := steam.PlayerBanState{NumberOfVACBans: 2, DaysSinceLastBan: 30, EconomyBan: steam.EconBanNone}

	merged, decision, errMerge := profile.MergeBan(ctx, repo, 7, fresh, now)
	require.NoError(t, errMerge)
	require.Equal(t, profile.BanCreate, decision)
	require.Equal(t, int64(7), merged.ProfileID)
	require.Equal(t, 2, merged.Vac)
	require.False(t, merged.Unban)

	stored, errStored := repo.Ban(ctx, 7)
	require.NoError(t, errStored)
	require.Equal(t, 2, stored.Vac)
}

func TestMergeBanReversalFreezesTimestamp(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	past := time.Now().AddDate(0, -1, 0)

	require.NoError(t, repo.SaveBan(ctx, &profile.Ban{ProfileID: 7, Vac: 3, UpdatedOn: past}, false))

	fresh := steam.PlayerBanState{NumberOfVACBans: 1, EconomyBan: steam.EconBanNone}

	merged, decision, errMerge := profile.MergeBan(ctx, repo, 7, fresh, time.Now())
	require.NoError(t, errMerge)
	require.Equal(t, profile.BanReversalOverride, decision)
	require.True(t, merged.Unban)
	require.Equal(t, 1, merged.Vac)
	require.Equal(t, past, merged.UpdatedOn)

	stored, errStored := repo.Ban(ctx, 7)
	require.NoError(t, errStored)
	require.Equal(t, past, stored.UpdatedOn)
}

func TestMergeBanSkipStaleLeavesStored(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	now := time.Now()

	fresh := steam.PlayerBanState{NumberOfVACBans: 1, DaysSinceLastBan: 5, EconomyBan: steam.EconBanNone}

	existing := profile.Ban{ProfileID: 7, Vac: 1, VacBannedOn: fresh.LastBanDate(now)}
	require.NoError(t, repo.SaveBan(ctx, &existing, false))

	merged, decision, errMerge := profile.MergeBan(ctx, repo, 7, fresh, now)
	require.NoError(t, errMerge)
	require.Equal(t, profile.BanSkipStale, decision)
	require.Equal(t, existing, merged)
}
