package profile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vacstatus/vacstatus/internal/profile"
)

func TestMaintainAliasFirstEntry(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	now := time.Now()

	history, errAlias := profile.MaintainAlias(ctx, repo, 1, "alice", now, time.Hour)
	require.NoError(t, errAlias)
	require.Len(t, history, 1)
	require.Equal(t, "alice", history[0].Alias)
}

func TestMaintainAliasKnownNameIsNoop(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	start := time.Now().Add(-time.Hour * 48)

	_, errFirst := profile.MaintainAlias(ctx, repo, 1, "alice", start, time.Hour)
	require.NoError(t, errFirst)

	_, errSecond := profile.MaintainAlias(ctx, repo, 1, "bob", start.Add(time.Hour*2), time.Hour)
	require.NoError(t, errSecond)

	// Reverting to a name anywhere in history records nothing.
	history, errRevert := profile.MaintainAlias(ctx, repo, 1, "alice", time.Now(), time.Hour)
	require.NoError(t, errRevert)
	require.Len(t, history, 2)
}

func TestMaintainAliasCoolDownSuppressesNewName(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	start := time.Now().Add(-time.Minute * 30)

	_, errFirst := profile.MaintainAlias(ctx, repo, 1, "alice", start, time.Hour)
	require.NoError(t, errFirst)

	// A fresh name inside the cool down window is not recorded.
	history, errFlap := profile.MaintainAlias(ctx, repo, 1, "bob", time.Now(), time.Hour)
	require.NoError(t, errFlap)
	require.Len(t, history, 1)
	require.Equal(t, "alice", history[0].Alias)
}

func TestMaintainAliasNewNameAfterCoolDown(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newMemRepo()
	start := time.Now().Add(-time.Hour * 2)

	_, errFirst := profile.MaintainAlias(ctx, repo, 1, "alice", start, time.Hour)
	require.NoError(t, errFirst)

	history, errSecond := profile.MaintainAlias(ctx, repo, 1, "bob", time.Now(), time.Hour)
	require.NoError(t, errSecond)
	require.Len(t, history, 2)
	require.Equal(t, "bob", history[0].Alias)
	require.Equal(t, "alice", history[1].Alias)
}
