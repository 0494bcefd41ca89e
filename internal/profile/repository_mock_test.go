package profile_test

import (
	"context"
	"sync"
	"time"

	"github.com/vacstatus/vacstatus/internal/database"
	"github.com/vacstatus/vacstatus/internal/profile"
)

// memRepo is an in-memory profile.Repository used across the package tests.
type memRepo struct {
	mu            sync.Mutex
	profiles      map[int64]profile.Profile
	bans          map[int64]profile.Ban
	aliases       map[int64][]profile.OldAlias
	stats         map[int64]profile.ListStats
	nextProfileID int64
	nextAliasID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		profiles: map[int64]profile.Profile{},
		bans:     map[int64]profile.Ban{},
		aliases:  map[int64][]profile.OldAlias{},
		stats:    map[int64]profile.ListStats{},
	}
}

func (r *memRepo) GetOrCreate(_ context.Context, smallID int64) (profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, found := r.profiles[smallID]; found {
		return existing, nil
	}

	r.nextProfileID++

	now := time.Now()
	created := profile.Profile{
		ProfileID: r.nextProfileID,
		SmallID:   smallID,
		CreatedOn: now,
		UpdatedOn: now,
	}
	r.profiles[smallID] = created

	return created, nil
}

func (r *memRepo) Save(_ context.Context, prof *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prof.UpdatedOn = time.Now()
	r.profiles[prof.SmallID] = *prof

	return nil
}

func (r *memRepo) Ban(_ context.Context, profileID int64) (profile.Ban, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ban, found := r.bans[profileID]
	if !found {
		return profile.Ban{}, database.ErrNoResult
	}

	return ban, nil
}

func (r *memRepo) SaveBan(_ context.Context, ban *profile.Ban, advanceUpdated bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if advanceUpdated {
		ban.UpdatedOn = time.Now()
	}

	r.bans[ban.ProfileID] = *ban

	return nil
}

func (r *memRepo) Aliases(_ context.Context, profileID int64) ([]profile.OldAlias, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := make([]profile.OldAlias, len(r.aliases[profileID]))
	copy(history, r.aliases[profileID])

	return history, nil
}

func (r *memRepo) AddAlias(_ context.Context, alias *profile.OldAlias) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextAliasID++
	alias.AliasID = r.nextAliasID

	r.aliases[alias.ProfileID] = append([]profile.OldAlias{*alias}, r.aliases[alias.ProfileID]...)

	return nil
}

func (r *memRepo) ListStats(_ context.Context, smallIDs []int64) (map[int64]profile.ListStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := map[int64]profile.ListStats{}

	for _, smallID := range smallIDs {
		if stat, found := r.stats[smallID]; found {
			stats[smallID] = stat
		}
	}

	return stats, nil
}
