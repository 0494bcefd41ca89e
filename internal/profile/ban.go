package profile

import (
	"context"
	"errors"
	"time"

	"github.com/vacstatus/vacstatus/internal/database"
	"github.com/vacstatus/vacstatus/internal/steam"
)

// BanDecision is the single merge decision computed per profile before any
// ban write happens.
type BanDecision int

const (
	// BanCreate inserts the first ban record for a profile.
	BanCreate BanDecision = iota
	// BanUpdateFresh overwrites the stored snapshot with new upstream state.
	BanUpdateFresh
	// BanSkipStale suppresses the write: upstream reported nothing new.
	BanSkipStale
	// BanReversalOverride forces the write for a ban count that went down.
	// The audit timestamp is frozen: a reversal is a correction, not a
	// fresh violation.
	BanReversalOverride
)

func (d BanDecision) String() string {
	switch d {
	case BanCreate:
		return "create"
	case BanUpdateFresh:
		return "update"
	case BanSkipStale:
		return "skip"
	case BanReversalOverride:
		return "reversal"
	default:
		return "unknown"
	}
}

// DecideBan computes the merge decision for a stored ban against a fresh
// upstream record. hasStored is false when the profile has no ban row yet.
func DecideBan(stored Ban, hasStored bool, fresh steam.PlayerBanState, now time.Time) BanDecision {
	if !hasStored {
		return BanCreate
	}

	combined := fresh.CombinedBanCount()

	if stored.Vac > combined {
		return BanReversalOverride
	}

	if stored.Vac == combined &&
		stored.Community == fresh.CommunityBanned &&
		stored.Trade == fresh.TradeBanned() &&
		sameDay(stored.VacBannedOn, fresh.LastBanDate(now)) {
		return BanSkipStale
	}

	return BanUpdateFresh
}

// MergeBan loads the stored ban for a profile, decides how the fresh
// upstream state applies, and persists the result. The returned ban is the
// record as now stored, even when the decision was to skip.
func MergeBan(ctx context.Context, repo Repository, profileID int64, fresh steam.PlayerBanState, now time.Time) (Ban, BanDecision, error) {
	stored, errStored := repo.Ban(ctx, profileID)

	hasStored := true

	if errStored != nil {
		if !errors.Is(errStored, database.ErrNoResult) {
			return Ban{}, BanSkipStale, errors.Join(errStored, ErrSaveBan)
		}

		hasStored = false
	}

	decision := DecideBan(stored, hasStored, fresh, now)

	switch decision {
	case BanSkipStale:
		return stored, decision, nil
	case BanCreate:
		stored = Ban{ProfileID: profileID, Unban: false, CreatedOn: now, UpdatedOn: now}
	case BanReversalOverride:
		stored.Unban = true
	case BanUpdateFresh:
	}

	applyBan(&stored, fresh, now)

	// A reversal freezes updated_on so the correction does not read as a
	// fresh violation downstream.
	advanceUpdated := decision != BanReversalOverride

	if errSave := repo.SaveBan(ctx, &stored, advanceUpdated); errSave != nil {
		return Ban{}, decision, errors.Join(errSave, ErrSaveBan)
	}

	return stored, decision, nil
}

// applyBan copies the fresh upstream values onto the stored record.
func applyBan(ban *Ban, fresh steam.PlayerBanState, now time.Time) {
	ban.Vac = fresh.CombinedBanCount()
	ban.Community = fresh.CommunityBanned
	ban.Trade = fresh.TradeBanned()
	ban.VacBannedOn = fresh.LastBanDate(now)
}

func sameDay(a time.Time, b time.Time) bool {
	aYear, aMonth, aDay := a.Date()
	bYear, bMonth, bDay := b.Date()

	return aYear == bYear && aMonth == bMonth && aDay == bDay
}
