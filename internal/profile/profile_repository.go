package profile

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/vacstatus/vacstatus/internal/database"
)

var ErrScanProfile = errors.New("failed to scan profile result")

type profileRepository struct {
	db database.Database
}

func NewRepository(db database.Database) Repository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetOrCreate(ctx context.Context, smallID int64) (Profile, error) {
	prof, errGet := r.bySmallID(ctx, smallID)
	if errGet == nil {
		return prof, nil
	}

	if !errors.Is(errGet, database.ErrNoResult) {
		return Profile{}, errGet
	}

	now := time.Now()
	prof = Profile{SmallID: smallID, CreatedOn: now, UpdatedOn: now}

	errInsert := r.db.ExecInsertBuilderWithReturnValue(ctx, r.db.
		Builder().
		Insert("profile").
		Columns("small_id", "display_name", "avatar", "avatar_thumb", "privacy",
			"profile_created", "created_on", "updated_on").
		Values(prof.SmallID, prof.DisplayName, prof.Avatar, prof.AvatarThumb, prof.Privacy,
			prof.ProfileCreated, prof.CreatedOn, prof.UpdatedOn).
		Suffix("RETURNING profile_id"), &prof.ProfileID)
	if errInsert != nil {
		return Profile{}, database.DBErr(errInsert)
	}

	return prof, nil
}

func (r *profileRepository) bySmallID(ctx context.Context, smallID int64) (Profile, error) {
	row, errRow := r.db.QueryRowBuilder(ctx, r.db.
		Builder().
		Select("profile_id", "small_id", "display_name", "avatar", "avatar_thumb",
			"privacy", "profile_created", "created_on", "updated_on").
		From("profile").
		Where(sq.Eq{"small_id": smallID}))
	if errRow != nil {
		return Profile{}, database.DBErr(errRow)
	}

	var prof Profile
	if errScan := row.Scan(&prof.ProfileID, &prof.SmallID, &prof.DisplayName, &prof.Avatar,
		&prof.AvatarThumb, &prof.Privacy, &prof.ProfileCreated, &prof.CreatedOn, &prof.UpdatedOn); errScan != nil {
		return Profile{}, database.DBErr(errScan)
	}

	return prof, nil
}

func (r *profileRepository) Save(ctx context.Context, profile *Profile) error {
	profile.UpdatedOn = time.Now()

	return database.DBErr(r.db.ExecUpdateBuilder(ctx, r.db.
		Builder().
		Update("profile").
		SetMap(map[string]interface{}{
			"display_name":    profile.DisplayName,
			"avatar":          profile.Avatar,
			"avatar_thumb":    profile.AvatarThumb,
			"privacy":         profile.Privacy,
			"profile_created": profile.ProfileCreated,
			"updated_on":      profile.UpdatedOn,
		}).
		Where(sq.Eq{"profile_id": profile.ProfileID})))
}

func (r *profileRepository) Ban(ctx context.Context, profileID int64) (Ban, error) {
	row, errRow := r.db.QueryRowBuilder(ctx, r.db.
		Builder().
		Select("profile_id", "vac", "community", "trade", "unban", "vac_banned_on",
			"created_on", "updated_on").
		From("profile_ban").
		Where(sq.Eq{"profile_id": profileID}))
	if errRow != nil {
		return Ban{}, database.DBErr(errRow)
	}

	var (
		ban      Ban
		bannedOn *time.Time
	)

	if errScan := row.Scan(&ban.ProfileID, &ban.Vac, &ban.Community, &ban.Trade, &ban.Unban,
		&bannedOn, &ban.CreatedOn, &ban.UpdatedOn); errScan != nil {
		return Ban{}, database.DBErr(errScan)
	}

	if bannedOn != nil {
		ban.VacBannedOn = *bannedOn
	}

	return ban, nil
}

func (r *profileRepository) SaveBan(ctx context.Context, ban *Ban, advanceUpdated bool) error {
	if advanceUpdated {
		ban.UpdatedOn = time.Now()
	}

	var bannedOn *time.Time
	if !ban.VacBannedOn.IsZero() {
		bannedOn = &ban.VacBannedOn
	}

	errUpsert := r.db.ExecInsertBuilder(ctx, r.db.
		Builder().
		Insert("profile_ban").
		Columns("profile_id", "vac", "community", "trade", "unban", "vac_banned_on",
			"created_on", "updated_on").
		Values(ban.ProfileID, ban.Vac, ban.Community, ban.Trade, ban.Unban, bannedOn,
			ban.CreatedOn, ban.UpdatedOn).
		Suffix(`ON CONFLICT (profile_id) DO UPDATE SET
			vac = excluded.vac, community = excluded.community, trade = excluded.trade,
			unban = excluded.unban, vac_banned_on = excluded.vac_banned_on,
			updated_on = excluded.updated_on`))

	return database.DBErr(errUpsert)
}

func (r *profileRepository) Aliases(ctx context.Context, profileID int64) ([]OldAlias, error) {
	rows, errRows := r.db.QueryBuilder(ctx, r.db.
		Builder().
		Select("profile_old_alias_id", "profile_id", "seen", "seen_alias").
		From("profile_old_alias").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("profile_old_alias_id DESC"))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	var history []OldAlias

	for rows.Next() {
		var alias OldAlias
		if errScan := rows.Scan(&alias.AliasID, &alias.ProfileID, &alias.Seen, &alias.Alias); errScan != nil {
			return nil, errors.Join(errScan, ErrScanProfile)
		}

		history = append(history, alias)
	}

	return history, nil
}

func (r *profileRepository) AddAlias(ctx context.Context, alias *OldAlias) error {
	return database.DBErr(r.db.ExecInsertBuilderWithReturnValue(ctx, r.db.
		Builder().
		Insert("profile_old_alias").
		Columns("profile_id", "seen", "seen_alias").
		Values(alias.ProfileID, alias.Seen, alias.Alias).
		Suffix("RETURNING profile_old_alias_id"), &alias.AliasID))
}

func (r *profileRepository) ListStats(ctx context.Context, smallIDs []int64) (map[int64]ListStats, error) {
	rows, errRows := r.db.QueryBuilder(ctx, r.db.
		Builder().
		Select("p.small_id", "count(ulp.user_list_profile_id)", "min(ulp.created_on)").
		From("user_list_profile ulp").
		LeftJoin("profile p ON p.profile_id = ulp.profile_id").
		Where(sq.And{sq.Eq{"p.small_id": smallIDs}, sq.Eq{"ulp.deleted_on": nil}}).
		GroupBy("p.small_id"))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	stats := map[int64]ListStats{}

	for rows.Next() {
		var (
			smallID int64
			stat    ListStats
		)

		if errScan := rows.Scan(&smallID, &stat.Total, &stat.FirstAdded); errScan != nil {
			return nil, errors.Join(errScan, ErrScanProfile)
		}

		stats[smallID] = stat
	}

	return stats, nil
}
