package watch

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/vacstatus/vacstatus/internal/database"
	"github.com/vacstatus/vacstatus/internal/profile"
)

var ErrScanWatch = errors.New("failed to scan watch result")

type watchRepository struct {
	db database.Database
}

func NewRepository(db database.Database) Repository {
	return &watchRepository{db: db}
}

func (r *watchRepository) NextRecipient(ctx context.Context, afterID int64) (Recipient, error) {
	row, errRow := r.db.QueryRowBuilder(ctx, r.db.
		Builder().
		Select("user_mail_id", "user_id", "email", "verify", "push", "push_verify",
			"created_on", "updated_on").
		From("user_mail").
		Where(sq.And{
			sq.Gt{"user_mail_id": afterID},
			sq.Or{sq.Eq{"verify": VerifyVerified}, sq.Eq{"push_verify": VerifyVerified}},
		}).
		OrderBy("user_mail_id ASC").
		Limit(1))
	if errRow != nil {
		return Recipient{}, database.DBErr(errRow)
	}

	var rec Recipient
	if errScan := row.Scan(&rec.RecipientID, &rec.UserID, &rec.Email, &rec.EmailVerify,
		&rec.Push, &rec.PushVerify, &rec.CreatedOn, &rec.UpdatedOn); errScan != nil {
		return Recipient{}, database.DBErr(errScan)
	}

	return rec, nil
}

func (r *watchRepository) Lists(ctx context.Context, userID int64) ([]SubscribedList, error) {
	rows, errRows := r.db.QueryBuilder(ctx, r.db.
		Builder().
		Select("s.subscription_id", "ul.user_list_id", "ul.title", "s.updated_on").
		From("subscription s").
		LeftJoin("user_list ul ON ul.user_list_id = s.user_list_id").
		Where(sq.And{
			sq.Eq{"s.user_id": userID},
			sq.Eq{"s.deleted_on": nil},
			sq.Eq{"ul.deleted_on": nil},
		}).
		OrderBy("s.subscription_id ASC"))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	var lists []SubscribedList

	for rows.Next() {
		var list SubscribedList
		if errScan := rows.Scan(&list.SubscriptionID, &list.ListID, &list.Title, &list.UpdatedOn); errScan != nil {
			return nil, errors.Join(errScan, ErrScanWatch)
		}

		lists = append(lists, list)
	}

	return lists, nil
}

func (r *watchRepository) Members(ctx context.Context, listIDs []int64) ([]WatchedProfile, error) {
	rows, errRows := r.db.QueryBuilder(ctx, r.db.
		Builder().
		Select("ulp.user_list_id",
			"p.profile_id", "p.small_id", "p.display_name", "p.avatar", "p.avatar_thumb",
			"p.privacy", "p.profile_created", "p.created_on", "p.updated_on",
			"pb.profile_id", "pb.vac", "pb.community", "pb.trade", "pb.unban",
			"pb.vac_banned_on", "pb.created_on", "pb.updated_on").
		From("user_list_profile ulp").
		LeftJoin("profile p ON p.profile_id = ulp.profile_id").
		LeftJoin("profile_ban pb ON pb.profile_id = ulp.profile_id").
		Where(sq.And{sq.Eq{"ulp.user_list_id": listIDs}, sq.Eq{"ulp.deleted_on": nil}}).
		OrderBy("ulp.user_list_id ASC", "p.profile_id ASC"))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	var members []WatchedProfile

	for rows.Next() {
		var (
			member       WatchedProfile
			banProfileID *int64
			banVac       *int
			banCommunity *bool
			banTrade     *bool
			banUnban     *bool
			banVacOn     *time.Time
			banCreated   *time.Time
			banUpdated   *time.Time
		)

		if errScan := rows.Scan(&member.ListID,
			&member.Profile.ProfileID, &member.Profile.SmallID, &member.Profile.DisplayName,
			&member.Profile.Avatar, &member.Profile.AvatarThumb, &member.Profile.Privacy,
			&member.Profile.ProfileCreated, &member.Profile.CreatedOn, &member.Profile.UpdatedOn,
			&banProfileID, &banVac, &banCommunity, &banTrade, &banUnban,
			&banVacOn, &banCreated, &banUpdated); errScan != nil {
			return nil, errors.Join(errScan, ErrScanWatch)
		}

		// No ban row leaves the zero value, which diffs cleanly against a
		// clean upstream record.
		if banProfileID != nil {
			member.Ban = profile.Ban{
				ProfileID: *banProfileID,
				Vac:       *banVac,
				Community: *banCommunity,
				Trade:     *banTrade,
				Unban:     *banUnban,
				CreatedOn: *banCreated,
				UpdatedOn: *banUpdated,
			}
			if banVacOn != nil {
				member.Ban.VacBannedOn = *banVacOn
			}
		}

		members = append(members, member)
	}

	return members, nil
}

func (r *watchRepository) TouchSubscriptions(ctx context.Context, subscriptionIDs []int64) error {
	if len(subscriptionIDs) == 0 {
		return nil
	}

	return database.DBErr(r.db.ExecUpdateBuilder(ctx, r.db.
		Builder().
		Update("subscription").
		Set("updated_on", time.Now()).
		Where(sq.Eq{"subscription_id": subscriptionIDs})))
}
