// Package profile implements the tracked account mirror: identity records,
// ban state, alias history and the batched refresh pipeline that reconciles
// them against the upstream status api.
package profile

import (
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/vacstatus/vacstatus/internal/steam"
)

// DateFormat is the display format used for snapshot dates.
const DateFormat = "Jan 2 2006"

// Profile is the locally mirrored identity record for a tracked account,
// keyed by the canonical 32 bit account id.
type Profile struct {
	ProfileID      int64      `json:"profile_id"`
	SmallID        int64      `json:"small_id"`
	DisplayName    string     `json:"display_name"`
	Avatar         string     `json:"avatar"`
	AvatarThumb    string     `json:"avatar_thumb"`
	Privacy        int64      `json:"privacy"`
	ProfileCreated *time.Time `json:"profile_created"` // upstream may withhold this
	CreatedOn      time.Time  `json:"created_on"`
	UpdatedOn      time.Time  `json:"updated_on"`
}

func (p Profile) SteamID() steamid.SteamID {
	return steam.FromSmallID(p.SmallID)
}

// Ban is the stored ban snapshot, one per profile. Vac carries the combined
// vac + game ban count. Unban flags a ban reversal: it is only ever set when
// a fresh combined count came in below the stored one.
type Ban struct {
	ProfileID   int64     `json:"profile_id"`
	Vac         int       `json:"vac"`
	Community   bool      `json:"community"`
	Trade       bool      `json:"trade"`
	Unban       bool      `json:"unban"`
	VacBannedOn time.Time `json:"vac_banned_on"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

// OldAlias is one entry of the append-only display name history.
type OldAlias struct {
	AliasID   int64     `json:"alias_id"`
	ProfileID int64     `json:"profile_id"`
	Seen      time.Time `json:"seen"`
	Alias     string    `json:"seen_alias"`
}

// ListStats aggregates watchlist membership for a profile.
type ListStats struct {
	Total      int64     `json:"total"`
	FirstAdded time.Time `json:"first_added"`
}

// CheckCounter tracks how often an account has been refreshed. Kept in the
// cache without expiry, not in the store.
type CheckCounter struct {
	Number int64  `json:"number"`
	Time   string `json:"time"`
}

// AliasEntry is the display form of one alias history record.
type AliasEntry struct {
	Name        string `json:"newname"`
	TimeChanged string `json:"timechanged"`
}

// TimesAdded is the display form of the watchlist membership aggregate.
type TimesAdded struct {
	Number int64  `json:"number"`
	Time   string `json:"time"`
}

// Snapshot is a display-ready profile record: either a fully populated
// result of a refresh pass or a minimal stub carrying only the account id.
type Snapshot struct {
	ProfileID      int64        `json:"id"`
	SmallID        int64        `json:"small_id"`
	SteamID64      int64        `json:"steam_64_bit"`
	DisplayName    string       `json:"display_name"`
	Avatar         string       `json:"avatar"`
	AvatarThumb    string       `json:"avatar_thumb"`
	Privacy        int64        `json:"privacy"`
	ProfileCreated string       `json:"profile_created"`
	CreatedAt      string       `json:"created_at"`
	Vac            int          `json:"vac"`
	VacBannedOn    string       `json:"vac_banned_on"`
	Community      bool         `json:"community"`
	Trade          bool         `json:"trade"`
	Aliases        []AliasEntry `json:"profile_old_alias"`
	TimesChecked   CheckCounter `json:"times_checked"`
	TimesAdded     TimesAdded   `json:"times_added"`
}

// NewStub builds the minimal snapshot for an account the caller knows
// nothing about besides its id. Stubs always force a refresh attempt.
func NewStub(smallID int64) Snapshot {
	return Snapshot{SmallID: smallID}
}

// Stub reports whether only the account id is known.
func (s Snapshot) Stub() bool {
	return s.ProfileID == 0 && s.DisplayName == ""
}

// stripVolatile drops the counters that must not be served stale from the
// cached copy of a snapshot.
func (s Snapshot) stripVolatile() Snapshot {
	s.TimesChecked = CheckCounter{}
	s.TimesAdded = TimesAdded{}

	return s
}
