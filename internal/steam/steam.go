// Package steam defines the upstream status provider contract and the
// account id normalization shared by the refresh and detection pipelines.
//
// Steam encodes the same account two ways: the 64 bit community id used on
// the wire and the 32 bit account id ("small id") used as the canonical key
// throughout the store. Both upstream responses carry 64 bit ids as strings
// and must be normalized before correlation.
package steam

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

var (
	// ErrEmptyResponse indicates the upstream was reachable but returned no
	// usable player records for a non-empty request.
	ErrEmptyResponse = errors.New("steam api returned no usable players")
	ErrInvalidID     = errors.New("invalid steam account id")
)

// EconBanNone is the sentinel economy ban value meaning no trade ban.
const EconBanNone = "none"

// steamBaseID is the offset between a 64 bit community id and the 32 bit
// account id.
const steamBaseID int64 = 76561197960265728

// SmallID returns the canonical 32 bit account id for a steam id.
func SmallID(sid steamid.SteamID) int64 {
	return sid.Int64() - steamBaseID
}

// FromSmallID returns the 64 bit steam id for a canonical account id.
func FromSmallID(smallID int64) steamid.SteamID {
	return steamid.New(smallID + steamBaseID)
}

// ParseAccountID accepts either a 64 bit community id or a canonical
// account id and returns the canonical form.
func ParseAccountID(value string) (int64, error) {
	parsed, errParse := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if errParse != nil || parsed <= 0 {
		return 0, ErrInvalidID
	}

	if parsed >= steamBaseID {
		sid := steamid.New(parsed)
		if !sid.Valid() {
			return 0, ErrInvalidID
		}

		return SmallID(sid), nil
	}

	return parsed, nil
}

// PlayerSummary is the identity record returned by the "info" upstream call.
// TimeCreated is 0 when the account hides its creation time.
type PlayerSummary struct {
	SteamID                  string `json:"steamid"`
	PersonaName              string `json:"personaname"`
	Avatar                   string `json:"avatar"`
	AvatarFull               string `json:"avatarfull"`
	CommunityVisibilityState int64  `json:"communityvisibilitystate"`
	TimeCreated              int64  `json:"timecreated"`
}

// PlayerBanState is the ban record returned by the "ban" upstream call.
type PlayerBanState struct {
	SteamID          string `json:"SteamId"` //nolint:tagliatelle
	CommunityBanned  bool   `json:"CommunityBanned"`
	NumberOfVACBans  int    `json:"NumberOfVACBans"`
	NumberOfGameBans int    `json:"NumberOfGameBans"`
	DaysSinceLastBan int    `json:"DaysSinceLastBan"`
	EconomyBan       string `json:"EconomyBan"`
}

// CombinedBanCount is the vac + game ban total tracked in the store.
func (b PlayerBanState) CombinedBanCount() int {
	return b.NumberOfVACBans + b.NumberOfGameBans
}

func (b PlayerBanState) TradeBanned() bool {
	return b.EconomyBan != EconBanNone
}

// LastBanDate converts the relative days-since value into an absolute date.
func (b PlayerBanState) LastBanDate(now time.Time) time.Time {
	return now.AddDate(0, 0, -b.DaysSinceLastBan)
}

// Provider is the batched upstream lookup client. Implementations own the
// transport; both calls accept up to 100 ids and may legitimately return
// fewer records than requested.
type Provider interface {
	Summaries(ctx context.Context, steamIDs steamid.Collection) ([]PlayerSummary, error)
	Bans(ctx context.Context, steamIDs steamid.Collection) ([]PlayerBanState, error)
}

// SummaryMap indexes an info response by canonical small id.
type SummaryMap map[int64]PlayerSummary

func NewSummaryMap(summaries []PlayerSummary) SummaryMap {
	indexed := SummaryMap{}

	for _, summary := range summaries {
		sid := steamid.New(summary.SteamID)
		if !sid.Valid() {
			continue
		}

		indexed[SmallID(sid)] = summary
	}

	return indexed
}

// BanMap indexes a ban response by canonical small id.
type BanMap map[int64]PlayerBanState

func NewBanMap(bans []PlayerBanState) BanMap {
	indexed := BanMap{}

	for _, ban := range bans {
		sid := steamid.New(ban.SteamID)
		if !sid.Valid() {
			continue
		}

		indexed[SmallID(sid)] = ban
	}

	return indexed
}

// SecureAvatar rewrites avatar URLs to their https form.
func SecureAvatar(url string) string {
	return strings.Replace(url, "http://", "https://", 1)
}
