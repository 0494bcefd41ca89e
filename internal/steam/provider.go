package steam

import (
	"context"
	"errors"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/leighmacdonald/steamweb/v2"
)

const queryChunkSize = 100

var (
	ErrAPIKey        = errors.New("invalid steam api key")
	ErrFetchSummary  = errors.New("steam summary request failed")
	ErrFetchBanState = errors.New("steam ban state request failed")
)

// SetKey configures the shared steam web api key used by WebProvider.
func SetKey(key string) error {
	if errKey := steamweb.SetKey(key); errKey != nil {
		return errors.Join(errKey, ErrAPIKey)
	}

	return nil
}

// WebProvider is the live steam web api client. Requests above the api's
// per-call limit are split into sequential chunks.
type WebProvider struct{}

func NewWebProvider(key string) (WebProvider, error) {
	if errKey := SetKey(key); errKey != nil {
		return WebProvider{}, errKey
	}

	return WebProvider{}, nil
}

func (WebProvider) Summaries(ctx context.Context, steamIDs steamid.Collection) ([]PlayerSummary, error) {
	var summaries []PlayerSummary

	for _, chunk := range chunked(steamIDs) {
		raw, errSummaries := steamweb.PlayerSummaries(ctx, chunk)
		if errSummaries != nil {
			return nil, errors.Join(errSummaries, ErrFetchSummary)
		}

		for _, summary := range raw {
			summaries = append(summaries, PlayerSummary{
				SteamID:                  summary.SteamID.String(),
				PersonaName:              summary.PersonaName,
				Avatar:                   summary.Avatar,
				AvatarFull:               summary.AvatarFull,
				CommunityVisibilityState: int64(summary.CommunityVisibilityState),
				TimeCreated:              int64(summary.TimeCreated),
			})
		}
	}

	return summaries, nil
}

func (WebProvider) Bans(ctx context.Context, steamIDs steamid.Collection) ([]PlayerBanState, error) {
	var states []PlayerBanState

	for _, chunk := range chunked(steamIDs) {
		raw, errBans := steamweb.GetPlayerBans(ctx, chunk)
		if errBans != nil {
			return nil, errors.Join(errBans, ErrFetchBanState)
		}

		for _, ban := range raw {
			states = append(states, PlayerBanState{
				SteamID:          ban.SteamID.String(),
				CommunityBanned:  ban.CommunityBanned,
				NumberOfVACBans:  int(ban.NumberOfVACBans),
				NumberOfGameBans: int(ban.NumberOfGameBans),
				DaysSinceLastBan: int(ban.DaysSinceLastBan),
				EconomyBan:       string(ban.EconomyBan),
			})
		}
	}

	return states, nil
}

func chunked(steamIDs steamid.Collection) []steamid.Collection {
	var chunks []steamid.Collection

	for index := 0; index < len(steamIDs); index += queryChunkSize {
		end := index + queryChunkSize
		if end > len(steamIDs) {
			end = len(steamIDs)
		}

		chunks = append(chunks, steamIDs[index:end])
	}

	return chunks
}
