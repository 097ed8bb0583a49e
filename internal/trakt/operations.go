package trakt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/localrivet/traktmcp/internal/errortypes"
)

// ListWatched returns the account's watched shows.
func (c *Client) ListWatched(ctx context.Context) ([]WatchedEntry, error) {
	c.logger.Info("Fetching watched shows")

	var raw []apiWatchedShow
	err := c.do(ctx, request{
		operation: "list_watched",
		method:    http.MethodGet,
		path:      "/sync/watched/shows",
		query:     url.Values{"extended": {"full"}},
	}, &raw)
	if err != nil {
		return nil, err
	}

	entries := make([]WatchedEntry, 0, len(raw))
	for _, item := range raw {
		episodes := 0
		for _, season := range item.Seasons {
			episodes += len(season.Episodes)
		}
		entries = append(entries, WatchedEntry{
			ShowID:          item.Show.IDs.Trakt,
			Title:           item.Show.Title,
			Year:            item.Show.Year,
			EpisodesWatched: episodes,
			LastWatchedAt:   item.LastWatchedAt,
			Plays:           item.Plays,
		})
	}
	return entries, nil
}

// ListWatchlist returns the shows on the account's watchlist.
func (c *Client) ListWatchlist(ctx context.Context) ([]WatchlistEntry, error) {
	c.logger.Info("Fetching watchlist")

	var raw []apiWatchlistItem
	err := c.do(ctx, request{
		operation: "list_watchlist",
		method:    http.MethodGet,
		path:      "/sync/watchlist/shows",
		query:     url.Values{"extended": {"full"}},
	}, &raw)
	if err != nil {
		return nil, err
	}

	entries := make([]WatchlistEntry, 0, len(raw))
	for _, item := range raw {
		if item.Show == nil {
			continue
		}
		entries = append(entries, WatchlistEntry{
			ShowSummary: item.Show.summary(),
			ListedAt:    item.ListedAt,
		})
	}
	return entries, nil
}

// AddToWatchlist adds a show to the watchlist. Count is the number of shows
// added.
func (c *Client) AddToWatchlist(ctx context.Context, showID int64) (MutationResult, error) {
	c.logger.Info("Adding show to watchlist", "show_id", showID)

	var raw apiSyncResponse
	err := c.do(ctx, request{
		operation:  "add_to_watchlist",
		method:     http.MethodPost,
		path:       "/sync/watchlist",
		body:       showPayload(showID),
		identifier: formatID(showID),
	}, &raw)
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{
		Count:    raw.Added.Shows,
		Existing: raw.Existing.Shows,
		NotFound: len(raw.NotFound.Shows),
	}, nil
}

// RemoveFromWatchlist removes a show from the watchlist. Count is the number
// of shows removed.
func (c *Client) RemoveFromWatchlist(ctx context.Context, showID int64) (MutationResult, error) {
	c.logger.Info("Removing show from watchlist", "show_id", showID)

	var raw apiSyncResponse
	err := c.do(ctx, request{
		operation:  "remove_from_watchlist",
		method:     http.MethodPost,
		path:       "/sync/watchlist/remove",
		body:       showPayload(showID),
		identifier: formatID(showID),
	}, &raw)
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{
		Count:    raw.Deleted.Shows,
		NotFound: len(raw.NotFound.Shows),
	}, nil
}

// Search finds shows by free text. At most SearchLimit results are returned
// in the order Trakt ranked them.
func (c *Client) Search(ctx context.Context, query string) ([]ShowSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errortypes.ValidationError(nil, "search query must not be empty")
	}
	c.logger.Info("Searching shows", "query", query)

	var raw []apiSearchResult
	err := c.do(ctx, request{
		operation: "search",
		method:    http.MethodGet,
		path:      "/search/show",
		query: url.Values{
			"query":    {query},
			"limit":    {strconv.Itoa(SearchLimit)},
			"extended": {"full"},
		},
	}, &raw)
	if err != nil {
		return nil, err
	}

	shows := make([]ShowSummary, 0, min(len(raw), SearchLimit))
	for _, item := range raw {
		if len(shows) == SearchLimit {
			break
		}
		if item.Show == nil {
			continue
		}
		shows = append(shows, item.Show.summary())
	}
	return shows, nil
}

// ListTrending returns up to limit trending shows. limit must be within
// [MinTrendingLimit, MaxTrendingLimit]; it is never clamped.
func (c *Client) ListTrending(ctx context.Context, limit int) ([]TrendingEntry, error) {
	if limit < MinTrendingLimit || limit > MaxTrendingLimit {
		return nil, errortypes.ValidationError(nil,
			fmt.Sprintf("limit must be between %d and %d", MinTrendingLimit, MaxTrendingLimit)).
			WithField("limit", limit)
	}
	c.logger.Info("Fetching trending shows", "limit", limit)

	var raw []apiTrendingItem
	err := c.do(ctx, request{
		operation: "list_trending",
		method:    http.MethodGet,
		path:      "/shows/trending",
		query: url.Values{
			"limit":    {strconv.Itoa(limit)},
			"extended": {"full"},
		},
	}, &raw)
	if err != nil {
		return nil, err
	}

	entries := make([]TrendingEntry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, TrendingEntry{
			ShowSummary: item.Show.summary(),
			Watchers:    item.Watchers,
		})
	}
	return entries, nil
}

// ListSeasons returns every season of a show with its episodes.
func (c *Client) ListSeasons(ctx context.Context, showID int64) ([]Season, error) {
	c.logger.Info("Fetching seasons", "show_id", showID)

	var raw []apiSeason
	err := c.do(ctx, request{
		operation:  "list_seasons",
		method:     http.MethodGet,
		path:       "/shows/" + formatID(showID) + "/seasons",
		query:      url.Values{"extended": {"episodes"}},
		identifier: formatID(showID),
	}, &raw)
	if err != nil {
		return nil, err
	}

	seasons := make([]Season, 0, len(raw))
	for _, s := range raw {
		episodes := make([]Episode, 0, len(s.Episodes))
		for _, e := range s.Episodes {
			ep := e.episode()
			if ep.Season == 0 {
				ep.Season = s.Number
			}
			episodes = append(episodes, ep)
		}
		seasons = append(seasons, Season{
			Number:        s.Number,
			Title:         s.Title,
			EpisodeCount:  s.EpisodeCount,
			AiredEpisodes: s.AiredEpisodes,
			Episodes:      episodes,
		})
	}
	return seasons, nil
}

// ListSeasonEpisodes returns the episodes of one season.
func (c *Client) ListSeasonEpisodes(ctx context.Context, showID int64, season int) ([]Episode, error) {
	if season < 0 {
		return nil, errortypes.ValidationError(nil, "season must not be negative").WithField("season", season)
	}
	c.logger.Info("Fetching season episodes", "show_id", showID, "season", season)

	var raw []apiEpisode
	err := c.do(ctx, request{
		operation:  "list_season_episodes",
		method:     http.MethodGet,
		path:       fmt.Sprintf("/shows/%d/seasons/%d", showID, season),
		query:      url.Values{"extended": {"full"}},
		identifier: fmt.Sprintf("%d season %d", showID, season),
	}, &raw)
	if err != nil {
		return nil, err
	}

	episodes := make([]Episode, 0, len(raw))
	for _, e := range raw {
		episodes = append(episodes, e.episode())
	}
	return episodes, nil
}

// MarkEpisodeWatched adds an episode to the watch history. Count is the
// number of episodes added.
func (c *Client) MarkEpisodeWatched(ctx context.Context, episodeID int64) (MutationResult, error) {
	c.logger.Info("Marking episode as watched", "episode_id", episodeID)

	var raw apiSyncResponse
	err := c.do(ctx, request{
		operation: "mark_episode_watched",
		method:    http.MethodPost,
		path:      "/sync/history",
		body: apiSyncRequest{
			Episodes: []apiSyncIDs{{IDs: apiIDs{Trakt: episodeID}}},
		},
		identifier: formatID(episodeID),
	}, &raw)
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{
		Count:    raw.Added.Episodes,
		NotFound: len(raw.NotFound.Episodes),
	}, nil
}

func showPayload(showID int64) apiSyncRequest {
	return apiSyncRequest{
		Shows: []apiSyncIDs{{IDs: apiIDs{Trakt: showID}}},
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
