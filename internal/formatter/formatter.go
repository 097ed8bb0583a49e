// Package formatter renders Trakt results as the JSON documents returned to
// MCP clients. Every function is pure.
//
// List results share one shape:
//
//	{"type": "watchlist", "total": 2, "items": [...]}
//
// An empty list keeps "total": 0 and "items": [] and adds a "message", so a
// reader can tell "nothing matched" from a failed call.
package formatter

import (
	"encoding/json"
	"fmt"

	"github.com/localrivet/traktmcp/internal/trakt"
)

// Document types
const (
	TypeWatchedShows   = "watched_shows"
	TypeWatchlist      = "watchlist"
	TypeSearchResults  = "search_results"
	TypeTrendingShows  = "trending_shows"
	TypeShowEpisodes   = "show_episodes"
	TypeSeasonEpisodes = "season_episodes"
	TypeWatchlistAdd   = "watchlist_add"
	TypeWatchlistRem   = "watchlist_remove"
	TypeEpisodeWatched = "episode_watched"
)

type listDocument[T any] struct {
	Type    string `json:"type"`
	Query   string `json:"query,omitempty"`
	ShowID  *int64 `json:"show_id,omitempty"`
	Season  *int   `json:"season,omitempty"`
	Total   int    `json:"total"`
	Items   []T    `json:"items"`
	Message string `json:"message,omitempty"`
}

// mutationDocument carries the id the mutation targeted, zero included.
type mutationDocument struct {
	Type      string `json:"type"`
	ShowID    *int64 `json:"show_id,omitempty"`
	EpisodeID *int64 `json:"episode_id,omitempty"`
	Count     int    `json:"count"`
	Existing  int    `json:"existing"`
	NotFound  int    `json:"not_found"`
	Message   string `json:"message"`
}

func render(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render response: %w", err)
	}
	return string(b), nil
}

func list[T any](doc listDocument[T], empty string) (string, error) {
	if doc.Items == nil {
		doc.Items = []T{}
	}
	doc.Total = len(doc.Items)
	if doc.Total == 0 {
		doc.Message = empty
	}
	return render(doc)
}

// WatchedShows renders the watch history.
func WatchedShows(entries []trakt.WatchedEntry) (string, error) {
	return list(listDocument[trakt.WatchedEntry]{Type: TypeWatchedShows, Items: entries},
		"No watched shows found in your history.")
}

// Watchlist renders the watchlist.
func Watchlist(entries []trakt.WatchlistEntry) (string, error) {
	return list(listDocument[trakt.WatchlistEntry]{Type: TypeWatchlist, Items: entries},
		"Your watchlist is empty.")
}

// SearchResults renders search matches in the order given.
func SearchResults(query string, shows []trakt.ShowSummary) (string, error) {
	return list(listDocument[trakt.ShowSummary]{Type: TypeSearchResults, Query: query, Items: shows},
		fmt.Sprintf("No shows found matching %q.", query))
}

// TrendingShows renders trending shows.
func TrendingShows(entries []trakt.TrendingEntry) (string, error) {
	return list(listDocument[trakt.TrendingEntry]{Type: TypeTrendingShows, Items: entries},
		"No trending shows available at the moment.")
}

// ShowEpisodes renders every season of a show.
func ShowEpisodes(showID int64, seasons []trakt.Season) (string, error) {
	return list(listDocument[trakt.Season]{Type: TypeShowEpisodes, ShowID: &showID, Items: seasons},
		fmt.Sprintf("No seasons found for show %d.", showID))
}

// SeasonEpisodes renders the episodes of one season.
func SeasonEpisodes(showID int64, season int, episodes []trakt.Episode) (string, error) {
	return list(listDocument[trakt.Episode]{Type: TypeSeasonEpisodes, ShowID: &showID, Season: &season, Items: episodes},
		fmt.Sprintf("No episodes found for show %d season %d.", showID, season))
}

// WatchlistAdded renders the result of adding a show.
func WatchlistAdded(showID int64, res trakt.MutationResult) (string, error) {
	var msg string
	switch {
	case res.Count > 0:
		msg = fmt.Sprintf("Added %d show(s) to your watchlist.", res.Count)
	case res.Existing > 0:
		msg = fmt.Sprintf("Show %d is already on your watchlist.", showID)
	case res.NotFound > 0:
		msg = fmt.Sprintf("Trakt did not recognise show %d; nothing was added.", showID)
	default:
		msg = "No shows were added to your watchlist."
	}
	return render(mutationDocument{
		Type:     TypeWatchlistAdd,
		ShowID:   &showID,
		Count:    res.Count,
		Existing: res.Existing,
		NotFound: res.NotFound,
		Message:  msg,
	})
}

// WatchlistRemoved renders the result of removing a show.
func WatchlistRemoved(showID int64, res trakt.MutationResult) (string, error) {
	var msg string
	switch {
	case res.Count > 0:
		msg = fmt.Sprintf("Removed %d show(s) from your watchlist.", res.Count)
	case res.NotFound > 0:
		msg = fmt.Sprintf("Trakt did not recognise show %d; nothing was removed.", showID)
	default:
		msg = fmt.Sprintf("Show %d was not on your watchlist.", showID)
	}
	return render(mutationDocument{
		Type:     TypeWatchlistRem,
		ShowID:   &showID,
		Count:    res.Count,
		NotFound: res.NotFound,
		Message:  msg,
	})
}

// EpisodeWatched renders the result of marking an episode watched.
func EpisodeWatched(episodeID int64, res trakt.MutationResult) (string, error) {
	msg := fmt.Sprintf("Marked %d episode(s) as watched.", res.Count)
	if res.Count == 0 && res.NotFound > 0 {
		msg = fmt.Sprintf("Trakt did not recognise episode %d; history unchanged.", episodeID)
	}
	return render(mutationDocument{
		Type:      TypeEpisodeWatched,
		EpisodeID: &episodeID,
		Count:     res.Count,
		NotFound:  res.NotFound,
		Message:   msg,
	})
}
