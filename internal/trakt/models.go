package trakt

import (
	"encoding/json"
	"time"
)

// ShowSummary is the tool-facing view of a show returned by search and
// trending queries.
type ShowSummary struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	Year   int      `json:"year,omitempty"`
	Rating float64  `json:"rating"`
	Genres []string `json:"genres"`
}

// WatchedEntry is one show in the account's watch history.
type WatchedEntry struct {
	ShowID          int64     `json:"show_id"`
	Title           string    `json:"title"`
	Year            int       `json:"year,omitempty"`
	EpisodesWatched int       `json:"episodes_watched"`
	LastWatchedAt   time.Time `json:"last_watched_at"`
	Plays           int       `json:"plays"`
}

// WatchlistEntry is one show on the account's watchlist.
type WatchlistEntry struct {
	ShowSummary
	ListedAt time.Time `json:"listed_at"`
}

// TrendingEntry is a show with its current watcher count.
type TrendingEntry struct {
	ShowSummary
	Watchers int `json:"watchers"`
}

// MutationResult reports the effect of a sync add/remove call.
type MutationResult struct {
	// Count is the number of items affected.
	Count int `json:"count"`
	// Existing is the number of items that were already in the target state.
	Existing int `json:"existing"`
	// NotFound is the number of identifiers Trakt could not resolve.
	NotFound int `json:"not_found"`
}

// Season is one season of a show with its episodes.
type Season struct {
	Number        int       `json:"number"`
	Title         string    `json:"title,omitempty"`
	EpisodeCount  int       `json:"episode_count"`
	AiredEpisodes int       `json:"aired_episodes"`
	Episodes      []Episode `json:"episodes"`
}

// Episode is a single episode.
type Episode struct {
	ID         int64      `json:"id"`
	Season     int        `json:"season"`
	Number     int        `json:"number"`
	Title      string     `json:"title"`
	FirstAired *time.Time `json:"first_aired,omitempty"`
	Rating     float64    `json:"rating,omitempty"`
}

// Wire types mirror the subset of the Trakt v2 payloads we read.

type apiIDs struct {
	Trakt int64  `json:"trakt"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
	TVDB  int64  `json:"tvdb,omitempty"`
}

type apiShow struct {
	Title         string   `json:"title"`
	Year          int      `json:"year"`
	IDs           apiIDs   `json:"ids"`
	Rating        float64  `json:"rating"`
	Genres        []string `json:"genres"`
	AiredEpisodes int      `json:"aired_episodes"`
}

func (s apiShow) summary() ShowSummary {
	genres := s.Genres
	if genres == nil {
		genres = []string{}
	}
	return ShowSummary{
		ID:     s.IDs.Trakt,
		Title:  s.Title,
		Year:   s.Year,
		Rating: s.Rating,
		Genres: genres,
	}
}

type apiWatchedShow struct {
	Plays         int       `json:"plays"`
	LastWatchedAt time.Time `json:"last_watched_at"`
	Show          apiShow   `json:"show"`
	Seasons       []struct {
		Number   int `json:"number"`
		Episodes []struct {
			Number int `json:"number"`
			Plays  int `json:"plays"`
		} `json:"episodes"`
	} `json:"seasons"`
}

type apiWatchlistItem struct {
	ListedAt time.Time `json:"listed_at"`
	Type     string    `json:"type"`
	Show     *apiShow  `json:"show"`
}

type apiSearchResult struct {
	Type  string   `json:"type"`
	Score float64  `json:"score"`
	Show  *apiShow `json:"show"`
}

type apiTrendingItem struct {
	Watchers int     `json:"watchers"`
	Show     apiShow `json:"show"`
}

type apiEpisode struct {
	Season     int        `json:"season"`
	Number     int        `json:"number"`
	Title      string     `json:"title"`
	IDs        apiIDs     `json:"ids"`
	FirstAired *time.Time `json:"first_aired"`
	Rating     float64    `json:"rating"`
}

func (e apiEpisode) episode() Episode {
	return Episode{
		ID:         e.IDs.Trakt,
		Season:     e.Season,
		Number:     e.Number,
		Title:      e.Title,
		FirstAired: e.FirstAired,
		Rating:     e.Rating,
	}
}

type apiSeason struct {
	Number        int          `json:"number"`
	Title         string       `json:"title"`
	EpisodeCount  int          `json:"episode_count"`
	AiredEpisodes int          `json:"aired_episodes"`
	Episodes      []apiEpisode `json:"episodes"`
}

type apiSyncIDs struct {
	IDs apiIDs `json:"ids"`
}

type apiSyncRequest struct {
	Shows    []apiSyncIDs `json:"shows,omitempty"`
	Episodes []apiSyncIDs `json:"episodes,omitempty"`
}

type apiSyncCounts struct {
	Movies   int `json:"movies"`
	Shows    int `json:"shows"`
	Seasons  int `json:"seasons"`
	Episodes int `json:"episodes"`
}

type apiSyncResponse struct {
	Added    apiSyncCounts `json:"added"`
	Deleted  apiSyncCounts `json:"deleted"`
	Existing apiSyncCounts `json:"existing"`
	NotFound struct {
		Shows    []json.RawMessage `json:"shows"`
		Episodes []json.RawMessage `json:"episodes"`
	} `json:"not_found"`
}
