package tools

import (
	"context"
	"strings"

	"github.com/localrivet/traktmcp/internal/formatter"
)

// definitions lists every tool in registration order.
func definitions() []Definition {
	return []Definition{
		{
			Name: ToolGetWatchedShows,
			Description: "Fetch the user's Trakt.tv watch history of TV shows, with episodes watched, " +
				"total plays and when each show was last watched. Use it for questions about what " +
				"the user has already seen.",
			Schema:  emptySchema(),
			Handler: getWatchedShows,
		},
		{
			Name: ToolGetWatchlist,
			Description: "Fetch the shows the user saved to their Trakt.tv watchlist. Check this first " +
				"when the user asks what to watch next.",
			Schema:  emptySchema(),
			Handler: getWatchlist,
		},
		{
			Name: ToolAddToWatchlist,
			Description: "Add a TV show to the user's Trakt.tv watchlist. Get the numeric show_id from " +
				"search_shows first.",
			Schema:  showIDSchema("Trakt show ID (numeric) obtained from search_shows"),
			Handler: addToWatchlist,
		},
		{
			Name:        ToolRemoveFromWatchlist,
			Description: "Remove a TV show from the user's Trakt.tv watchlist. Watch history is not affected.",
			Schema:      showIDSchema("Trakt show ID (numeric) to remove"),
			Handler:     removeFromWatchlist,
		},
		{
			Name: ToolSearchShows,
			Description: "Search Trakt.tv for TV shows by title or keywords. Returns the top 10 matches " +
				"with their numeric Trakt IDs, year, rating and genres.",
			Schema:  searchSchema(),
			Handler: searchShows,
		},
		{
			Name:        ToolGetTrendingShows,
			Description: "Fetch the shows most watched on Trakt.tv right now, with current watcher counts.",
			Schema:      trendingSchema(),
			Handler:     getTrendingShows,
		},
		{
			Name: ToolGetShowAllEpisodes,
			Description: "List every season of a TV show with its episodes, including season 0 specials. " +
				"Get the numeric show_id from search_shows first.",
			Schema:  showIDSchema("Trakt show ID (numeric) obtained from search_shows"),
			Handler: getShowAllEpisodes,
		},
		{
			Name: ToolGetShowSeasonEpisodes,
			Description: "List the episodes of one season of a TV show with titles, air dates and " +
				"episode IDs.",
			Schema:  seasonSchema(),
			Handler: getShowSeasonEpisodes,
		},
		{
			Name: ToolMarkEpisodeAsWatched,
			Description: "Add an episode to the user's Trakt.tv watch history. Get the episode_id from " +
				"get_show_season_episodes first.",
			Schema:  episodeSchema(),
			Handler: markEpisodeAsWatched,
		},
	}
}

func getWatchedShows(ctx context.Context, up Upstream, _ Args) (string, error) {
	entries, err := up.ListWatched(ctx)
	if err != nil {
		return "", err
	}
	return formatter.WatchedShows(entries)
}

func getWatchlist(ctx context.Context, up Upstream, _ Args) (string, error) {
	entries, err := up.ListWatchlist(ctx)
	if err != nil {
		return "", err
	}
	return formatter.Watchlist(entries)
}

func addToWatchlist(ctx context.Context, up Upstream, args Args) (string, error) {
	showID, err := args.ID("show_id")
	if err != nil {
		return "", err
	}
	res, err := up.AddToWatchlist(ctx, showID)
	if err != nil {
		return "", err
	}
	return formatter.WatchlistAdded(showID, res)
}

func removeFromWatchlist(ctx context.Context, up Upstream, args Args) (string, error) {
	showID, err := args.ID("show_id")
	if err != nil {
		return "", err
	}
	res, err := up.RemoveFromWatchlist(ctx, showID)
	if err != nil {
		return "", err
	}
	return formatter.WatchlistRemoved(showID, res)
}

func searchShows(ctx context.Context, up Upstream, args Args) (string, error) {
	query := strings.TrimSpace(args.String("query"))
	shows, err := up.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return formatter.SearchResults(query, shows)
}

func getTrendingShows(ctx context.Context, up Upstream, args Args) (string, error) {
	limit, err := args.Int("limit", DefaultTrendingLimit)
	if err != nil {
		return "", err
	}
	entries, err := up.ListTrending(ctx, limit)
	if err != nil {
		return "", err
	}
	return formatter.TrendingShows(entries)
}

func getShowAllEpisodes(ctx context.Context, up Upstream, args Args) (string, error) {
	showID, err := args.ID("show_id")
	if err != nil {
		return "", err
	}
	seasons, err := up.ListSeasons(ctx, showID)
	if err != nil {
		return "", err
	}
	return formatter.ShowEpisodes(showID, seasons)
}

func getShowSeasonEpisodes(ctx context.Context, up Upstream, args Args) (string, error) {
	showID, err := args.ID("show_id")
	if err != nil {
		return "", err
	}
	season, err := args.Int("season", 0)
	if err != nil {
		return "", err
	}
	episodes, err := up.ListSeasonEpisodes(ctx, showID, season)
	if err != nil {
		return "", err
	}
	return formatter.SeasonEpisodes(showID, season, episodes)
}

func markEpisodeAsWatched(ctx context.Context, up Upstream, args Args) (string, error) {
	episodeID, err := args.ID("episode_id")
	if err != nil {
		return "", err
	}
	res, err := up.MarkEpisodeWatched(ctx, episodeID)
	if err != nil {
		return "", err
	}
	return formatter.EpisodeWatched(episodeID, res)
}
