// Package tools defines the traktmcp tool dispatch table: tool names,
// parameter schemas, the response type, and the handlers that connect
// them to the Trakt client.
package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	// ToolGetWatchedShows is the name of the get_watched_shows MCP tool
	ToolGetWatchedShows = "get_watched_shows"

	// ToolGetWatchlist is the name of the get_watchlist MCP tool
	ToolGetWatchlist = "get_watchlist"

	// ToolAddToWatchlist is the name of the add_to_watchlist MCP tool
	ToolAddToWatchlist = "add_to_watchlist"

	// ToolRemoveFromWatchlist is the name of the remove_from_watchlist MCP tool
	ToolRemoveFromWatchlist = "remove_from_watchlist"

	// ToolSearchShows is the name of the search_shows MCP tool
	ToolSearchShows = "search_shows"

	// ToolGetTrendingShows is the name of the get_trending_shows MCP tool
	ToolGetTrendingShows = "get_trending_shows"

	// ToolGetShowAllEpisodes is the name of the get_show_all_episodes MCP tool
	ToolGetShowAllEpisodes = "get_show_all_episodes"

	// ToolGetShowSeasonEpisodes is the name of the get_show_season_episodes MCP tool
	ToolGetShowSeasonEpisodes = "get_show_season_episodes"

	// ToolMarkEpisodeAsWatched is the name of the mark_episode_as_watched MCP tool
	ToolMarkEpisodeAsWatched = "mark_episode_as_watched"

	// DefaultTrendingLimit is used when get_trending_shows is called
	// without a limit.
	DefaultTrendingLimit = 10
)

// Response statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ToolResponse is returned by every tool. Successful calls carry the
// formatted document in Result; failures carry a kind-tagged message.
type ToolResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Result is the JSON document produced by the formatter
	Result string `json:"result,omitempty"`

	// ErrorKind is the error taxonomy kind if Status is "error"
	ErrorKind string `json:"error_kind,omitempty"`

	// Code is the stable machine-readable error code if Status is "error"
	Code string `json:"code,omitempty"`

	// Error contains a kind-tagged error message if Status is "error"
	Error string `json:"error,omitempty"`
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func showIDProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
		Pattern:     `^[0-9]+$`,
	}
}

func emptySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
}

func showIDSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"show_id": showIDProperty(description),
		},
		Required: []string{"show_id"},
	}
}

func searchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "Show title or keywords to search for",
				MinLength:   intPtr(1),
				Pattern:     `\S`,
			},
		},
		Required: []string{"query"},
	}
}

func trendingSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"limit": {
				Types:       []string{"integer", "null"},
				Description: "Number of shows to return (1-20)",
				Minimum:     floatPtr(1),
				Maximum:     floatPtr(20),
				Default:     json.RawMessage(`10`),
			},
		},
	}
}

func seasonSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"show_id": showIDProperty("Trakt show ID (numeric) obtained from search_shows"),
			"season": {
				Type:        "integer",
				Description: "Season number; 0 holds specials",
				Minimum:     floatPtr(0),
			},
		},
		Required: []string{"show_id", "season"},
	}
}

func episodeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"episode_id": {
				Type:        "string",
				Description: "Trakt episode ID (numeric) obtained from get_show_season_episodes",
				Pattern:     `^[0-9]+$`,
			},
		},
		Required: []string{"episode_id"},
	}
}
