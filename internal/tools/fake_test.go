package tools

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/trakt"
)

// fakeUpstream is an in-memory Upstream that counts calls.
type fakeUpstream struct {
	calls atomic.Int32

	mu           sync.Mutex
	watchlist    map[int64]bool
	lastLimit    int
	lastSeason   int
	searchResult []trakt.ShowSummary
	err          error
	panicWith    any
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{watchlist: map[int64]bool{}}
}

func (f *fakeUpstream) enter() error {
	f.calls.Add(1)
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.err
}

func (f *fakeUpstream) ListWatched(ctx context.Context) ([]trakt.WatchedEntry, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return []trakt.WatchedEntry{{ShowID: 1388, Title: "Breaking Bad", EpisodesWatched: 62, Plays: 62}}, nil
}

func (f *fakeUpstream) ListWatchlist(ctx context.Context) ([]trakt.WatchlistEntry, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trakt.WatchlistEntry
	for id := range f.watchlist {
		out = append(out, trakt.WatchlistEntry{ShowSummary: trakt.ShowSummary{ID: id, Title: fmt.Sprintf("Show %d", id), Genres: []string{}}})
	}
	return out, nil
}

func (f *fakeUpstream) AddToWatchlist(ctx context.Context, showID int64) (trakt.MutationResult, error) {
	if err := f.enter(); err != nil {
		return trakt.MutationResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchlist[showID] {
		return trakt.MutationResult{Existing: 1}, nil
	}
	f.watchlist[showID] = true
	return trakt.MutationResult{Count: 1}, nil
}

func (f *fakeUpstream) RemoveFromWatchlist(ctx context.Context, showID int64) (trakt.MutationResult, error) {
	if err := f.enter(); err != nil {
		return trakt.MutationResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.watchlist[showID] {
		return trakt.MutationResult{}, nil
	}
	delete(f.watchlist, showID)
	return trakt.MutationResult{Count: 1}, nil
}

func (f *fakeUpstream) Search(ctx context.Context, query string) ([]trakt.ShowSummary, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	if f.searchResult != nil {
		return f.searchResult, nil
	}
	return []trakt.ShowSummary{{ID: 1, Title: query, Genres: []string{}}}, nil
}

func (f *fakeUpstream) ListTrending(ctx context.Context, limit int) ([]trakt.TrendingEntry, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastLimit = limit
	f.mu.Unlock()
	out := make([]trakt.TrendingEntry, limit)
	for i := range out {
		out[i] = trakt.TrendingEntry{ShowSummary: trakt.ShowSummary{ID: int64(i + 1), Genres: []string{}}, Watchers: 100 - i}
	}
	return out, nil
}

func (f *fakeUpstream) ListSeasons(ctx context.Context, showID int64) ([]trakt.Season, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return []trakt.Season{{Number: 1, Episodes: []trakt.Episode{{ID: 10, Season: 1, Number: 1, Title: "Pilot"}}}}, nil
}

func (f *fakeUpstream) ListSeasonEpisodes(ctx context.Context, showID int64, season int) ([]trakt.Episode, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastSeason = season
	f.mu.Unlock()
	return []trakt.Episode{{ID: 10, Season: season, Number: 1}}, nil
}

func (f *fakeUpstream) MarkEpisodeWatched(ctx context.Context, episodeID int64) (trakt.MutationResult, error) {
	if err := f.enter(); err != nil {
		return trakt.MutationResult{}, err
	}
	return trakt.MutationResult{Count: 1}, nil
}

var errNotFound = errortypes.ResourceNotFoundError(nil, "42", "resource 42 not found")
