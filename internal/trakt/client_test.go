package trakt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/localrivet/traktmcp/internal/config"
	"github.com/localrivet/traktmcp/internal/errortypes"
)

var testCreds = config.Credentials{
	ClientID:    "client-123",
	AccessToken: "token-abc",
	APIVersion:  "2",
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)

	c, err := New(testCreds, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsIncompleteCredentials(t *testing.T) {
	_, err := New(config.Credentials{ClientID: "id", APIVersion: "2"})
	if !errortypes.IsConfigurationError(err) {
		t.Fatalf("New() error = %v, want ConfigurationError", err)
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, []any{})
	})

	if _, err := c.ListWatchlist(context.Background()); err != nil {
		t.Fatalf("ListWatchlist() error = %v", err)
	}

	want := map[string]string{
		"Content-Type":      "application/json",
		"User-Agent":        "TraktMCPServer/" + Version,
		"trakt-api-version": "2",
		"trakt-api-key":     "client-123",
		"Authorization":     "Bearer token-abc",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("header %s = %q, want %q", k, got.Get(k), v)
		}
	}
}

func TestListWatched(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync/watched/shows" || r.URL.Query().Get("extended") != "full" {
			t.Errorf("unexpected request %s", r.URL)
		}
		fmt.Fprint(w, `[{
			"plays": 7,
			"last_watched_at": "2024-03-01T20:00:00.000Z",
			"show": {"title": "Breaking Bad", "year": 2008, "ids": {"trakt": 1388}},
			"seasons": [
				{"number": 1, "episodes": [{"number": 1, "plays": 2}, {"number": 2, "plays": 1}]},
				{"number": 2, "episodes": [{"number": 1, "plays": 1}]}
			]
		}]`)
	})

	entries, err := c.ListWatched(context.Background())
	if err != nil {
		t.Fatalf("ListWatched() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ShowID != 1388 || e.Title != "Breaking Bad" || e.Year != 2008 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.EpisodesWatched != 3 {
		t.Errorf("EpisodesWatched = %d, want 3", e.EpisodesWatched)
	}
	if e.Plays != 7 {
		t.Errorf("Plays = %d, want 7", e.Plays)
	}
	if e.LastWatchedAt.IsZero() {
		t.Error("LastWatchedAt was not decoded")
	}
}

func TestSearchTruncatesInUpstreamOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "office" || q.Get("limit") != "10" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		results := make([]map[string]any, 15)
		for i := range results {
			results[i] = map[string]any{
				"type":  "show",
				"score": 100 - i,
				"show":  map[string]any{"title": fmt.Sprintf("Show %d", i), "ids": map[string]any{"trakt": i + 1}},
			}
		}
		writeJSON(w, results)
	})

	shows, err := c.Search(context.Background(), "  office ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(shows) != SearchLimit {
		t.Fatalf("len(shows) = %d, want %d", len(shows), SearchLimit)
	}
	for i, s := range shows {
		if s.ID != int64(i+1) {
			t.Errorf("shows[%d].ID = %d, want %d", i, s.ID, i+1)
		}
		if s.Genres == nil {
			t.Errorf("shows[%d].Genres should be an empty slice, not nil", i)
		}
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   errortypes.Kind
	}{
		{http.StatusUnauthorized, errortypes.KindAuthentication},
		{http.StatusForbidden, errortypes.KindAuthentication},
		{http.StatusNotFound, errortypes.KindResourceNotFound},
		{http.StatusTooManyRequests, errortypes.KindNetwork},
		{http.StatusInternalServerError, errortypes.KindNetwork},
		{http.StatusBadGateway, errortypes.KindNetwork},
		{http.StatusUnprocessableEntity, errortypes.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				// A JSON body must not change the classification.
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":"nope"}`)
			})

			_, err := c.AddToWatchlist(context.Background(), 42)
			if got := errortypes.KindOf(err); got != tt.want {
				t.Fatalf("kind = %q, want %q (err %v)", got, tt.want, err)
			}
			if tt.status == http.StatusNotFound {
				te, _ := errortypes.As(err)
				if te.Fields["identifier"] != "42" {
					t.Errorf("identifier = %v, want 42", te.Fields["identifier"])
				}
				if !strings.Contains(te.Message, "42") {
					t.Errorf("message %q should name the identifier", te.Message)
				}
			}
			if tt.status == http.StatusTooManyRequests && !strings.Contains(err.Error(), "rate limit") {
				t.Errorf("429 error %q should mention the rate limit", err)
			}
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"show": {"title": `)
	})

	_, err := c.ListTrending(context.Background(), 5)
	if !errortypes.IsNetworkError(err) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if !strings.Contains(err.Error(), "malformed upstream response") {
		t.Errorf("error %q should report a malformed response", err)
	}
}

func TestEmptyBodyYieldsZeroResult(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := c.RemoveFromWatchlist(context.Background(), 7)
	if err != nil {
		t.Fatalf("RemoveFromWatchlist() error = %v", err)
	}
	if res != (MutationResult{}) {
		t.Errorf("result = %+v, want zero", res)
	}

	watched, err := c.ListWatched(context.Background())
	if err != nil {
		t.Fatalf("ListWatched() error = %v", err)
	}
	if len(watched) != 0 {
		t.Errorf("len(watched) = %d, want 0", len(watched))
	}
}

func TestWatchlistMutations(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, r.URL.Path+" "+string(b))
		mu.Unlock()

		switch r.URL.Path {
		case "/sync/watchlist":
			fmt.Fprint(w, `{"added":{"shows":1},"existing":{"shows":0},"not_found":{"shows":[]}}`)
		case "/sync/watchlist/remove":
			fmt.Fprint(w, `{"deleted":{"shows":1},"not_found":{"shows":[]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	added, err := c.AddToWatchlist(context.Background(), 1388)
	if err != nil || added.Count != 1 {
		t.Fatalf("AddToWatchlist() = %+v, %v", added, err)
	}
	removed, err := c.RemoveFromWatchlist(context.Background(), 1388)
	if err != nil || removed.Count != 1 {
		t.Fatalf("RemoveFromWatchlist() = %+v, %v", removed, err)
	}

	want := []string{
		`/sync/watchlist {"shows":[{"ids":{"trakt":1388}}]}`,
		`/sync/watchlist/remove {"shows":[{"ids":{"trakt":1388}}]}`,
	}
	for i, w := range want {
		if strings.TrimSpace(bodies[i]) != w {
			t.Errorf("request %d = %q, want %q", i, bodies[i], w)
		}
	}
}

func TestMarkEpisodeWatched(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if r.URL.Path != "/sync/history" || string(b) != `{"episodes":[{"ids":{"trakt":73640}}]}` {
			t.Errorf("unexpected request %s %s", r.URL.Path, b)
		}
		fmt.Fprint(w, `{"added":{"episodes":1},"not_found":{"episodes":[]}}`)
	})

	res, err := c.MarkEpisodeWatched(context.Background(), 73640)
	if err != nil {
		t.Fatalf("MarkEpisodeWatched() error = %v", err)
	}
	if res.Count != 1 {
		t.Errorf("Count = %d, want 1", res.Count)
	}
}

func TestListSeasons(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shows/1388/seasons" || r.URL.Query().Get("extended") != "episodes" {
			t.Errorf("unexpected request %s", r.URL)
		}
		fmt.Fprint(w, `[
			{"number": 0, "episodes": [{"number": 1, "title": "Special", "ids": {"trakt": 9}}]},
			{"number": 1, "episodes": [
				{"season": 1, "number": 1, "title": "Pilot", "ids": {"trakt": 73482}},
				{"season": 1, "number": 2, "title": "Cat's in the Bag...", "ids": {"trakt": 73483}}
			]}
		]`)
	})

	seasons, err := c.ListSeasons(context.Background(), 1388)
	if err != nil {
		t.Fatalf("ListSeasons() error = %v", err)
	}
	if len(seasons) != 2 || len(seasons[1].Episodes) != 2 {
		t.Fatalf("unexpected seasons: %+v", seasons)
	}
	if seasons[1].Episodes[0].Title != "Pilot" || seasons[1].Episodes[0].ID != 73482 {
		t.Errorf("unexpected episode: %+v", seasons[1].Episodes[0])
	}
}

func TestListSeasonEpisodesNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shows/1388/seasons/9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.ListSeasonEpisodes(context.Background(), 1388, 9)
	if !errortypes.IsResourceNotFoundError(err) {
		t.Fatalf("error = %v, want ResourceNotFoundError", err)
	}
}

func TestTrendingLimitIsNotClamped(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, []any{})
	})

	for _, limit := range []int{0, 21, -1} {
		_, err := c.ListTrending(context.Background(), limit)
		if !errortypes.IsValidationError(err) {
			t.Errorf("ListTrending(%d) error = %v, want ValidationError", limit, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("upstream called %d times, want 0", calls.Load())
	}
}

func TestTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := c.ListWatched(context.Background())
	if !errortypes.IsNetworkError(err) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error %q should report a timeout", err)
	}
}

func TestConnectionFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.ListWatchlist(context.Background())
	if !errortypes.IsNetworkError(err) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
}

func TestClosedClientRejectsCalls(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, []any{})
	})

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !c.Closed() {
		t.Error("Closed() = false after Close")
	}

	_, err := c.Search(context.Background(), "anything")
	if !errortypes.IsNetworkError(err) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if calls.Load() != 0 {
		t.Errorf("upstream called %d times after Close", calls.Load())
	}
}

func TestMaxInFlight(t *testing.T) {
	var current, peak atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		writeJSON(w, []any{})
	}, WithMaxInFlight(2))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ListTrending(context.Background(), 10); err != nil {
				t.Errorf("ListTrending() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("peak in-flight requests = %d, want <= 2", peak.Load())
	}
}
