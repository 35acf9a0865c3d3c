// Package enrich matches scraped film records against the TMDB metadata
// API and merges the best candidate's attributes into the record.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrInvalidKey reports a 401 from the metadata API. It must short-circuit
// the lookup without poisoning the negative cache.
var ErrInvalidKey = errors.New("metadata api rejected the credential")

const (
	defaultTMDBBaseURL  = "https://api.themoviedb.org/3"
	tmdbPosterBaseURL   = "https://image.tmdb.org/t/p/w500"
	searchCandidateCap  = 5
	defaultClientTimout = 15 * time.Second
)

// SearchResult is one candidate from the movie or tv search index.
type SearchResult struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

// DisplayTitle returns the title field the index actually populates.
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// ReleaseYear parses the year from whichever date field is set, 0 if none.
func (r SearchResult) ReleaseYear() int {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	var y int
	if _, err := fmt.Sscanf(date[:4], "%d", &y); err != nil {
		return 0
	}
	return y
}

// Details is the type-specific detail payload used to fill in what the
// search result lacks.
type Details struct {
	Overview       string `json:"overview"`
	Runtime        int    `json:"runtime"`
	EpisodeRunTime []int  `json:"episode_run_time"`
	PosterPath     string `json:"poster_path"`
	Genres         []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

func (d *Details) RuntimeMinutes() int {
	if d == nil {
		return 0
	}
	if d.Runtime > 0 {
		return d.Runtime
	}
	if len(d.EpisodeRunTime) > 0 {
		return d.EpisodeRunTime[0]
	}
	return 0
}

// Client is a minimal TMDB client over the two search indexes and the two
// detail endpoints the engine needs.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultTMDBBaseURL,
		http:    &http.Client{Timeout: defaultClientTimout},
	}
}

// NewClientWithBaseURL is used by tests to point at a fake server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

func (c *Client) SearchMovies(ctx context.Context, query string) ([]SearchResult, error) {
	return c.search(ctx, "/search/movie", query)
}

func (c *Client) SearchSeries(ctx context.Context, query string) ([]SearchResult, error) {
	return c.search(ctx, "/search/tv", query)
}

func (c *Client) search(ctx context.Context, path, query string) ([]SearchResult, error) {
	// Deliberately not year-filtered: release dates skew across countries
	// and a query-time filter drops legitimate matches. Scoring handles it.
	endpoint := fmt.Sprintf("%s%s?api_key=%s&query=%s",
		c.baseURL, path, url.QueryEscape(c.apiKey), url.QueryEscape(query))

	var payload struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) > searchCandidateCap {
		payload.Results = payload.Results[:searchCandidateCap]
	}
	return payload.Results, nil
}

func (c *Client) MovieDetails(ctx context.Context, id int) (*Details, error) {
	return c.details(ctx, fmt.Sprintf("/movie/%d", id))
}

func (c *Client) SeriesDetails(ctx context.Context, id int) (*Details, error) {
	return c.details(ctx, fmt.Sprintf("/tv/%d", id))
}

func (c *Client) details(ctx context.Context, path string) (*Details, error) {
	endpoint := fmt.Sprintf("%s%s?api_key=%s", c.baseURL, path, url.QueryEscape(c.apiKey))
	var d Details
	if err := c.getJSON(ctx, endpoint, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidKey
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metadata api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PosterURL resolves a TMDB poster path to an absolute image URL, empty
// for an empty path.
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return tmdbPosterBaseURL + path
}
