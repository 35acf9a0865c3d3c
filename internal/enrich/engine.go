package enrich

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"cinelist/internal/domain/film"
	"cinelist/internal/store"

	"golang.org/x/text/unicode/norm"
)

// Scoring holds the candidate-ranking constants. The values are behavior
// parity with long-tuned production settings, kept configurable rather
// than re-derived.
type Scoring struct {
	ExactTitle     int
	AffixTitle     int
	SubstringTitle int
	UnrelatedTitle int
	YearExact      int
	YearAdjacent   int
	YearMismatch   int
	TypeMatch      int
	Accept         int
}

func DefaultScoring() Scoring {
	return Scoring{
		ExactTitle:     100,
		AffixTitle:     30,
		SubstringTitle: 10,
		UnrelatedTitle: -60,
		YearExact:      50,
		YearAdjacent:   20,
		YearMismatch:   -40,
		TypeMatch:      10,
		Accept:         40,
	}
}

// Engine matches one film record against the metadata API. Enrich never
// fails to the caller: every error path degrades to an empty result with a
// diagnostic tag.
type Engine struct {
	client  *Client
	durable store.Store
	logger  *log.Logger

	Scoring Scoring
	TTL     time.Duration

	mu    sync.Mutex
	cache map[string]*film.EnrichmentEntry

	now func() time.Time
}

// NewEngine builds an engine. client may be nil (no credential configured);
// durable may be nil (in-memory cache only).
func NewEngine(client *Client, durable store.Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		client:  client,
		durable: durable,
		logger:  logger,
		Scoring: DefaultScoring(),
		TTL:     store.EnrichmentTTL,
		cache:   make(map[string]*film.EnrichmentEntry),
		now:     time.Now,
	}
}

type candidate struct {
	result    SearchResult
	mediaType film.MediaType
	score     int
}

// Enrich looks up rec against both search indexes, scores the candidates
// and returns the merged fields of the accepted one. Both positive and
// negative outcomes are cached for the ttl; an invalid credential is
// reported but never cached.
func (e *Engine) Enrich(ctx context.Context, rec film.Record) film.Enrichment {
	if e.client == nil || e.client.apiKey == "" {
		return film.Enrichment{Tag: "no_key"}
	}

	if entry := e.cachedEntry(ctx, rec.ID); entry != nil {
		return entry.Data
	}

	var (
		wg            sync.WaitGroup
		movies, shows []SearchResult
		movieErr      error
		seriesErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		movies, movieErr = e.client.SearchMovies(ctx, rec.Title)
	}()
	go func() {
		defer wg.Done()
		shows, seriesErr = e.client.SearchSeries(ctx, rec.Title)
	}()
	wg.Wait()

	if errors.Is(movieErr, ErrInvalidKey) || errors.Is(seriesErr, ErrInvalidKey) {
		return film.Enrichment{Tag: "invalid_key"}
	}
	if movieErr != nil {
		e.logger.Printf("enrich film=%s index=movie status=error err=%v", rec.ID, movieErr)
	}
	if seriesErr != nil {
		e.logger.Printf("enrich film=%s index=series status=error err=%v", rec.ID, seriesErr)
	}

	candidates := make([]candidate, 0, len(movies)+len(shows))
	for _, r := range movies {
		candidates = append(candidates, candidate{result: r, mediaType: film.TypeMovie})
	}
	for _, r := range shows {
		candidates = append(candidates, candidate{result: r, mediaType: film.TypeSeries})
	}
	for i := range candidates {
		candidates[i].score = e.score(rec, candidates[i])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) == 0 || candidates[0].score < e.Scoring.Accept {
		// A confident negative: cache it so the next run does not retry.
		return e.store(ctx, rec.ID, film.Enrichment{Tag: "no_match"})
	}

	return e.store(ctx, rec.ID, e.assemble(ctx, candidates[0]))
}

func (e *Engine) score(rec film.Record, c candidate) int {
	s := titleScore(normalizeTitle(rec.Title), normalizeTitle(c.result.DisplayTitle()), e.Scoring)

	if rec.Year != nil {
		switch year := c.result.ReleaseYear(); {
		case year == 0:
			// No year data on the candidate: neither bonus nor penalty.
		case year == *rec.Year:
			s += e.Scoring.YearExact
		case year == *rec.Year-1 || year == *rec.Year+1:
			// Off by one tolerates regional release-date skew.
			s += e.Scoring.YearAdjacent
		default:
			s += e.Scoring.YearMismatch
		}
	}

	if rec.Type != "" && rec.Type == c.mediaType {
		s += e.Scoring.TypeMatch
	}
	return s
}

func titleScore(a, b string, sc Scoring) int {
	if a == "" || b == "" {
		return sc.UnrelatedTitle
	}
	if a == b {
		return sc.ExactTitle
	}
	if strings.HasPrefix(a, b) || strings.HasSuffix(a, b) ||
		strings.HasPrefix(b, a) || strings.HasSuffix(b, a) {
		return sc.AffixTitle
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return sc.SubstringTitle
	}
	return sc.UnrelatedTitle
}

// normalizeTitle lowercases, strips diacritics and punctuation and
// collapses whitespace so comparison survives the sites' cosmetic
// differences.
func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from a decomposed accent
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (e *Engine) assemble(ctx context.Context, c candidate) film.Enrichment {
	var details *Details
	var err error
	if c.mediaType == film.TypeSeries {
		details, err = e.client.SeriesDetails(ctx, c.result.ID)
	} else {
		details, err = e.client.MovieDetails(ctx, c.result.ID)
	}
	if err != nil {
		e.logger.Printf("enrich candidate=%d status=detail_error err=%v", c.result.ID, err)
		details = nil
	}

	out := film.Enrichment{}

	synopsis := c.result.Overview
	if details != nil && details.Overview != "" {
		synopsis = details.Overview
	}
	if synopsis != "" {
		out.Synopsis = &synopsis
	}

	if minutes := details.RuntimeMinutes(); minutes > 0 {
		out.Duration = &minutes
	}

	mt := string(c.mediaType)
	out.Type = &mt

	if details != nil {
		for _, g := range details.Genres {
			if g.Name != "" {
				out.Genres = append(out.Genres, g.Name)
			}
		}
	}

	posterPath := c.result.PosterPath
	if details != nil && details.PosterPath != "" {
		posterPath = details.PosterPath
	}
	if posterPath != "" {
		poster := PosterURL(posterPath)
		out.Poster = &poster
	}

	return out
}

func (e *Engine) cachedEntry(ctx context.Context, filmID string) *film.EnrichmentEntry {
	now := e.now()

	e.mu.Lock()
	entry := e.cache[filmID]
	e.mu.Unlock()
	if entry.Fresh(e.TTL, now) {
		return entry
	}

	if e.durable == nil {
		return nil
	}
	entry, err := e.durable.GetEnrichment(ctx, filmID)
	if err != nil || !entry.Fresh(e.TTL, now) {
		return nil
	}
	e.mu.Lock()
	e.cache[filmID] = entry
	e.mu.Unlock()
	return entry
}

func (e *Engine) store(ctx context.Context, filmID string, data film.Enrichment) film.Enrichment {
	entry := &film.EnrichmentEntry{FilmID: filmID, Data: data, CachedAt: e.now()}

	e.mu.Lock()
	e.cache[filmID] = entry
	e.mu.Unlock()

	if e.durable != nil {
		if err := e.durable.SaveEnrichment(ctx, filmID, entry); err != nil {
			e.logger.Printf("enrich film=%s status=cache_write_error err=%v", filmID, err)
		}
	}
	return data
}
