package film

import "time"

type MediaType string

const (
	TypeMovie  MediaType = "movie"
	TypeSeries MediaType = "series"
)

// Record is one entry scraped from a source list page. The id is the
// numeric identifier taken from the detail-page URL and is unique within
// one list.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Poster    string    `json:"poster,omitempty"`
	Rating    *float64  `json:"rating,omitempty"`
	Year      *int      `json:"year,omitempty"`
	Type      MediaType `json:"type"`
	SourceURL string    `json:"source_url"`

	Synopsis string   `json:"synopsis,omitempty"`
	Duration int      `json:"duration,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	Enriched bool     `json:"enriched,omitempty"`
}

// Enrichment holds the fields the match engine may merge into a Record.
// Pointer fields that are nil mean "keep whatever the record already has";
// in particular a nil Poster must never clear an existing poster.
type Enrichment struct {
	Synopsis *string  `json:"synopsis,omitempty"`
	Duration *int     `json:"duration,omitempty"`
	Type     *string  `json:"type,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	Poster   *string  `json:"poster,omitempty"`

	// Tag carries a diagnostic for non-matches: "no_key", "invalid_key",
	// "no_match" or "" for a successful match.
	Tag string `json:"tag,omitempty"`
}

// Matched reports whether the enrichment carries any real data.
func (e Enrichment) Matched() bool {
	return e.Synopsis != nil || e.Duration != nil || e.Poster != nil || len(e.Genres) > 0
}

// Apply merges the enrichment into a record, field by field, leaving the
// record untouched where the enrichment is absent.
func (e Enrichment) Apply(r *Record) {
	if r == nil {
		return
	}
	if e.Synopsis != nil {
		r.Synopsis = *e.Synopsis
	}
	if e.Duration != nil {
		r.Duration = *e.Duration
	}
	if e.Type != nil {
		r.Type = MediaType(*e.Type)
	}
	if len(e.Genres) > 0 {
		r.Genres = e.Genres
	}
	if e.Poster != nil && *e.Poster != "" {
		r.Poster = *e.Poster
	}
}

// ListSnapshot is the persisted result of one scrape of one source list.
// Films are stored oldest-first, the reverse of the scrape order.
type ListSnapshot struct {
	Key        string    `json:"key"`
	SourceURL  string    `json:"source_url"`
	Films      []Record  `json:"films"`
	CapturedAt time.Time `json:"captured_at"`
}

// EnrichmentEntry is a cached enrichment outcome for one film id. Negative
// outcomes (no match) are cached as an empty Enrichment so repeated runs do
// not retry the lookup before the entry expires.
type EnrichmentEntry struct {
	FilmID   string     `json:"film_id"`
	Data     Enrichment `json:"data"`
	CachedAt time.Time  `json:"cached_at"`
}

// Fresh reports whether the entry is still within its ttl.
func (e *EnrichmentEntry) Fresh(ttl time.Duration, now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Sub(e.CachedAt) < ttl
}

// Dedupe removes duplicate ids from records, keeping the first occurrence.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Reverse returns a reversed copy of records. Source lists come newest-first
// and consumers want oldest-first.
func Reverse(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}
