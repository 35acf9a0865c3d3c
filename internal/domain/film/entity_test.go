package film

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestEnrichmentApply(t *testing.T) {
	rec := Record{
		ID:     "10001",
		Title:  "Blue Moon",
		Poster: "https://site.example/original.jpg",
		Type:   TypeMovie,
	}

	e := Enrichment{
		Synopsis: strPtr("a synopsis"),
		Duration: intPtr(104),
		Type:     strPtr("series"),
		Genres:   []string{"Drama"},
	}
	e.Apply(&rec)

	if rec.Synopsis != "a synopsis" {
		t.Errorf("synopsis = %q", rec.Synopsis)
	}
	if rec.Duration != 104 {
		t.Errorf("duration = %d", rec.Duration)
	}
	if rec.Type != TypeSeries {
		t.Errorf("type = %s", rec.Type)
	}
	if len(rec.Genres) != 1 || rec.Genres[0] != "Drama" {
		t.Errorf("genres = %v", rec.Genres)
	}
	if rec.Poster != "https://site.example/original.jpg" {
		t.Errorf("nil enrichment poster must keep the scraped one, got %q", rec.Poster)
	}
}

func TestEnrichmentApply_PosterOverride(t *testing.T) {
	rec := Record{Poster: "https://site.example/original.jpg"}

	Enrichment{Poster: strPtr("")}.Apply(&rec)
	if rec.Poster != "https://site.example/original.jpg" {
		t.Errorf("empty poster cleared the existing one")
	}

	Enrichment{Poster: strPtr("https://img.example/better.jpg")}.Apply(&rec)
	if rec.Poster != "https://img.example/better.jpg" {
		t.Errorf("poster = %q", rec.Poster)
	}

	Enrichment{Synopsis: strPtr("x")}.Apply(nil) // must not panic
}

func TestEnrichmentMatched(t *testing.T) {
	if (Enrichment{}).Matched() {
		t.Error("empty enrichment reported matched")
	}
	if (Enrichment{Tag: "no_match"}).Matched() {
		t.Error("tagged negative reported matched")
	}
	if !(Enrichment{Synopsis: strPtr("x")}).Matched() {
		t.Error("synopsis-only enrichment not matched")
	}
	if !(Enrichment{Genres: []string{"Drama"}}).Matched() {
		t.Error("genres-only enrichment not matched")
	}
}

func TestEnrichmentEntryFresh(t *testing.T) {
	now := time.Now()
	ttl := 7 * 24 * time.Hour

	var nilEntry *EnrichmentEntry
	if nilEntry.Fresh(ttl, now) {
		t.Error("nil entry reported fresh")
	}
	if !(&EnrichmentEntry{CachedAt: now.Add(-time.Hour)}).Fresh(ttl, now) {
		t.Error("hour-old entry reported stale")
	}
	if (&EnrichmentEntry{CachedAt: now.Add(-ttl - time.Minute)}).Fresh(ttl, now) {
		t.Error("expired entry reported fresh")
	}
}

func TestDedupe(t *testing.T) {
	in := []Record{
		{ID: "1", Title: "first"},
		{ID: "2"},
		{ID: "1", Title: "duplicate"},
		{ID: ""},
		{ID: "3"},
	}
	out := Dedupe(in)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Title != "first" {
		t.Errorf("first occurrence not kept: %q", out[0].Title)
	}
	if out[0].ID != "1" || out[1].ID != "2" || out[2].ID != "3" {
		t.Errorf("order lost: %v", out)
	}
}

func TestReverse(t *testing.T) {
	in := []Record{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	out := Reverse(in)
	if out[0].ID != "3" || out[1].ID != "2" || out[2].ID != "1" {
		t.Errorf("reverse: %v", out)
	}
	if in[0].ID != "1" {
		t.Error("input mutated")
	}
	if got := Reverse(nil); len(got) != 0 {
		t.Errorf("reverse nil: %v", got)
	}
}
