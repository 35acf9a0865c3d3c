package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cinelist/internal/domain/film"
	"cinelist/internal/store"
)

// fakeFetcher serves canned bodies keyed by URL and counts calls. A nil
// gate passes requests straight through; a non-nil gate blocks each fetch
// until the channel is closed.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls int32
	gate  chan struct{}
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if html, ok := f.pages[url]; ok {
		return html, nil
	}
	return "", errors.New("unexpected url " + url)
}

// fakeParser reads bodies of the form "pages=N;ids=5,4" produced by pageBody.
type fakeParser struct{}

func pageBody(totalPages int, ids ...string) string {
	return fmt.Sprintf("pages=%d;ids=%s", totalPages, strings.Join(ids, ","))
}

func (fakeParser) ParseListPage(html string) []film.Record {
	_, after, ok := strings.Cut(html, "ids=")
	if !ok || after == "" {
		return nil
	}
	var out []film.Record
	for _, id := range strings.Split(after, ",") {
		out = append(out, film.Record{ID: id, Title: "Film " + id, SourceURL: "/item" + id + ".html"})
	}
	return out
}

func (fakeParser) ParseTotalPages(html string) int {
	var n int
	if _, err := fmt.Sscanf(html, "pages=%d", &n); err != nil || n < 1 {
		return 1
	}
	return n
}

type fakeEnricher struct {
	calls int32
}

func (e *fakeEnricher) Enrich(_ context.Context, rec film.Record) film.Enrichment {
	atomic.AddInt32(&e.calls, 1)
	syn := "synopsis for " + rec.ID
	return film.Enrichment{Synopsis: &syn}
}

func newTestRefresh(f *fakeFetcher, engine Enricher, st store.Store) *RefreshUsecase {
	u := NewRefreshUsecase(f, fakeParser{}, engine, st, 30, nil)
	u.pageDelay = func() time.Duration { return 0 }
	u.enrichDelay = 0
	return u
}

// waitTerminal polls Status until the job leaves running, then returns the
// terminal result.
func waitTerminal(t *testing.T, u *RefreshUsecase, sourceURL string) StatusResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res, err := u.Status(context.Background(), sourceURL)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if res.Status != JobRunning {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never left running")
	return StatusResult{}
}

func TestRefresh_MultiPage(t *testing.T) {
	const src = "https://films.example.com/best/"
	fetcher := &fakeFetcher{pages: map[string]string{
		src:             pageBody(3, "5", "4"),
		src + "?page=2": pageBody(3, "3", "2"),
		src + "?page=3": pageBody(3, "1"),
	}}
	engine := &fakeEnricher{}
	st := store.NewMemory()
	u := newTestRefresh(fetcher, engine, st)

	res := u.Start(src)
	if res.AlreadyRunning {
		t.Fatal("first start reported already running")
	}
	if res.Key != store.ListKey(src) {
		t.Fatalf("key = %q", res.Key)
	}

	final := waitTerminal(t, u, src)
	if final.Status != JobDone {
		t.Fatalf("status = %s (%s)", final.Status, final.Error)
	}
	if final.Snapshot == nil {
		t.Fatal("done status without snapshot")
	}

	films := final.Snapshot.Films
	if len(films) != 5 {
		t.Fatalf("films = %d", len(films))
	}
	// Pages arrive newest-first; the snapshot must be oldest-first.
	for i, want := range []string{"1", "2", "3", "4", "5"} {
		if films[i].ID != want {
			t.Fatalf("films[%d] = %s, want %s", i, films[i].ID, want)
		}
	}
	if !films[0].Enriched || films[0].Synopsis != "synopsis for 1" {
		t.Errorf("enrichment not applied: %+v", films[0])
	}
	if got := atomic.LoadInt32(&engine.calls); got != 5 {
		t.Errorf("enrich calls = %d", got)
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 3 {
		t.Errorf("fetch calls = %d", got)
	}
}

func TestRefresh_LaterPageFailureKeepsPartial(t *testing.T) {
	const src = "https://films.example.com/best/"
	fetcher := &fakeFetcher{
		pages: map[string]string{
			src:             pageBody(3, "5", "4"),
			src + "?page=2": pageBody(3, "3"),
		},
		errs: map[string]error{
			src + "?page=3": errors.New("upstream rate limit exceeded"),
		},
	}
	st := store.NewMemory()
	u := newTestRefresh(fetcher, nil, st)

	u.Start(src)
	final := waitTerminal(t, u, src)
	if final.Status != JobDone {
		t.Fatalf("status = %s", final.Status)
	}
	if len(final.Snapshot.Films) != 3 {
		t.Fatalf("partial snapshot lost: %d films", len(final.Snapshot.Films))
	}
}

func TestRefresh_EmptyPageStopsPagination(t *testing.T) {
	const src = "https://films.example.com/best/"
	fetcher := &fakeFetcher{pages: map[string]string{
		src:             pageBody(5, "2", "1"),
		src + "?page=2": pageBody(5),
	}}
	u := newTestRefresh(fetcher, nil, store.NewMemory())

	u.Start(src)
	final := waitTerminal(t, u, src)
	if final.Status != JobDone {
		t.Fatalf("status = %s", final.Status)
	}
	if len(final.Snapshot.Films) != 2 {
		t.Fatalf("films = %d", len(final.Snapshot.Films))
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 2 {
		t.Errorf("pagination did not stop, fetch calls = %d", got)
	}
}

func TestRefresh_FirstPageFailureFailsJob(t *testing.T) {
	const src = "https://films.example.com/best/"
	fetcher := &fakeFetcher{errs: map[string]error{src: errors.New("upstream refused the request (403)")}}
	u := newTestRefresh(fetcher, nil, store.NewMemory())

	u.Start(src)
	final := waitTerminal(t, u, src)
	if final.Status != JobError {
		t.Fatalf("status = %s", final.Status)
	}
	if !strings.Contains(final.Error, "403") {
		t.Errorf("error lost: %q", final.Error)
	}

	// The error was consumed above; with no snapshot the key is idle again.
	next, err := u.Status(context.Background(), src)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if next.Status != JobIdle {
		t.Errorf("status after consumed error = %s", next.Status)
	}
}

func TestRefresh_SingleFlight(t *testing.T) {
	const src = "https://films.example.com/best/"
	fetcher := &fakeFetcher{
		pages: map[string]string{src: pageBody(1, "1")},
		gate:  make(chan struct{}),
	}
	u := newTestRefresh(fetcher, nil, store.NewMemory())

	first := u.Start(src)
	if first.AlreadyRunning {
		t.Fatal("first start blocked")
	}
	second := u.Start(src)
	if !second.AlreadyRunning {
		t.Fatal("second start was not coalesced")
	}
	if second.Key != first.Key {
		t.Fatalf("keys differ: %q vs %q", first.Key, second.Key)
	}

	close(fetcher.gate)
	final := waitTerminal(t, u, src)
	if final.Status != JobDone {
		t.Fatalf("status = %s", final.Status)
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 1 {
		t.Errorf("coalesced start still fetched, calls = %d", got)
	}

	// The key is free again after the terminal read.
	again := u.Start(src)
	if again.AlreadyRunning {
		t.Error("restart after completion reported already running")
	}
	waitTerminal(t, u, src)
}

func TestRefresh_DoneStatusConsumedOnce(t *testing.T) {
	const src = "https://films.example.com/best/"
	fetcher := &fakeFetcher{pages: map[string]string{src: pageBody(1, "1")}}
	st := store.NewMemory()
	u := newTestRefresh(fetcher, nil, st)

	u.Start(src)
	final := waitTerminal(t, u, src)
	if final.Status != JobDone {
		t.Fatalf("status = %s", final.Status)
	}

	// The job entry is gone, but the persisted snapshot still answers done.
	next, err := u.Status(context.Background(), src)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if next.Status != JobDone || next.Snapshot == nil {
		t.Fatalf("snapshot fallback failed: %+v", next)
	}
}

func TestRefresh_MaxPagesCap(t *testing.T) {
	const src = "https://films.example.com/best/"
	pages := map[string]string{src: pageBody(10, "a1")}
	for p := 2; p <= 10; p++ {
		pages[fmt.Sprintf("%s?page=%d", src, p)] = pageBody(10, fmt.Sprintf("a%d", p))
	}
	fetcher := &fakeFetcher{pages: pages}

	u := NewRefreshUsecase(fetcher, fakeParser{}, nil, store.NewMemory(), 3, nil)
	u.pageDelay = func() time.Duration { return 0 }
	u.enrichDelay = 0

	u.Start(src)
	final := waitTerminal(t, u, src)
	if final.Status != JobDone {
		t.Fatalf("status = %s", final.Status)
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 3 {
		t.Errorf("page cap ignored, fetch calls = %d", got)
	}
}

func TestPageURL(t *testing.T) {
	cases := []struct {
		url  string
		page int
		want string
	}{
		{"https://x/list/", 1, "https://x/list/"},
		{"https://x/list/", 2, "https://x/list/?page=2"},
		{"https://x/list/?sort=rating", 3, "https://x/list/?sort=rating&page=3"},
	}
	for _, c := range cases {
		if got := pageURL(c.url, c.page); got != c.want {
			t.Errorf("pageURL(%q, %d) = %q, want %q", c.url, c.page, got, c.want)
		}
	}
}
