package usecase

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"cinelist/internal/domain/film"
	"cinelist/internal/store"
	"cinelist/internal/ws"

	"github.com/google/uuid"
)

// PageFetcher fetches one page of HTML from the list site.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// ListParser turns page HTML into records and a page count.
type ListParser interface {
	ParseListPage(html string) []film.Record
	ParseTotalPages(html string) int
}

// Enricher resolves supplementary metadata for one record. Implementations
// never fail; they degrade to an empty result.
type Enricher interface {
	Enrich(ctx context.Context, rec film.Record) film.Enrichment
}

type JobStatus string

const (
	JobIdle    JobStatus = "idle"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

type refreshJob struct {
	id        uuid.UUID
	key       string
	sourceURL string
	status    JobStatus
	progress  string
	errMsg    string
}

// StartResult tells the caller whether a new job began or one was already
// in flight for the key.
type StartResult struct {
	Key            string
	AlreadyRunning bool
}

// StatusResult is one poll of a job. Snapshot is set for done reads.
type StatusResult struct {
	Status   JobStatus
	Progress string
	Error    string
	Snapshot *film.ListSnapshot
}

// RefreshUsecase owns the background scrape+enrich jobs, at most one per
// list key. Jobs live only in process memory; a restart simply forgets
// them, the snapshots survive in the store.
type RefreshUsecase struct {
	fetcher PageFetcher
	parser  ListParser
	engine  Enricher
	st      store.Store
	logger  *log.Logger

	maxPages int

	// Pacing between upstream calls, overridable in tests.
	pageDelay   func() time.Duration
	enrichDelay time.Duration

	mu   sync.Mutex
	jobs map[string]*refreshJob

	rnd *rand.Rand
}

func NewRefreshUsecase(fetcher PageFetcher, parser ListParser, engine Enricher, st store.Store, maxPages int, logger *log.Logger) *RefreshUsecase {
	if logger == nil {
		logger = log.Default()
	}
	if maxPages <= 0 || maxPages > 30 {
		maxPages = 30
	}
	u := &RefreshUsecase{
		fetcher:     fetcher,
		parser:      parser,
		engine:      engine,
		st:          st,
		logger:      logger,
		maxPages:    maxPages,
		enrichDelay: 80 * time.Millisecond,
		jobs:        make(map[string]*refreshJob),
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	u.pageDelay = func() time.Duration {
		return 2*time.Second + time.Duration(u.rnd.Int63n(int64(time.Second)))
	}
	return u
}

// Start launches a refresh for sourceURL unless one is already running for
// its key. The second of two concurrent starts observes AlreadyRunning and
// triggers no upstream request.
func (u *RefreshUsecase) Start(sourceURL string) StartResult {
	key := store.ListKey(sourceURL)

	u.mu.Lock()
	if j, ok := u.jobs[key]; ok && j.status == JobRunning {
		u.mu.Unlock()
		return StartResult{Key: key, AlreadyRunning: true}
	}
	j := &refreshJob{
		id:        uuid.New(),
		key:       key,
		sourceURL: sourceURL,
		status:    JobRunning,
		progress:  "starting",
	}
	u.jobs[key] = j
	u.mu.Unlock()

	u.logger.Printf("refresh_job id=%s key=%s status=started", j.id, key)
	ws.NotifyJobProgress(key, string(JobRunning), j.progress)

	go u.run(j)

	return StartResult{Key: key}
}

// Status reports the job for key, or falls back to the cached snapshot.
// Terminal states are consumed: the first done/error read removes the job
// entry and the key returns to idle.
func (u *RefreshUsecase) Status(ctx context.Context, sourceURL string) (StatusResult, error) {
	key := store.ListKey(sourceURL)

	u.mu.Lock()
	j, ok := u.jobs[key]
	var st JobStatus
	var progress, errMsg string
	if ok {
		st, progress, errMsg = j.status, j.progress, j.errMsg
		if st == JobDone || st == JobError {
			delete(u.jobs, key)
		}
	}
	u.mu.Unlock()

	if !ok {
		snap, err := u.st.GetList(ctx, key)
		if err != nil {
			return StatusResult{}, err
		}
		if snap != nil {
			return StatusResult{Status: JobDone, Snapshot: snap}, nil
		}
		return StatusResult{Status: JobIdle}, nil
	}

	switch st {
	case JobRunning:
		return StatusResult{Status: JobRunning, Progress: progress}, nil
	case JobError:
		return StatusResult{Status: JobError, Error: errMsg}, nil
	default:
		snap, err := u.st.GetList(ctx, key)
		if err != nil {
			return StatusResult{}, err
		}
		return StatusResult{Status: JobDone, Snapshot: snap}, nil
	}
}

// run is the async task body. Per-page failures after page 1 are
// non-fatal: the loop stops and keeps what it has. Page 1 and snapshot
// persistence failures fail the job.
func (u *RefreshUsecase) run(j *refreshJob) {
	ctx := context.Background()

	u.setProgress(j, "fetching page 1")
	html, err := u.fetcher.FetchPage(ctx, j.sourceURL)
	if err != nil {
		u.fail(j, err)
		return
	}

	records := u.parser.ParseListPage(html)
	totalPages := u.parser.ParseTotalPages(html)
	if totalPages > u.maxPages {
		totalPages = u.maxPages
	}
	u.setProgress(j, fmt.Sprintf("fetched page 1/%d, %d films", totalPages, len(records)))

	for page := 2; page <= totalPages; page++ {
		if err := sleepCtx(ctx, u.pageDelay()); err != nil {
			break
		}

		pageHTML, err := u.fetcher.FetchPage(ctx, pageURL(j.sourceURL, page))
		if err != nil {
			u.logger.Printf("refresh_job id=%s key=%s page=%d status=fetch_error err=%v", j.id, j.key, page, err)
			break
		}
		pageRecords := u.parser.ParseListPage(pageHTML)
		if len(pageRecords) == 0 {
			u.logger.Printf("refresh_job id=%s key=%s page=%d status=empty_stop", j.id, j.key, page)
			break
		}
		records = append(records, pageRecords...)
		u.setProgress(j, fmt.Sprintf("fetched page %d/%d, %d films", page, totalPages, len(records)))
	}

	// Scrape order is newest-first; consumers want oldest-first.
	records = film.Dedupe(film.Reverse(records))

	snap := &film.ListSnapshot{
		Key:        j.key,
		SourceURL:  j.sourceURL,
		Films:      records,
		CapturedAt: time.Now().UTC(),
	}
	if err := u.st.SaveList(ctx, j.key, snap); err != nil {
		u.fail(j, fmt.Errorf("persist list: %w", err))
		return
	}

	if u.engine != nil {
		u.enrichAll(ctx, j, snap)
	}

	u.mu.Lock()
	j.status = JobDone
	j.progress = fmt.Sprintf("done, %d films", len(snap.Films))
	u.mu.Unlock()
	u.logger.Printf("refresh_job id=%s key=%s status=done films=%d", j.id, j.key, len(snap.Films))
	ws.NotifyJobProgress(j.key, string(JobDone), j.progress)
}

func (u *RefreshUsecase) enrichAll(ctx context.Context, j *refreshJob, snap *film.ListSnapshot) {
	for i := range snap.Films {
		u.setProgress(j, fmt.Sprintf("enriching %d/%d", i+1, len(snap.Films)))

		data := u.engine.Enrich(ctx, snap.Films[i])
		data.Apply(&snap.Films[i])
		// Marked enriched even on a miss so the next run skips the record.
		snap.Films[i].Enriched = true

		if err := sleepCtx(ctx, u.enrichDelay); err != nil {
			break
		}
	}

	if err := u.st.SaveList(ctx, j.key, snap); err != nil {
		u.logger.Printf("refresh_job id=%s key=%s status=enriched_persist_error err=%v", j.id, j.key, err)
	}
}

func (u *RefreshUsecase) setProgress(j *refreshJob, progress string) {
	u.mu.Lock()
	j.progress = progress
	u.mu.Unlock()
	ws.NotifyJobProgress(j.key, string(JobRunning), progress)
}

func (u *RefreshUsecase) fail(j *refreshJob, err error) {
	u.mu.Lock()
	j.status = JobError
	j.errMsg = err.Error()
	u.mu.Unlock()
	u.logger.Printf("refresh_job id=%s key=%s status=error err=%v", j.id, j.key, err)
	ws.NotifyJobProgress(j.key, string(JobError), err.Error())
}

// pageURL appends the page parameter, respecting an existing query string.
func pageURL(sourceURL string, page int) string {
	if page <= 1 {
		return sourceURL
	}
	sep := "?"
	if strings.Contains(sourceURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", sourceURL, sep, page)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
