package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrRateLimited reports that the backoff ceiling for HTTP 429 was
	// exhausted. The message is user-facing: the only remedy is waiting.
	ErrRateLimited = errors.New("upstream rate limit exceeded, wait a few minutes and retry")

	ErrForbidden        = errors.New("upstream refused the request (403)")
	ErrUnavailable      = errors.New("upstream temporarily unavailable (503)")
	ErrEmptyResponse    = errors.New("upstream returned an empty page")
	ErrChallengeBlocked = errors.New("upstream served a bot challenge page")
)

// HTTPStatusError reports a non-2xx status outside the retried set.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Markers of JS-challenge interstitials. Matched case-insensitively against
// the body regardless of status code.
var challengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"ddos-guard",
	"cf-chl",
	"jschl",
	"verify you are human",
	"attention required",
}

const minBodyLength = 200

// HeadlessFetcher is the optional challenge fallback.
type HeadlessFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Fetcher performs resilient GETs against the list site. Rate-limit and
// availability errors are retried with backoff before being surfaced; the
// upstream treats aggressive clients harshly, so single-shot fetching is
// not an option.
type Fetcher struct {
	client   *http.Client
	session  *Session
	headless HeadlessFetcher
	rnd      *rand.Rand

	// Retry knobs, overridable in tests.
	maxRateRetries  int
	maxAvailRetries int
	backoffBase     time.Duration
	availPause      time.Duration
}

func NewFetcher(session *Session, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Fetcher{
		client:          client,
		session:         session,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
		maxRateRetries:  4,
		maxAvailRetries: 2,
		backoffBase:     4 * time.Second,
		availPause:      8 * time.Second,
	}
}

// SetHeadlessFallback enables one headless-browser attempt after a
// challenge-blocked response.
func (f *Fetcher) SetHeadlessFallback(h HeadlessFetcher) {
	f.headless = h
}

// FetchPage GETs url and returns the page HTML. The 429 ceiling counts
// consecutive 429s only; any other status resets it.
func (f *Fetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if f.session != nil {
		f.session.EnsureSession(ctx)
	}

	rateRetries := 0
	availRetries := 0
	for {
		status, body, err := f.get(ctx, url)
		if err != nil {
			return "", err
		}

		switch {
		case status == http.StatusTooManyRequests:
			rateRetries++
			if rateRetries > f.maxRateRetries {
				return "", ErrRateLimited
			}
			delay := f.backoffBase << (rateRetries - 1)
			if err := f.sleep(ctx, f.jitter(delay)); err != nil {
				return "", err
			}
			continue

		case status == http.StatusForbidden || status == http.StatusServiceUnavailable:
			rateRetries = 0
			availRetries++
			if availRetries > f.maxAvailRetries {
				if status == http.StatusForbidden {
					return "", ErrForbidden
				}
				return "", ErrUnavailable
			}
			// A new session with a new identity often clears these.
			if f.session != nil {
				f.session.Invalidate()
				f.session.EnsureSession(ctx)
			}
			if err := f.sleep(ctx, f.jitter(f.availPause)); err != nil {
				return "", err
			}
			continue

		case status < 200 || status >= 300:
			return "", &HTTPStatusError{URL: url, StatusCode: status}
		}

		if isChallenge(body) {
			if f.headless != nil {
				if html, herr := f.headless.Fetch(ctx, url); herr == nil && !isChallenge(html) && len(html) >= minBodyLength {
					return html, nil
				}
			}
			return "", ErrChallengeBlocked
		}
		if len(body) < minBodyLength {
			return "", ErrEmptyResponse
		}
		return body, nil
	}
}

func (f *Fetcher) get(ctx context.Context, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if f.session != nil {
		req.Header.Set("User-Agent", f.session.PickIdentity())
		if base := f.session.baseURL; base != "" {
			req.Header.Set("Referer", base+"/")
		}
		if cookie := f.session.Cookie(); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}

func (f *Fetcher) jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	// ± up to a quarter of the delay.
	q := int64(d / 4)
	if q <= 0 {
		return d
	}
	return d - time.Duration(q/2) + time.Duration(f.rnd.Int63n(q))
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
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

func isChallenge(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
