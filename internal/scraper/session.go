// Package scraper fetches and parses the upstream list site.
package scraper

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

const sessionMaxAge = time.Hour

// Session obtains a short-lived cookie from the site landing page and hands
// out per-request browser identities. A missing session is never fatal:
// requests simply go out without the cookie.
type Session struct {
	client  *http.Client
	baseURL string
	logger  *log.Logger

	mu        sync.Mutex
	cookie    string
	fetchedAt time.Time

	rnd        *rand.Rand
	identities []string
}

// Identity pool kept short but varied; rotating it per request reduces
// fingerprinting correlation across the paginated fetch.
var browserIdentities = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

func NewSession(baseURL string, client *http.Client, logger *log.Logger) *Session {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		client:     client,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:     logger,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		identities: browserIdentities,
	}
}

// PickIdentity returns one random entry from the identity pool.
func (s *Session) PickIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identities[s.rnd.Intn(len(s.identities))]
}

// Cookie returns the cached session cookie, empty when none is held.
func (s *Session) Cookie() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookie
}

// Invalidate drops the cached cookie so the next EnsureSession fetches a
// fresh one. Used before 403/503 retries, which usually indicate a flagged
// session.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.cookie = ""
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// EnsureSession refreshes the cookie by visiting the landing page when the
// cached one is absent or older than an hour. Network failures are
// swallowed.
func (s *Session) EnsureSession(ctx context.Context) {
	s.mu.Lock()
	fresh := s.cookie != "" && time.Since(s.fetchedAt) < sessionMaxAge
	s.mu.Unlock()
	if fresh || s.baseURL == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/", nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", s.PickIdentity())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Printf("session refresh status=error err=%v", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	pairs := make([]string, 0, 4)
	for _, c := range resp.Cookies() {
		if c.Name == "" {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	if len(pairs) == 0 {
		return
	}

	s.mu.Lock()
	s.cookie = strings.Join(pairs, "; ")
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	s.logger.Printf("session refresh status=ok cookies=%d", len(pairs))
}
