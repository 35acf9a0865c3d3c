package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cinelist/internal/domain/film"
	"cinelist/internal/store"
)

// ErrInvalidInput marks a missing or malformed list URL, or one pointing
// somewhere other than the configured source site.
var ErrInvalidInput = errors.New("invalid input")

// ListUsecase serves cached list reads. Reads never block on scraping:
// the answer is cached-or-empty, immediately.
type ListUsecase struct {
	st         store.Store
	sourceHost string
}

func NewListUsecase(st store.Store, sourceBaseURL string) *ListUsecase {
	host := ""
	if u, err := url.Parse(strings.TrimSpace(sourceBaseURL)); err == nil {
		host = u.Host
	}
	return &ListUsecase{st: st, sourceHost: host}
}

// ValidateSourceURL checks that raw is a well-formed absolute URL on the
// source site and returns it normalized.
func (u *ListUsecase) ValidateSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: missing url parameter", ErrInvalidInput)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: malformed url", ErrInvalidInput)
	}
	if u.sourceHost != "" && !strings.EqualFold(parsed.Host, u.sourceHost) {
		return "", fmt.Errorf("%w: url is not on the source site", ErrInvalidInput)
	}
	return parsed.String(), nil
}

// ListView is one list read: the snapshot (possibly empty) plus the marks
// overlay.
type ListView struct {
	Key      string
	Snapshot *film.ListSnapshot
	Marks    []string
}

func (u *ListUsecase) Get(ctx context.Context, sourceURL string) (ListView, error) {
	normalized, err := u.ValidateSourceURL(sourceURL)
	if err != nil {
		return ListView{}, err
	}
	key := store.ListKey(normalized)

	snap, err := u.st.GetList(ctx, key)
	if err != nil {
		return ListView{}, err
	}
	if snap == nil {
		snap = &film.ListSnapshot{Key: key, SourceURL: normalized, Films: []film.Record{}}
	}

	marks, err := u.st.GetMarks(ctx, key)
	if err != nil {
		return ListView{}, err
	}

	return ListView{Key: key, Snapshot: snap, Marks: marks}, nil
}
