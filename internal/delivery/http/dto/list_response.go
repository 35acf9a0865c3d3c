package dto

import "cinelist/internal/domain/film"

type ListResponse struct {
	Key        string        `json:"key"`
	SourceURL  string        `json:"source_url"`
	Films      []film.Record `json:"films"`
	Marks      []string      `json:"marks"`
	CapturedAt string        `json:"captured_at,omitempty"`
}

type RefreshResponse struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

type JobStatusResponse struct {
	Status   string        `json:"status"`
	Progress string        `json:"progress,omitempty"`
	Error    string        `json:"error,omitempty"`
	Films    []film.Record `json:"films,omitempty"`
}

type MarksRequest struct {
	IDs []string `json:"ids"`
}

type MarksResponse struct {
	IDs []string `json:"ids"`
}
