package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

type JobProgressEvent struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Status    string `json:"status"`
	Progress  string `json:"progress,omitempty"`
	Timestamp string `json:"timestamp"`
}

var defaultHub atomic.Pointer[Hub]

func SetDefaultHub(h *Hub) {
	defaultHub.Store(h)
}

// NotifyJobProgress broadcasts a refresh job state change. Safe to call
// before any hub exists.
func NotifyJobProgress(key, status, progress string) {
	h := defaultHub.Load()
	if h == nil {
		return
	}
	if key == "" {
		return
	}

	evt := JobProgressEvent{
		Type:      "job_progress",
		Key:       key,
		Status:    status,
		Progress:  progress,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.Broadcast(b)
}
