package testutil

import (
	"context"
	"sync"

	"github.com/specialistvlad/xzbuild/internal/executor"
)

// RecordingExecutor records requests instead of running a build tool.
// Projects named in Fail return FailErr.
type RecordingExecutor struct {
	Fail    map[string]bool
	FailErr error

	mu       sync.Mutex
	requests []executor.Request
}

// Execute implements executor.Executor.
func (r *RecordingExecutor) Execute(_ context.Context, req executor.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.Fail[req.Project] {
		return r.FailErr
	}
	return nil
}

// Requests returns the recorded requests in call order.
func (r *RecordingExecutor) Requests() []executor.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]executor.Request(nil), r.requests...)
}

// Projects returns the project names in call order.
func (r *RecordingExecutor) Projects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.requests))
	for i, req := range r.requests {
		out[i] = req.Project
	}
	return out
}
