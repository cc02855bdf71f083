package isosurface

import (
	"context"
	"errors"
	"sync"

	"neurovol-viewer/internal/mathutil"
	"neurovol-viewer/internal/mesh"
	"neurovol-viewer/internal/nifti"
)

// ErrSuperseded reports that a newer request canceled this extraction pass.
var ErrSuperseded = errors.New("isosurface: extraction superseded by newer request")

// Scheduler applies a last-request-wins policy to extraction passes over
// one surface slot: submitting a request cancels whatever pass is in
// flight instead of queueing behind it. The zero value is ready to use.
type Scheduler struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Extract runs one pass under the last-request-wins policy. It returns
// ErrSuperseded when another Extract preempted this one, and ctx.Err()
// when the caller's own context was canceled.
func (s *Scheduler) Extract(ctx context.Context, vol *nifti.Volume, frame mathutil.Frame, req Request, progress Progress) (*mesh.TriangleMesh, error) {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	m, err := Extract(runCtx, vol, frame, req, progress)

	s.mu.Lock()
	if s.gen == gen {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel()

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	return m, nil
}

// Cancel aborts any in-flight pass without starting a new one.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
