package kalman

import "sync"

// SyncFilter serializes access to a Filter shared between goroutines.
type SyncFilter struct {
	mu sync.Mutex
	f  *Filter
}

// NewSyncFilter wraps f. Callers must not use f directly afterwards.
func NewSyncFilter(f *Filter) *SyncFilter {
	return &SyncFilter{f: f}
}

func (s *SyncFilter) Predict() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Predict()
}

func (s *SyncFilter) Update(z Position) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Update(z)
}

// Step runs Predict followed by Update as one atomic step.
func (s *SyncFilter) Step(z Position) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.f.Predict()
	return s.f.Update(z)
}

// State returns a copy of the wrapped filter's state vector.
func (s *SyncFilter) State() [dimX]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.State()
}

// Covariance returns a copy of the wrapped filter's covariance.
func (s *SyncFilter) Covariance() [dimX][dimX]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Covariance()
}

var (
	_ Estimator = (*Filter)(nil)
	_ Estimator = (*SyncFilter)(nil)
)
