package logging

import "sync"

// ProgressSampler thins per-tick scan progress down to one line per bucket
// crossing. The station ticks at frame rate, so logging every tick would bury
// everything else.
type ProgressSampler struct {
	mu         sync.Mutex
	buckets    int
	lastKey    string
	lastBucket int
}

// NewProgressSampler emits whenever progress enters a new 1/buckets slice.
// buckets <= 0 defaults to 4 (every 25%).
func NewProgressSampler(buckets int) *ProgressSampler {
	if buckets <= 0 {
		buckets = 4
	}
	return &ProgressSampler{buckets: buckets, lastBucket: -1}
}

// ShouldLog reports whether progress (0..1) for the scan identified by key is
// worth a log line. A new key restarts bucketing.
func (s *ProgressSampler) ShouldLog(key string, progress float64) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if key != s.lastKey {
		s.lastKey = key
		s.lastBucket = -1
	}
	if progress < 0 {
		progress = 0
	}
	bucket := int(progress * float64(s.buckets))
	if bucket > s.buckets {
		bucket = s.buckets
	}
	if bucket <= s.lastBucket {
		return false
	}
	s.lastBucket = bucket
	return true
}

// Reset forgets the current scan.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.lastKey = ""
	s.lastBucket = -1
	s.mu.Unlock()
}
