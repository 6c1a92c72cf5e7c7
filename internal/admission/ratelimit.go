package admission

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitError carries which bucket rejected the request, so callers
// can distinguish user/ip/target exhaustion from a concurrency cap.
type RateLimitError struct {
	Bucket string
	Key    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s (%s)", e.Bucket, e.Key)
}

type window struct {
	count      int
	windowSize time.Duration
	resetsAt   time.Time
	lastTouch  time.Time
}

// RateLimitService enforces three independent sliding-window buckets
// keyed by user, client IP, and target domain (spec.md §4.5).
type RateLimitService struct {
	mu      sync.Mutex
	windows map[string]*window

	userPerMinute int
	ipPerHour     int
	targetPerHour int

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// NewRateLimitService builds the service with the configured per-bucket
// limits and starts its stale-bucket sweep.
func NewRateLimitService(userPerMinute, ipPerHour, targetPerHour int) *RateLimitService {
	s := &RateLimitService{
		windows:       make(map[string]*window),
		userPerMinute: userPerMinute,
		ipPerHour:     ipPerHour,
		targetPerHour: targetPerHour,
		stopSweep:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// TryAcquire checks and increments all three buckets for a request. It
// returns the first bucket that rejects, if any; a reject on a later
// bucket still leaves earlier buckets incremented (each bucket tracks
// its own independent traffic regardless of whether the overall request
// is ultimately admitted).
func (s *RateLimitService) TryAcquire(userID, clientIP, targetDomain string) error {
	if err := s.tryAcquireBucket("user", "user:"+userID, s.userPerMinute, time.Minute); err != nil {
		return err
	}
	if err := s.tryAcquireBucket("ip", "ip:"+clientIP, s.ipPerHour, time.Hour); err != nil {
		return err
	}
	if err := s.tryAcquireBucket("target", "target:"+targetDomain, s.targetPerHour, time.Hour); err != nil {
		return err
	}
	return nil
}

func (s *RateLimitService) tryAcquireBucket(bucketName, key string, limit int, windowSize time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetsAt) {
		w = &window{windowSize: windowSize, resetsAt: now.Add(windowSize)}
		s.windows[key] = w
	}
	w.lastTouch = now

	if w.count >= limit {
		return &RateLimitError{Bucket: bucketName, Key: key}
	}
	w.count++
	return nil
}

// Stop halts the stale-bucket sweep goroutine.
func (s *RateLimitService) Stop() {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
}

func (s *RateLimitService) sweepLoop() {
	ticker := time.NewTicker(staleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepStale()
		case <-s.stopSweep:
			return
		}
	}
}

// sweepStale drops buckets untouched for at least 2x their window size.
func (s *RateLimitService) sweepStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for key, w := range s.windows {
		if now.Sub(w.lastTouch) >= 2*w.windowSize {
			delete(s.windows, key)
		}
	}
}
