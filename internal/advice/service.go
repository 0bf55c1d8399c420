package advice

import (
	"context"
	"errors"
	"sync"
	"time"

	"balansim/internal/cache"
	"balansim/internal/core"
	"balansim/internal/log"
	"balansim/internal/metrics"
)

// Result is the advice currently on display.
type Result struct {
	Text      string    `json:"text"`
	Pending   bool      `json:"pending"`
	Fallback  bool      `json:"fallback"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Service debounces advice requests and keeps only the newest outcome. A
// schedule supersedes any pending or in-flight request; the older result is
// dropped even if it arrives later.
type Service struct {
	advisor  Advisor
	debounce time.Duration
	cache    *cache.LRUCache[string]
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	cancel   context.CancelFunc
	current  Result
	inflight sync.WaitGroup
	closed   bool
}

func NewService(advisor Advisor, debounce time.Duration, c *cache.LRUCache[string], logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	if c == nil {
		c = cache.NewLRUCache[string](64, time.Hour)
	}
	return &Service{
		advisor:  advisor,
		debounce: debounce,
		cache:    c,
		logger:   logger.WithComponent(log.ComponentAdvice),
		now:      time.Now,
		current:  Result{Text: PendingAdvice, Pending: true},
	}
}

// Current returns the latest settled advice, or PendingAdvice before the first one.
func (s *Service) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnLedgerChange schedules advice for a new document. It has the shape the
// ledger service expects from subscribers.
func (s *Service) OnLedgerChange(l core.Ledger) {
	s.Schedule(Summarize(l))
}

// Schedule requests advice for sum after the debounce delay.
func (s *Service) Schedule(sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.gen++
	gen := s.gen
	s.stopLocked()

	if text, ok := s.cache.Get(sum.Key()); ok {
		s.current = Result{Text: text, UpdatedAt: s.now()}
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeCached).Inc()
		return
	}

	s.current.Pending = true
	s.inflight.Add(1)
	s.timer = time.AfterFunc(s.debounce, func() {
		defer s.inflight.Done()
		s.run(gen, sum)
	})
}

func (s *Service) stopLocked() {
	if s.timer != nil && s.timer.Stop() {
		// The callback never ran, so release its slot here.
		s.inflight.Done()
	}
	s.timer = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Service) run(gen uint64, sum Summary) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeSuperseded).Inc()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()

	text, fallback := s.fetch(ctx, sum)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeSuperseded).Inc()
		s.logger.Debug("Discarding superseded advice", "generation", gen)
		return
	}
	s.cancel = nil
	s.current = Result{Text: text, Fallback: fallback, UpdatedAt: s.now()}
	if !fallback {
		s.cache.Set(sum.Key(), text)
	}
}

// Advise fetches advice immediately, bypassing the debounce. It uses and
// fills the cache and never returns an error: failures yield a fallback text.
func (s *Service) Advise(ctx context.Context, sum Summary) Result {
	if text, ok := s.cache.Get(sum.Key()); ok {
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeCached).Inc()
		return Result{Text: text, UpdatedAt: s.now()}
	}
	text, fallback := s.fetch(ctx, sum)
	if !fallback {
		s.cache.Set(sum.Key(), text)
	}
	return Result{Text: text, Fallback: fallback, UpdatedAt: s.now()}
}

func (s *Service) fetch(ctx context.Context, sum Summary) (string, bool) {
	start := time.Now()
	text, err := s.advisor.Advise(ctx, sum)
	metrics.AdviceLatency.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, context.Canceled):
		return UnavailableAdvice, true
	case err != nil:
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeFallback).Inc()
		s.logger.Warn("Advice request failed", log.NewFields().
			WithOperation(log.OpAdvice).
			WithError(err).
			ToSlice()...)
		return UnavailableAdvice, true
	case text == "":
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeOK).Inc()
		return DefaultAdvice, false
	default:
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeOK).Inc()
		return text, false
	}
}

// Close cancels pending work and waits for running callbacks to return.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	s.stopLocked()
	s.mu.Unlock()
	s.inflight.Wait()
}
