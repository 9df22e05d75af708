package utils

import (
	"sync"
	"time"
)

// RateDecision результат проверки лимита для одного запроса
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter возвращает, через сколько секунд стоит повторить запрос
func (d RateDecision) RetryAfter(now time.Time) int {
	seconds := int(d.ResetAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// RateLimiter ограничивает число запросов с одного ключа в скользящем окне
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Take учитывает запрос с ключа и сообщает, укладывается ли он в лимит.
// Отклоненный запрос в окне не учитывается.
func (rl *RateLimiter) Take(key string) RateDecision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	hits := rl.inWindow(key, now)

	decision := RateDecision{Limit: rl.limit, ResetAt: now.Add(rl.window)}
	if len(hits) < rl.limit {
		hits = append(hits, now)
		rl.hits[key] = hits
		decision.Allowed = true
	}

	decision.Remaining = rl.limit - len(hits)
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if len(hits) > 0 {
		decision.ResetAt = hits[0].Add(rl.window)
	}
	return decision
}

// inWindow отбрасывает устаревшие отметки. Вызывается под mu.
func (rl *RateLimiter) inWindow(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	hits := rl.hits[key]

	first := 0
	for first < len(hits) && !hits[first].After(cutoff) {
		first++
	}
	if first == len(hits) {
		delete(rl.hits, key)
		return nil
	}
	return hits[first:]
}
