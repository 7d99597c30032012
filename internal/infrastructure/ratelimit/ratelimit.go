// Package ratelimit implements sliding-window request limits shared through
// Redis, with a per-process fallback when Redis is absent or failing.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/logger"
)

const (
	keyPrefix    = "ratelimit"
	redisTimeout = 500 * time.Millisecond
)

// Policy is a named request budget over a sliding window.
type Policy struct {
	Name     string
	Requests int
	Window   time.Duration
}

// StrictPolicy guards credential and invitation endpoints.
func StrictPolicy(cfg config.SecurityConfig) Policy {
	return Policy{Name: "strict", Requests: cfg.StrictLimit.Requests, Window: cfg.StrictLimit.Window}
}

// ModeratePolicy applies to every API request.
func ModeratePolicy(cfg config.SecurityConfig) Policy {
	return Policy{Name: "moderate", Requests: cfg.ModerateLimit.Requests, Window: cfg.ModerateLimit.Window}
}

// Limiter decides whether a request may proceed. It never fails closed.
type Limiter struct {
	redis  *redis.Client
	logger *logger.Logger
	denied *prometheus.CounterVec
	now    func() time.Time

	mu       sync.Mutex
	local    map[string]*rate.Limiter
	localCap int
}

// New creates a limiter. client may be nil, in which case only the local
// fallback is used. reg may be nil to skip metric registration.
func New(client *redis.Client, localCap int, log *logger.Logger, reg prometheus.Registerer) *Limiter {
	denied := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_denied_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"policy", "backend"},
	)
	if reg != nil {
		reg.MustRegister(denied)
	}

	return &Limiter{
		redis:    client,
		logger:   log.WithComponent("ratelimit"),
		denied:   denied,
		now:      time.Now,
		local:    make(map[string]*rate.Limiter),
		localCap: localCap,
	}
}

// Allow records a request for identifier and reports whether it fits the policy.
func (l *Limiter) Allow(ctx context.Context, p Policy, identifier string) bool {
	key := fmt.Sprintf("%s:%s:%s", keyPrefix, p.Name, identifier)

	if l.redis != nil {
		allowed, err := l.allowRedis(ctx, p, key)
		if err == nil {
			if !allowed {
				l.denied.WithLabelValues(p.Name, "redis").Inc()
			}
			return allowed
		}
		l.logger.Warnw("Redis rate limiter unavailable, using local fallback", "error", err, "policy", p.Name)
	}

	allowed := l.allowLocal(p, key)
	if !allowed {
		l.denied.WithLabelValues(p.Name, "local").Inc()
	}
	return allowed
}

// allowRedis keeps one sorted set per key with a member per admitted request,
// scored by its arrival time in milliseconds.
func (l *Limiter) allowRedis(ctx context.Context, p Policy, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	now := l.now()
	nowMS := now.UnixMilli()
	windowStart := nowMS - p.Window.Milliseconds()
	member := strconv.FormatInt(nowMS, 10) + "-" + uuid.NewString()

	var card *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMS), Member: member})
		card = pipe.ZCard(ctx, key)
		pipe.PExpire(ctx, key, p.Window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit pipeline: %w", err)
	}

	if card.Val() <= int64(p.Requests) {
		return true, nil
	}

	// Denied requests do not consume budget.
	if err := l.redis.ZRem(ctx, key, member).Err(); err != nil {
		l.logger.Warnw("Failed to release denied rate limit slot", "error", err, "key", key)
	}
	return false, nil
}

func (l *Limiter) allowLocal(p Policy, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.local[key]
	if !ok {
		if l.localCap > 0 && len(l.local) >= l.localCap {
			l.local = make(map[string]*rate.Limiter)
		}
		every := p.Window / time.Duration(p.Requests)
		lim = rate.NewLimiter(rate.Every(every), p.Requests)
		l.local[key] = lim
	}
	return lim.AllowN(l.now(), 1)
}

// localSize reports how many identifiers the fallback tracks.
func (l *Limiter) localSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.local)
}
