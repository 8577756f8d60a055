// Package ratelimit wraps ulule/limiter behind the check-and-increment
// contract the verification pipeline expects. Counters are process-wide
// (or cluster-wide with the redis store) and safe under concurrent
// increments from multiple in-flight verification waves.
package ratelimit

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ntsowef/eff-membership-system-sub020/pkg/configuration"
)

type Result struct {
	Allowed   bool
	Remaining int64
}

// Limiter tracks a rolling count per key against a configured ceiling.
// IncrementAndCheck consumes one unit and reports whether the caller may
// proceed.
type Limiter interface {
	IncrementAndCheck(ctx context.Context, key string) (Result, error)
}

type ululeLimiter struct {
	inner *limiter.Limiter
}

func (l *ululeLimiter) IncrementAndCheck(ctx context.Context, key string) (Result, error) {
	lctx, err := l.inner.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{Allowed: !lctx.Reached, Remaining: lctx.Remaining}, nil
}

// NewMemory returns a limiter backed by an in-process store.
func NewMemory(rate limiter.Rate) Limiter {
	return &ululeLimiter{inner: limiter.New(memorystore.NewStore(), rate)}
}

// NewRedis returns a limiter whose counters are shared across processes.
func NewRedis(client *goredis.Client, rate limiter.Rate) (Limiter, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "eff:bulkupload:ratelimit",
	})
	if err != nil {
		return nil, err
	}
	return &ululeLimiter{inner: limiter.New(store, rate)}, nil
}

// NewFromConfig builds the limiter described by RateLimitOptions. A disabled
// configuration yields a limiter that always allows.
func NewFromConfig(opts configuration.RateLimitOptions) (Limiter, error) {
	if !opts.Enabled {
		return Unlimited(), nil
	}
	rate := limiter.Rate{Period: opts.Window, Limit: opts.Limit}
	if opts.Storage == "redis" {
		redisOpts, err := goredis.ParseURL(opts.RedisURL)
		if err != nil {
			redisOpts = &goredis.Options{Addr: opts.RedisURL}
		}
		return NewRedis(goredis.NewClient(redisOpts), rate)
	}
	return NewMemory(rate), nil
}

type unlimited struct{}

func (unlimited) IncrementAndCheck(context.Context, string) (Result, error) {
	return Result{Allowed: true, Remaining: -1}, nil
}

func Unlimited() Limiter {
	return unlimited{}
}
