// Package ratelimit builds the request-count stores behind the gateway limiters.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dbaportal/config"

	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

const (
	TierGeneral = "general"
	TierStrict  = "strict"

	defaultKeyPrefix = "ratelimit:"
)

// Stores holds one store per limiter tier.
type Stores struct {
	General middleware.RateLimiterStore
	Strict  middleware.RateLimiterStore
}

// Params holds dependencies for the limiter stores, injected by Fx
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// New selects the in-process or the Redis store according to gateway.rateLimit.store.
func New(params Params) (*Stores, error) {
	gw := params.Config.Gateway
	if gw == nil {
		return nil, errors.New("gateway configuration is required")
	}
	rl := gw.RateLimit

	switch rl.Store {
	case config.RateLimitStoreRedis:
		client, err := newRedisClient(params.Config.Redis)
		if err != nil {
			return nil, err
		}
		params.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return errors.Wrap(client.Ping(ctx).Err(), "ping redis")
			},
			OnStop: func(_ context.Context) error {
				return errors.WithStack(client.Close())
			},
		})

		prefix := params.Config.Redis.KeyPrefix
		if prefix == "" {
			prefix = defaultKeyPrefix
		}
		params.Logger.Info("Using Redis rate-limit store",
			slog.String("addr", params.Config.Redis.Addr),
		)

		return &Stores{
			General: NewRedisStore(client, prefix+TierGeneral+":", rl.Window, rl.Max),
			Strict:  NewRedisStore(client, prefix+TierStrict+":", rl.StrictWindow, rl.StrictMax),
		}, nil

	case config.RateLimitStoreMemory, "":
		return &Stores{
			General: NewMemoryStore(rl.Window, rl.Max),
			Strict:  NewMemoryStore(rl.StrictWindow, rl.StrictMax),
		}, nil

	default:
		return nil, errors.Errorf("unknown rate limit store: %s", rl.Store)
	}
}

// NewMemoryStore counts requests per identifier in fixed windows, the in-process twin of RedisStore.
func NewMemoryStore(window time.Duration, max int) *MemoryStore {
	return &MemoryStore{
		window:  window,
		max:     max,
		now:     time.Now,
		windows: make(map[string]*fixedWindow),
	}
}

// MemoryStore is a fixed-window counter local to one gateway instance.
// The window of an identifier starts at its first request.
type MemoryStore struct {
	mu          sync.Mutex
	window      time.Duration
	max         int
	now         func() time.Time
	windows     map[string]*fixedWindow
	lastCleanup time.Time
}

type fixedWindow struct {
	start time.Time
	count int
}

// Allow implements middleware.RateLimiterStore.
func (s *MemoryStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastCleanup) >= s.window {
		s.cleanup(now)
	}

	w, ok := s.windows[identifier]
	if !ok || now.Sub(w.start) >= s.window {
		w = &fixedWindow{start: now}
		s.windows[identifier] = w
	}
	w.count++

	return w.count <= s.max, nil
}

// cleanup drops windows that have ended. Callers hold mu.
func (s *MemoryStore) cleanup(now time.Time) {
	for id, w := range s.windows {
		if now.Sub(w.start) >= s.window {
			delete(s.windows, id)
		}
	}
	s.lastCleanup = now
}

func newRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, errors.New("redis address is required for the redis rate limit store")
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

// Module provides the rate-limit stores to the gateway
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(New),
)

var (
	_ middleware.RateLimiterStore = (*MemoryStore)(nil)
	_ middleware.RateLimiterStore = (*RedisStore)(nil)
)

type failOpenStore struct {
	store  middleware.RateLimiterStore
	tier   string
	logger *slog.Logger
	warn   *rate.Sometimes
}

// FailOpen admits the request when the wrapped store errors. An unreachable Redis
// degrades limiting instead of rejecting all traffic. The warning is logged at most once per minute.
func FailOpen(store middleware.RateLimiterStore, tier string, logger *slog.Logger) middleware.RateLimiterStore {
	return &failOpenStore{
		store:  store,
		tier:   tier,
		logger: logger,
		warn:   &rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

func (s *failOpenStore) Allow(identifier string) (bool, error) {
	allowed, err := s.store.Allow(identifier)
	if err != nil {
		s.warn.Do(func() {
			s.logger.Warn("Rate limit store unavailable, admitting requests",
				slog.String("tier", s.tier),
				slog.Any("error", err),
			)
		})

		return true, nil
	}

	return allowed, nil
}
