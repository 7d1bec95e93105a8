package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-verify/pkg/bootstrap"
	"github.com/tendant/simple-verify/pkg/config"
	"github.com/tendant/simple-verify/pkg/flows"
	"github.com/tendant/simple-verify/pkg/flows/api"
	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/password"
	"github.com/tendant/simple-verify/pkg/ratelimit"
	"github.com/tendant/simple-verify/pkg/verification"
)

type Config struct {
	Service    config.ServiceConfig
	AppConfig  app.AppConfig
	SeedConfig bootstrap.SeedConfig
	ApiPrefix  string `env:"API_PREFIX" env-default:"/api/verify"`
}

func main() {
	// Create a logger with source enabled
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read config", "error", err)
		os.Exit(1)
	}

	policies, err := cfg.Service.FlowPolicyConfig.ToPolicies()
	if err != nil {
		slog.Error("Invalid flow policies", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	stores, err := bootstrap.OpenStores(ctx, cfg.Service)
	if err != nil {
		slog.Error("Failed to open stores", "persistence", cfg.Service.PersistenceType, "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(cfg.Service.EmailConfig.ToSMTPConfig()),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed initializing notification manager", "error", err)
		os.Exit(1)
	}

	redisClient := openRedis(ctx, cfg.Service.RedisConfig)
	if redisClient != nil {
		defer redisClient.Close()
	}

	serviceOpts := []flows.Option{
		flows.WithPolicies(policies),
		flows.WithMinPasswordLength(cfg.Service.MinPasswordLength),
	}
	if codeCfg := cfg.Service.CodeAttemptConfig; codeCfg.Enabled {
		codeLimiter, _, closeCodeLimiter := newKeyLimiter(redisClient, "verify:code", codeCfg.Attempts, codeCfg.Window, codeCfg.Window)
		defer closeCodeLimiter()
		if codeLimiter != nil {
			serviceOpts = append(serviceOpts, flows.WithCodeAttemptLimiter(codeLimiter))
		}
	}

	hasher := password.NewBcryptHasher(0)
	if _, err := bootstrap.SeedUser(ctx, stores.Directory, hasher, cfg.SeedConfig); err != nil {
		slog.Error("Failed to seed user", "error", err)
		os.Exit(1)
	}

	service, err := flows.NewService(stores.Tokens, stores.Directory, notificationManager, hasher, cfg.Service.BaseUrl, serviceOpts...)
	if err != nil {
		slog.Error("Failed to create flow service", "error", err)
		os.Exit(1)
	}

	if cfg.Service.ReaperConfig.Enabled {
		reaper := verification.NewReaper(stores.Tokens, verification.WithSchedule(cfg.Service.ReaperConfig.Schedule))
		if err := reaper.Start(); err != nil {
			slog.Error("Failed to start token reaper", "error", err)
			os.Exit(1)
		}
		defer reaper.Stop()
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)

	edge := cfg.Service.EdgeLimitConfig
	var edgeLimiter ratelimit.KeyLimiter
	retryAfter := ""
	if edge.Enabled {
		var closeEdgeLimiter func()
		edgeLimiter, retryAfter, closeEdgeLimiter = newKeyLimiter(redisClient, "verify:edge", edge.Requests, edge.Window, edge.BucketTTL)
		defer closeEdgeLimiter()
	}
	var middlewareOpts []ratelimit.MiddlewareOption
	if edge.TrustProxyHeaders {
		middlewareOpts = append(middlewareOpts, ratelimit.WithTrustedProxyHeaders())
	}

	server.R.Group(func(r chi.Router) {
		if edgeLimiter != nil {
			r.Use(ratelimit.NewMiddleware(edgeLimiter, retryAfter, middlewareOpts...).Handler)
		}
		r.Mount(cfg.ApiPrefix, api.NewHandler(service).Routes())
	})

	slog.Info("Verification service starting", "base_url", cfg.Service.BaseUrl, "api_prefix", cfg.ApiPrefix)
	server.Run()
}

// openRedis returns a client when Redis is configured and answers, nil otherwise
func openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	client := redis.NewClient(cfg.ToOptions())
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis unavailable, using in-memory limiters", "addr", cfg.Addr, "error", err)
		client.Close()
		return nil
	}
	slog.Info("Limiters using redis", "addr", cfg.Addr)
	return client
}

// newKeyLimiter picks the Redis sliding window when client is set and the
// in-memory token bucket otherwise. It returns nil when the settings are
// unusable, along with the Retry-After value in seconds and a closer.
func newKeyLimiter(client *redis.Client, prefix string, requests int, rawWindow, rawBucketTTL string) (ratelimit.KeyLimiter, string, func()) {
	noop := func() {}
	window, err := config.ParseDuration(rawWindow)
	if err != nil || window <= 0 || requests <= 0 {
		slog.Warn("Invalid limiter settings, limiter disabled", "prefix", prefix, "window", rawWindow, "requests", requests, "error", err)
		return nil, "", noop
	}
	retryAfter := strconv.Itoa(int(window / time.Second))

	if client != nil {
		slog.Info("Rate limiter in redis", "prefix", prefix, "requests", requests, "window", window)
		return ratelimit.NewRedisLimiter(client, prefix, requests, window), retryAfter, noop
	}

	bucketTTL, err := config.ParseDuration(rawBucketTTL)
	if err != nil {
		bucketTTL = time.Hour
	}
	limiter := ratelimit.NewRateLimiter(requests, float64(requests)/window.Seconds(), bucketTTL)
	slog.Info("Rate limiter in memory", "prefix", prefix, "requests", requests, "window", window)
	return limiter, retryAfter, limiter.Close
}
