package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/livepoll/internal/adapter/httpserver"
	"github.com/pscheid92/livepoll/internal/adapter/memory"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/adapter/postgres"
	"github.com/pscheid92/livepoll/internal/adapter/redis"
	"github.com/pscheid92/livepoll/internal/adapter/websocket"
	"github.com/pscheid92/livepoll/internal/app"
	"github.com/pscheid92/livepoll/internal/domain"
	"github.com/pscheid92/livepoll/internal/platform/config"
	"github.com/pscheid92/livepoll/internal/platform/logging"
	"github.com/pscheid92/livepoll/internal/platform/retry"
	"github.com/pscheid92/livepoll/internal/platform/version"
)

const (
	startupTimeout         = 60 * time.Second
	subscriberReadyTimeout = 10 * time.Second
)

type repositories struct {
	sessions  domain.SessionRepository
	questions domain.QuestionRepository
	votes     domain.VoteRepository
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(ctx context.Context, cfg *config.Config, dbMetrics *metrics.DBMetrics) *pgxpool.Pool {
	policy := retry.StartupPolicy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Database not reachable yet, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	pool, err := retry.Do(ctx, policy, retry.RetryUnlessCancelled, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, dbMetrics)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, redisMetrics *metrics.RedisMetrics) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL, redisMetrics)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// startVoteEventSubscriber forwards accepted votes published by any instance
// to the local notifier and blocks until the subscription is live.
func startVoteEventSubscriber(ctx context.Context, rdb *goredis.Client, notifier *app.Notifier) {
	ready := make(chan struct{})
	go redis.NewVoteEventSubscriber(rdb, notifier).Start(ctx, ready)

	select {
	case <-ready:
	case <-time.After(subscriberReadyTimeout):
		slog.Error("Vote event subscription did not become ready")
		os.Exit(1)
	}
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, node *centrifuge.Node, feed *app.TallyFeed, notifier *app.Notifier, stopBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := node.Shutdown(shutdownCtx); err != nil {
			slog.Error("Centrifuge shutdown error", "error", err)
		}

		stopBackground()
		feed.Close()
		notifier.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	voteMetrics := metrics.NewVoteMetrics(reg)
	rateLimitMetrics := metrics.NewRateLimitMetrics(reg)
	liveMetrics := metrics.NewLiveMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStartup()

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var healthChecks []httpserver.HealthCheck

	var repos repositories
	if cfg.DatabaseURL != "" {
		pool := setupDB(startupCtx, cfg, metrics.NewDBMetrics(reg))
		defer pool.Close()

		repos = repositories{
			sessions:  postgres.NewSessionRepo(pool),
			questions: postgres.NewQuestionRepo(pool),
			votes:     postgres.NewVoteRepo(pool),
		}
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	} else {
		slog.Warn("DATABASE_URL not set, votes are kept in memory only")
		store := memory.NewStore(clock)
		repos = repositories{
			sessions:  store.Sessions(),
			questions: store.Questions(),
			votes:     store.Votes(),
		}
	}

	notifier := app.NewNotifier(clock, cfg.LiveUpdateQuietPeriod, liveMetrics)

	var (
		limiter domain.RateLimiter
		events  domain.VoteEventPublisher
	)
	if cfg.RedisURL != "" {
		rdb := setupRedis(startupCtx, cfg, metrics.NewRedisMetrics(reg))
		defer func() { _ = rdb.Close() }()

		limiter = redis.NewRateLimiter(rdb, cfg.RateLimitPolicy())
		events = redis.NewVoteEvents(rdb)
		startVoteEventSubscriber(backgroundCtx, rdb, notifier)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	} else {
		slog.Warn("REDIS_URL not set, rate limits and live updates are local to this instance")
		limiter = memory.NewRateLimiter(cfg.RateLimitPolicy(),
			memory.WithSweepProbability(cfg.RateLimitSweepProbability),
			memory.WithMetrics(rateLimitMetrics))
		events = notifier
	}

	tally := app.NewTally(repos.votes, clock, liveMetrics)
	ingestion := app.NewIngestion(repos.questions, repos.votes, events, clock, voteMetrics)
	presenter := app.NewPresenter(repos.sessions, repos.questions, tally, events)

	node, err := websocket.NewNode(cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create centrifuge node", "error", err)
		os.Exit(1)
	}
	feed := app.NewTallyFeed(presenter, notifier, websocket.NewPublisher(node, wsMetrics))
	websocket.ServeTallies(node, feed, wsMetrics)
	if err := node.Run(); err != nil {
		slog.Error("Failed to run centrifuge node", "error", err)
		os.Exit(1)
	}

	wsHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()),
	})

	srv := httpserver.NewServer(cfg, clock, ingestion, presenter, limiter,
		httpserver.WithWebsocketHandler(wsHandler),
		httpserver.WithMetrics(metrics.Handler(reg), httpMetrics, rateLimitMetrics),
		httpserver.WithHealthChecks(healthChecks...),
	)

	cancelStartup()
	done := runGracefulShutdown(cfg, srv, node, feed, notifier, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
