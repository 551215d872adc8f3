package cli

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/panelhub/pkg/accounts"
	"github.com/platinummonkey/panelhub/pkg/api"
	"github.com/platinummonkey/panelhub/pkg/auth"
	"github.com/platinummonkey/panelhub/pkg/codes"
	"github.com/platinummonkey/panelhub/pkg/config"
	"github.com/platinummonkey/panelhub/pkg/groups"
	"github.com/platinummonkey/panelhub/pkg/middleware"
	"github.com/platinummonkey/panelhub/pkg/notifications"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/platinummonkey/panelhub/pkg/quests"
	"github.com/platinummonkey/panelhub/pkg/realtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// version is reported by the health endpoints
var version = "dev"

// dbStatsSchedule controls how often pool usage is copied into metrics
const dbStatsSchedule = "@every 30s"

// resources are the external connections the application runs on
type resources struct {
	primary *sql.DB
	replica *sql.DB
	redis   *redis.Client // nil when Redis is not configured
}

// app holds the wired application
type app struct {
	cfg    *config.Config
	logger logrus.FieldLogger

	promRegistry *prometheus.Registry
	metrics      *observability.Metrics
	health       *observability.HealthChecker

	server   *api.Server
	realtime *realtime.Registry

	codeMemory  *codes.MemoryStore       // nil when codes live in Redis
	rateBuckets []*middleware.RateLimiter // in-process limiters that need cleanup

	assigner *quests.Assigner
	accounts *accounts.Service
}

// newApp wires every component on top of res
func newApp(cfg *config.Config, logger logrus.FieldLogger, res resources, telemetry *observability.Telemetry) (*app, error) {
	if res.primary == nil {
		return nil, errors.New("primary database is required")
	}
	if res.replica == nil {
		res.replica = res.primary
	}

	a := &app{cfg: cfg, logger: logger}

	if cfg.Observability.MetricsEnabled {
		a.promRegistry = prometheus.NewRegistry()
		a.metrics = observability.NewMetrics(a.promRegistry)
	}
	a.health = observability.NewHealthChecker(res.primary, res.redis, version)

	// Identity
	verifier := auth.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer)
	identities := auth.NewCachedIdentityStore(
		auth.NewPostgresIdentityStore(res.replica),
		cfg.Auth.IdentityCacheSize,
		cfg.Auth.IdentityCacheTTL,
	)
	resolver := auth.NewResolver(verifier, identities)

	// Realtime
	a.realtime = realtime.NewRegistry(logger.WithField("component", "realtime"), a.metrics)
	gateway := realtime.NewGateway(resolver, a.realtime, cfg.Server.AllowedOrigins, logger.WithField("component", "gateway"), a.metrics)

	// Verification codes
	codeStore, err := a.codeStore(res.redis)
	if err != nil {
		return nil, err
	}

	// Features
	groupStore := groups.NewPostgresStore(res.primary)
	groupHandlers := groups.NewHandlers(
		groupStore,
		groups.NewMiddleware(groupStore, logger.WithField("component", "groups"), a.metrics),
		a.realtime,
		logger.WithField("component", "groups"),
	)

	questService := quests.NewService(res.primary, cfg.Quests.DailyCount)
	tracker := quests.NewTracker(quests.NewAccumulator(res.primary), a.realtime, logger.WithField("component", "quests"), a.metrics)
	a.assigner = quests.NewAssigner(questService, logger.WithField("component", "quests"), cfg.Quests.ActiveWindow)

	notificationService := notifications.NewService(
		notifications.NewPostgresStore(res.primary),
		a.realtime,
		logger.WithField("component", "notifications"),
		a.metrics,
	)

	a.accounts = accounts.NewService(
		accounts.NewPostgresStore(res.primary),
		codeStore,
		accounts.NewLogMailer(logger.WithField("component", "mailer")),
		logger.WithField("component", "accounts"),
	)

	deps := api.Dependencies{
		Resolver:       resolver,
		Accounts:       accounts.NewHandlers(a.accounts, logger.WithField("component", "accounts")),
		Groups:         groupHandlers,
		Quests:         quests.NewHandlers(questService, tracker, logger.WithField("component", "quests")),
		Notifications:  notifications.NewHandlers(notificationService, logger.WithField("component", "notifications")),
		Realtime:       gateway,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         logger,
		Metrics:        a.metrics,
		Telemetry:      telemetry,
	}
	if cfg.RateLimit.Enabled {
		deps.APILimiter = a.limiter(res.redis, "ratelimit:api", &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.Window,
			BurstSize:         cfg.RateLimit.BurstSize,
		})
		deps.CodeLimiter = a.limiter(res.redis, "ratelimit:otp", &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.CodeRequests,
			WindowDuration:    cfg.RateLimit.Window,
		})
	}
	a.server = api.NewServer(deps)

	return a, nil
}

func (a *app) codeStore(client *redis.Client) (codes.Store, error) {
	switch a.cfg.Codes.StoreType {
	case config.CodeStoreRedis:
		if client == nil {
			return nil, errors.New("redis code store requires a redis connection")
		}
		return codes.Instrument(codes.NewRedisStore(client, a.cfg.Codes.TTL, a.cfg.Codes.KeyPrefix), config.CodeStoreRedis, a.metrics), nil
	default:
		a.codeMemory = codes.NewMemoryStore(a.cfg.Codes.TTL)
		return codes.Instrument(a.codeMemory, config.CodeStoreMemory, a.metrics), nil
	}
}

// limiter shares limits through Redis when available and falls back to
// per-instance buckets otherwise.
func (a *app) limiter(client *redis.Client, prefix string, cfg *middleware.RateLimitConfig) middleware.Limiter {
	if client != nil {
		return middleware.NewDistributedRateLimiter(client, cfg, prefix)
	}
	limiter := middleware.NewRateLimiter(cfg)
	a.rateBuckets = append(a.rateBuckets, limiter)
	return limiter
}

type scheduledJob struct {
	name     string
	schedule string
	run      func(context.Context) error
}

// scheduler registers the periodic jobs. The caller starts and stops it.
func (a *app) scheduler() (*cron.Cron, error) {
	logger := cron.PrintfLogger(a.logger.WithField("component", "cron"))
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	jobs := []scheduledJob{
		{"quest assignment", a.cfg.Quests.AssignSchedule, a.assignQuests},
		{"unverified account purge", a.cfg.Accounts.PurgeSchedule, a.purgeUnverified},
		{"database stats", dbStatsSchedule, a.recordDBStats},
	}
	if a.codeMemory != nil {
		jobs = append(jobs, scheduledJob{"expired code purge", a.cfg.Codes.PurgeSchedule, a.purgeCodes})
	}

	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		job := job
		if _, err := c.AddFunc(job.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := job.run(ctx); err != nil {
				a.logger.WithError(err).WithField("job", job.name).Error("scheduled job failed")
			}
		}); err != nil {
			return nil, err
		}
		a.logger.WithFields(logrus.Fields{"job": job.name, "schedule": job.schedule}).Info("scheduled job")
	}

	return c, nil
}

func (a *app) assignQuests(ctx context.Context) error {
	_, err := a.assigner.Run(ctx)
	return err
}

func (a *app) purgeUnverified(ctx context.Context) error {
	removed, err := a.accounts.PurgeUnverified(ctx, a.cfg.Accounts.UnverifiedGrace)
	if err != nil {
		return err
	}
	if removed > 0 {
		a.logger.WithField("removed", removed).Info("purged unverified accounts")
	}
	return nil
}

func (a *app) purgeCodes(context.Context) error {
	if removed := a.codeMemory.Purge(); removed > 0 {
		a.logger.WithField("removed", removed).Debug("purged expired verification codes")
	}
	return nil
}

func (a *app) recordDBStats(context.Context) error {
	a.health.RecordDBStats(a.metrics)
	return nil
}

// healthHandler serves probes and, when enabled, Prometheus metrics
func (a *app) healthHandler() http.Handler {
	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, a.health)
	if a.promRegistry != nil {
		observability.RegisterMetricsEndpoint(mux, a.promRegistry)
	}
	return mux
}
