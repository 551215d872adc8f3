// Package observability provides structured logging, Prometheus metrics, health
// checks, graceful shutdown, and optional OpenTelemetry export.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", 42).Info("realtime connection joined")
//
// Packages that take a logrus.FieldLogger receive logger.Entry().
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	metrics.AuthDecision("mandatory", "rejected")
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// Recording methods accept a nil *Metrics so components can be built without metrics in tests.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # Shutdown
//
//	sm := observability.NewShutdownManager(logger, 30*time.Second)
//	sm.Register("http", server.Shutdown)
//	sm.Register("realtime", gateway.Shutdown)
//	sm.WaitForShutdown(ctx)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
