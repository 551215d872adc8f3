// Package api assembles the panelhub HTTP surface.
//
// NewServer mounts every feature's routes on one gorilla/mux router and
// decides which gate protects them:
//
//	/auth/register, /auth/resend-otp, /auth/verify-otp   public, code rate limit
//	/auth/session                                        optional auth
//	/ws                                                  realtime handshake (authenticates itself)
//	/groups/..., /translator/..., /quests/..., /notifications/...   mandatory auth
//	/admin/...                                           mandatory auth + admin role
//
// Cross-cutting middleware (request ids, panic recovery, access logs, CORS,
// body limits, Prometheus and OpenTelemetry instrumentation) wraps the whole
// router, so feature packages only register their own handlers.
package api
