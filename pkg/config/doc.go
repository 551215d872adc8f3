// Package config loads and validates application configuration.
//
// Values are resolved in three layers: built-in defaults, then the optional
// YAML file named by PANELHUB_CONFIG_FILE, then PANELHUB_* environment
// variables. A later layer overrides an earlier one key by key.
//
// Server settings:
//
//	PANELHUB_HOST="0.0.0.0"
//	PANELHUB_PORT="8080"
//	PANELHUB_HEALTH_PORT="9090"
//	PANELHUB_ALLOWED_ORIGINS="https://panelhub.example,https://admin.panelhub.example"
//
// Auth settings:
//
//	PANELHUB_JWT_SECRET="..."        # required, at least 16 bytes
//	PANELHUB_JWT_ISSUER=""           # optional issuer check
//	PANELHUB_IDENTITY_CACHE_TTL="30s"
//
// Storage settings:
//
//	PANELHUB_POSTGRES_URL="postgres://localhost/panelhub"   # required
//	PANELHUB_POSTGRES_REPLICA_URLS="postgres://replica/panelhub"
//	PANELHUB_REDIS_URL="redis://localhost:6379/0"
//
// Verification codes and schedules:
//
//	PANELHUB_CODE_STORE="memory"     # memory or redis
//	PANELHUB_CODE_TTL="5m"
//	PANELHUB_QUESTS_ASSIGN_SCHEDULE="5 0 * * *"
//	PANELHUB_UNVERIFIED_PURGE_SCHEDULE="@every 1m"
//
// Observability settings:
//
//	PANELHUB_LOG_LEVEL="info"  # debug, info, warn, error
//	PANELHUB_METRICS_ENABLED="true"
//	PANELHUB_OTEL_ENABLED="true"
//	PANELHUB_OTEL_ENDPOINT="otel-collector:4317"
//
// The same keys in YAML use the struct tags on Config:
//
//	server:
//	  port: "8080"
//	auth:
//	  jwt_secret: "..."
//	codes:
//	  store_type: redis
//	  ttl: 5m
package config
