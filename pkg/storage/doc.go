// Package storage holds connection settings and client constructors for the
// two backing stores.
//
// PostgreSQL is the system of record for accounts, groups, quests and
// notifications. The postgres subpackage manages a primary pool plus optional
// read replicas:
//
//	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfigFrom(cfg), logger)
//	if err != nil {
//		return err
//	}
//	defer cm.Close()
//
//	groupsStore := groups.NewPostgresStore(cm.Primary())
//
// Redis is optional. When configured it backs the verification code store
// and the distributed rate limiter so several instances share state:
//
//	client, err := storage.NewRedisClient(ctx, cfg)
package storage
