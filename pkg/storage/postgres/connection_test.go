package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platinummonkey/panelhub/pkg/storage"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPingMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	return db, mock
}

func newTestManager(t *testing.T, replicas ...*sql.DB) (*ConnectionManager, sqlmock.Sqlmock) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	primary, mock := newPingMock(t)
	cm := newConnectionManager(primary, ConnectionConfig{MaxConns: 4, Timeout: time.Second}, logger)
	cm.replicas = append(cm.replicas, replicas...)
	return cm, mock
}

func TestParseReplicaURLs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"single URL", "postgres://localhost:5432/db", []string{"postgres://localhost:5432/db"}},
		{
			"URLs with whitespace and empty entries",
			" postgres://host1:5432/db ,, postgres://host2:5432/db ,",
			[]string{"postgres://host1:5432/db", "postgres://host2:5432/db"},
		},
		{"only commas and whitespace", " , , ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseReplicaURLs(tt.input))
		})
	}
}

func TestConnectionConfigFrom(t *testing.T) {
	cfg := storage.DefaultConfig()
	cfg.PostgresURL = "postgres://primary/panelhub"
	cfg.PostgresReplicaURLs = "postgres://r1/panelhub,postgres://r2/panelhub"

	cc := ConnectionConfigFrom(cfg)
	assert.Equal(t, "postgres://primary/panelhub", cc.PrimaryURL)
	assert.Len(t, cc.ReplicaURLs, 2)
	assert.Equal(t, 20, cc.MaxConns)
	assert.Equal(t, 10*time.Second, cc.Timeout)
}

func TestNewConnectionManager_UnreachablePrimary(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cm, err := NewConnectionManager(ConnectionConfig{
		PrimaryURL: "postgres://127.0.0.1:1/panelhub?sslmode=disable&connect_timeout=1",
		MaxConns:   2,
		Timeout:    2 * time.Second,
	}, logger)
	assert.Error(t, err)
	assert.Nil(t, cm)
	assert.Contains(t, err.Error(), "failed to ping primary")
}

func TestConnectionManager_Replica(t *testing.T) {
	t.Run("falls back to primary", func(t *testing.T) {
		cm, _ := newTestManager(t)
		assert.Same(t, cm.Primary(), cm.Replica())
	})

	t.Run("round robin", func(t *testing.T) {
		r1, r2, r3 := &sql.DB{}, &sql.DB{}, &sql.DB{}
		cm, _ := newTestManager(t, r1, r2, r3)

		selections := map[*sql.DB]int{}
		for i := 0; i < 30; i++ {
			selections[cm.Replica()]++
		}
		assert.Equal(t, 10, selections[r1])
		assert.Equal(t, 10, selections[r2])
		assert.Equal(t, 10, selections[r3])
	})

	t.Run("concurrent", func(t *testing.T) {
		r1, r2 := &sql.DB{}, &sql.DB{}
		cm, _ := newTestManager(t, r1, r2)

		var wg sync.WaitGroup
		var mu sync.Mutex
		selections := map[*sql.DB]int{}
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				db := cm.Replica()
				mu.Lock()
				selections[db]++
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, selections[r1])
		assert.Equal(t, 50, selections[r2])
	})
}

func TestConnectionManager_HealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy primary without replicas", func(t *testing.T) {
		cm, mock := newTestManager(t)
		mock.ExpectPing()
		assert.NoError(t, cm.HealthCheck(ctx))
	})

	t.Run("primary down", func(t *testing.T) {
		cm, mock := newTestManager(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		err := cm.HealthCheck(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary unhealthy")
	})

	t.Run("all replicas down", func(t *testing.T) {
		replica, replicaMock := newPingMock(t)
		cm, mock := newTestManager(t, replica)
		mock.ExpectPing()
		replicaMock.ExpectPing().WillReturnError(errors.New("down"))

		err := cm.HealthCheck(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "replica-0")
	})
}

func TestConnectionManager_RemoveUnhealthyReplicas(t *testing.T) {
	healthy, healthyMock := newPingMock(t)
	unhealthy, unhealthyMock := newPingMock(t)
	cm, _ := newTestManager(t, healthy, unhealthy)

	healthyMock.ExpectPing()
	unhealthyMock.ExpectPing().WillReturnError(errors.New("down"))
	unhealthyMock.ExpectClose()

	assert.Equal(t, 1, cm.RemoveUnhealthyReplicas(context.Background()))
	assert.Same(t, healthy, cm.Replica())
	assert.NoError(t, unhealthyMock.ExpectationsWereMet())
}

func TestConnectionManager_Close(t *testing.T) {
	replica, replicaMock := newPingMock(t)
	cm, mock := newTestManager(t, replica)
	mock.ExpectClose()
	replicaMock.ExpectClose()

	require.NoError(t, cm.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, replicaMock.ExpectationsWereMet())
	assert.Empty(t, cm.Stats().Replicas)
}
