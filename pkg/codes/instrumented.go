package codes

import (
	"context"

	"github.com/platinummonkey/panelhub/pkg/observability"
)

// InstrumentedStore records the outcome of every operation on the wrapped store
type InstrumentedStore struct {
	next    Store
	backend string
	metrics *observability.Metrics
}

// Instrument wraps store with metrics labelled by backend
func Instrument(store Store, backend string, metrics *observability.Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: store, backend: backend, metrics: metrics}
}

// Store saves code under key and records the outcome
func (s *InstrumentedStore) Store(ctx context.Context, key, code string) error {
	err := s.next.Store(ctx, key, code)
	s.metrics.CodeStoreOp(s.backend, "store", result(err, true))
	return err
}

// Get returns the code under key; a missing key is recorded as a miss
func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	code, ok, err := s.next.Get(ctx, key)
	s.metrics.CodeStoreOp(s.backend, "get", result(err, ok))
	return code, ok, err
}

// Remove deletes the code under key and records the outcome
func (s *InstrumentedStore) Remove(ctx context.Context, key string) error {
	err := s.next.Remove(ctx, key)
	s.metrics.CodeStoreOp(s.backend, "remove", result(err, true))
	return err
}

func result(err error, ok bool) string {
	switch {
	case err != nil:
		return "error"
	case !ok:
		return "miss"
	default:
		return "ok"
	}
}
