package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memoryStore, *recordingEmitter, *observability.Metrics) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := func() time.Time { return testNow }
	store := newMemoryStore(clock)
	emitter := &recordingEmitter{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	service := NewService(store, emitter, logger, metrics)
	service.now = clock
	return service, store, emitter, metrics
}

func TestService_CreateAndNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("persists then emits", func(t *testing.T) {
		service, store, emitter, metrics := newTestService(t)

		created, err := service.CreateAndNotify(ctx, &Notification{
			UserID:   7,
			Category: CategoryComment,
			Title:    "New reply",
			Message:  "someone replied to your comment",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, testNow, created.CreatedAt)
		assert.Len(t, store.rows, 1)

		require.Len(t, emitter.events, 1)
		assert.Equal(t, int64(7), emitter.events[0].identityID)
		assert.Equal(t, EventNotificationNew, emitter.events[0].event)
		assert.Equal(t, created, emitter.events[0].payload)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NotificationsCreated.WithLabelValues("comment")))
	})

	t.Run("store failure emits nothing", func(t *testing.T) {
		service, store, emitter, _ := newTestService(t)
		store.failFor[7] = errors.New("db down")

		_, err := service.CreateAndNotify(ctx, &Notification{UserID: 7, Category: CategorySystem, Title: "t", Message: "m"})
		require.Error(t, err)
		assert.Empty(t, emitter.events)
	})

	t.Run("validation", func(t *testing.T) {
		service, store, _, _ := newTestService(t)

		_, err := service.CreateAndNotify(ctx, &Notification{UserID: 7, Category: "spam", Title: "t", Message: "m"})
		assert.ErrorIs(t, err, ErrInvalidCategory)
		_, err = service.CreateAndNotify(ctx, &Notification{UserID: 7, Category: CategorySystem, Title: "t"})
		assert.ErrorIs(t, err, ErrMissingContent)
		assert.Empty(t, store.rows)
	})

	t.Run("markup is stripped", func(t *testing.T) {
		service, _, _, _ := newTestService(t)

		created, err := service.CreateAndNotify(ctx, &Notification{
			UserID:   7,
			Category: CategoryComicUpdate,
			Title:    "<b>Chapter 12</b>",
			Message:  "<p>Out now</p><script>alert(1)</script>",
		})
		require.NoError(t, err)
		assert.Equal(t, "Chapter 12", created.Title)
		assert.Equal(t, "<p>Out now</p>", created.Message)

		_, err = service.CreateAndNotify(ctx, &Notification{UserID: 7, Category: CategorySystem, Title: "<script>x</script>", Message: "m"})
		assert.ErrorIs(t, err, ErrMissingContent)
	})

	t.Run("nil emitter", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		service := NewService(newMemoryStore(time.Now), nil, logger, nil)
		_, err := service.CreateAndNotify(ctx, &Notification{UserID: 1, Category: CategorySystem, Title: "t", Message: "m"})
		assert.NoError(t, err)
	})
}

func TestService_Broadcast(t *testing.T) {
	ctx := context.Background()
	template := Notification{Category: CategoryPromotion, Title: "Event", Message: "double coins today"}

	t.Run("one copy per distinct user", func(t *testing.T) {
		service, store, emitter, _ := newTestService(t)

		sent, err := service.Broadcast(ctx, []int64{3, 1, 2, 3, 1}, template)
		require.NoError(t, err)
		assert.Equal(t, 3, sent)
		assert.Len(t, store.rows, 3)
		assert.Equal(t, []int64{1, 2, 3}, emitter.recipients())
	})

	t.Run("no recipients", func(t *testing.T) {
		service, _, _, _ := newTestService(t)
		_, err := service.Broadcast(ctx, nil, template)
		assert.ErrorIs(t, err, ErrNoRecipients)
	})

	t.Run("failure is reported", func(t *testing.T) {
		service, store, _, _ := newTestService(t)
		store.failFor[2] = errors.New("db down")

		_, err := service.Broadcast(ctx, []int64{2}, template)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "user 2")
	})

	t.Run("all active users", func(t *testing.T) {
		service, store, emitter, _ := newTestService(t)
		store.active = []int64{10, 11}

		sent, err := service.BroadcastAll(ctx, template)
		require.NoError(t, err)
		assert.Equal(t, 2, sent)
		assert.Equal(t, []int64{10, 11}, emitter.recipients())
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	service, store, _, _ := newTestService(t)

	for i := 0; i < 5; i++ {
		_, err := service.CreateAndNotify(ctx, &Notification{UserID: 7, Category: CategoryFollow, Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	_, err := service.CreateAndNotify(ctx, &Notification{UserID: 8, Category: CategoryFollow, Title: "t", Message: "m"})
	require.NoError(t, err)

	// outside the default window
	store.rows = append(store.rows, &Notification{ID: 99, UserID: 7, Category: CategorySystem, CreatedAt: testNow.AddDate(0, 0, -45)})

	t.Run("defaults", func(t *testing.T) {
		page, err := service.List(ctx, 7, ListOptions{})
		require.NoError(t, err)
		assert.Len(t, page.Notifications, 5)
		assert.Equal(t, PageMeta{Page: 1, Limit: 100, Total: 5, TotalPages: 1, SinceDays: 30}, page.Meta)
		assert.Equal(t, int64(5), page.Notifications[0].ID)
	})

	t.Run("paged", func(t *testing.T) {
		page, err := service.List(ctx, 7, ListOptions{Limit: 2, Page: 3})
		require.NoError(t, err)
		require.Len(t, page.Notifications, 1)
		assert.Equal(t, int64(1), page.Notifications[0].ID)
		assert.Equal(t, 3, page.Meta.TotalPages)
	})

	t.Run("wider window", func(t *testing.T) {
		page, err := service.List(ctx, 7, ListOptions{SinceDays: 60})
		require.NoError(t, err)
		assert.Equal(t, 6, page.Meta.Total)
	})

	t.Run("empty", func(t *testing.T) {
		page, err := service.List(ctx, 100, ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, page.Notifications)
		assert.Equal(t, 1, page.Meta.TotalPages)
	})
}

func TestListOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{"zero takes defaults", ListOptions{}, ListOptions{SinceDays: 30, Limit: 100, Page: 1}},
		{"upper bounds", ListOptions{SinceDays: 365, Limit: 1000, Page: 4}, ListOptions{SinceDays: 180, Limit: 200, Page: 4}},
		{"lower bounds", ListOptions{SinceDays: -3, Limit: -1, Page: -2}, ListOptions{SinceDays: 1, Limit: 1, Page: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.normalize())
		})
	}
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	service, store, _, _ := newTestService(t)

	a, err := service.CreateAndNotify(ctx, &Notification{UserID: 7, Category: CategorySystem, Title: "t", Message: "m"})
	require.NoError(t, err)
	_, err = service.CreateAndNotify(ctx, &Notification{UserID: 7, Category: CategorySystem, Title: "t", Message: "m"})
	require.NoError(t, err)

	assert.ErrorIs(t, service.MarkRead(ctx, 8, a.ID), ErrNotificationNotFound)
	require.NoError(t, service.MarkRead(ctx, 7, a.ID))
	assert.True(t, store.rows[0].IsRead)

	changed, err := service.MarkAllRead(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
}
