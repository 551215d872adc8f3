package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EventNotificationNew is emitted to the recipient after a notification is stored
const EventNotificationNew = "notification:new"

// DefaultBroadcastConcurrency bounds parallel inserts during a broadcast
const DefaultBroadcastConcurrency = 8

// Titles are plain text; messages keep basic formatting
var (
	titlePolicy   = bluemonday.StrictPolicy()
	messagePolicy = bluemonday.UGCPolicy()
)

// Emitter delivers live events to an identity's connections
type Emitter interface {
	Emit(identityID int64, event string, payload any)
}

// Service stores notifications and nudges connected recipients
type Service struct {
	store       Store
	emitter     Emitter
	logger      logrus.FieldLogger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

// NewService creates a notification service. emitter may be nil.
func NewService(store Store, emitter Emitter, logger logrus.FieldLogger, metrics *observability.Metrics) *Service {
	return &Service{
		store:       store,
		emitter:     emitter,
		logger:      logger,
		metrics:     metrics,
		concurrency: DefaultBroadcastConcurrency,
		now:         time.Now,
	}
}

// CreateAndNotify persists n and then emits it to the recipient's live
// connections. The row is the source of truth; the emit is only a nudge, so a
// recipient with no connection sees it on the next List.
func (s *Service) CreateAndNotify(ctx context.Context, n *Notification) (*Notification, error) {
	created := sanitize(*n)
	if err := created.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, &created); err != nil {
		return nil, err
	}
	s.metrics.NotificationCreated(string(created.Category))

	if s.emitter != nil {
		s.emitter.Emit(created.UserID, EventNotificationNew, &created)
	}
	return &created, nil
}

// Broadcast sends a copy of template to every user in userIDs. Duplicate ids
// receive one copy. It stops at the first failure and returns how many
// notifications were created before it.
func (s *Service) Broadcast(ctx context.Context, userIDs []int64, template Notification) (int, error) {
	template = sanitize(template)
	if err := template.Validate(); err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, ErrNoRecipients
	}

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	seen := make(map[int64]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		n := template
		n.UserID = userID
		g.Go(func() error {
			if _, err := s.CreateAndNotify(gctx, &n); err != nil {
				return fmt.Errorf("user %d: %w", n.UserID, err)
			}
			sent.Add(1)
			return nil
		})
	}

	err := g.Wait()
	s.logger.WithFields(logrus.Fields{
		"category":   template.Category,
		"recipients": len(seen),
		"sent":       sent.Load(),
	}).Info("notification broadcast finished")
	return int(sent.Load()), err
}

// BroadcastAll sends template to every active user
func (s *Service) BroadcastAll(ctx context.Context, template Notification) (int, error) {
	clean := sanitize(template)
	if err := clean.Validate(); err != nil {
		return 0, err
	}
	userIDs, err := s.store.ActiveUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	return s.Broadcast(ctx, userIDs, template)
}

func sanitize(n Notification) Notification {
	n.Title = strings.TrimSpace(titlePolicy.Sanitize(n.Title))
	n.Message = strings.TrimSpace(messagePolicy.Sanitize(n.Message))
	return n
}

// List returns a page of the user's notifications from the last opts.SinceDays days
func (s *Service) List(ctx context.Context, userID int64, opts ListOptions) (*Page, error) {
	opts = opts.normalize()
	since := s.now().AddDate(0, 0, -opts.SinceDays)

	var (
		rows  []*Notification
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.store.List(gctx, userID, since, opts.Limit, opts.offset())
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, userID, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page{
		Notifications: rows,
		Meta: PageMeta{
			Page:       opts.Page,
			Limit:      opts.Limit,
			Total:      total,
			TotalPages: totalPages,
			SinceDays:  opts.SinceDays,
		},
	}, nil
}

// MarkRead marks one notification as read. Notifications of other users are reported as not found.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead marks all of the user's notifications as read
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}
