package notifications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    []*Notification
	active  []int64
	now     func() time.Time
	failFor map[int64]error
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{now: now, failFor: map[int64]error{}}
}

func (s *memoryStore) Create(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[n.UserID]; err != nil {
		return err
	}
	s.nextID++
	n.ID = s.nextID
	n.CreatedAt = s.now()
	n.IsRead = false
	c := *n
	s.rows = append(s.rows, &c)
	return nil
}

func (s *memoryStore) matching(userID int64, since time.Time) []*Notification {
	var out []*Notification
	for _, n := range s.rows {
		if n.UserID == userID && !n.CreatedAt.Before(since) {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *memoryStore) List(ctx context.Context, userID int64, since time.Time, limit, offset int) ([]*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.matching(userID, since)
	if offset >= len(rows) {
		return []*Notification{}, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *memoryStore) Count(ctx context.Context, userID int64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matching(userID, since)), nil
}

func (s *memoryStore) MarkRead(ctx context.Context, userID, notificationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.rows {
		if n.ID == notificationID && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (s *memoryStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (s *memoryStore) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	if s.active == nil {
		return nil, errors.New("users table unavailable")
	}
	return s.active, nil
}

type emitted struct {
	identityID int64
	event      string
	payload    any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *recordingEmitter) Emit(identityID int64, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{identityID, event, payload})
}

func (e *recordingEmitter) recipients() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []int64
	for _, ev := range e.events {
		ids = append(ids, ev.identityID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
