package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n.ID = uuid.New().String()
	repo.db.notifications[n.ID] = row[notification.Notification]{seq: repo.db.nextSeq(), val: n}
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(_ context.Context, id string, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.notifications[id]; ok {
		return r.val, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter, _ ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]row[notification.Notification], 0)
	for _, r := range repo.db.notifications {
		if filter.Matches(r.val) {
			rows = append(rows, r)
		}
	}
	// newest first; later inserts win ties
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].val.CreatedAt.Equal(rows[j].val.CreatedAt) {
			return rows[i].val.CreatedAt.After(rows[j].val.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.val)
	}
	return notifs, nil
}

func (repo *notificationRepository) UpdateNotification(_ context.Context, n notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r, ok := repo.db.notifications[n.ID]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	r.val = n
	repo.db.notifications[n.ID] = r
	return n, nil
}

func (repo *notificationRepository) MarkAllRead(_ context.Context, recipientID string, readAt time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for id, r := range repo.db.notifications {
		if r.val.RecipientID != recipientID || r.val.IsRead {
			continue
		}
		at := readAt
		r.val.IsRead = true
		r.val.ReadAt = &at
		repo.db.notifications[id] = r
		cnt++
	}
	return cnt, nil
}

func (repo *notificationRepository) DeleteNotification(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.notifications[id]; !ok {
		return notification.ErrNotFound
	}
	delete(repo.db.notifications, id)
	return nil
}
