package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/notification"
)

type notificationRow struct {
	ID          string       `db:"id"`
	RecipientID string       `db:"recipient_id"`
	SenderID    string       `db:"sender_id"`
	Title       string       `db:"title"`
	Message     string       `db:"message"`
	IsRead      bool         `db:"is_read"`
	CreatedAt   time.Time    `db:"created_at"`
	ReadAt      sql.NullTime `db:"read_at"`
}

const notificationColumns = "id, recipient_id, sender_id, title, message, is_read, created_at, read_at"

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func toRow(n notification.Notification) notificationRow {
	r := notificationRow{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		Title:       n.Title,
		Message:     n.Message,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.UTC(),
	}
	if n.ReadAt != nil {
		r.ReadAt = sql.NullTime{Time: n.ReadAt.UTC(), Valid: true}
	}
	return r
}

func (r notificationRow) notification() notification.Notification {
	n := notification.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		SenderID:    r.SenderID,
		Title:       r.Title,
		Message:     r.Message,
		IsRead:      r.IsRead,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.ReadAt.Valid {
		readAt := r.ReadAt.Time.UTC()
		n.ReadAt = &readAt
	}
	return n
}

// execNamed runs a named query against the executor.
func (repo notificationRepository) execNamed(ctx context.Context, exec []core.DBExecutor, query string, arg interface{}) (sql.Result, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return nil, err
	}
	return repo.getExec(exec).ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
}

// selectRows runs query (with ? bindvars) and scans the rows.
func (repo notificationRepository) selectRows(ctx context.Context, exec []core.DBExecutor, query string, args ...interface{}) ([]notificationRow, error) {
	rows, err := repo.getExec(exec).QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var found []notificationRow
	if err = sqlx.StructScan(rows, &found); err != nil {
		return nil, err
	}
	return found, nil
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	n.ID = uuid.New().String()
	r := toRow(n)
	_, err := repo.execNamed(ctx, exec, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :recipient_id, :sender_id, :title, :message, :is_read, :created_at, :read_at)`, r)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return r.notification(), nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	rows, err := repo.selectRows(ctx, exec, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "finding notification")
	}
	if len(rows) == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return rows[0].notification(), nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.RecipientID != "" {
		if _, err := uuid.Parse(filter.RecipientID); err != nil {
			return []notification.Notification{}, nil
		}
		where = append(where, "recipient_id = ?")
		args = append(args, filter.RecipientID)
	}
	if filter.IsRead != nil {
		where = append(where, "is_read = ?")
		args = append(args, *filter.IsRead)
	}
	if filter.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	query := "SELECT " + notificationColumns + " FROM notifications"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := repo.selectRows(ctx, exec, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.notification())
	}
	return notifs, nil
}

func (repo notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	res, err := repo.execNamed(ctx, exec, `UPDATE notifications
		SET title = :title, message = :message, is_read = :is_read, read_at = :read_at
		WHERE id = :id`, toRow(n))
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return n, nil
}

func (repo notificationRepository) MarkAllRead(ctx context.Context, recipientID string, readAt time.Time, exec ...core.DBExecutor) (int, error) {
	if _, err := uuid.Parse(recipientID); err != nil {
		return 0, nil
	}
	res, err := repo.execNamed(ctx, exec, `UPDATE notifications SET is_read = TRUE, read_at = :read_at
		WHERE recipient_id = :recipient_id AND is_read = FALSE`,
		map[string]interface{}{"recipient_id": recipientID, "read_at": readAt.UTC()})
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications as read")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications as read")
	}
	return int(cnt), nil
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return notification.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM notifications WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return notification.ErrNotFound
	}
	return nil
}
