package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

var (
	// errors
	ErrNotFound     = core.NewNotFound("notification not found")
	ErrNotRecipient = core.NewPermissionDenied("you can only change your own notifications")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		GetNotificationByID(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications returns the notifications matching filter, newest first.
		QueryNotifications(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Notification, error)
		UpdateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		// MarkAllRead marks every unread notification of recipientID as read in a single statement.
		MarkAllRead(ctx context.Context, recipientID string, readAt time.Time, exec ...core.DBExecutor) (int, error)
		DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		List(ctx context.Context, usr user.User, filter QueryFilter) ([]Item, error)
		Unread(ctx context.Context, usr user.User) ([]Item, error)
		Retrieve(ctx context.Context, usr user.User, id string) (Item, error)
		Send(ctx context.Context, sender user.User, nn NewNotification) (Notification, error)
		MarkAsRead(ctx context.Context, usr user.User, id string) (Notification, error)
		MarkAsUnread(ctx context.Context, usr user.User, id string) (Notification, error)
		MarkAllRead(ctx context.Context, usr user.User) (int, error)
		Delete(ctx context.Context, usr user.User, id string) error
	}

	Service struct {
		repo   Repository
		usrSvc user.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository, usrSvc user.ServiceInterface) *Service {
	return &Service{repo: repo, usrSvc: usrSvc}
}

func (svc *Service) items(ctx context.Context, notifs []Notification) ([]Item, error) {
	ids := make([]string, 0, len(notifs))
	for _, n := range notifs {
		ids = append(ids, n.SenderID)
	}
	senders, err := svc.usrSvc.GetManyByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding senders")
	}
	byID := make(map[string]user.User, len(senders))
	for _, usr := range senders {
		byID[usr.ID] = usr
	}

	items := make([]Item, 0, len(notifs))
	for _, n := range notifs {
		items = append(items, Item{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Sender:    byID[n.SenderID].Profile(true),
			CreatedAt: n.CreatedAt,
			IsRead:    n.IsRead,
			ReadAt:    n.ReadAt,
		})
	}
	return items, nil
}

// List returns the notifications received by usr, newest first.
func (svc *Service) List(ctx context.Context, usr user.User, filter QueryFilter) ([]Item, error) {
	filter.RecipientID = usr.ID
	notifs, err := svc.repo.QueryNotifications(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return svc.items(ctx, notifs)
}

// Unread returns the unread notifications of usr, newest first.
func (svc *Service) Unread(ctx context.Context, usr user.User) ([]Item, error) {
	isRead := false
	return svc.List(ctx, usr, QueryFilter{IsRead: &isRead})
}

// Retrieve returns one of usr's notifications. Others' notifications are not found.
func (svc *Service) Retrieve(ctx context.Context, usr user.User, id string) (Item, error) {
	n, err := svc.repo.GetNotificationByID(ctx, core.CleanString(id, true /* lower */))
	if err != nil {
		return Item{}, err
	}
	if n.RecipientID != usr.ID {
		return Item{}, ErrNotFound
	}
	items, err := svc.items(ctx, []Notification{n})
	if err != nil {
		return Item{}, err
	}
	return items[0], nil
}

func (svc *Service) Send(ctx context.Context, sender user.User, nn NewNotification) (Notification, error) {
	recipient, err := svc.usrSvc.GetByID(ctx, nn.RecipientID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Notification{}, core.NewValidationError(err, core.FieldError{Field: "recipient_id", Error: err.Error()})
		}
		return Notification{}, errors.Wrap(err, "finding recipient")
	}
	n, err := svc.repo.CreateNotification(ctx, Notification{
		RecipientID: recipient.ID,
		SenderID:    sender.ID,
		Title:       nn.Title,
		Message:     nn.Message,
		CreatedAt:   core.NowFunc(),
	})
	return n, errors.Wrap(err, "creating notification")
}

// getOwn finds a notification and checks that usr received it.
func (svc *Service) getOwn(ctx context.Context, usr user.User, id string) (Notification, error) {
	n, err := svc.repo.GetNotificationByID(ctx, core.CleanString(id, true /* lower */))
	if err != nil {
		return Notification{}, err
	}
	if n.RecipientID != usr.ID {
		return Notification{}, ErrNotRecipient
	}
	return n, nil
}

func (svc *Service) MarkAsRead(ctx context.Context, usr user.User, id string) (Notification, error) {
	n, err := svc.getOwn(ctx, usr, id)
	if err != nil {
		return Notification{}, err
	}
	n.markRead(core.NowFunc())
	return svc.repo.UpdateNotification(ctx, n)
}

func (svc *Service) MarkAsUnread(ctx context.Context, usr user.User, id string) (Notification, error) {
	n, err := svc.getOwn(ctx, usr, id)
	if err != nil {
		return Notification{}, err
	}
	n.markUnread()
	return svc.repo.UpdateNotification(ctx, n)
}

// MarkAllRead marks all unread notifications of usr as read and returns how many changed.
func (svc *Service) MarkAllRead(ctx context.Context, usr user.User) (int, error) {
	cnt, err := svc.repo.MarkAllRead(ctx, usr.ID, core.NowFunc())
	return cnt, errors.Wrap(err, "marking all notifications as read")
}

// Delete removes a notification. Recipients may delete their own; admins may delete any.
func (svc *Service) Delete(ctx context.Context, usr user.User, id string) error {
	n, err := svc.repo.GetNotificationByID(ctx, core.CleanString(id, true /* lower */))
	if err != nil {
		return err
	}
	if n.RecipientID != usr.ID && !usr.IsAdmin() {
		return ErrNotRecipient
	}
	return errors.Wrap(svc.repo.DeleteNotification(ctx, n.ID), "deleting notification")
}
