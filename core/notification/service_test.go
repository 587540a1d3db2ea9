package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/notification"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/storage/database/inmem"
	"github.com/trezcool/classroom/tests"
)

func setup(t *testing.T) (*notification.Service, user.Repository, *time.Time) {
	t.Helper()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	prev := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = prev })

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	svc := notification.NewService(inmemdb.NewNotificationRepository(db), user.NewService(usrRepo))
	return svc, usrRepo, &now
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	svc, usrRepo, _ := setup(t)
	sender := testutil.CreateUser(t, usrRepo, "Ivan", "Petrov", "ivan@test.cd", "", user.RoleTeacher, true)

	_, err := svc.Send(ctx, sender, notification.NewNotification{RecipientID: "00000000-0000-0000-0000-000000000000", Title: "Hi", Message: "Hello"})
	var verr *core.ValidationError
	if assert.True(t, errors.As(err, &verr)) {
		assert.Equal(t, []core.FieldError{{Field: "recipient_id", Error: user.ErrNotFound.Error()}}, verr.Fields)
	}

	n, err := svc.Send(ctx, sender, notification.NewNotification{RecipientID: sender.ID, Title: "Note", Message: "to self"})
	require.NoError(t, err)
	assert.False(t, n.IsRead)
	assert.Nil(t, n.ReadAt)
	assert.Equal(t, sender.ID, n.SenderID)

	item, err := svc.Retrieve(ctx, sender, n.ID)
	require.NoError(t, err)
	assert.Equal(t, sender.Profile(true), item.Sender)
}

func TestService_readState(t *testing.T) {
	ctx := context.Background()
	svc, usrRepo, now := setup(t)
	tchr := testutil.CreateUser(t, usrRepo, "Ivan", "Petrov", "ivan@test.cd", "", user.RoleTeacher, true)
	stdt := testutil.CreateUser(t, usrRepo, "Anna", "Smirnova", "anna@test.cd", "", user.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Root", "", "root@test.cd", "", user.RoleAdmin, true)

	ids := make([]string, 0, 3)
	for _, title := range []string{"T1", "T2", "T3"} {
		n, err := svc.Send(ctx, tchr, notification.NewNotification{RecipientID: stdt.ID, Title: title, Message: "msg"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
		*now = now.Add(time.Minute)
	}

	items, err := svc.List(ctx, stdt, notification.QueryFilter{})
	require.NoError(t, err)
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"T3", "T2", "T1"}, titles)

	_, err = svc.Retrieve(ctx, tchr, ids[0])
	assert.Equal(t, notification.ErrNotFound, err, "senders cannot read what they sent")
	_, err = svc.MarkAsRead(ctx, tchr, ids[0])
	assert.Equal(t, notification.ErrNotRecipient, err)

	n, err := svc.MarkAsRead(ctx, stdt, ids[0])
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	if assert.NotNil(t, n.ReadAt) {
		assert.True(t, n.ReadAt.Equal(*now))
	}

	n, err = svc.MarkAsUnread(ctx, stdt, ids[0])
	require.NoError(t, err)
	assert.False(t, n.IsRead)
	assert.Nil(t, n.ReadAt)

	_, err = svc.MarkAsRead(ctx, stdt, ids[1])
	require.NoError(t, err)
	cnt, err := svc.MarkAllRead(ctx, stdt)
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)
	cnt, err = svc.MarkAllRead(ctx, stdt)
	require.NoError(t, err)
	assert.Zero(t, cnt)

	unread, err := svc.Unread(ctx, stdt)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.Equal(t, notification.ErrNotRecipient, svc.Delete(ctx, tchr, ids[0]))
	assert.NoError(t, svc.Delete(ctx, stdt, ids[0]))
	assert.NoError(t, svc.Delete(ctx, admin, ids[1]))
	assert.Equal(t, notification.ErrNotFound, svc.Delete(ctx, admin, ids[1]))

	items, err = svc.List(ctx, stdt, notification.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
