package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

type Notification struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipient_id"`
	SenderID    string     `json:"sender_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	ReadAt      *time.Time `json:"read_at"`    // UTC
}

func (n *Notification) markRead(now time.Time) {
	n.IsRead = true
	n.ReadAt = &now
}

func (n *Notification) markUnread() {
	n.IsRead = false
	n.ReadAt = nil
}

// Item is the list representation of a notification.
type Item struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Sender    user.Profile `json:"sender"`
	CreatedAt time.Time    `json:"created_at"`
	IsRead    bool         `json:"is_read"`
	ReadAt    *time.Time   `json:"read_at"`
}

// NewNotification contains information needed to send a notification.
type NewNotification struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Title       string `json:"title" validate:"required,max=200"`
	Message     string `json:"message" validate:"required"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.RecipientID = core.CleanString(nn.RecipientID, true /* lower */)
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	return validate.Struct(nn)
}

type QueryFilter struct {
	RecipientID string     `query:"-"`
	IsRead      *bool      `query:"is_read"`
	CreatedFrom *time.Time `query:"-"`
	CreatedTo   *time.Time `query:"-"`
}

func (qf *QueryFilter) Matches(n Notification) bool {
	return (qf.RecipientID == "" || n.RecipientID == qf.RecipientID) &&
		(qf.IsRead == nil || n.IsRead == *qf.IsRead) &&
		(qf.CreatedFrom == nil || !n.CreatedAt.Before(*qf.CreatedFrom)) &&
		(qf.CreatedTo == nil || !n.CreatedAt.After(*qf.CreatedTo))
}
