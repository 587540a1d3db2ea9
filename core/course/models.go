package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

// Tier is the minimum role a non-creator needs for a course action.
type Tier string

const (
	TierMember  Tier = "member"  // student, teacher or admin
	TierTeacher Tier = "teacher" // teacher or admin
	TierAdmin   Tier = "admin"
	TierCreator Tier = "creator" // nobody but the creator
)

var AllTiers = []Tier{TierMember, TierTeacher, TierAdmin, TierCreator}

// rank is the lowest user.Role rank admitted by the tier.
func (t Tier) rank() int {
	switch t {
	case TierMember:
		return user.RoleStudent.Rank()
	case TierTeacher:
		return user.RoleTeacher.Rank()
	case TierAdmin:
		return user.RoleAdmin.Rank()
	default: // TierCreator and unknown tiers admit no role
		return user.RoleAdmin.Rank() + 1
	}
}

func (t Tier) IsValid() bool {
	for _, tier := range AllTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// Admits reports whether role satisfies the tier.
func (t Tier) Admits(role user.Role) bool {
	r := role.Rank()
	return r > 0 && r >= t.rank()
}

type Capacity string

const (
	CapacityTeacher Capacity = "teacher"
	CapacityStudent Capacity = "student"
)

type InviteStatus string

const (
	StatusPending  InviteStatus = "pending"
	StatusAccepted InviteStatus = "accepted"
	StatusDeclined InviteStatus = "declined"
)

type Course struct {
	ID                string    `json:"-"`
	CourseIDBase      string    `json:"course_id_base"`
	CreatorID         string    `json:"-"`
	Title             string    `json:"title"`
	Section           string    `json:"section"`
	Theme             string    `json:"theme"`
	IsArchive         bool      `json:"is_archive"`
	InvCode           string    `json:"-"`
	ConfigPermission  Tier      `json:"config_permission"`
	DeletePermission  Tier      `json:"delete_permission"`
	CommentPermission Tier      `json:"comment_permission"`
	PublishPermission Tier      `json:"publish_permission"`
	CreatedAt         time.Time `json:"created_at"` // UTC
}

// Invite relates a user to a course as teacher or student.
type Invite struct {
	ID        string       `json:"id"`
	CourseID  string       `json:"-"`
	UserID    string       `json:"user_id"`
	Capacity  Capacity     `json:"capacity"`
	Status    InviteStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"` // UTC
	UpdatedAt time.Time    `json:"updated_at"` // UTC
}

// Member is a roster entry.
type Member struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
}

func NewMember(usr user.User) Member {
	return Member{ID: usr.ID, FullName: usr.FullName(), Avatar: usr.Avatar}
}

type Roster struct {
	Students []Member `json:"students"`
	Teachers []Member `json:"teachers"`
}

// UserPerms tells a caller what they may do on a course.
type UserPerms struct {
	IsCreator      bool `json:"is_creator"`
	IsTeacher      bool `json:"is_teacher"`
	IsAdmin        bool `json:"is_admin"`
	CanUserDelete  bool `json:"can_user_delete"`
	CanUserComment bool `json:"can_user_comment"`
	CanUserPublish bool `json:"can_user_publish"`
}

// Preview is the list representation of a course.
type Preview struct {
	CourseIDBase      string       `json:"course_id_base"`
	Title             string       `json:"title"`
	Section           string       `json:"section"`
	Theme             string       `json:"theme"`
	CommentPermission Tier         `json:"comment_permission"`
	PublishPermission Tier         `json:"publish_permission"`
	Creator           user.Creator `json:"creator"`
}

// Profile is the detail representation of a course.
type Profile struct {
	CourseIDBase      string         `json:"course_id_base"`
	Title             string         `json:"title"`
	Section           string         `json:"section"`
	Theme             string         `json:"theme"`
	IsArchive         bool           `json:"is_archive"`
	ConfigPermission  Tier           `json:"config_permission"`
	DeletePermission  Tier           `json:"delete_permission"`
	CommentPermission Tier           `json:"comment_permission"`
	PublishPermission Tier           `json:"publish_permission"`
	Creator           user.Creator   `json:"creator"`
	Students          []user.Profile `json:"students"`
	Teachers          []user.Profile `json:"teachers"`
	UserPerms         UserPerms      `json:"user_perms"`
}

type OwnCourses struct {
	Courses []Preview `json:"courses"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	CourseIDBase      string `json:"course_id_base" validate:"required,max=64,alphanum_"`
	Title             string `json:"title" validate:"required,max=255"`
	Section           string `json:"section" validate:"max=255"`
	Theme             string `json:"theme" validate:"max=255"`
	ConfigPermission  Tier   `json:"config_permission" validate:"omitempty,tier"`
	DeletePermission  Tier   `json:"delete_permission" validate:"omitempty,tier"`
	CommentPermission Tier   `json:"comment_permission" validate:"omitempty,tier"`
	PublishPermission Tier   `json:"publish_permission" validate:"omitempty,tier"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.CourseIDBase = core.CleanString(nc.CourseIDBase, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.Section = core.CleanString(nc.Section)
	nc.Theme = core.CleanString(nc.Theme)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title             *string `json:"title" validate:"omitempty,notblank,max=255"`
	Section           *string `json:"section" validate:"omitempty,max=255"`
	Theme             *string `json:"theme" validate:"omitempty,max=255"`
	IsArchive         *bool   `json:"is_archive"`
	ConfigPermission  *Tier   `json:"config_permission" validate:"omitempty,tier"`
	DeletePermission  *Tier   `json:"delete_permission" validate:"omitempty,tier"`
	CommentPermission *Tier   `json:"comment_permission" validate:"omitempty,tier"`
	PublishPermission *Tier   `json:"publish_permission" validate:"omitempty,tier"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	for _, s := range []*string{uc.Title, uc.Section, uc.Theme} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(uc)
}

func (uc UpdateCourse) apply(crs *Course) {
	if uc.Title != nil {
		crs.Title = *uc.Title
	}
	if uc.Section != nil {
		crs.Section = *uc.Section
	}
	if uc.Theme != nil {
		crs.Theme = *uc.Theme
	}
	if uc.IsArchive != nil {
		crs.IsArchive = *uc.IsArchive
	}
	if uc.ConfigPermission != nil {
		crs.ConfigPermission = *uc.ConfigPermission
	}
	if uc.DeletePermission != nil {
		crs.DeletePermission = *uc.DeletePermission
	}
	if uc.CommentPermission != nil {
		crs.CommentPermission = *uc.CommentPermission
	}
	if uc.PublishPermission != nil {
		crs.PublishPermission = *uc.PublishPermission
	}
}

// NewInvite invites a user to a course.
type NewInvite struct {
	UserID   string   `json:"user_id" validate:"required,uuid"`
	Capacity Capacity `json:"capacity" validate:"required,oneof=teacher student"`
}

func (ni *NewInvite) Validate(validate *validator.Validate) error {
	ni.UserID = core.CleanString(ni.UserID, true /* lower */)
	return validate.Struct(ni)
}

type QueryFilter struct {
	Title     string `query:"title"`
	Section   string `query:"section"`
	Theme     string `query:"theme"`
	IsArchive *bool  `query:"is_archive"`
}

func (qf *QueryFilter) Clean() {
	qf.Title = core.CleanString(qf.Title)
	qf.Section = core.CleanString(qf.Section)
	qf.Theme = core.CleanString(qf.Theme)
}

// Matches applies exact matching on the set fields, like the SQL repositories do.
func (qf *QueryFilter) Matches(crs Course) bool {
	if qf == nil {
		return true
	}
	return (qf.Title == "" || crs.Title == qf.Title) &&
		(qf.Section == "" || crs.Section == qf.Section) &&
		(qf.Theme == "" || crs.Theme == qf.Theme) &&
		(qf.IsArchive == nil || crs.IsArchive == *qf.IsArchive)
}

// Accept moves a pending invite to accepted. Accepting an accepted invite changes nothing.
func (inv *Invite) Accept(now time.Time) error {
	switch inv.Status {
	case StatusAccepted:
		return nil
	case StatusDeclined:
		return ErrInviteDeclined
	}
	inv.Status = StatusAccepted
	inv.UpdatedAt = now
	return nil
}

// Decline moves a pending invite to declined. Declining a declined invite changes nothing.
func (inv *Invite) Decline(now time.Time) error {
	switch inv.Status {
	case StatusDeclined:
		return nil
	case StatusAccepted:
		return ErrInviteAccepted
	}
	inv.Status = StatusDeclined
	inv.UpdatedAt = now
	return nil
}

type InviteFilter struct {
	CourseID string
	UserID   string
	Capacity Capacity
	Statuses []InviteStatus
}

func (f InviteFilter) Matches(inv Invite) bool {
	if (f.CourseID != "" && inv.CourseID != f.CourseID) ||
		(f.UserID != "" && inv.UserID != f.UserID) ||
		(f.Capacity != "" && inv.Capacity != f.Capacity) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if inv.Status == st {
			return true
		}
	}
	return false
}
