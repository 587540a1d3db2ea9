package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classroom/core"
)

// Role is the closed set of account roles. A user holds exactly one.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"

	// RoleUnapproved marks a teacher account still waiting for approval.
	// It grants no course visibility and is hidden from course teacher rosters.
	RoleUnapproved Role = "unapproved"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleUnapproved}

	Roles = []RoleInfo{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Teacher (unapproved)", Value: RoleUnapproved},
		{Name: "Admin", Value: RoleAdmin},
	}
)

// Rank orders roles for permission tiers: admin > teacher > student.
// Roles outside the ranked set return 0.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleTeacher:
		return 2
	case RoleStudent:
		return 1
	default:
		return 0
	}
}

// CanBecome reports whether a user holding r may be given role to.
// Roles are fixed once set, except that an unapproved teacher may be approved.
func (r Role) CanBecome(to Role) bool {
	return r == to || (r == RoleUnapproved && to == RoleTeacher)
}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

type User struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"first_name"`
	SecondName   string     `json:"second_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Avatar       string     `json:"avatar"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// FullName joins the non-empty name parts as "second first last".
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.SecondName, u.FirstName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Creator is the public summary of a course creator.
type Creator struct {
	FirstName  string  `json:"first_name"`
	SecondName string  `json:"second_name"`
	LastName   string  `json:"last_name"`
	Avatar     *string `json:"avatar"`
}

// DescribeCreator summarizes usr for course payloads. Avatar is nil when the user has none.
func DescribeCreator(usr User) Creator {
	c := Creator{
		FirstName:  usr.FirstName,
		SecondName: usr.SecondName,
		LastName:   usr.LastName,
	}
	if usr.Avatar != "" {
		avatar := usr.Avatar
		c.Avatar = &avatar
	}
	return c
}

// Profile is what a user may see of another user.
type Profile struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	SecondName string `json:"second_name"`
	LastName   string `json:"last_name"`
	Avatar     string `json:"avatar"`
	Role       Role   `json:"role"`
	Email      string `json:"email,omitempty"`
}

func (u User) Profile(withEmail bool) Profile {
	p := Profile{
		ID:         u.ID,
		FirstName:  u.FirstName,
		SecondName: u.SecondName,
		LastName:   u.LastName,
		Avatar:     u.Avatar,
		Role:       u.Role,
	}
	if withEmail {
		p.Email = u.Email
	}
	return p
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	SecondName      string `json:"second_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email" validate:"required,email"`
	Avatar          string `json:"avatar" validate:"omitempty,url"`
	Role            Role   `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.SecondName = core.CleanString(nu.SecondName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Avatar = core.CleanString(nu.Avatar)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Unset fields keep their current value. Role only accepts the approval of an unapproved teacher.
type UpdateUser struct {
	FirstName       *string `json:"first_name" validate:"omitempty,notblank"`
	SecondName      *string `json:"second_name"`
	LastName        *string `json:"last_name"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Avatar          *string `json:"avatar" validate:"omitempty,url"`
	Role            *Role   `json:"role" validate:"omitempty,role"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func cleanPtr(s *string, lower ...bool) {
	if s != nil {
		*s = core.CleanString(*s, lower...)
	}
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	cleanPtr(uu.FirstName)
	cleanPtr(uu.SecondName)
	cleanPtr(uu.LastName)
	cleanPtr(uu.Email, true /* lower */)
	cleanPtr(uu.Avatar)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	if err := uu.checkRole(origUsr); err != nil {
		return err
	}
	if uu.Email != nil && *uu.Email != origUsr.Email {
		return svc.CheckEmailUniqueness(ctx, *uu.Email, origUsr)
	}
	return nil
}

func (uu UpdateUser) checkRole(usr User) error {
	if uu.Role != nil && !usr.Role.CanBecome(*uu.Role) {
		return core.NewValidationError(ErrRoleImmutable, core.FieldError{Field: "role", Error: ErrRoleImmutable.Error()})
	}
	return nil
}

// apply copies the set fields of uu onto usr.
func (uu UpdateUser) apply(usr *User) error {
	if uu.FirstName != nil {
		usr.FirstName = *uu.FirstName
	}
	if uu.SecondName != nil {
		usr.SecondName = *uu.SecondName
	}
	if uu.LastName != nil {
		usr.LastName = *uu.LastName
	}
	if uu.Email != nil {
		usr.Email = *uu.Email
	}
	if uu.Avatar != nil {
		usr.Avatar = *uu.Avatar
	}
	if uu.Role != nil {
		usr.Role = *uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		return usr.SetPassword(uu.Password)
	}
	return nil
}

type UpdateAvatar struct {
	Avatar string `json:"avatar" validate:"omitempty,url"`
}

func (ua *UpdateAvatar) Validate(validate *validator.Validate) error {
	ua.Avatar = core.CleanString(ua.Avatar)
	return validate.Struct(ua)
}

type QueryFilter struct {
	Roles    []Role `query:"role"`
	IsActive *bool  `query:"is_active"`
	Email    string `query:"email"`
}

func (qf *QueryFilter) Clean() {
	qf.Email = core.CleanString(qf.Email, true /* lower */)
}
