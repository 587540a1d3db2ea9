package course

import (
	"strings"

	"github.com/trezcool/classroom/core/user"
)

// Scope selects the courses a query may return.
// Courses matching any of its criteria are included. A zero Scope selects nothing.
type Scope struct {
	All      bool
	UserID   string
	Capacity Capacity // courses where UserID holds an accepted invite in this capacity
	Created  bool     // courses created by UserID
}

func (s Scope) IsEmpty() bool {
	return !s.All && s.Capacity == "" && !s.Created
}

// VisibleScope returns the courses usr may list.
func VisibleScope(usr user.User) Scope {
	switch usr.Role {
	case user.RoleAdmin:
		return Scope{All: true}
	case user.RoleStudent:
		return Scope{UserID: usr.ID, Capacity: CapacityStudent}
	case user.RoleTeacher:
		return Scope{UserID: usr.ID, Capacity: CapacityTeacher, Created: true}
	default:
		return Scope{}
	}
}

// OwnScope returns the courses created by usr.
func OwnScope(usr user.User) Scope {
	return Scope{UserID: usr.ID, Created: true}
}

func IsCreator(usr user.User, crs Course) bool {
	return usr.ID != "" && usr.ID == crs.CreatorID
}

// CanRetrieve reports whether usr may see crs. isMember tells whether usr holds an accepted invite.
func CanRetrieve(usr user.User, crs Course, isMember bool) bool {
	return isMember || IsCreator(usr, crs) || usr.IsAdmin()
}

func CanConfigure(usr user.User, crs Course) bool {
	return IsCreator(usr, crs) || crs.ConfigPermission.Admits(usr.Role)
}

func CanDelete(usr user.User, crs Course) bool {
	return IsCreator(usr, crs) || crs.DeletePermission.Admits(usr.Role)
}

func CanComment(usr user.User, crs Course) bool {
	return IsCreator(usr, crs) || crs.CommentPermission.Admits(usr.Role)
}

func CanPublish(usr user.User, crs Course) bool {
	return IsCreator(usr, crs) || crs.PublishPermission.Admits(usr.Role)
}

// CanCreate reports whether usr may create courses. Students may not.
func CanCreate(usr user.User) bool {
	return usr.IsTeacher() || usr.IsAdmin()
}

// CanManageRoster reports whether usr may remove members and search rosters.
func CanManageRoster(usr user.User) bool {
	return usr.IsTeacher() || usr.IsAdmin()
}

// CanInvite reports whether usr may invite people to crs.
func CanInvite(usr user.User, crs Course, isTeacher bool) bool {
	return IsCreator(usr, crs) || usr.IsAdmin() || (isTeacher && usr.IsTeacher())
}

func Perms(usr user.User, crs Course) UserPerms {
	return UserPerms{
		IsCreator:      IsCreator(usr, crs),
		IsTeacher:      usr.IsTeacher(),
		IsAdmin:        usr.IsAdmin(),
		CanUserDelete:  CanDelete(usr, crs),
		CanUserComment: CanComment(usr, crs),
		CanUserPublish: CanPublish(usr, crs),
	}
}

// SearchMembers keeps the users whose first, second or last name contains search, ignoring case.
// The input order is preserved.
func SearchMembers(users []user.User, search string) []user.User {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return users
	}
	found := make([]user.User, 0, len(users))
	for _, usr := range users {
		if strings.Contains(strings.ToLower(usr.FirstName), search) ||
			strings.Contains(strings.ToLower(usr.SecondName), search) ||
			strings.Contains(strings.ToLower(usr.LastName), search) {
			found = append(found, usr)
		}
	}
	return found
}

// approvedTeachers drops teachers still waiting for approval.
func approvedTeachers(users []user.User) []user.User {
	teachers := make([]user.User, 0, len(users))
	for _, usr := range users {
		if usr.Role != user.RoleUnapproved {
			teachers = append(teachers, usr)
		}
	}
	return teachers
}
