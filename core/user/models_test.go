package user_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core/user"
)

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Sergeevna Anna Smirnova", user.User{FirstName: "Anna", SecondName: "Sergeevna", LastName: "Smirnova"}.FullName())
	assert.Equal(t, "Anna", user.User{FirstName: "Anna"}.FullName())
	assert.Equal(t, "", user.User{}.FullName())
}

func TestDescribeCreator(t *testing.T) {
	c := user.DescribeCreator(user.User{FirstName: "Ivan", LastName: "Petrov"})
	assert.Nil(t, c.Avatar)

	c = user.DescribeCreator(user.User{FirstName: "Ivan", Avatar: "https://cdn.test.cd/ivan.png"})
	if assert.NotNil(t, c.Avatar) {
		assert.Equal(t, "https://cdn.test.cd/ivan.png", *c.Avatar)
	}
}

func TestUser_Profile(t *testing.T) {
	usr := user.User{ID: "1", FirstName: "Ivan", Email: "ivan@test.cd", Role: user.RoleTeacher}
	assert.Equal(t, "", usr.Profile(false).Email)
	assert.Equal(t, "ivan@test.cd", usr.Profile(true).Email)
}

func TestUser_Password(t *testing.T) {
	var usr user.User
	assert.NoError(t, usr.SetPassword("Sup3r!Secret#Pwd"))
	assert.NoError(t, usr.CheckPassword("Sup3r!Secret#Pwd"))
	assert.Error(t, usr.CheckPassword("nope"))
}

func TestRole_Rank(t *testing.T) {
	assert.Greater(t, user.RoleAdmin.Rank(), user.RoleTeacher.Rank())
	assert.Greater(t, user.RoleTeacher.Rank(), user.RoleStudent.Rank())
	assert.Zero(t, user.RoleUnapproved.Rank())
	assert.False(t, user.Role("boss").IsValid())
}

func TestRole_CanBecome(t *testing.T) {
	for _, from := range user.AllRoles {
		for _, to := range user.AllRoles {
			want := from == to || (from == user.RoleUnapproved && to == user.RoleTeacher)
			assert.Equal(t, want, from.CanBecome(to), "%s -> %s", from, to)
		}
	}
}
