package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/user"
)

func (env *testEnv) createCourse(t *testing.T, token, idBase, title string) course.Profile {
	t.Helper()
	body := marchallObj(t, course.NewCourse{CourseIDBase: idBase, Title: title})
	rec := env.serve(http.MethodPost, "/api/course", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var crs course.Profile
	unmarchall(t, rec, &crs)
	return crs
}

// enroll adds usr to the course with an accepted invite.
func (env *testEnv) enroll(t *testing.T, idBase string, usr user.User, capacity course.Capacity) course.Invite {
	t.Helper()
	ctx := context.Background()
	crs, err := env.crsRepo.GetCourseByIDBase(ctx, idBase)
	require.NoError(t, err)

	now := core.NowFunc()
	inv, err := env.invRepo.CreateInvite(ctx, course.Invite{
		CourseID:  crs.ID,
		UserID:    usr.ID,
		Capacity:  capacity,
		Status:    course.StatusAccepted,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return inv
}

func preview(crs course.Profile) course.Preview {
	return course.Preview{
		CourseIDBase:      crs.CourseIDBase,
		Title:             crs.Title,
		Section:           crs.Section,
		Theme:             crs.Theme,
		CommentPermission: crs.CommentPermission,
		PublishPermission: crs.PublishPermission,
		Creator:           crs.Creator,
	}
}

func Test_courseApi_create(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	student := env.createUser(t, "Hero", "Student", "hero@test.cd", user.RoleStudent)
	token := env.getToken(t, teacher)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students cannot create", token: env.getToken(t, student), body: []byte(`{"course_id_base": "math", "title": "Math"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Missing fields", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"course_id_base": "this field is required", "title": "this field is required"}),
		},
		{
			name: "Invalid fields", token: token, body: []byte(`{"course_id_base": "ma th", "title": "Math", "delete_permission": "lol"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"course_id_base":    "only alphanumeric characters and underscores are allowed",
				"delete_permission": "must be one of member, teacher, admin or creator",
			}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/course"
	}
	runHTTPTests(t, env, tests)

	t.Run("Created", func(t *testing.T) {
		crs := env.createCourse(t, token, " MATH_101 ", " Math ")
		assert.Equal(t, course.Profile{
			CourseIDBase:      "math_101",
			Title:             "Math",
			ConfigPermission:  course.TierCreator,
			DeletePermission:  course.TierCreator,
			CommentPermission: course.TierMember,
			PublishPermission: course.TierTeacher,
			Creator:           user.DescribeCreator(teacher),
			Students:          []user.Profile{},
			Teachers:          []user.Profile{teacher.Profile(false)},
			UserPerms: course.UserPerms{
				IsCreator:      true,
				IsTeacher:      true,
				CanUserDelete:  true,
				CanUserComment: true,
				CanUserPublish: true,
			},
		}, crs)

		// the creator is a teacher of the course
		invites, err := env.invRepo.QueryInvites(context.Background(), course.InviteFilter{UserID: teacher.ID})
		require.NoError(t, err)
		require.Len(t, invites, 1)
		assert.Equal(t, course.CapacityTeacher, invites[0].Capacity)
		assert.Equal(t, course.StatusAccepted, invites[0].Status)
	})

	t.Run("Duplicate", func(t *testing.T) {
		rec := env.serve(http.MethodPost, "/api/course", token, []byte(`{"course_id_base": "math_101", "title": "Again"}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"course_id_base": course.ErrCourseExists.Error()}),
		}, rec)
	})
}

type failingInviteRepo struct {
	course.InviteRepository
}

func (failingInviteRepo) CreateInvite(context.Context, course.Invite, ...core.DBExecutor) (course.Invite, error) {
	return course.Invite{}, errors.New("disk on fire")
}

func Test_courseApi_createRollsBack(t *testing.T) {
	env := setup(t, func(env *testEnv) {
		env.invRepo = failingInviteRepo{env.invRepo}
	})
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)

	rec := env.serve(http.MethodPost, "/api/course", env.getToken(t, teacher), []byte(`{"course_id_base": "math", "title": "Math"}`))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marchallObj(t, httpErr{Error: http.StatusText(http.StatusInternalServerError)}),
	}, rec)

	_, err := env.crsRepo.GetCourseByIDBase(context.Background(), "math")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func Test_courseApi_query(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "Boss", "admin@test.cd", user.RoleAdmin)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	colleague := env.createUser(t, "Tim", "Teacher", "tim@test.cd", user.RoleTeacher)
	student := env.createUser(t, "Hero", "Student", "hero@test.cd", user.RoleStudent)
	pending := env.createUser(t, "Pending", "Student", "pending@test.cd", user.RoleStudent)
	unapproved := env.createUser(t, "New", "Teacher", "new@test.cd", user.RoleUnapproved)

	token := env.getToken(t, teacher)
	math := env.createCourse(t, token, "math", "Math")
	art := env.createCourse(t, token, "art", "Art")
	bio := env.createCourse(t, env.getToken(t, colleague), "bio", "Biology")

	env.enroll(t, "math", student, course.CapacityStudent)
	env.enroll(t, "bio", student, course.CapacityStudent)
	env.enroll(t, "bio", teacher, course.CapacityTeacher)
	env.enroll(t, "art", unapproved, course.CapacityTeacher)

	crs, err := env.crsRepo.GetCourseByIDBase(context.Background(), "art")
	require.NoError(t, err)
	_, err = env.invRepo.CreateInvite(context.Background(), course.Invite{
		CourseID: crs.ID, UserID: pending.ID, Capacity: course.CapacityStudent, Status: course.StatusPending,
	})
	require.NoError(t, err)

	path := func(title string, isArchive string) string {
		v := make(url.Values)
		if title != "" {
			v.Add("title", title)
		}
		if isArchive != "" {
			v.Add("is_archive", isArchive)
		}
		return "/api/course?" + v.Encode()
	}

	tests := []httpTest{
		{name: "Auth required", path: "/api/course", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin sees all", path: "/api/course", token: env.getToken(t, admin), wantData: marchallList(t, preview(math), preview(art), preview(bio))},
		{name: "Teacher sees created and taught", path: "/api/course", token: token, wantData: marchallList(t, preview(math), preview(art), preview(bio))},
		{name: "Other teacher", path: "/api/course", token: env.getToken(t, colleague), wantData: marchallList(t, preview(bio))},
		{name: "Student sees enrolled", path: "/api/course", token: env.getToken(t, student), wantData: marchallList(t, preview(math), preview(bio))},
		{name: "Pending invites are not enrollment", path: "/api/course", token: env.getToken(t, pending), wantData: marchallList(t)},
		{name: "Unapproved teacher sees nothing", path: "/api/course", token: env.getToken(t, unapproved), wantData: marchallList(t)},
		// filtering
		{name: "title", path: path(" Art ", ""), token: token, wantData: marchallList(t, preview(art))},
		{name: "is_archive=true", path: path("", "true"), token: token, wantData: marchallList(t)},
		{name: "is_archive=false", path: path("", "false"), token: token, wantData: marchallList(t, preview(math), preview(art), preview(bio))},
	}
	runHTTPTests(t, env, tests)
}

func Test_courseApi_retrieve(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "Boss", "admin@test.cd", user.RoleAdmin)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	student := env.createUser(t, "Hero", "Student", "hero@test.cd", user.RoleStudent)
	outsider := env.createUser(t, "Out", "Sider", "out@test.cd", user.RoleStudent)
	outsiderTeacher := env.createUser(t, "Tim", "Teacher", "tim@test.cd", user.RoleTeacher)

	math := env.createCourse(t, env.getToken(t, teacher), "math", "Math")
	env.enroll(t, "math", student, course.CapacityStudent)

	withPerms := func(perms course.UserPerms) course.Profile {
		p := math
		p.Students = []user.Profile{student.Profile(false)}
		p.UserPerms = perms
		return p
	}

	tests := []httpTest{
		{
			name: "Unknown course", path: "/api/course/lol", token: env.getToken(t, student), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "Non-member student", path: "/api/course/math", token: env.getToken(t, outsider), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Non-member teacher", path: "/api/course/math", token: env.getToken(t, outsiderTeacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Student member", path: "/api/course/math", token: env.getToken(t, student),
			wantData: marchallObj(t, withPerms(course.UserPerms{CanUserComment: true})),
		},
		{
			name: "Creator", path: "/api/course/MATH", token: env.getToken(t, teacher),
			wantData: marchallObj(t, withPerms(course.UserPerms{IsCreator: true, IsTeacher: true, CanUserDelete: true, CanUserComment: true, CanUserPublish: true})),
		},
		{
			name: "Admin", path: "/api/course/math", token: env.getToken(t, admin),
			wantData: marchallObj(t, withPerms(course.UserPerms{IsAdmin: true, CanUserComment: true, CanUserPublish: true})),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_courseApi_updateAndDelete(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	colleague := env.createUser(t, "Tim", "Teacher", "tim@test.cd", user.RoleTeacher)
	student := env.createUser(t, "Hero", "Student", "hero@test.cd", user.RoleStudent)
	token := env.getToken(t, teacher)

	env.createCourse(t, token, "math", "Math")
	env.enroll(t, "math", colleague, course.CapacityTeacher)
	env.enroll(t, "math", student, course.CapacityStudent)

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	tests := []httpTest{
		{
			name: "Student cannot configure", method: http.MethodPut, path: "/api/course/math", token: env.getToken(t, student),
			body: []byte(`{"title": "Hacked"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Teacher cannot configure a creator-only course", method: http.MethodPut, path: "/api/course/math",
			token: env.getToken(t, colleague), body: []byte(`{"title": "Mine"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Blank title", method: http.MethodPut, path: "/api/course/math", token: token,
			body: []byte(`{"title": "  "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field may not be blank"}),
		},
		{
			name: "Creator opens configuration to teachers", method: http.MethodPut, path: "/api/course/math", token: token,
			body: []byte(`{"config_permission": "teacher", "is_archive": true}`),
		},
		{
			name: "Teacher configures", method: http.MethodPut, path: "/api/course/math", token: env.getToken(t, colleague),
			body: []byte(`{"title": "Algebra"}`),
		},
		{
			name: "Teacher cannot delete", method: http.MethodDelete, path: "/api/course/math", token: env.getToken(t, colleague),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "Creator deletes", method: http.MethodDelete, path: "/api/course/math", token: token, wantCode: http.StatusNoContent},
		{name: "Deleted", path: "/api/course/math", token: token, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, env, tests)

	invites, err := env.invRepo.QueryInvites(context.Background(), course.InviteFilter{})
	require.NoError(t, err)
	assert.Empty(t, invites)
}

func Test_courseApi_ownCoursesCache(t *testing.T) {
	advance := freezeClock(t)
	env := setup(t)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	colleague := env.createUser(t, "Tim", "Teacher", "tim@test.cd", user.RoleTeacher)
	token := env.getToken(t, teacher)
	colleagueToken := env.getToken(t, colleague)

	math := env.createCourse(t, token, "math", "Math")
	env.createCourse(t, colleagueToken, "bio", "Biology")
	env.enroll(t, "bio", teacher, course.CapacityTeacher)

	rec := env.serve(http.MethodGet, "/api/course/get_own_courses", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := rec.Body.Bytes()
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, course.OwnCourses{Courses: []course.Preview{preview(math)}}),
	}, rec)

	art := env.createCourse(t, token, "art", "Art")
	advance(course.CacheTTL - time.Second)

	rec = env.serve(http.MethodGet, "/api/course/get_own_courses", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(first), rec.Body.String(), "served from cache")

	// the cache is per user
	rec = env.serve(http.MethodGet, "/api/course/get_own_courses", colleagueToken)
	assert.Contains(t, rec.Body.String(), `"course_id_base":"bio"`)

	advance(2 * time.Second)

	rec = env.serve(http.MethodGet, "/api/course/get_own_courses", token)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, course.OwnCourses{Courses: []course.Preview{preview(math), preview(art)}}),
	}, rec)
}

func Test_courseApi_retrieveCache(t *testing.T) {
	advance := freezeClock(t)
	env := setup(t)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	student := env.createUser(t, "Hero", "Student", "hero@test.cd", user.RoleStudent)
	token := env.getToken(t, teacher)

	env.createCourse(t, token, "math", "Math")

	rec := env.serve(http.MethodGet, "/api/course/math", token)
	require.Equal(t, http.StatusOK, rec.Code)

	// updates are not visible until the entry expires
	rec = env.serve(http.MethodPut, "/api/course/math", token, []byte(`{"title": "Algebra"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	env.enroll(t, "math", student, course.CapacityStudent)

	var crs course.Profile
	rec = env.serve(http.MethodGet, "/api/course/math", token)
	unmarchall(t, rec, &crs)
	assert.Equal(t, "Math", crs.Title)
	assert.Empty(t, crs.Students)

	// user_perms are computed for each caller
	rec = env.serve(http.MethodGet, "/api/course/math", env.getToken(t, student))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarchall(t, rec, &crs)
	assert.False(t, crs.UserPerms.IsCreator)

	advance(course.CacheTTL + time.Second)

	rec = env.serve(http.MethodGet, "/api/course/math", token)
	unmarchall(t, rec, &crs)
	assert.Equal(t, "Algebra", crs.Title)
	assert.Equal(t, []user.Profile{student.Profile(false)}, crs.Students)
}

func Test_courseApi_members(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	unapproved := env.createUser(t, "New", "Teacher", "new@test.cd", user.RoleUnapproved)
	ivan := env.createUser(t, "Ivan", "Petrov", "ivan@test.cd", user.RoleStudent)
	anna := env.createUser(t, "Anna", "Smith", "anna@test.cd", user.RoleStudent)
	petr := env.createUser(t, "Petr", "Ivanov", "petr@test.cd", user.RoleStudent)
	outsider := env.createUser(t, "Out", "Sider", "out@test.cd", user.RoleStudent)
	token := env.getToken(t, teacher)

	env.createCourse(t, token, "math", "Math")
	env.enroll(t, "math", ivan, course.CapacityStudent)
	env.enroll(t, "math", anna, course.CapacityStudent)
	env.enroll(t, "math", petr, course.CapacityStudent)
	env.enroll(t, "math", unapproved, course.CapacityTeacher)

	teachers := []course.Member{course.NewMember(teacher)}
	roster := func(students ...user.User) course.Roster {
		r := course.Roster{Students: []course.Member{}, Teachers: teachers}
		for _, s := range students {
			r.Students = append(r.Students, course.NewMember(s))
		}
		return r
	}

	tests := []httpTest{
		{
			name: "Non-member", path: "/api/course/math/members", token: env.getToken(t, outsider), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "All", path: "/api/course/math/members", token: token, wantData: marchallObj(t, roster(ivan, anna, petr))},
		{name: "Search iv", path: "/api/course/math/members?search=iv", token: token, wantData: marchallObj(t, roster(ivan, petr))},
		{name: "Search IV", path: "/api/course/math/members?search=IV", token: token, wantData: marchallObj(t, roster(ivan, petr))},
		{name: "Search (unknown)", path: "/api/course/math/members?search=lol", token: token, wantData: marchallObj(t, roster())},
		{
			name: "Students cannot search", path: "/api/course/math/members?search=iv", token: env.getToken(t, anna),
			wantData: marchallObj(t, roster(ivan, anna, petr)),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_courseApi_removeMember(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	ivan := env.createUser(t, "Ivan", "Petrov", "ivan@test.cd", user.RoleStudent)
	anna := env.createUser(t, "Anna", "Smith", "anna@test.cd", user.RoleStudent)
	token := env.getToken(t, teacher)

	env.createCourse(t, token, "math", "Math")
	env.enroll(t, "math", ivan, course.CapacityStudent)
	env.enroll(t, "math", anna, course.CapacityStudent)

	tests := []httpTest{
		{
			name: "Students cannot remove", method: http.MethodDelete, path: "/api/course/math/remove_member/" + ivan.ID,
			token: env.getToken(t, anna), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Removed", method: http.MethodDelete, path: "/api/course/math/remove_member/" + ivan.ID, token: token, wantCode: http.StatusNoContent},
		{name: "Removing again", method: http.MethodDelete, path: "/api/course/math/remove_member/" + ivan.ID, token: token, wantCode: http.StatusNoContent},
		{
			name: "Removed student lost access", path: "/api/course/math", token: env.getToken(t, ivan),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Roster", path: "/api/course/math/members", token: token,
			wantData: marchallObj(t, course.Roster{Students: []course.Member{course.NewMember(anna)}, Teachers: []course.Member{course.NewMember(teacher)}}),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_courseApi_invites(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tom", "Teacher", "teacher@test.cd", user.RoleTeacher)
	student := env.createUser(t, "Hero", "Student", "hero@test.cd", user.RoleStudent)
	other := env.createUser(t, "Other", "Student", "other@test.cd", user.RoleStudent)
	token := env.getToken(t, teacher)
	studentToken := env.getToken(t, student)

	env.createCourse(t, token, "math", "Math")
	env.enroll(t, "math", other, course.CapacityStudent)

	invite := func(usr user.User, capacity course.Capacity) []byte {
		return marchallObj(t, course.NewInvite{UserID: usr.ID, Capacity: capacity})
	}

	t.Run("Validation", func(t *testing.T) {
		runHTTPTests(t, env, []httpTest{
			{
				name: "Members cannot invite", method: http.MethodPost, path: "/api/course/math/invites", token: env.getToken(t, other),
				body: invite(student, course.CapacityStudent), wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Error: "permission denied"}),
			},
			{
				name: "Invalid capacity", method: http.MethodPost, path: "/api/course/math/invites", token: token,
				body: invite(student, "lol"), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"capacity": "capacity must be one of [teacher student]"}),
			},
			{
				name: "Already a member", method: http.MethodPost, path: "/api/course/math/invites", token: token,
				body: invite(other, course.CapacityStudent), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"user_id": course.ErrInviteExists.Error()}),
			},
		})
	})

	var inv course.Invite
	t.Run("Invited", func(t *testing.T) {
		rec := env.serve(http.MethodPost, "/api/course/math/invites", token, invite(student, course.CapacityStudent))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarchall(t, rec, &inv)
		assert.Equal(t, course.StatusPending, inv.Status)
		assert.Equal(t, student.ID, inv.UserID)

		sent := env.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, student.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Math")

		rec = env.serve(http.MethodPost, "/api/course/math/invites", token, invite(student, course.CapacityStudent))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		// not a member yet
		rec = env.serve(http.MethodGet, "/api/course/math", studentToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Pending", func(t *testing.T) {
		rec := env.serve(http.MethodGet, "/api/course/invites", studentToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var views []course.InviteView
		unmarchall(t, rec, &views)
		require.Len(t, views, 1)
		assert.Equal(t, inv.ID, views[0].ID)
		assert.Equal(t, "math", views[0].CourseIDBase)
		assert.Equal(t, "Math", views[0].CourseTitle)

		rec = env.serve(http.MethodGet, "/api/course/invites", token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("Answered", func(t *testing.T) {
		runHTTPTests(t, env, []httpTest{
			{
				name: "Only the invitee answers", method: http.MethodPost, path: "/api/course/invites/" + inv.ID + "/accept",
				token: token, wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Error: "you can only answer your own invites"}),
			},
			{
				name: "Unknown invite", method: http.MethodPost, path: "/api/course/invites/lol/accept",
				token: studentToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "invite not found"}),
			},
			{name: "Accepted", method: http.MethodPost, path: "/api/course/invites/" + inv.ID + "/accept", token: studentToken},
			{name: "Accepting again", method: http.MethodPost, path: "/api/course/invites/" + inv.ID + "/accept", token: studentToken},
			{
				name: "Declining accepted", method: http.MethodPost, path: "/api/course/invites/" + inv.ID + "/decline",
				token: studentToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrInviteAccepted.Error()}),
			},
			{name: "Member now", path: "/api/course/math", token: studentToken},
			{name: "No more pending", path: "/api/course/invites", token: studentToken, wantData: marchallList(t)},
		})
	})

	t.Run("Declined", func(t *testing.T) {
		rec := env.serve(http.MethodPost, "/api/course/math/invites", token, invite(student, course.CapacityTeacher))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var tInv course.Invite
		unmarchall(t, rec, &tInv)

		rec = env.serve(http.MethodPost, "/api/course/invites/"+tInv.ID+"/decline", studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarchall(t, rec, &tInv)
		assert.Equal(t, course.StatusDeclined, tInv.Status)

		rec = env.serve(http.MethodPost, "/api/course/invites/"+tInv.ID+"/accept", studentToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrInviteDeclined.Error()})}, rec)

		// inviting again re-opens the invite
		rec = env.serve(http.MethodPost, "/api/course/math/invites", token, invite(student, course.CapacityTeacher))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var reopened course.Invite
		unmarchall(t, rec, &reopened)
		assert.Equal(t, tInv.ID, reopened.ID)
		assert.Equal(t, course.StatusPending, reopened.Status)
	})
}
