package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
)

type courseRepository struct {
	db *DB
}

var (
	_ course.Repository       = (*courseRepository)(nil) // interface compliance check
	_ course.InviteRepository = (*courseRepository)(nil) // interface compliance check
)

// NewCourseRepository returns a repository serving both courses and their invites.
func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, r := range repo.db.courses {
		if r.val.CourseIDBase == crs.CourseIDBase {
			return course.Course{}, course.ErrCourseExists
		}
	}
	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = row[course.Course]{seq: repo.db.nextSeq(), val: crs}
	return crs, nil
}

func (repo *courseRepository) GetCourseByIDBase(_ context.Context, courseIDBase string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.courses {
		if r.val.CourseIDBase == courseIDBase {
			return r.val, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCoursesByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(ids))
	for _, id := range ids {
		if r, ok := repo.db.courses[id]; ok {
			courses = append(courses, r.val)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, scope course.Scope, filter *course.QueryFilter, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0)
	if scope.IsEmpty() {
		return courses, nil
	}

	held := make(map[string]bool)
	if scope.Capacity != "" {
		f := course.InviteFilter{
			UserID:   scope.UserID,
			Capacity: scope.Capacity,
			Statuses: []course.InviteStatus{course.StatusAccepted},
		}
		for _, r := range repo.db.invites {
			if f.Matches(r.val) {
				held[r.val.CourseID] = true
			}
		}
	}

	for _, crs := range sorted(repo.db.courses) {
		inScope := scope.All || held[crs.ID] || (scope.Created && crs.CreatorID == scope.UserID)
		if inScope && filter.Matches(crs) {
			courses = append(courses, crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	r.val = crs
	repo.db.courses[crs.ID] = r
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.deleteCourse(id)
	return nil
}

// deleteCourse must be called with db.mu held.
func (db *DB) deleteCourse(id string) {
	delete(db.courses, id)
	for iid, r := range db.invites {
		if r.val.CourseID == id {
			delete(db.invites, iid)
		}
	}
}

func (repo *courseRepository) CreateInvite(_ context.Context, inv course.Invite, _ ...core.DBExecutor) (course.Invite, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[inv.CourseID]; !ok {
		return course.Invite{}, course.ErrNotFound
	}
	for _, r := range repo.db.invites {
		if r.val.CourseID == inv.CourseID && r.val.UserID == inv.UserID && r.val.Capacity == inv.Capacity {
			return course.Invite{}, course.ErrInviteExists
		}
	}
	inv.ID = uuid.New().String()
	repo.db.invites[inv.ID] = row[course.Invite]{seq: repo.db.nextSeq(), val: inv}
	return inv, nil
}

func (repo *courseRepository) GetInviteByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Invite, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.invites[id]; ok {
		return r.val, nil
	}
	return course.Invite{}, course.ErrInviteNotFound
}

func (repo *courseRepository) QueryInvites(_ context.Context, filter course.InviteFilter, _ ...core.DBExecutor) ([]course.Invite, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invites := make([]course.Invite, 0)
	for _, inv := range sorted(repo.db.invites) {
		if filter.Matches(inv) {
			invites = append(invites, inv)
		}
	}
	return invites, nil
}

func (repo *courseRepository) UpdateInvite(_ context.Context, inv course.Invite, _ ...core.DBExecutor) (course.Invite, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r, ok := repo.db.invites[inv.ID]
	if !ok {
		return course.Invite{}, course.ErrInviteNotFound
	}
	r.val = inv
	repo.db.invites[inv.ID] = r
	return inv, nil
}

func (repo *courseRepository) DeleteInvites(_ context.Context, filter course.InviteFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for id, r := range repo.db.invites {
		if filter.Matches(r.val) {
			delete(repo.db.invites, id)
			cnt++
		}
	}
	return cnt, nil
}
