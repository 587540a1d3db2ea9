package boiledrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
)

type courseRow struct {
	ID                string    `boil:"id"`
	CourseIDBase      string    `boil:"course_id_base"`
	CreatorID         string    `boil:"creator_id"`
	Title             string    `boil:"title"`
	Section           string    `boil:"section"`
	Theme             string    `boil:"theme"`
	IsArchive         bool      `boil:"is_archive"`
	InvCode           string    `boil:"inv_code"`
	ConfigPermission  string    `boil:"config_permission"`
	DeletePermission  string    `boil:"delete_permission"`
	CommentPermission string    `boil:"comment_permission"`
	PublishPermission string    `boil:"publish_permission"`
	CreatedAt         null.Time `boil:"created_at"`
}

type inviteRow struct {
	ID        string    `boil:"id"`
	CourseID  string    `boil:"course_id"`
	UserID    string    `boil:"user_id"`
	Capacity  string    `boil:"capacity"`
	Status    string    `boil:"status"`
	CreatedAt null.Time `boil:"created_at"`
	UpdatedAt null.Time `boil:"updated_at"`
}

const (
	courseColumns = "id, course_id_base, creator_id, title, section, theme, is_archive, inv_code, " +
		"config_permission, delete_permission, comment_permission, publish_permission, created_at"
	inviteColumns = "id, course_id, user_id, capacity, status, created_at, updated_at"
)

type courseRepository struct {
	exec core.DBExecutor
}

var (
	_ course.Repository       = (*courseRepository)(nil) // interface compliance check
	_ course.InviteRepository = (*courseRepository)(nil) // interface compliance check
)

// NewCourseRepository returns a repository serving both courses and their invites.
func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func boilCourse(crs course.Course) courseRow {
	return courseRow{
		ID:                crs.ID,
		CourseIDBase:      crs.CourseIDBase,
		CreatorID:         crs.CreatorID,
		Title:             crs.Title,
		Section:           crs.Section,
		Theme:             crs.Theme,
		IsArchive:         crs.IsArchive,
		InvCode:           crs.InvCode,
		ConfigPermission:  string(crs.ConfigPermission),
		DeletePermission:  string(crs.DeletePermission),
		CommentPermission: string(crs.CommentPermission),
		PublishPermission: string(crs.PublishPermission),
		CreatedAt:         null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
	}
}

func unboilCourse(c *courseRow) course.Course {
	if c == nil {
		return course.Course{}
	}
	return course.Course{
		ID:                c.ID,
		CourseIDBase:      c.CourseIDBase,
		CreatorID:         c.CreatorID,
		Title:             c.Title,
		Section:           c.Section,
		Theme:             c.Theme,
		IsArchive:         c.IsArchive,
		InvCode:           c.InvCode,
		ConfigPermission:  course.Tier(c.ConfigPermission),
		DeletePermission:  course.Tier(c.DeletePermission),
		CommentPermission: course.Tier(c.CommentPermission),
		PublishPermission: course.Tier(c.PublishPermission),
		CreatedAt:         c.CreatedAt.Time.UTC(),
	}
}

func boilInvite(inv course.Invite) inviteRow {
	return inviteRow{
		ID:        inv.ID,
		CourseID:  inv.CourseID,
		UserID:    inv.UserID,
		Capacity:  string(inv.Capacity),
		Status:    string(inv.Status),
		CreatedAt: null.NewTime(inv.CreatedAt.UTC(), !inv.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(inv.UpdatedAt.UTC(), !inv.UpdatedAt.IsZero()),
	}
}

func unboilInvite(i *inviteRow) course.Invite {
	if i == nil {
		return course.Invite{}
	}
	return course.Invite{
		ID:        i.ID,
		CourseID:  i.CourseID,
		UserID:    i.UserID,
		Capacity:  course.Capacity(i.Capacity),
		Status:    course.InviteStatus(i.Status),
		CreatedAt: i.CreatedAt.Time.UTC(),
		UpdatedAt: i.UpdatedAt.Time.UTC(),
	}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	c := boilCourse(crs)
	_, err := queries.Raw(
		"INSERT INTO "+tableCourses+" ("+courseColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		c.ID, c.CourseIDBase, c.CreatorID, c.Title, c.Section, c.Theme, c.IsArchive, c.InvCode,
		c.ConfigPermission, c.DeletePermission, c.CommentPermission, c.PublishPermission, c.CreatedAt,
	).ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return unboilCourse(&c), nil
}

func (repo courseRepository) GetCourseByIDBase(ctx context.Context, courseIDBase string, exec ...core.DBExecutor) (course.Course, error) {
	var c courseRow
	err := newQuery(
		qm.Select(courseColumns),
		qm.From(tableCourses),
		qm.Where("course_id_base = ?", courseIDBase),
		qm.Limit(1),
	).Bind(ctx, getExec(repo.exec, exec), &c)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return unboilCourse(&c), nil
}

func (repo courseRepository) GetCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]course.Course, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return []course.Course{}, nil
	}
	var rows []*courseRow
	err := newQuery(
		qm.Select(courseColumns),
		qm.From(tableCourses),
		qm.WhereIn("id IN ?", toArgs(ids)...),
		qm.OrderBy("created_at ASC"),
	).Bind(ctx, getExec(repo.exec, exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses by ID")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, c := range rows {
		courses = append(courses, unboilCourse(c))
	}
	return courses, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, scope course.Scope, filter *course.QueryFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	if scope.IsEmpty() {
		return []course.Course{}, nil
	}
	mods := []qm.QueryMod{qm.Select(courseColumns), qm.From(tableCourses)}

	if !scope.All {
		var scopeMods []qm.QueryMod
		if scope.Capacity != "" {
			scopeMods = append(scopeMods, qm.Or(
				"id IN (SELECT course_id FROM "+tableInvites+" WHERE user_id = ? AND capacity = ? AND status = ?)",
				scope.UserID, string(scope.Capacity), string(course.StatusAccepted)))
		}
		if scope.Created {
			scopeMods = append(scopeMods, qm.Or("creator_id = ?", scope.UserID))
		}
		mods = append(mods, qm.Expr(scopeMods...))
	}

	if filter != nil {
		if filter.Title != "" {
			mods = append(mods, qm.Where("title = ?", filter.Title))
		}
		if filter.Section != "" {
			mods = append(mods, qm.Where("section = ?", filter.Section))
		}
		if filter.Theme != "" {
			mods = append(mods, qm.Where("theme = ?", filter.Theme))
		}
		if filter.IsArchive != nil {
			mods = append(mods, qm.Where("is_archive = ?", *filter.IsArchive))
		}
	}
	mods = append(mods, qm.OrderBy("created_at ASC, id ASC"))

	var rows []*courseRow
	if err := newQuery(mods...).Bind(ctx, getExec(repo.exec, exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, c := range rows {
		courses = append(courses, unboilCourse(c))
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	c := boilCourse(crs)
	res, err := queries.Raw(
		"UPDATE "+tableCourses+` SET title = $2, section = $3, theme = $4, is_archive = $5, config_permission = $6,
			delete_permission = $7, comment_permission = $8, publish_permission = $9 WHERE id = $1`,
		c.ID, c.Title, c.Section, c.Theme, c.IsArchive,
		c.ConfigPermission, c.DeletePermission, c.CommentPermission, c.PublishPermission,
	).ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	q := newQuery(qm.From(tableCourses), qm.Where("id = ?", id))
	queries.SetDelete(q)
	res, err := q.ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func inviteMods(filter course.InviteFilter) []qm.QueryMod {
	var mods []qm.QueryMod
	if filter.CourseID != "" {
		mods = append(mods, qm.Where("course_id = ?", filter.CourseID))
	}
	if filter.UserID != "" {
		mods = append(mods, qm.Where("user_id = ?", filter.UserID))
	}
	if filter.Capacity != "" {
		mods = append(mods, qm.Where("capacity = ?", string(filter.Capacity)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		mods = append(mods, qm.WhereIn("status IN ?", toArgs(statuses)...))
	}
	return mods
}

// validInviteFilter reports whether the IDs in filter could exist at all.
func validInviteFilter(filter course.InviteFilter) bool {
	for _, id := range []string{filter.CourseID, filter.UserID} {
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func (repo courseRepository) CreateInvite(ctx context.Context, inv course.Invite, exec ...core.DBExecutor) (course.Invite, error) {
	inv.ID = uuid.New().String()
	i := boilInvite(inv)
	_, err := queries.Raw(
		"INSERT INTO "+tableInvites+" ("+inviteColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		i.ID, i.CourseID, i.UserID, i.Capacity, i.Status, i.CreatedAt, i.UpdatedAt,
	).ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return course.Invite{}, errors.Wrap(err, "inserting invite")
	}
	return unboilInvite(&i), nil
}

func (repo courseRepository) GetInviteByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Invite, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Invite{}, course.ErrInviteNotFound
	}
	var i inviteRow
	err := newQuery(
		qm.Select(inviteColumns),
		qm.From(tableInvites),
		qm.Where("id = ?", id),
		qm.Limit(1),
	).Bind(ctx, getExec(repo.exec, exec), &i)
	if err != nil {
		return course.Invite{}, trapNoRowsErr(err, course.ErrInviteNotFound, "finding invite")
	}
	return unboilInvite(&i), nil
}

func (repo courseRepository) QueryInvites(ctx context.Context, filter course.InviteFilter, exec ...core.DBExecutor) ([]course.Invite, error) {
	if !validInviteFilter(filter) {
		return []course.Invite{}, nil
	}
	mods := append([]qm.QueryMod{qm.Select(inviteColumns), qm.From(tableInvites)}, inviteMods(filter)...)
	mods = append(mods, qm.OrderBy("created_at ASC, id ASC"))

	var rows []*inviteRow
	if err := newQuery(mods...).Bind(ctx, getExec(repo.exec, exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying invites")
	}
	invites := make([]course.Invite, 0, len(rows))
	for _, i := range rows {
		invites = append(invites, unboilInvite(i))
	}
	return invites, nil
}

func (repo courseRepository) UpdateInvite(ctx context.Context, inv course.Invite, exec ...core.DBExecutor) (course.Invite, error) {
	i := boilInvite(inv)
	res, err := queries.Raw(
		"UPDATE "+tableInvites+" SET status = $2, updated_at = $3 WHERE id = $1",
		i.ID, i.Status, i.UpdatedAt,
	).ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return course.Invite{}, errors.Wrap(err, "updating invite")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Invite{}, course.ErrInviteNotFound
	}
	return inv, nil
}

func (repo courseRepository) DeleteInvites(ctx context.Context, filter course.InviteFilter, exec ...core.DBExecutor) (int, error) {
	if !validInviteFilter(filter) {
		return 0, nil
	}
	q := newQuery(append([]qm.QueryMod{qm.From(tableInvites)}, inviteMods(filter)...)...)
	queries.SetDelete(q)
	res, err := q.ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return 0, errors.Wrap(err, "deleting invites")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting invites")
	}
	return int(cnt), nil
}
