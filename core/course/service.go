package course

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

// CacheTTL is how long course payloads stay cached. Writes never evict them.
const CacheTTL = 900 * time.Second

var (
	// errors
	ErrNotFound       = core.NewNotFound("course not found")
	ErrInviteNotFound = core.NewNotFound("invite not found")
	ErrCourseExists   = errors.New("a course with this course_id_base already exists")
	ErrInviteExists   = errors.New("this user is already invited to the course")
	ErrInviteDeclined = errors.New("invite was declined")
	ErrInviteAccepted = errors.New("invite was already accepted")
)

func ownCoursesKey(userID string) string { return "course_list::" + userID }
func detailKey(courseIDBase string) string { return "course_detail::" + courseIDBase }

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourseByIDBase(ctx context.Context, courseIDBase string, exec ...core.DBExecutor) (Course, error)
		GetCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Course, error)
		// QueryCourses returns the courses in scope matching filter, oldest first.
		QueryCourses(ctx context.Context, scope Scope, filter *QueryFilter, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	InviteRepository interface {
		CreateInvite(ctx context.Context, inv Invite, exec ...core.DBExecutor) (Invite, error)
		GetInviteByID(ctx context.Context, id string, exec ...core.DBExecutor) (Invite, error)
		// QueryInvites returns the invites matching filter, oldest first.
		QueryInvites(ctx context.Context, filter InviteFilter, exec ...core.DBExecutor) ([]Invite, error)
		UpdateInvite(ctx context.Context, inv Invite, exec ...core.DBExecutor) (Invite, error)
		DeleteInvites(ctx context.Context, filter InviteFilter, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		List(ctx context.Context, usr user.User, filter *QueryFilter) ([]Preview, error)
		OwnCourses(ctx context.Context, usr user.User) (json.RawMessage, error)
		Retrieve(ctx context.Context, usr user.User, courseIDBase string) (Profile, error)
		Create(ctx context.Context, usr user.User, nc NewCourse) (Profile, error)
		Update(ctx context.Context, usr user.User, courseIDBase string, uc UpdateCourse) (Profile, error)
		Delete(ctx context.Context, usr user.User, courseIDBase string) error
		Members(ctx context.Context, usr user.User, courseIDBase, search string) (Roster, error)
		RemoveMember(ctx context.Context, usr user.User, courseIDBase, studentID string) error
		Invite(ctx context.Context, usr user.User, courseIDBase string, ni NewInvite) (Invite, error)
		AcceptInvite(ctx context.Context, usr user.User, inviteID string) (Invite, error)
		DeclineInvite(ctx context.Context, usr user.User, inviteID string) (Invite, error)
		PendingInvites(ctx context.Context, usr user.User) ([]InviteView, error)
	}

	Service struct {
		tx      core.Transactor
		repo    Repository
		invRepo InviteRepository
		usrSvc  user.ServiceInterface
		cache   core.Cache
		mailSvc core.EmailService
		logger  core.Logger
	}

	// InviteView is an invite with the course it is for.
	InviteView struct {
		Invite
		CourseIDBase string `json:"course_id_base"`
		CourseTitle  string `json:"course_title"`
	}

	// detail is the cached, caller-independent part of a Profile.
	detail struct {
		Course    Course         `json:"course"`
		CreatorID string         `json:"creator_id"`
		Creator   user.Creator   `json:"creator"`
		Students  []user.Profile `json:"students"`
		Teachers  []user.Profile `json:"teachers"`
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(
	tx core.Transactor,
	repo Repository,
	invRepo InviteRepository,
	usrSvc user.ServiceInterface,
	cache core.Cache,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		tx:      tx,
		repo:    repo,
		invRepo: invRepo,
		usrSvc:  usrSvc,
		cache:   cache,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// getCourse finds a course and checks that usr may see it.
func (svc *Service) getCourse(ctx context.Context, usr user.User, courseIDBase string) (Course, error) {
	crs, err := svc.repo.GetCourseByIDBase(ctx, core.CleanString(courseIDBase, true /* lower */))
	if err != nil {
		return Course{}, err
	}
	isMember, err := svc.isMember(ctx, usr, crs)
	if err != nil {
		return Course{}, err
	}
	if !CanRetrieve(usr, crs, isMember) {
		return Course{}, core.ErrPermissionDenied
	}
	return crs, nil
}

func (svc *Service) isMember(ctx context.Context, usr user.User, crs Course) (bool, error) {
	invites, err := svc.invRepo.QueryInvites(ctx, InviteFilter{
		CourseID: crs.ID,
		UserID:   usr.ID,
		Statuses: []InviteStatus{StatusAccepted},
	})
	if err != nil {
		return false, errors.Wrap(err, "querying membership")
	}
	return len(invites) > 0, nil
}

// members returns the users holding an accepted invite in capacity, in invite order.
func (svc *Service) members(ctx context.Context, crs Course, capacity Capacity) ([]user.User, error) {
	invites, err := svc.invRepo.QueryInvites(ctx, InviteFilter{
		CourseID: crs.ID,
		Capacity: capacity,
		Statuses: []InviteStatus{StatusAccepted},
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying invites")
	}
	ids := make([]string, 0, len(invites))
	for _, inv := range invites {
		ids = append(ids, inv.UserID)
	}
	users, err := svc.usrSvc.GetManyByID(ctx, ids)
	return users, errors.Wrap(err, "finding members")
}

func (svc *Service) previews(ctx context.Context, courses []Course) ([]Preview, error) {
	ids := make([]string, 0, len(courses))
	for _, crs := range courses {
		ids = append(ids, crs.CreatorID)
	}
	creators, err := svc.usrSvc.GetManyByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding creators")
	}
	byID := make(map[string]user.User, len(creators))
	for _, usr := range creators {
		byID[usr.ID] = usr
	}

	previews := make([]Preview, 0, len(courses))
	for _, crs := range courses {
		previews = append(previews, Preview{
			CourseIDBase:      crs.CourseIDBase,
			Title:             crs.Title,
			Section:           crs.Section,
			Theme:             crs.Theme,
			CommentPermission: crs.CommentPermission,
			PublishPermission: crs.PublishPermission,
			Creator:           user.DescribeCreator(byID[crs.CreatorID]),
		})
	}
	return previews, nil
}

func (svc *Service) buildDetail(ctx context.Context, crs Course) (detail, error) {
	creator, err := svc.usrSvc.GetByID(ctx, crs.CreatorID)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return detail{}, errors.Wrap(err, "finding creator")
	}
	students, err := svc.members(ctx, crs, CapacityStudent)
	if err != nil {
		return detail{}, err
	}
	teachers, err := svc.members(ctx, crs, CapacityTeacher)
	if err != nil {
		return detail{}, err
	}

	d := detail{
		Course:    crs,
		CreatorID: crs.CreatorID,
		Creator:   user.DescribeCreator(creator),
		Students:  make([]user.Profile, 0, len(students)),
		Teachers:  make([]user.Profile, 0, len(teachers)),
	}
	for _, usr := range students {
		d.Students = append(d.Students, usr.Profile(false))
	}
	for _, usr := range teachers {
		d.Teachers = append(d.Teachers, usr.Profile(false))
	}
	return d, nil
}

func (d detail) profile(usr user.User) Profile {
	crs := d.Course
	crs.CreatorID = d.CreatorID
	return Profile{
		CourseIDBase:      d.Course.CourseIDBase,
		Title:             d.Course.Title,
		Section:           d.Course.Section,
		Theme:             d.Course.Theme,
		IsArchive:         d.Course.IsArchive,
		ConfigPermission:  d.Course.ConfigPermission,
		DeletePermission:  d.Course.DeletePermission,
		CommentPermission: d.Course.CommentPermission,
		PublishPermission: d.Course.PublishPermission,
		Creator:           d.Creator,
		Students:          d.Students,
		Teachers:          d.Teachers,
		UserPerms:         Perms(usr, crs),
	}
}

// cacheGet logs cache failures and reports them as misses.
func (svc *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	val, ok, err := svc.cache.Get(ctx, key)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cache key %s: %v", key, err), err)
		return nil, false
	}
	return val, ok
}

func (svc *Service) cacheSet(ctx context.Context, key string, val []byte) {
	if err := svc.cache.Set(ctx, key, val, CacheTTL); err != nil {
		svc.logger.Warn(fmt.Sprintf("writing cache key %s: %v", key, err), err)
	}
}

// List returns the courses visible to usr.
func (svc *Service) List(ctx context.Context, usr user.User, filter *QueryFilter) ([]Preview, error) {
	scope := VisibleScope(usr)
	if scope.IsEmpty() {
		return []Preview{}, nil
	}
	courses, err := svc.repo.QueryCourses(ctx, scope, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return svc.previews(ctx, courses)
}

// OwnCourses returns the serialized courses created by usr, served from cache when fresh.
func (svc *Service) OwnCourses(ctx context.Context, usr user.User) (json.RawMessage, error) {
	key := ownCoursesKey(usr.ID)
	if val, ok := svc.cacheGet(ctx, key); ok {
		return val, nil
	}

	courses, err := svc.repo.QueryCourses(ctx, OwnScope(usr), nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying own courses")
	}
	previews, err := svc.previews(ctx, courses)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(OwnCourses{Courses: previews})
	if err != nil {
		return nil, errors.Wrap(err, "marshalling own courses")
	}
	svc.cacheSet(ctx, key, payload)
	return payload, nil
}

// Retrieve returns a course to a member, its creator or an admin.
// The caller-independent part of the payload is cached per course.
func (svc *Service) Retrieve(ctx context.Context, usr user.User, courseIDBase string) (Profile, error) {
	crs, err := svc.getCourse(ctx, usr, courseIDBase)
	if err != nil {
		return Profile{}, err
	}

	key := detailKey(crs.CourseIDBase)
	if val, ok := svc.cacheGet(ctx, key); ok {
		var d detail
		if err = json.Unmarshal(val, &d); err == nil {
			return d.profile(usr), nil
		}
		svc.logger.Warn(fmt.Sprintf("decoding cache key %s: %v", key, err), err)
	}

	d, err := svc.buildDetail(ctx, crs)
	if err != nil {
		return Profile{}, err
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return Profile{}, errors.Wrap(err, "marshalling course detail")
	}
	svc.cacheSet(ctx, key, payload)
	return d.profile(usr), nil
}

// Create creates a course and enrolls usr as its first teacher, atomically.
func (svc *Service) Create(ctx context.Context, usr user.User, nc NewCourse) (Profile, error) {
	if !CanCreate(usr) {
		return Profile{}, core.ErrPermissionDenied
	}

	now := core.NowFunc()
	crs := Course{
		CourseIDBase:      nc.CourseIDBase,
		CreatorID:         usr.ID,
		Title:             nc.Title,
		Section:           nc.Section,
		Theme:             nc.Theme,
		InvCode:           newInvCode(),
		ConfigPermission:  tierOrDefault(nc.ConfigPermission, TierCreator),
		DeletePermission:  tierOrDefault(nc.DeletePermission, TierCreator),
		CommentPermission: tierOrDefault(nc.CommentPermission, TierMember),
		PublishPermission: tierOrDefault(nc.PublishPermission, TierTeacher),
		CreatedAt:         now,
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetCourseByIDBase(ctx, crs.CourseIDBase, exec); err == nil {
			return core.NewValidationError(ErrCourseExists, core.FieldError{Field: "course_id_base", Error: ErrCourseExists.Error()})
		} else if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "checking course_id_base uniqueness")
		}

		var err error
		if crs, err = svc.repo.CreateCourse(ctx, crs, exec); err != nil {
			return errors.Wrap(err, "creating course")
		}

		inv := Invite{
			CourseID:  crs.ID,
			UserID:    usr.ID,
			Capacity:  CapacityTeacher,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = inv.Accept(now); err != nil {
			return err
		}
		if _, err = svc.invRepo.CreateInvite(ctx, inv, exec); err != nil {
			return errors.Wrap(err, "creating creator invite")
		}
		return nil
	})
	if err != nil {
		return Profile{}, err
	}

	d, err := svc.buildDetail(ctx, crs)
	if err != nil {
		return Profile{}, err
	}
	return d.profile(usr), nil
}

// Update modifies a course. Only its creator, or roles admitted by its config tier, may do it.
func (svc *Service) Update(ctx context.Context, usr user.User, courseIDBase string, uc UpdateCourse) (Profile, error) {
	crs, err := svc.getCourse(ctx, usr, courseIDBase)
	if err != nil {
		return Profile{}, err
	}
	if !CanConfigure(usr, crs) {
		return Profile{}, core.ErrPermissionDenied
	}

	uc.apply(&crs)
	if crs, err = svc.repo.UpdateCourse(ctx, crs); err != nil {
		return Profile{}, errors.Wrap(err, "updating course")
	}
	d, err := svc.buildDetail(ctx, crs)
	if err != nil {
		return Profile{}, err
	}
	return d.profile(usr), nil
}

// Delete removes a course and its invites.
func (svc *Service) Delete(ctx context.Context, usr user.User, courseIDBase string) error {
	crs, err := svc.getCourse(ctx, usr, courseIDBase)
	if err != nil {
		return err
	}
	if !CanDelete(usr, crs) {
		return core.ErrPermissionDenied
	}
	return errors.Wrap(svc.repo.DeleteCourse(ctx, crs.ID), "deleting course")
}

// Members returns the course roster. Only teachers and admins may narrow the students with search.
func (svc *Service) Members(ctx context.Context, usr user.User, courseIDBase, search string) (Roster, error) {
	crs, err := svc.getCourse(ctx, usr, courseIDBase)
	if err != nil {
		return Roster{}, err
	}

	students, err := svc.members(ctx, crs, CapacityStudent)
	if err != nil {
		return Roster{}, err
	}
	if CanManageRoster(usr) {
		students = SearchMembers(students, search)
	}
	teachers, err := svc.members(ctx, crs, CapacityTeacher)
	if err != nil {
		return Roster{}, err
	}
	teachers = approvedTeachers(teachers)

	roster := Roster{
		Students: make([]Member, 0, len(students)),
		Teachers: make([]Member, 0, len(teachers)),
	}
	for _, s := range students {
		roster.Students = append(roster.Students, NewMember(s))
	}
	for _, t := range teachers {
		roster.Teachers = append(roster.Teachers, NewMember(t))
	}
	return roster, nil
}

// RemoveMember drops a student from the course roster. Removing a non-member is a no-op.
func (svc *Service) RemoveMember(ctx context.Context, usr user.User, courseIDBase, studentID string) error {
	if !CanManageRoster(usr) {
		return core.ErrPermissionDenied
	}
	crs, err := svc.getCourse(ctx, usr, courseIDBase)
	if err != nil {
		return err
	}
	_, err = svc.invRepo.DeleteInvites(ctx, InviteFilter{
		CourseID: crs.ID,
		UserID:   core.CleanString(studentID, true /* lower */),
		Capacity: CapacityStudent,
	})
	return errors.Wrap(err, "removing member")
}

// Invite creates a pending invite and emails the invitee.
func (svc *Service) Invite(ctx context.Context, usr user.User, courseIDBase string, ni NewInvite) (Invite, error) {
	crs, err := svc.getCourse(ctx, usr, courseIDBase)
	if err != nil {
		return Invite{}, err
	}
	isTeacher, err := svc.holds(ctx, usr.ID, crs, CapacityTeacher)
	if err != nil {
		return Invite{}, err
	}
	if !CanInvite(usr, crs, isTeacher) {
		return Invite{}, core.ErrPermissionDenied
	}

	invitee, err := svc.usrSvc.GetByID(ctx, ni.UserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Invite{}, core.NewValidationError(err, core.FieldError{Field: "user_id", Error: err.Error()})
		}
		return Invite{}, errors.Wrap(err, "finding invitee")
	}

	existing, err := svc.invRepo.QueryInvites(ctx, InviteFilter{
		CourseID: crs.ID,
		UserID:   invitee.ID,
		Capacity: ni.Capacity,
	})
	if err != nil {
		return Invite{}, errors.Wrap(err, "querying invites")
	}

	now := core.NowFunc()
	var inv Invite
	if len(existing) > 0 {
		// a declined invite is re-opened, others are duplicates
		inv = existing[0]
		if inv.Status != StatusDeclined {
			return Invite{}, core.NewValidationError(ErrInviteExists, core.FieldError{Field: "user_id", Error: ErrInviteExists.Error()})
		}
		inv.Status = StatusPending
		inv.UpdatedAt = now
		if inv, err = svc.invRepo.UpdateInvite(ctx, inv); err != nil {
			return Invite{}, errors.Wrap(err, "re-opening invite")
		}
	} else {
		inv, err = svc.invRepo.CreateInvite(ctx, Invite{
			CourseID:  crs.ID,
			UserID:    invitee.ID,
			Capacity:  ni.Capacity,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return Invite{}, errors.Wrap(err, "creating invite")
		}
	}

	svc.sendInviteMail(usr, invitee, crs, inv)
	return inv, nil
}

// holds reports whether userID holds an accepted invite in capacity.
func (svc *Service) holds(ctx context.Context, userID string, crs Course, capacity Capacity) (bool, error) {
	invites, err := svc.invRepo.QueryInvites(ctx, InviteFilter{
		CourseID: crs.ID,
		UserID:   userID,
		Capacity: capacity,
		Statuses: []InviteStatus{StatusAccepted},
	})
	if err != nil {
		return false, errors.Wrap(err, "querying invites")
	}
	return len(invites) > 0, nil
}

func (svc *Service) sendInviteMail(inviter, invitee user.User, crs Course, inv Invite) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: invitee.FullName(), Address: invitee.Email}},
		Subject:      "Invitation to " + crs.Title,
		TemplateName: "course_invite",
		TemplateData: map[string]string{
			"Name":        invitee.FirstName,
			"InvitedBy":   inviter.FullName(),
			"CourseTitle": crs.Title,
			"Capacity":    string(inv.Capacity),
			"InviteID":    inv.ID,
		},
	})
}

// getOwnInvite finds an invite addressed to usr.
func (svc *Service) getOwnInvite(ctx context.Context, usr user.User, inviteID string) (Invite, error) {
	inv, err := svc.invRepo.GetInviteByID(ctx, core.CleanString(inviteID, true /* lower */))
	if err != nil {
		return Invite{}, err
	}
	if inv.UserID != usr.ID {
		return Invite{}, core.NewPermissionDenied("you can only answer your own invites")
	}
	return inv, nil
}

func (svc *Service) AcceptInvite(ctx context.Context, usr user.User, inviteID string) (Invite, error) {
	inv, err := svc.getOwnInvite(ctx, usr, inviteID)
	if err != nil {
		return Invite{}, err
	}
	if inv.Status == StatusAccepted {
		return inv, nil
	}
	if err = inv.Accept(core.NowFunc()); err != nil {
		return Invite{}, core.NewValidationError(err)
	}
	return svc.invRepo.UpdateInvite(ctx, inv)
}

func (svc *Service) DeclineInvite(ctx context.Context, usr user.User, inviteID string) (Invite, error) {
	inv, err := svc.getOwnInvite(ctx, usr, inviteID)
	if err != nil {
		return Invite{}, err
	}
	if inv.Status == StatusDeclined {
		return inv, nil
	}
	if err = inv.Decline(core.NowFunc()); err != nil {
		return Invite{}, core.NewValidationError(err)
	}
	return svc.invRepo.UpdateInvite(ctx, inv)
}

// PendingInvites lists the invites usr has not answered yet, oldest first.
func (svc *Service) PendingInvites(ctx context.Context, usr user.User) ([]InviteView, error) {
	invites, err := svc.invRepo.QueryInvites(ctx, InviteFilter{
		UserID:   usr.ID,
		Statuses: []InviteStatus{StatusPending},
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying invites")
	}
	if len(invites) == 0 {
		return []InviteView{}, nil
	}

	ids := make([]string, 0, len(invites))
	for _, inv := range invites {
		ids = append(ids, inv.CourseID)
	}
	courses, err := svc.repo.GetCoursesByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	byID := make(map[string]Course, len(courses))
	for _, crs := range courses {
		byID[crs.ID] = crs
	}

	views := make([]InviteView, 0, len(invites))
	for _, inv := range invites {
		crs := byID[inv.CourseID]
		views = append(views, InviteView{Invite: inv, CourseIDBase: crs.CourseIDBase, CourseTitle: crs.Title})
	}
	return views, nil
}

// newInvCode returns a short random code students can join a course with.
func newInvCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func tierOrDefault(t, def Tier) Tier {
	if t == "" {
		return def
	}
	return t
}
