package boiledrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

type userRow struct {
	ID           string    `boil:"id"`
	FirstName    string    `boil:"first_name"`
	SecondName   string    `boil:"second_name"`
	LastName     string    `boil:"last_name"`
	Email        string    `boil:"email"`
	Avatar       string    `boil:"avatar"`
	Role         string    `boil:"role"`
	IsActive     bool      `boil:"is_active"`
	PasswordHash []byte    `boil:"password_hash"`
	CreatedAt    null.Time `boil:"created_at"`
	UpdatedAt    null.Time `boil:"updated_at"`
	LastLogin    null.Time `boil:"last_login"`
}

const userColumns = "id, first_name, second_name, last_name, email, avatar, role, is_active, password_hash, created_at, updated_at, last_login"

// userOrderings are the columns users may be sorted by.
var userOrderings = map[string]bool{
	"created_at": true,
	"email":      true,
	"first_name": true,
	"last_name":  true,
	"role":       true,
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		FirstName:    usr.FirstName,
		SecondName:   usr.SecondName,
		LastName:     usr.LastName,
		Email:        usr.Email,
		Avatar:       usr.Avatar,
		Role:         string(usr.Role),
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    null.TimeFromPtr(usr.LastLogin),
	}
}

func (repo userRepository) unboil(u *userRow) user.User {
	if u == nil {
		return user.User{}
	}
	return user.User{
		ID:           u.ID,
		FirstName:    u.FirstName,
		SecondName:   u.SecondName,
		LastName:     u.LastName,
		Email:        u.Email,
		Avatar:       u.Avatar,
		Role:         user.Role(u.Role),
		IsActive:     u.IsActive,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.Time.UTC(),
		UpdatedAt:    u.UpdatedAt.Time.UTC(),
		LastLogin:    utcPtr(u.LastLogin),
	}
}

func (repo userRepository) unboilSlice(slice []*userRow) []user.User {
	users := make([]user.User, 0, len(slice))
	for _, u := range slice {
		users = append(users, repo.unboil(u))
	}
	return users
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	mods := []qm.QueryMod{qm.From(tableUsers), qm.Where("email = ?", email)}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		mods = append(mods, qm.WhereIn("id NOT IN ?", toArgs(ids)...))
	}

	cnt, err := count(ctx, newQuery(mods...), getExec(repo.exec, exec))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if cnt > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	u := repo.boil(usr)
	_, err := queries.Raw(
		"INSERT INTO "+tableUsers+" ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		u.ID, u.FirstName, u.SecondName, u.LastName, u.Email, u.Avatar, u.Role, u.IsActive, u.PasswordHash,
		u.CreatedAt, u.UpdatedAt, u.LastLogin,
	).ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unboil(&u), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	mods := []qm.QueryMod{qm.Select(userColumns), qm.From(tableUsers)}

	if filter != nil {
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roles = append(roles, string(role))
			}
			mods = append(mods, qm.WhereIn("role IN ?", toArgs(roles)...))
		}
		if filter.IsActive != nil {
			mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
		}
		if filter.Email != "" {
			mods = append(mods, qm.Where("email = ?", filter.Email))
		}
	}

	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if userOrderings[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		orderList = append(orderList, core.DBOrdering{Field: "created_at"}.String())
	}
	mods = append(mods, qm.OrderBy(strings.Join(orderList, ", ")))

	var users []*userRow
	if err := newQuery(mods...).Bind(ctx, getExec(repo.exec, exec), &users); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unboilSlice(users), nil
}

func (repo userRepository) getUser(ctx context.Context, exec []core.DBExecutor, mods ...qm.QueryMod) (user.User, error) {
	mods = append([]qm.QueryMod{qm.Select(userColumns), qm.From(tableUsers)}, mods...)
	mods = append(mods, qm.Limit(1))

	var u userRow
	if err := newQuery(mods...).Bind(ctx, getExec(repo.exec, exec), &u); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(&u), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, exec, qm.Where("id = ?", id))
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, exec, qm.Where("email = ?", email))
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return []user.User{}, nil
	}

	var rows []*userRow
	err := newQuery(
		qm.Select(userColumns),
		qm.From(tableUsers),
		qm.WhereIn("id IN ?", toArgs(ids)...),
	).Bind(ctx, getExec(repo.exec, exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying users by ID")
	}

	byID := make(map[string]*userRow, len(rows))
	for _, u := range rows {
		byID[u.ID] = u
	}
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, repo.unboil(u))
		}
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	u := repo.boil(usr)
	res, err := queries.Raw(
		"UPDATE "+tableUsers+` SET first_name = $2, second_name = $3, last_name = $4, email = $5, avatar = $6,
			role = $7, is_active = $8, password_hash = $9, updated_at = $10, last_login = $11 WHERE id = $1`,
		u.ID, u.FirstName, u.SecondName, u.LastName, u.Email, u.Avatar, u.Role, u.IsActive, u.PasswordHash,
		u.UpdatedAt, u.LastLogin,
	).ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.unboil(&u), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	q := newQuery(qm.From(tableUsers), qm.WhereIn("id IN ?", toArgs(ids)...))
	queries.SetDelete(q)
	res, err := q.ExecContext(ctx, getExec(repo.exec, exec))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
