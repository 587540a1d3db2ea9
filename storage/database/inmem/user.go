package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, r := range repo.db.users {
		if r.val.Email == email && !excluded[r.val.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, r := range repo.db.users {
		if r.val.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = row[user.User]{seq: repo.db.nextSeq(), val: usr}
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range sorted(repo.db.users) {
		if matchesUser(filter, usr) {
			users = append(users, usr)
		}
	}
	if len(ordering) > 0 {
		sort.SliceStable(users, func(i, j int) bool { return lessUser(users[i], users[j], ordering) })
	} else {
		sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	}
	return users, nil
}

func matchesUser(filter *user.QueryFilter, usr user.User) bool {
	if filter == nil {
		return true
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if filter.Email != "" && usr.Email != filter.Email {
		return false
	}
	if len(filter.Roles) > 0 {
		for _, role := range filter.Roles {
			if usr.Role == role {
				return true
			}
		}
		return false
	}
	return true
}

// lessUser supports the orderings the API exposes.
func lessUser(a, b user.User, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "created_at":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case "email":
			cmp = strings.Compare(a.Email, b.Email)
		case "first_name":
			cmp = strings.Compare(a.FirstName, b.FirstName)
		case "last_name":
			cmp = strings.Compare(a.LastName, b.LastName)
		case "role":
			cmp = strings.Compare(string(a.Role), string(b.Role))
		}
		if cmp == 0 {
			continue
		}
		if ord.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return false
}

func (repo *userRepository) GetUserByID(_ context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.users[id]; ok {
		return r.val, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.users {
		if r.val.Email == email {
			return r.val, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if r, ok := repo.db.users[id]; ok {
			users = append(users, r.val)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	r.val = usr
	repo.db.users[usr.ID] = r
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			continue
		}
		delete(repo.db.users, id)
		cnt++

		// cascades
		for cid, r := range repo.db.courses {
			if r.val.CreatorID == id {
				repo.db.deleteCourse(cid)
			}
		}
		for iid, r := range repo.db.invites {
			if r.val.UserID == id {
				delete(repo.db.invites, iid)
			}
		}
		for nid, r := range repo.db.notifications {
			if r.val.RecipientID == id || r.val.SenderID == id {
				delete(repo.db.notifications, nid)
			}
		}
	}
	return cnt, nil
}
