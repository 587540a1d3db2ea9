package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

// addUser creates an active user with the given role, or reactivates an existing one.
// An existing user keeps their role unless it is the approval of an unapproved teacher.
func (cli *commandLine) addUser(email, firstName, lastName string, role user.Role, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			FirstName: core.CleanString(firstName),
			LastName:  core.CleanString(lastName),
			Email:     email,
			Role:      role,
			Password:  pwd,
		})
		if err != nil {
			return err
		}
		cli.logger.Info("user created", map[string]interface{}{"id": usr.ID, "email": usr.Email, "role": usr.Role})
		return nil
	}

	isActive := true
	usr, err = cli.usrSvc.Update(ctx, usr, user.UpdateUser{Role: &role, IsActive: &isActive, Password: pwd})
	if err != nil {
		return err
	}
	cli.logger.Info("user updated", map[string]interface{}{"id": usr.ID, "email": usr.Email, "role": usr.Role})
	return nil
}
