package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/storage/database/inmem"
	"github.com/trezcool/classroom/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	return &commandLine{
		usrSvc: user.NewService(usrRepo),
		logger: testutil.NopLogger{},
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func (tt cliTest) run(t *testing.T, cli *commandLine, check ...func(t *testing.T)) {
	t.Helper()
	args := append([]string{"admin"}, tt.args...)
	readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.pwd), nil }

	t.Run(tt.name, func(t *testing.T) {
		err := cli.run(args)
		switch {
		case tt.wantErr != nil:
			assert.Equal(t, tt.wantErr, err)
		case tt.wantErrStr != "":
			if assert.Error(t, err) {
				assert.Equal(t, tt.wantErrStr, err.Error())
			}
		default:
			require.NoError(t, err)
			for _, fn := range check {
				fn(t)
			}
		}
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "submissions", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		tt.run(t, cli)
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, usrRepo, "Ivan", "Petrov", "ivan@test.cd", "old-pwd", user.RoleUnapproved, false)
	student := testutil.CreateUser(t, usrRepo, "Anna", "Smirnova", "anna@test.cd", "old-pwd", user.RoleStudent, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing first name", args: []string{"adduser", "-email", "new@test.cd"}, pwd: "pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "new@test.cd", "-first", "New"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "-email", "new@test.cd", "-first", "New", "-role", "boss"}, pwd: "pwd", wantErrStr: "\"boss\": invalid role"},
		{name: "role of existing user is fixed", args: []string{"adduser", "-email", student.Email, "-first", "Anna", "-role", "admin"}, pwd: "pwd", wantErrStr: user.ErrRoleImmutable.Error()},
	}
	for _, tt := range tests {
		tt.run(t, cli)
	}

	t.Run("student keeps role", func(t *testing.T) {
		usr, err := usrRepo.GetUserByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.NoError(t, usr.CheckPassword("old-pwd"))
	})

	cliTest{
		name: "create admin by default",
		args: []string{"adduser", "-email", " New@Test.cd ", "-first", "New", "-last", "Admin"},
		pwd:  "s3cret-pwd",
	}.run(t, cli, func(t *testing.T) {
		usr, err := usrRepo.GetUserByEmail(ctx, "new@test.cd")
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.Equal(t, "New Admin", usr.FullName())
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("s3cret-pwd"))
	})

	cliTest{
		name: "approve existing teacher",
		args: []string{"adduser", "-email", existing.Email, "-first", "Ignored", "-role", "teacher"},
		pwd:  "new-pwd",
	}.run(t, cli, func(t *testing.T) {
		usr, err := usrRepo.GetUserByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, user.RoleTeacher, usr.Role)
		assert.Equal(t, "Ivan", usr.FirstName)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("new-pwd"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "User", "Awe", "awe@test.cd", "mdr", user.RoleStudent, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "lol", wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		tt.run(t, cli)
	}

	for _, pwd := range []string{"lol", "lmao"} {
		cliTest{
			name: "reset to " + pwd,
			args: []string{"resetpassword", "-email", " AWE@test.cd"},
			pwd:  pwd,
		}.run(t, cli, func(t *testing.T) {
			refreshed, err := usrRepo.GetUserByID(ctx, usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(pwd))
		})
	}
}
