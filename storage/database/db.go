package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"                // also registers the "postgres" driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/fs"
)

func init() {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		panic(err)
	}
}

func open(dbName string, admin bool, conf *core.Config) (*sql.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sql.Open(conf.Database.Engine, u.String())
}

// Open connects to the app database with the driver named by conf.Database.Engine.
func Open(conf *core.Config) (*sql.DB, error) {
	return open(conf.Database.Name, false, conf)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// exists runs a single-row "SELECT true ..." lookup.
func exists(ctx context.Context, db *sql.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return found, err
}

// ensureRole creates the login role the app connects with, when missing.
func ensureRole(ctx context.Context, db *sql.DB, name, pwd string) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", name)
	if err != nil || found {
		return errors.Wrapf(err, "looking up role %s", name)
	}
	q := fmt.Sprintf("CREATE ROLE %s LOGIN CREATEDB ENCRYPTED PASSWORD %s", pq.QuoteIdentifier(name), pq.QuoteLiteral(pwd))
	_, err = db.ExecContext(ctx, q)
	return errors.Wrapf(err, "creating role %s", name)
}

// ensureDatabase creates the app database, owned by the connected role, when missing.
func ensureDatabase(ctx context.Context, db *sql.DB, name string) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", name)
	if err != nil || found {
		return errors.Wrapf(err, "looking up database %s", name)
	}
	_, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	return errors.Wrapf(err, "creating database %s", name)
}

// CreateIfNotExist bootstraps the app role (as the admin user) and the app database (as the app role).
// Both connect to the "postgres" maintenance database.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening maintenance database as admin")
	}
	defer func() { _ = adminDB.Close() }()
	if err = ping(adminDB); err != nil {
		return err
	}
	if conf.Database.User != "" {
		if err = ensureRole(ctx, adminDB, conf.Database.User, conf.Database.Password); err != nil {
			return err
		}
	}

	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening maintenance database")
	}
	defer func() { _ = appDB.Close() }()
	return ensureDatabase(ctx, appDB, conf.Database.Name)
}

// Migrate applies every pending migration embedded in appfs.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
