package main

import (
	"github.com/pressly/goose/v3"
)

var gooseRunFunc = goose.Run // mockable

// migrate runs goose against the migrations embedded in appfs (see database package init).
func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db, "migrations", args[1:]...)
}
