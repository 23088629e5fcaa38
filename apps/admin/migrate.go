package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/trezcool/academia/storage/database"
)

var migrateFunc = func(db *sqlx.DB, command string, args ...string) error { // mockable
	return database.Migrate(db.DB, command, args...)
}

func migrateCmd(cl *commandLine) *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "Run database migrations",
		ArgsUsage: "COMMAND [ARGS] (up, up-by-one, up-to V, down, down-to V, redo, reset, status, version)",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				_, _ = fmt.Fprintln(cl.out, "usage: admin migrate "+c.Command.ArgsUsage)
				return errHelp
			}
			db, err := cl.database()
			if err != nil {
				return err
			}
			args := c.Args().Slice()
			return migrateFunc(db, args[0], args[1:]...)
		},
	}
}
