package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/storage/database/sqlx"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNoSecret = errors.New("a secret key is required")
	errInMemory = errors.New("DATABASE_ENGINE is not set; nothing to write to")
)

type commandLine struct {
	conf   *core.Config
	out    io.Writer
	openDB func() (*sqlx.DB, error)

	db      *sqlx.DB
	roleSvc role.ServiceInterface
}

func newCLIApp(cl *commandLine) *cli.App {
	app := &cli.App{
		Name:   "admin",
		Usage:  cl.conf.AppName + " administration",
		Writer: cl.out,
		Commands: []*cli.Command{
			tokenCmd(cl),
			voiceTokenCmd(cl),
			promoteCmd(cl),
			migrateCmd(cl),
		},
	}
	// errors are returned to main instead of exiting
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func (cl *commandLine) run(args []string) error {
	return newCLIApp(cl).Run(args)
}

// database opens the app database on first use.
func (cl *commandLine) database() (*sqlx.DB, error) {
	if cl.db != nil {
		return cl.db, nil
	}
	if cl.conf.Database.InMemory() {
		return nil, errInMemory
	}
	db, err := cl.openDB()
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	cl.db = db
	return db, nil
}

func (cl *commandLine) roles() (role.ServiceInterface, error) {
	if cl.roleSvc != nil {
		return cl.roleSvc, nil
	}
	db, err := cl.database()
	if err != nil {
		return nil, err
	}
	if err = migrateFunc(db, "up"); err != nil {
		return nil, err
	}
	cl.roleSvc = role.NewService(sqlxrepos.NewMetadataRepository(db))
	return cl.roleSvc, nil
}

func (cl *commandLine) close() error {
	if cl.db == nil {
		return nil
	}
	return cl.db.Close()
}

// readSecret prompts on stderr for a secret without echoing it, so stdout stays pipeable.
func (cl *commandLine) readSecret(prompt string) (string, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)
	secret, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "reading secret")
	}
	if len(secret) == 0 {
		return "", errNoSecret
	}
	return string(secret), nil
}

func (cl *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cl.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
