package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

func promoteCmd(cl *commandLine) *cli.Command {
	return &cli.Command{
		Name:  "promote",
		Usage: "Set a user's platform role (learner, expert, admin or an alias)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User ID"},
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "Role; empty means learner"},
		},
		Action: func(c *cli.Context) error {
			svc, err := cl.roles()
			if err != nil {
				return err
			}
			meta, err := svc.Promote(context.Background(), c.String("user"), c.String("role"))
			if err != nil {
				return err
			}
			return cl.printJSON(meta)
		},
	}
}
