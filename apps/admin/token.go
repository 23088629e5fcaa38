package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/voice"
)

// tokenCmd mints a bearer token for the API's authenticated routes.
func tokenCmd(cl *commandLine) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User ID (token subject)"},
			&cli.StringFlag{Name: "name", Usage: "Display name"},
			&cli.StringFlag{Name: "email", Usage: "Email"},
			&cli.BoolFlag{Name: "ask-secret", Usage: "Prompt for the signing key instead of using SECRET_KEY"},
		},
		Action: func(c *cli.Context) error {
			secret := cl.conf.SecretKey
			if secret == "" || c.Bool("ask-secret") {
				var err error
				if secret, err = cl.readSecret("Enter secret key:"); err != nil {
					return err
				}
			}

			claims := echoapi.NewUserClaims(cl.conf, c.String("user"), c.String("name"), c.String("email"))
			token, err := echoapi.GenerateToken(claims, secret)
			if err != nil {
				return errors.Wrap(err, "generating token")
			}
			_, err = fmt.Fprintln(cl.out, token)
			return err
		},
	}
}

// voiceTokenCmd signs a real-time room access token, as POST /api/voice/session does.
func voiceTokenCmd(cl *commandLine) *cli.Command {
	return &cli.Command{
		Name:  "voicetoken",
		Usage: "Issue a voice room access token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "room", Aliases: []string{"r"}, Required: true, Usage: "Room name"},
			&cli.StringFlag{Name: "identity", Aliases: []string{"i"}, Required: true, Usage: "Participant identity"},
			&cli.StringFlag{Name: "name", Usage: "Participant display name"},
			&cli.DurationFlag{Name: "ttl", Value: voice.DefaultTTL, Usage: "Token lifetime (clamped to 1m..1h)"},
		},
		Action: func(c *cli.Context) error {
			ttl := c.Duration("ttl").Seconds()
			svc := voice.NewService(cl.conf.LiveKit, nil)
			sess, err := svc.IssueToken(voice.SessionRequest{
				Room:       c.String("room"),
				Identity:   c.String("identity"),
				Name:       c.String("name"),
				TTLSeconds: &ttl,
			})
			if err != nil {
				return err
			}
			return cl.printJSON(sess)
		},
	}
}

