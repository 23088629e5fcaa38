package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/voice"
	"github.com/trezcool/academia/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	var out bytes.Buffer
	conf := &core.Config{
		AppName:   "Academia",
		SecretKey: "admin-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		LiveKit:   core.LiveKitConfig{URL: "wss://rtc.test.cd", APIKey: "key", APISecret: "lk-secret"},
	}
	cl := &commandLine{
		conf:    conf,
		out:     &out,
		openDB:  func() (*sqlx.DB, error) { return nil, nil },
		roleSvc: role.NewService(inmemdb.NewMetadataRepository(inmemdb.Open())),
	}
	return cl, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLI(cl *commandLine, args []string) error {
	return cl.run(append([]string{"admin"}, args...))
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func parseUserToken(t *testing.T, token, secret string) *echoapi.Claims {
	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	return claims
}

func Test_commandLine_token(t *testing.T) {
	tests := []cliTest{
		{name: "user required", args: []string{"token"}, wantErrStr: `Required flag "user" not set`},
		{name: "token", args: []string{"token", "--user", "u1", "--email", "u1@test.cd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, out := setup(t)
			err := runCLI(cl, tt.args)
			checkErr(t, tt, err)
			if err == nil {
				claims := parseUserToken(t, out.String(), "admin-secret")
				assert.Equal(t, "u1", claims.Subject)
				assert.Equal(t, "u1@test.cd", claims.Email)
				assert.Equal(t, "Academia", claims.Issuer)
			}
		})
	}
}

func Test_commandLine_token_askSecret(t *testing.T) {
	defer func(orig func(int) ([]byte, error)) { readPasswordFunc = orig }(readPasswordFunc)

	type extra struct {
		secret string
	}
	tests := []cliTest{
		{name: "prompted", args: []string{"token", "--user", "u1", "--ask-secret"}, extra: extra{secret: "typed"}},
		{name: "no secret typed", args: []string{"token", "--user", "u1", "--ask-secret"}, wantErr: errNoSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(int) ([]byte, error) {
				if extra, ok := tt.extra.(extra); ok {
					return []byte(extra.secret), nil
				}
				return nil, nil
			}

			cl, out := setup(t)
			err := runCLI(cl, tt.args)
			checkErr(t, tt, err)
			if err == nil {
				claims := parseUserToken(t, out.String(), "typed")
				assert.Equal(t, "u1", claims.Subject)
			}
		})
	}
}

func Test_commandLine_voicetoken(t *testing.T) {
	tests := []cliTest{
		{name: "room required", args: []string{"voicetoken", "--identity", "u1"}, wantErrStr: `Required flag "room" not set`},
		{name: "clamped ttl", args: []string{"voicetoken", "--room", "r1", "--identity", "u1", "--ttl", "5s"}, extra: int64(60)},
		{name: "default ttl", args: []string{"voicetoken", "-r", "r1", "-i", "u1"}, extra: int64(900)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, out := setup(t)
			err := runCLI(cl, tt.args)
			checkErr(t, tt, err)
			if err != nil {
				return
			}

			var sess voice.Session
			require.NoError(t, json.Unmarshal(out.Bytes(), &sess))
			assert.Equal(t, "wss://rtc.test.cd", sess.URL)
			claims, err := voice.ParseToken(sess.Token, "lk-secret")
			require.NoError(t, err)
			assert.Equal(t, "r1", claims.Video.Room)
			assert.Equal(t, tt.extra, claims.ExpiresAt-claims.NotBefore)
		})
	}

	cl, _ := setup(t)
	cl.conf.LiveKit = core.LiveKitConfig{}
	err := runCLI(cl, []string{"voicetoken", "--room", "r1", "--identity", "u1"})
	var confErr *core.ConfigError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, []string{"LIVEKIT_API_KEY", "LIVEKIT_API_SECRET", "LIVEKIT_URL"}, confErr.Missing)
}

func Test_commandLine_promote(t *testing.T) {
	cl, out := setup(t)

	err := runCLI(cl, []string{"promote", "--user", "u1", "--role", "tutor"})
	require.NoError(t, err)

	var meta role.Metadata
	require.NoError(t, json.Unmarshal(out.Bytes(), &meta))
	assert.Equal(t, role.Expert, meta.Role)

	got, err := cl.roleSvc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, role.Expert, got.Role)

	err = runCLI(cl, []string{"promote", "--user", "u1", "--role", "emperor"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, role.ErrUnknownRole, vErr.Err)
}

func Test_commandLine_promote_needsDatabase(t *testing.T) {
	cl, _ := setup(t)
	cl.roleSvc = nil // in-memory config: nothing would persist

	assert.Equal(t, errInMemory, runCLI(cl, []string{"promote", "--user", "u1", "--role", "admin"}))
}

func Test_commandLine_migrate(t *testing.T) {
	defer func(orig func(*sqlx.DB, string, ...string) error) { migrateFunc = orig }(migrateFunc)

	var gotCommand string
	var gotArgs []string
	migrateFunc = func(_ *sqlx.DB, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		return nil
	}

	cl, _ := setup(t)
	assert.Equal(t, errInMemory, runCLI(cl, []string{"migrate", "up"}))

	cl.conf.Database.Engine = "postgres"
	tests := []struct {
		cliTest
		wantCommand string
		wantArgs    []string
	}{
		{cliTest: cliTest{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "up", args: []string{"migrate", "up"}}, wantCommand: "up", wantArgs: []string{}},
		{cliTest: cliTest{name: "down-to", args: []string{"migrate", "down-to", "1"}}, wantCommand: "down-to", wantArgs: []string{"1"}},
		{cliTest: cliTest{name: "status", args: []string{"migrate", "status"}}, wantCommand: "status", wantArgs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand, gotArgs = "", nil
			err := runCLI(cl, tt.args)
			checkErr(t, tt.cliTest, err)
			if err == nil {
				assert.Equal(t, tt.wantCommand, gotCommand)
				assert.Equal(t, tt.wantArgs, gotArgs)
			}
		})
	}
}
