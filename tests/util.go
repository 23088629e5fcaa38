package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/social"
	"github.com/trezcool/academia/storage/database"
)

// NewValidator returns a validator set up the way the API server sets it up.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return validate, translator
}

// OpenDB sets up the configured Postgres database and empties its tables.
// The test is skipped when no database engine is configured.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewConfig()
	if conf.Database.InMemory() {
		t.Skip("DATABASE_ENGINE not set; skipping database test")
	}
	db, err := database.Setup(conf.Database)
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ResetDB(t, db)
	return db
}

// ResetDB truncates every app table.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE spark, echo, user_metadata RESTART IDENTITY"); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}

func CreateSpark(t *testing.T, repo social.Repository, id, question string, createdAt ...time.Time) social.Spark {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	spk, err := repo.CreateSpark(context.Background(), social.Spark{
		ID:        id,
		ThesisID:  "thesis",
		AuthorID:  "author",
		Question:  question,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSpark() failed: %v", err)
	}
	return spk
}

func CreateEcho(t *testing.T, repo social.Repository, id, sparkID, text string) social.Echo {
	t.Helper()

	ech, err := repo.CreateEcho(context.Background(), social.Echo{
		ID:        id,
		SparkID:   sparkID,
		AuthorID:  "author",
		Text:      text,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		t.Fatalf("CreateEcho() failed: %v", err)
	}
	return ech
}
