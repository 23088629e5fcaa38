package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/social"
)

type (
	sparkRow struct {
		ID             string      `db:"id"`
		ThesisID       string      `db:"thesis_id"`
		AuthorID       string      `db:"author_id"`
		Question       string      `db:"question"`
		AnswerPreview  null.String `db:"answer_preview"`
		CreatedAt      time.Time   `db:"created_at"`
		ContinuedCount int         `db:"continued_count"`
		EchoCount      int         `db:"echo_count"`
	}

	echoRow struct {
		ID        string      `db:"id"`
		SparkID   string      `db:"spark_id"`
		AuthorID  string      `db:"author_id"`
		Text      string      `db:"text"`
		CreatedAt time.Time   `db:"created_at"`
		ParentID  null.String `db:"parent_id"`
	}
)

func newSparkRow(spk social.Spark) sparkRow {
	return sparkRow{
		ID:             spk.ID,
		ThesisID:       spk.ThesisID,
		AuthorID:       spk.AuthorID,
		Question:       spk.Question,
		AnswerPreview:  null.NewString(spk.AnswerPreview, spk.AnswerPreview != ""),
		CreatedAt:      spk.CreatedAt.UTC(),
		ContinuedCount: spk.ContinuedCount,
		EchoCount:      spk.EchoCount,
	}
}

func (row sparkRow) spark() social.Spark {
	return social.Spark{
		ID:             row.ID,
		ThesisID:       row.ThesisID,
		AuthorID:       row.AuthorID,
		Question:       row.Question,
		AnswerPreview:  row.AnswerPreview.String,
		CreatedAt:      row.CreatedAt.UTC(),
		ContinuedCount: row.ContinuedCount,
		EchoCount:      row.EchoCount,
	}
}

func newEchoRow(ech social.Echo) echoRow {
	return echoRow{
		ID:        ech.ID,
		SparkID:   ech.SparkID,
		AuthorID:  ech.AuthorID,
		Text:      ech.Text,
		CreatedAt: ech.CreatedAt.UTC(),
		ParentID:  null.StringFromPtr(ech.ParentID),
	}
}

func (row echoRow) echo() social.Echo {
	return social.Echo{
		ID:        row.ID,
		SparkID:   row.SparkID,
		AuthorID:  row.AuthorID,
		Text:      row.Text,
		CreatedAt: row.CreatedAt.UTC(),
		ParentID:  row.ParentID.Ptr(),
	}
}

const (
	sparkColumns = "id, thesis_id, author_id, question, answer_preview, created_at, continued_count, echo_count"
	echoColumns  = "id, spark_id, author_id, text, created_at, parent_id"
)

type socialRepository struct {
	db *sqlx.DB
}

var _ social.Repository = (*socialRepository)(nil) // interface compliance check

func NewSocialRepository(db *sqlx.DB) social.Repository {
	return &socialRepository{db: db}
}

func (repo *socialRepository) QuerySparks(ctx context.Context) ([]social.Spark, error) {
	var rows []sparkRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+sparkColumns+" FROM spark ORDER BY seq DESC"); err != nil {
		return nil, errors.Wrap(err, "selecting sparks")
	}
	sparks := make([]social.Spark, 0, len(rows))
	for _, row := range rows {
		sparks = append(sparks, row.spark())
	}
	return sparks, nil
}

func (repo *socialRepository) GetSpark(ctx context.Context, id string) (social.Spark, error) {
	var row sparkRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+sparkColumns+" FROM spark WHERE id = $1 ORDER BY seq DESC LIMIT 1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return social.Spark{}, social.ErrNotFound
		}
		return social.Spark{}, errors.Wrap(err, "getting spark")
	}
	return row.spark(), nil
}

func (repo *socialRepository) CreateSpark(ctx context.Context, spk social.Spark) (social.Spark, error) {
	q := "INSERT INTO spark (" + sparkColumns + ") VALUES " +
		"(:id, :thesis_id, :author_id, :question, :answer_preview, :created_at, :continued_count, :echo_count)"
	if _, err := repo.db.NamedExecContext(ctx, q, newSparkRow(spk)); err != nil {
		return social.Spark{}, errors.Wrap(err, "inserting spark")
	}
	return spk, nil
}

func (repo *socialRepository) QueryEchoes(ctx context.Context, sparkID string) ([]social.Echo, error) {
	var rows []echoRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT "+echoColumns+" FROM echo WHERE spark_id = $1 ORDER BY seq", sparkID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting echoes")
	}
	echoes := make([]social.Echo, 0, len(rows))
	for _, row := range rows {
		echoes = append(echoes, row.echo())
	}
	return echoes, nil
}

func (repo *socialRepository) CreateEcho(ctx context.Context, ech social.Echo) (_ social.Echo, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return social.Echo{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := "INSERT INTO echo (" + echoColumns + ") VALUES (:id, :spark_id, :author_id, :text, :created_at, :parent_id)"
	if _, err = tx.NamedExecContext(ctx, q, newEchoRow(ech)); err != nil {
		return social.Echo{}, errors.Wrap(err, "inserting echo")
	}
	// bump the newest spark with that id; none is fine
	q = "UPDATE spark SET echo_count = echo_count + 1 WHERE seq = (SELECT MAX(seq) FROM spark WHERE id = $1)"
	if _, err = tx.ExecContext(ctx, q, ech.SparkID); err != nil {
		return social.Echo{}, errors.Wrap(err, "incrementing echo count")
	}
	if err = tx.Commit(); err != nil {
		return social.Echo{}, errors.Wrap(err, "committing echo")
	}
	return ech, nil
}
