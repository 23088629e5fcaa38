package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/role"
)

type metadataRepository struct {
	db *sqlx.DB
}

var _ role.Repository = (*metadataRepository)(nil) // interface compliance check

func NewMetadataRepository(db *sqlx.DB) role.Repository {
	return &metadataRepository{db: db}
}

type metadataRow struct {
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (repo *metadataRepository) GetMetadata(ctx context.Context, userID string) (role.Metadata, error) {
	var row metadataRow
	err := repo.db.GetContext(ctx, &row, "SELECT user_id, role, updated_at FROM user_metadata WHERE user_id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return role.Metadata{}, role.ErrNotFound
		}
		return role.Metadata{}, errors.Wrap(err, "getting user metadata")
	}
	return role.Metadata{UserID: row.UserID, Role: row.Role, UpdatedAt: row.UpdatedAt.UTC()}, nil
}

func (repo *metadataRepository) SetRole(ctx context.Context, userID, r string, at time.Time) (role.Metadata, error) {
	q := `INSERT INTO user_metadata (user_id, role, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.ExecContext(ctx, q, userID, r, at.UTC()); err != nil {
		return role.Metadata{}, errors.Wrap(err, "upserting user metadata")
	}
	return role.Metadata{UserID: userID, Role: r, UpdatedAt: at.UTC()}, nil
}
