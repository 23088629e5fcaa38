package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/academia/core/role"
)

type metadataRepository struct {
	db *metadataTable
}

var _ role.Repository = (*metadataRepository)(nil) // interface compliance check

func NewMetadataRepository(db *DB) role.Repository {
	return &metadataRepository{db: db.meta}
}

func (repo *metadataRepository) GetMetadata(_ context.Context, userID string) (role.Metadata, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if meta, ok := repo.db.table[userID]; ok {
		return meta, nil
	}
	return role.Metadata{}, role.ErrNotFound
}

func (repo *metadataRepository) SetRole(_ context.Context, userID, r string, at time.Time) (role.Metadata, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	meta := role.Metadata{UserID: userID, Role: r, UpdatedAt: at}
	repo.db.table[userID] = meta
	return meta, nil
}
