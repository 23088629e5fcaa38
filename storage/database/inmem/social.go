package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core/social"
)

type socialRepository struct {
	db *socialTable
}

var _ social.Repository = (*socialRepository)(nil) // interface compliance check

func NewSocialRepository(db *DB) social.Repository {
	return &socialRepository{db: db.social}
}

func (repo *socialRepository) QuerySparks(context.Context) ([]social.Spark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sparks := make([]social.Spark, 0, len(repo.db.sparks))
	for _, spk := range repo.db.sparks {
		sparks = append(sparks, *spk)
	}
	return sparks, nil
}

func (repo *socialRepository) GetSpark(_ context.Context, id string) (social.Spark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if spk, ok := repo.db.byID[id]; ok {
		return *spk, nil
	}
	return social.Spark{}, social.ErrNotFound
}

func (repo *socialRepository) CreateSpark(_ context.Context, spk social.Spark) (social.Spark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := spk
	repo.db.sparks = append([]*social.Spark{&stored}, repo.db.sparks...)
	// ids are not enforced unique: the newest spark wins lookups
	repo.db.byID[stored.ID] = &stored
	return stored, nil
}

func (repo *socialRepository) QueryEchoes(_ context.Context, sparkID string) ([]social.Echo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	echoes := make([]social.Echo, len(repo.db.echoes[sparkID]))
	copy(echoes, repo.db.echoes[sparkID])
	return echoes, nil
}

func (repo *socialRepository) CreateEcho(_ context.Context, ech social.Echo) (social.Echo, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.echoes[ech.SparkID] = append(repo.db.echoes[ech.SparkID], ech)
	if spk, ok := repo.db.byID[ech.SparkID]; ok {
		spk.EchoCount++
	}
	return ech, nil
}
