package social

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/academia/core/events"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("spark not found")
)

type (
	Repository interface {
		// QuerySparks returns sparks most recent first.
		QuerySparks(ctx context.Context) ([]Spark, error)
		GetSpark(ctx context.Context, id string) (Spark, error)
		CreateSpark(ctx context.Context, spk Spark) (Spark, error)
		// QueryEchoes returns the echoes of a spark in arrival order; unknown sparks have none.
		QueryEchoes(ctx context.Context, sparkID string) ([]Echo, error)
		// CreateEcho appends the echo and bumps its spark's EchoCount in one step.
		// A missing spark is not an error.
		CreateEcho(ctx context.Context, ech Echo) (Echo, error)
	}

	ServiceInterface interface {
		ListSparks(ctx context.Context) ([]Spark, error)
		GetSpark(ctx context.Context, id string) (Spark, error)
		CreateSpark(ctx context.Context, ns NewSpark) (Spark, error)
		ListEchoes(ctx context.Context, sparkID string) ([]Echo, error)
		CreateEcho(ctx context.Context, sparkID string, ne NewEcho) (Echo, error)
	}

	Service struct {
		repo Repository

		SparkCreated *events.Registry[Spark]
		EchoCreated  *events.Registry[Echo]
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{
		repo:         repo,
		SparkCreated: events.NewRegistry[Spark](),
		EchoCreated:  events.NewRegistry[Echo](),
	}
}

func (svc *Service) ListSparks(ctx context.Context) ([]Spark, error) {
	sparks, err := svc.repo.QuerySparks(ctx)
	if err != nil {
		return nil, err
	}
	if sparks == nil {
		sparks = []Spark{}
	}
	return sparks, nil
}

func (svc *Service) GetSpark(ctx context.Context, id string) (Spark, error) {
	return svc.repo.GetSpark(ctx, id)
}

func (svc *Service) CreateSpark(ctx context.Context, ns NewSpark) (Spark, error) {
	spk, err := svc.repo.CreateSpark(ctx, ns.Spark())
	if err != nil {
		return Spark{}, err
	}
	svc.SparkCreated.Publish(spk)
	return spk, nil
}

func (svc *Service) ListEchoes(ctx context.Context, sparkID string) ([]Echo, error) {
	echoes, err := svc.repo.QueryEchoes(ctx, sparkID)
	if err != nil {
		return nil, err
	}
	if echoes == nil {
		echoes = []Echo{}
	}
	return echoes, nil
}

func (svc *Service) CreateEcho(ctx context.Context, sparkID string, ne NewEcho) (Echo, error) {
	ech, err := svc.repo.CreateEcho(ctx, ne.Echo(sparkID))
	if err != nil {
		return Echo{}, err
	}
	svc.EchoCreated.Publish(ech)
	return ech, nil
}
