// Package role manages the platform role stored in each user's metadata.
package role

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/academia/core"
)

// Roles
const (
	Learner = "learner"
	Expert  = "expert"
	Admin   = "admin"
)

var (
	All = []string{Learner, Expert, Admin}

	aliases = map[string]string{
		"":              Learner,
		"learner":       Learner,
		"student":       Learner,
		"expert":        Expert,
		"teacher":       Expert,
		"tutor":         Expert,
		"instructor":    Expert,
		"admin":         Admin,
		"administrator": Admin,
	}

	NowFunc = time.Now // mockable

	// errors
	ErrUnknownRole = errors.New("role must be one of: learner, expert, admin")
	ErrNotFound    = errors.New("user metadata not found")
)

// Normalize maps a free-form role string to one of All. An empty role means Learner.
func Normalize(s string) (string, error) {
	if r, ok := aliases[core.CleanString(s, true /* lower */)]; ok {
		return r, nil
	}
	return "", ErrUnknownRole
}

// Metadata is the public per-user metadata we keep for the identity provider's users.
type Metadata struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type (
	Repository interface {
		GetMetadata(ctx context.Context, userID string) (Metadata, error)
		// SetRole creates or updates the user's metadata.
		SetRole(ctx context.Context, userID, role string, at time.Time) (Metadata, error)
	}

	ServiceInterface interface {
		Get(ctx context.Context, userID string) (Metadata, error)
		Promote(ctx context.Context, userID, role string) (Metadata, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, userID string) (Metadata, error) {
	return svc.repo.GetMetadata(ctx, userID)
}

// Promote normalizes role and writes it to the user's metadata.
func (svc *Service) Promote(ctx context.Context, userID, role string) (Metadata, error) {
	userID = core.CleanString(userID)
	if userID == "" {
		return Metadata{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "this field is required"})
	}
	normalized, err := Normalize(role)
	if err != nil {
		return Metadata{}, core.NewValidationError(err, core.FieldError{Field: "role", Error: err.Error()})
	}
	return svc.repo.SetRole(ctx, userID, normalized, NowFunc().UTC())
}
