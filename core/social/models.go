package social

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
)

// Spark is a question posted under a thesis.
type Spark struct {
	ID             string    `json:"id"`
	ThesisID       string    `json:"thesis_id"`
	AuthorID       string    `json:"author_id"`
	Question       string    `json:"question"`
	AnswerPreview  string    `json:"answer_preview"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	ContinuedCount int       `json:"continued_count"`
	EchoCount      int       `json:"echo_count"`
}

// Echo is a reply to a Spark. ParentID is kept for nesting but nothing reads it yet.
type Echo struct {
	ID        string    `json:"id"`
	SparkID   string    `json:"spark_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"` // UTC
	ParentID  *string   `json:"parent_id"`
}

type (
	NewSpark struct {
		ID             string     `json:"id"`
		ThesisID       string     `json:"thesis_id"`
		AuthorID       string     `json:"author_id"`
		Question       string     `json:"question" validate:"required,notblank"`
		AnswerPreview  string     `json:"answer_preview"`
		CreatedAt      *time.Time `json:"created_at"`
		ContinuedCount *int       `json:"continued_count" validate:"omitempty,min=0"`
		EchoCount      *int       `json:"echo_count" validate:"omitempty,min=0"`
	}

	NewEcho struct {
		ID        string     `json:"id"`
		AuthorID  string     `json:"author_id"`
		Text      string     `json:"text" validate:"required,notblank"`
		CreatedAt *time.Time `json:"created_at"`
		ParentID  *string    `json:"parent_id"`
	}
)

func (ns *NewSpark) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.Question = core.CleanString(ns.Question)
	return validate.Struct(ns)
}

func (ne *NewEcho) Validate(validate *validator.Validate) error {
	ne.ID = core.CleanString(ne.ID)
	return validate.Struct(ne)
}

// Spark fills the unset fields: generated ID, current time and zero counters.
func (ns NewSpark) Spark() Spark {
	spk := Spark{
		ID:            ns.ID,
		ThesisID:      ns.ThesisID,
		AuthorID:      ns.AuthorID,
		Question:      ns.Question,
		AnswerPreview: ns.AnswerPreview,
		CreatedAt:     NowFunc().UTC(),
	}
	if spk.ID == "" {
		spk.ID = uuid.New().String()
	}
	if ns.CreatedAt != nil {
		spk.CreatedAt = ns.CreatedAt.UTC()
	}
	if ns.ContinuedCount != nil {
		spk.ContinuedCount = *ns.ContinuedCount
	}
	if ns.EchoCount != nil {
		spk.EchoCount = *ns.EchoCount
	}
	return spk
}

// Echo fills the unset fields of an Echo posted to sparkID.
func (ne NewEcho) Echo(sparkID string) Echo {
	ech := Echo{
		ID:        ne.ID,
		SparkID:   sparkID,
		AuthorID:  ne.AuthorID,
		Text:      ne.Text,
		CreatedAt: NowFunc().UTC(),
		ParentID:  ne.ParentID,
	}
	if ech.ID == "" {
		ech.ID = uuid.New().String()
	}
	if ne.CreatedAt != nil {
		ech.CreatedAt = ne.CreatedAt.UTC()
	}
	return ech
}
