package performers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

// PerformerView is the public shape for one performer.
type PerformerView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// Service exposes the performer roster codes can be scoped to.
type Service interface {
	List(ctx context.Context) ([]PerformerView, error)
	Get(ctx context.Context, id uuid.UUID) (*PerformerView, error)
	Create(ctx context.Context, name string, sortOrder int) (*PerformerView, error)
}

type service struct {
	repo Repository
}

// NewService builds a performers service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("performers repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]PerformerView, error) {
	performers, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list performers")
	}
	views := make([]PerformerView, 0, len(performers))
	for i := range performers {
		views = append(views, viewFromModel(&performers[i]))
	}
	return views, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PerformerView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "performer id required")
	}
	performer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "performer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load performer")
	}
	view := viewFromModel(performer)
	return &view, nil
}

func (s *service) Create(ctx context.Context, name string, sortOrder int) (*PerformerView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "performer name required")
	}
	performer := &models.Performer{
		Name:      name,
		SortOrder: sortOrder,
	}
	if err := s.repo.Create(ctx, performer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create performer")
	}
	view := viewFromModel(performer)
	return &view, nil
}

func viewFromModel(performer *models.Performer) PerformerView {
	return PerformerView{
		ID:        performer.ID,
		Name:      performer.Name,
		SortOrder: performer.SortOrder,
		CreatedAt: performer.CreatedAt,
	}
}
