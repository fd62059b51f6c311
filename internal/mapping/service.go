package mapping

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/importer"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=mapping
type Repository interface {
	CreateMapping(ctx context.Context, owner uuid.UUID, params SaveParams) (*Mapping, error)
	ListMappings(ctx context.Context, owner uuid.UUID) ([]*Mapping, error)
	GetMapping(ctx context.Context, owner, id uuid.UUID) (*Mapping, error)
	UpdateMapping(ctx context.Context, owner, id uuid.UUID, params UpdateParams) (*Mapping, error)
	DeleteMapping(ctx context.Context, owner, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type SaveParams struct {
	Name       string
	DateFormat string
	Columns    importer.ColumnMap
}

// UpdateParams holds the fields to change; nil fields are left as stored.
type UpdateParams struct {
	Name       *string
	DateFormat *string
	Columns    importer.ColumnMap
}

func (s *Service) Save(ctx context.Context, owner uuid.UUID, params SaveParams) (*Mapping, error) {
	if err := validate(params.Name, params.Columns); err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}

	m, err := s.repo.CreateMapping(ctx, owner, params)
	if err != nil {
		return nil, fmt.Errorf("saving mapping: %w", err)
	}

	return m, nil
}

func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]*Mapping, error) {
	return s.repo.ListMappings(ctx, owner)
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*Mapping, error) {
	return s.repo.GetMapping(ctx, owner, id)
}

// Update applies a partial change. The merged result must still be a valid
// mapping.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, params UpdateParams) (*Mapping, error) {
	current, err := s.repo.GetMapping(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	name, cols := current.Name, current.Columns
	if params.Name != nil {
		name = *params.Name
	}

	if params.Columns != nil {
		cols = params.Columns
	}

	if err := validate(name, cols); err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}

	m, err := s.repo.UpdateMapping(ctx, owner, id, params)
	if err != nil {
		return nil, fmt.Errorf("updating mapping: %w", err)
	}

	return m, nil
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.repo.DeleteMapping(ctx, owner, id)
}
