package performers

import (
	"context"

	"songbook/internal/catalog"
	"songbook/internal/logging"
	"songbook/internal/store"
)

// Store captures the persistence needs for performer workflows.
type Store interface {
	ListPerformers(ctx context.Context, filter store.PerformerFilter, page store.Page) ([]catalog.Performer, error)
	PerformerByID(ctx context.Context, id int64) (catalog.Performer, error)
	CreatePerformer(ctx context.Context, in catalog.PerformerInput) (catalog.Performer, error)
	UpdatePerformer(ctx context.Context, id int64, patch catalog.PerformerPatch) (catalog.Performer, error)
	ReplacePerformer(ctx context.Context, id int64, in catalog.PerformerReplace) (catalog.Performer, error)
	DeletePerformer(ctx context.Context, id int64) error
}

// Service coordinates performer operations, including the composite create
// of a performer with its albums and singles.
type Service interface {
	List(ctx context.Context, filter store.PerformerFilter, page store.Page) ([]catalog.Performer, error)
	Get(ctx context.Context, id int64) (catalog.Performer, error)
	Create(ctx context.Context, in catalog.PerformerInput) (catalog.Performer, error)
	Update(ctx context.Context, id int64, patch catalog.PerformerPatch) (catalog.Performer, error)
	Replace(ctx context.Context, id int64, in catalog.PerformerReplace) (catalog.Performer, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, filter store.PerformerFilter, page store.Page) ([]catalog.Performer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPerformers(ctx, filter, page)
}

func (s *service) Get(ctx context.Context, id int64) (catalog.Performer, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Performer{}, err
	}
	return s.store.PerformerByID(ctx, id)
}

func (s *service) Create(ctx context.Context, in catalog.PerformerInput) (catalog.Performer, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Performer{}, err
	}
	performer, err := s.store.CreatePerformer(ctx, in)
	if err != nil {
		return catalog.Performer{}, err
	}
	logging.WithContext(ctx).Info().
		Int64("performer_id", performer.ID).
		Int("albums", len(performer.Albums)).
		Int("singles", len(performer.Singles)).
		Msg("performer created")
	return performer, nil
}

func (s *service) Update(ctx context.Context, id int64, patch catalog.PerformerPatch) (catalog.Performer, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Performer{}, err
	}
	performer, err := s.store.UpdatePerformer(ctx, id, patch)
	if err != nil {
		return catalog.Performer{}, err
	}
	logging.WithContext(ctx).Info().Int64("performer_id", id).Msg("performer updated")
	return performer, nil
}

func (s *service) Replace(ctx context.Context, id int64, in catalog.PerformerReplace) (catalog.Performer, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Performer{}, err
	}
	performer, err := s.store.ReplacePerformer(ctx, id, in)
	if err != nil {
		return catalog.Performer{}, err
	}
	logging.WithContext(ctx).Info().Int64("performer_id", id).Msg("performer replaced")
	return performer, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeletePerformer(ctx, id); err != nil {
		return err
	}
	logging.WithContext(ctx).Info().Int64("performer_id", id).Msg("performer deleted")
	return nil
}
