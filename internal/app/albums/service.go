package albums

import (
	"context"

	"songbook/internal/catalog"
	"songbook/internal/logging"
	"songbook/internal/store"
)

// Store captures the persistence needs for album workflows.
type Store interface {
	ListAlbums(ctx context.Context, filter store.AlbumFilter, page store.Page) ([]catalog.Album, error)
	AlbumByID(ctx context.Context, id int64) (catalog.Album, error)
	CreateAlbum(ctx context.Context, in catalog.NewAlbum) (catalog.Album, error)
	UpdateAlbum(ctx context.Context, id int64, patch catalog.AlbumPatch) (catalog.Album, error)
	ReplaceAlbum(ctx context.Context, id int64, title string, year int, performerID int64) (catalog.Album, error)
	DeleteAlbum(ctx context.Context, id int64) error
}

// Service coordinates album-related operations.
type Service interface {
	List(ctx context.Context, filter store.AlbumFilter, page store.Page) ([]catalog.Album, error)
	Get(ctx context.Context, id int64) (catalog.Album, error)
	Create(ctx context.Context, in catalog.NewAlbum) (catalog.Album, error)
	Update(ctx context.Context, id int64, patch catalog.AlbumPatch) (catalog.Album, error)
	Replace(ctx context.Context, id int64, title string, year int, performerID int64) (catalog.Album, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, filter store.AlbumFilter, page store.Page) ([]catalog.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListAlbums(ctx, filter, page)
}

func (s *service) Get(ctx context.Context, id int64) (catalog.Album, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Album{}, err
	}
	return s.store.AlbumByID(ctx, id)
}

func (s *service) Create(ctx context.Context, in catalog.NewAlbum) (catalog.Album, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Album{}, err
	}
	album, err := s.store.CreateAlbum(ctx, in)
	if err != nil {
		return catalog.Album{}, err
	}
	logging.WithContext(ctx).Info().
		Int64("album_id", album.ID).
		Int("songs", len(album.Songs)).
		Str("total_duration", album.TotalDuration).
		Msg("album created")
	return album, nil
}

func (s *service) Update(ctx context.Context, id int64, patch catalog.AlbumPatch) (catalog.Album, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Album{}, err
	}
	album, err := s.store.UpdateAlbum(ctx, id, patch)
	if err != nil {
		return catalog.Album{}, err
	}
	logging.WithContext(ctx).Info().Int64("album_id", id).Msg("album updated")
	return album, nil
}

func (s *service) Replace(ctx context.Context, id int64, title string, year int, performerID int64) (catalog.Album, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Album{}, err
	}
	album, err := s.store.ReplaceAlbum(ctx, id, title, year, performerID)
	if err != nil {
		return catalog.Album{}, err
	}
	logging.WithContext(ctx).Info().Int64("album_id", id).Msg("album replaced")
	return album, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteAlbum(ctx, id); err != nil {
		return err
	}
	logging.WithContext(ctx).Info().Int64("album_id", id).Msg("album deleted")
	return nil
}
