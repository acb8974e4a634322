package songs

import (
	"context"

	"songbook/internal/catalog"
	"songbook/internal/logging"
	"songbook/internal/store"
)

// Store captures the persistence needs for song workflows.
type Store interface {
	ListSongs(ctx context.Context, filter store.SongFilter, page store.Page) ([]catalog.Song, error)
	SongByID(ctx context.Context, id int64) (catalog.Song, error)
	CreateSong(ctx context.Context, in catalog.NewSong) (catalog.Song, error)
	UpdateSong(ctx context.Context, id int64, patch catalog.SongPatch) (catalog.Song, error)
	ReplaceSong(ctx context.Context, id int64, in catalog.NewSong) (catalog.Song, error)
	DeleteSong(ctx context.Context, id int64) error
}

// Service exposes song-centric operations.
type Service interface {
	List(ctx context.Context, filter store.SongFilter, page store.Page) ([]catalog.Song, error)
	Get(ctx context.Context, id int64) (catalog.Song, error)
	Create(ctx context.Context, in catalog.NewSong) (catalog.Song, error)
	Update(ctx context.Context, id int64, patch catalog.SongPatch) (catalog.Song, error)
	Replace(ctx context.Context, id int64, in catalog.NewSong) (catalog.Song, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	store Store
}

// New constructs a song Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, filter store.SongFilter, page store.Page) ([]catalog.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSongs(ctx, filter, page)
}

func (s *service) Get(ctx context.Context, id int64) (catalog.Song, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Song{}, err
	}
	return s.store.SongByID(ctx, id)
}

func (s *service) Create(ctx context.Context, in catalog.NewSong) (catalog.Song, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Song{}, err
	}
	song, err := s.store.CreateSong(ctx, in)
	if err != nil {
		return catalog.Song{}, err
	}
	logging.WithContext(ctx).Info().Int64("song_id", song.ID).Msg("song created")
	return song, nil
}

func (s *service) Update(ctx context.Context, id int64, patch catalog.SongPatch) (catalog.Song, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Song{}, err
	}
	song, err := s.store.UpdateSong(ctx, id, patch)
	if err != nil {
		return catalog.Song{}, err
	}
	logging.WithContext(ctx).Info().Int64("song_id", id).Msg("song updated")
	return song, nil
}

func (s *service) Replace(ctx context.Context, id int64, in catalog.NewSong) (catalog.Song, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Song{}, err
	}
	song, err := s.store.ReplaceSong(ctx, id, in)
	if err != nil {
		return catalog.Song{}, err
	}
	logging.WithContext(ctx).Info().Int64("song_id", id).Msg("song replaced")
	return song, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteSong(ctx, id); err != nil {
		return err
	}
	logging.WithContext(ctx).Info().Int64("song_id", id).Msg("song deleted")
	return nil
}
