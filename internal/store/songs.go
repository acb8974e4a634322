package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"songbook/internal/catalog"
)

const (
	songColumns = `id, title, duration, genre, performer_id, album_id`

	selectSongByIDQuery = `
		SELECT id, title, duration, genre, performer_id, album_id
		FROM songs
		WHERE id = $1`

	lockSongQuery = `
		SELECT id, title, duration, genre, performer_id, album_id
		FROM songs
		WHERE id = $1
		FOR UPDATE`

	songTitleTakenQuery = `
		SELECT id
		FROM songs
		WHERE title = $1
		LIMIT 1`

	insertSongQuery = `
		INSERT INTO songs (title, duration, genre, performer_id, album_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	updateSongQuery = `
		UPDATE songs
		SET title = $1, duration = $2, genre = $3, performer_id = $4, album_id = $5
		WHERE id = $6`

	deleteSongQuery = `
		DELETE FROM songs
		WHERE id = $1`

	songAlbumQuery = `
		SELECT album_id
		FROM songs
		WHERE id = $1`

	performerExistsQuery = `
		SELECT id
		FROM performers
		WHERE id = $1`
)

// SongFilter constrains the results returned by ListSongs.
type SongFilter struct {
	Title       string
	Genre       string
	PerformerID int64
	AlbumID     int64
	SinglesOnly bool
}

// ListSongs returns one page of songs matching filter, ordered by id.
func (s *Store) ListSongs(ctx context.Context, filter SongFilter, page Page) ([]catalog.Song, error) {
	var (
		clauses []string
		args    []any
	)

	if title := strings.TrimSpace(filter.Title); title != "" {
		args = append(args, "%"+title+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		args = append(args, "%"+genre+"%")
		clauses = append(clauses, fmt.Sprintf("genre ILIKE $%d", len(args)))
	}
	if filter.PerformerID > 0 {
		args = append(args, filter.PerformerID)
		clauses = append(clauses, fmt.Sprintf("performer_id = $%d", len(args)))
	}
	switch {
	case filter.SinglesOnly:
		clauses = append(clauses, "album_id IS NULL")
	case filter.AlbumID > 0:
		args = append(args, filter.AlbumID)
		clauses = append(clauses, fmt.Sprintf("album_id = $%d", len(args)))
	}

	query := "SELECT " + songColumns + " FROM songs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, page.limit(), page.offset())
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select songs: %w", err)
	}
	defer rows.Close()

	songs, err := scanSongRows(rows)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, catalog.ErrEmptyResult
	}
	return songs, nil
}

// SongByID returns a single song.
func (s *Store) SongByID(ctx context.Context, id int64) (catalog.Song, error) {
	song, err := scanSong(s.db.QueryRowContext(ctx, selectSongByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Song{}, catalog.ErrSongNotFound
		}
		return catalog.Song{}, err
	}
	return song, nil
}

// CreateSong validates and inserts a song. A song created inside an album
// inherits the album's performer when none is given and refreshes the
// album total in the same transaction.
func (s *Store) CreateSong(ctx context.Context, in catalog.NewSong) (catalog.Song, error) {
	if err := in.Validate(); err != nil {
		return catalog.Song{}, err
	}

	song := catalog.Song{
		Title:       strings.TrimSpace(in.Title),
		Duration:    in.Duration,
		Genre:       in.Genre,
		PerformerID: in.PerformerID,
		AlbumID:     in.AlbumID,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := exists(ctx, tx, songTitleTakenQuery, song.Title)
		if err != nil {
			return fmt.Errorf("lookup song title: %w", err)
		}
		if taken {
			return catalog.ErrSongAlreadyExists
		}

		locked := make(map[int64]catalog.Album)
		if err := lockAlbums(ctx, tx, locked, song.AlbumID); err != nil {
			return err
		}

		if err := checkSongOwner(ctx, tx, &song, song.PerformerID == 0, locked); err != nil {
			return err
		}

		if err := insertSong(ctx, tx, &song); err != nil {
			return err
		}

		if song.AlbumID != nil {
			return recomputeAlbumTotal(ctx, tx, locked[*song.AlbumID])
		}
		return nil
	})
	if err != nil {
		return catalog.Song{}, err
	}
	return song, nil
}

// UpdateSong applies a partial update. When the song's album changes both
// the new and the previous album totals are recomputed before the single
// commit.
func (s *Store) UpdateSong(ctx context.Context, id int64, patch catalog.SongPatch) (catalog.Song, error) {
	if err := patch.Validate(); err != nil {
		return catalog.Song{}, err
	}
	return s.writeSong(ctx, id, patch)
}

// ReplaceSong overwrites every field of a song.
func (s *Store) ReplaceSong(ctx context.Context, id int64, in catalog.NewSong) (catalog.Song, error) {
	if err := in.Validate(); err != nil {
		return catalog.Song{}, err
	}
	return s.writeSong(ctx, id, in.Patch())
}

func (s *Store) writeSong(ctx context.Context, id int64, patch catalog.SongPatch) (catalog.Song, error) {
	var song catalog.Song

	var target *int64
	if patch.AlbumIDSet {
		target = patch.AlbumID
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			locked map[int64]catalog.Album
			err    error
		)
		song, locked, err = lockSong(ctx, tx, id, target)
		if err != nil {
			return err
		}

		oldAlbumID := song.AlbumID
		oldPerformerID := song.PerformerID
		patch.Apply(&song)
		song.Title = strings.TrimSpace(song.Title)

		albumChanged := !sameID(oldAlbumID, song.AlbumID)
		if albumChanged || song.PerformerID != oldPerformerID {
			inherit := patch.PerformerID == nil || *patch.PerformerID == 0
			if err := checkSongOwner(ctx, tx, &song, inherit, locked); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, updateSongQuery,
			song.Title, song.Duration, string(song.Genre), song.PerformerID, nullInt64(song.AlbumID), song.ID,
		); err != nil {
			return fmt.Errorf("update song: %w", err)
		}

		if song.AlbumID != nil {
			if err := recomputeAlbumTotal(ctx, tx, locked[*song.AlbumID]); err != nil {
				return err
			}
		}
		if oldAlbumID != nil && albumChanged {
			if err := recomputeAlbumTotal(ctx, tx, locked[*oldAlbumID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return catalog.Song{}, err
	}
	return song, nil
}

// DeleteSong removes a song and refreshes the total of the album it left.
func (s *Store) DeleteSong(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		song, locked, err := lockSong(ctx, tx, id, nil)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, deleteSongQuery, id); err != nil {
			return fmt.Errorf("delete song: %w", err)
		}

		if song.AlbumID != nil {
			return recomputeAlbumTotal(ctx, tx, locked[*song.AlbumID])
		}
		return nil
	})
}

// lockSong locks the song's current album and target, then the song row.
// If another writer moved the song between the lookup and the row lock, the
// lookup repeats so the new album is locked too.
func lockSong(ctx context.Context, tx *sql.Tx, id int64, target *int64) (catalog.Song, map[int64]catalog.Album, error) {
	locked := make(map[int64]catalog.Album)
	for {
		var current sql.NullInt64
		if err := tx.QueryRowContext(ctx, songAlbumQuery, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.Song{}, nil, catalog.ErrSongNotFound
			}
			return catalog.Song{}, nil, fmt.Errorf("lookup song album: %w", err)
		}

		if err := lockAlbums(ctx, tx, locked, int64Ptr(current), target); err != nil {
			return catalog.Song{}, nil, err
		}

		song, err := scanSong(tx.QueryRowContext(ctx, lockSongQuery, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.Song{}, nil, catalog.ErrSongNotFound
			}
			return catalog.Song{}, nil, err
		}
		if song.AlbumID == nil {
			return song, locked, nil
		}
		if _, ok := locked[*song.AlbumID]; ok {
			return song, locked, nil
		}
	}
}

// checkSongOwner verifies that the song's album and performer exist and
// agree. The song's album must already be in locked. With inherit set, an
// album song takes its album's performer.
func checkSongOwner(ctx context.Context, q queryer, song *catalog.Song, inherit bool, locked map[int64]catalog.Album) error {
	if song.AlbumID == nil {
		ok, err := exists(ctx, q, performerExistsQuery, song.PerformerID)
		if err != nil {
			return fmt.Errorf("lookup performer: %w", err)
		}
		if !ok {
			return catalog.ErrPerformerNotFound
		}
		return nil
	}

	album, ok := locked[*song.AlbumID]
	if !ok {
		return catalog.ErrAlbumNotFound
	}

	if inherit {
		song.PerformerID = album.PerformerID
	}
	if song.PerformerID != album.PerformerID {
		return catalog.ErrPerformerMismatch
	}
	return nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (catalog.Song, error) {
	var (
		song    catalog.Song
		genre   string
		albumID sql.NullInt64
	)
	if err := row.Scan(&song.ID, &song.Title, &song.Duration, &genre, &song.PerformerID, &albumID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Song{}, err
		}
		return catalog.Song{}, fmt.Errorf("scan song: %w", err)
	}
	song.Genre = catalog.Genre(genre)
	song.AlbumID = int64Ptr(albumID)
	return song, nil
}

func scanSongRows(rows *sql.Rows) ([]catalog.Song, error) {
	var songs []catalog.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}
