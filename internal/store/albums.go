package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"

	"songbook/internal/catalog"
)

const (
	albumColumns = `id, title, year, total_duration, performer_id`

	selectAlbumByIDQuery = `
		SELECT id, title, year, total_duration, performer_id
		FROM albums
		WHERE id = $1`

	lockAlbumQuery = `
		SELECT id, title, year, total_duration, performer_id
		FROM albums
		WHERE id = $1
		FOR NO KEY UPDATE`

	albumSongDurationsQuery = `
		SELECT duration
		FROM songs
		WHERE album_id = $1
		ORDER BY id ASC`

	updateAlbumTotalQuery = `
		UPDATE albums
		SET total_duration = $1
		WHERE id = $2`

	albumTitleTakenQuery = `
		SELECT id
		FROM albums
		WHERE title = $1 AND id <> $2
		LIMIT 1`

	insertAlbumQuery = `
		INSERT INTO albums (title, year, total_duration, performer_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	updateAlbumQuery = `
		UPDATE albums
		SET title = $1, year = $2, performer_id = $3
		WHERE id = $4`

	reassignAlbumSongsQuery = `
		UPDATE songs
		SET performer_id = $1
		WHERE album_id = $2`

	deleteAlbumQuery = `
		DELETE FROM albums
		WHERE id = $1`

	songsByAlbumQuery = `
		SELECT id, title, duration, genre, performer_id, album_id
		FROM songs
		WHERE album_id = ANY($1)
		ORDER BY id ASC`
)

// AlbumFilter constrains the results returned by ListAlbums.
type AlbumFilter struct {
	Title       string
	Year        int
	PerformerID int64
}

// ListAlbums returns one page of albums, each with its songs.
func (s *Store) ListAlbums(ctx context.Context, filter AlbumFilter, page Page) ([]catalog.Album, error) {
	var (
		clauses []string
		args    []any
	)

	if title := strings.TrimSpace(filter.Title); title != "" {
		args = append(args, "%"+title+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		clauses = append(clauses, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.PerformerID > 0 {
		args = append(args, filter.PerformerID)
		clauses = append(clauses, fmt.Sprintf("performer_id = $%d", len(args)))
	}

	query := "SELECT " + albumColumns + " FROM albums"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, page.limit(), page.offset())
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select albums: %w", err)
	}
	defer rows.Close()

	albums, err := scanAlbumRows(rows)
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, catalog.ErrEmptyResult
	}

	if err := attachSongs(ctx, s.db, albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// AlbumByID returns an album with its songs.
func (s *Store) AlbumByID(ctx context.Context, id int64) (catalog.Album, error) {
	return albumWithSongs(ctx, s.db, selectAlbumByIDQuery, id)
}

// CreateAlbum validates and inserts an album with its songs. The songs
// belong to the album's performer and the total is computed from them.
func (s *Store) CreateAlbum(ctx context.Context, in catalog.NewAlbum) (catalog.Album, error) {
	if err := in.Validate(); err != nil {
		return catalog.Album{}, err
	}

	album := catalog.Album{
		Title:       strings.TrimSpace(in.Title),
		Year:        in.Year,
		PerformerID: in.PerformerID,
	}
	album.Songs = make([]catalog.Song, len(in.Songs))
	durations := make([]string, len(in.Songs))
	for i, song := range in.Songs {
		album.Songs[i] = catalog.Song{
			Title:       strings.TrimSpace(song.Title),
			Duration:    song.Duration,
			Genre:       song.Genre,
			PerformerID: in.PerformerID,
		}
		durations[i] = song.Duration
	}
	if err := catalog.RecomputeTotal(&album, durations); err != nil {
		return catalog.Album{}, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := exists(ctx, tx, albumTitleTakenQuery, album.Title, int64(0))
		if err != nil {
			return fmt.Errorf("lookup album title: %w", err)
		}
		if taken {
			return catalog.ErrAlbumAlreadyExists
		}

		ok, err := exists(ctx, tx, performerExistsQuery, album.PerformerID)
		if err != nil {
			return fmt.Errorf("lookup performer: %w", err)
		}
		if !ok {
			return catalog.ErrPerformerNotFound
		}

		return insertAlbum(ctx, tx, &album)
	})
	if err != nil {
		return catalog.Album{}, err
	}
	return album, nil
}

// UpdateAlbum applies a partial update of an album's scalar fields.
func (s *Store) UpdateAlbum(ctx context.Context, id int64, patch catalog.AlbumPatch) (catalog.Album, error) {
	if err := patch.Validate(); err != nil {
		return catalog.Album{}, err
	}
	return s.writeAlbum(ctx, id, patch)
}

// ReplaceAlbum overwrites title, year and performer of an album.
func (s *Store) ReplaceAlbum(ctx context.Context, id int64, title string, year int, performerID int64) (catalog.Album, error) {
	patch := catalog.AlbumPatch{Title: &title, Year: &year, PerformerID: &performerID}
	if err := patch.Validate(); err != nil {
		return catalog.Album{}, err
	}
	return s.writeAlbum(ctx, id, patch)
}

func (s *Store) writeAlbum(ctx context.Context, id int64, patch catalog.AlbumPatch) (catalog.Album, error) {
	var album catalog.Album

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		album, err = scanAlbum(tx.QueryRowContext(ctx, lockAlbumQuery, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.ErrAlbumNotFound
			}
			return err
		}

		oldPerformer := album.PerformerID
		if patch.Title != nil {
			album.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Year != nil {
			album.Year = *patch.Year
		}
		if patch.PerformerID != nil {
			album.PerformerID = *patch.PerformerID
		}

		if patch.Title != nil {
			taken, err := exists(ctx, tx, albumTitleTakenQuery, album.Title, album.ID)
			if err != nil {
				return fmt.Errorf("lookup album title: %w", err)
			}
			if taken {
				return catalog.ErrAlbumAlreadyExists
			}
		}

		performerChanged := album.PerformerID != oldPerformer
		if performerChanged {
			ok, err := exists(ctx, tx, performerExistsQuery, album.PerformerID)
			if err != nil {
				return fmt.Errorf("lookup performer: %w", err)
			}
			if !ok {
				return catalog.ErrPerformerNotFound
			}
		}

		if _, err := tx.ExecContext(ctx, updateAlbumQuery, album.Title, album.Year, album.PerformerID, album.ID); err != nil {
			if isUniqueViolation(err) {
				return catalog.ErrAlbumAlreadyExists
			}
			return fmt.Errorf("update album: %w", err)
		}

		if performerChanged {
			if _, err := tx.ExecContext(ctx, reassignAlbumSongsQuery, album.PerformerID, album.ID); err != nil {
				return fmt.Errorf("reassign album songs: %w", err)
			}
		}

		if err := recomputeAlbumTotal(ctx, tx, album); err != nil {
			return err
		}

		album, err = albumWithSongs(ctx, tx, selectAlbumByIDQuery, album.ID)
		return err
	})
	if err != nil {
		return catalog.Album{}, err
	}
	return album, nil
}

// DeleteAlbum removes an album; its songs go with it.
func (s *Store) DeleteAlbum(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, deleteAlbumQuery, id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	return requireAffected(result, catalog.ErrAlbumNotFound)
}

// lockAlbums locks every given album not yet in locked, in ascending id
// order, and records it there. Album rows are always locked before the song
// rows that reference them. FOR NO KEY UPDATE leaves the KEY SHARE lock taken
// by song foreign keys compatible.
func lockAlbums(ctx context.Context, tx *sql.Tx, locked map[int64]catalog.Album, ids ...*int64) error {
	var pending []int64
	for _, id := range ids {
		if id == nil {
			continue
		}
		if _, ok := locked[*id]; ok || slices.Contains(pending, *id) {
			continue
		}
		pending = append(pending, *id)
	}
	slices.Sort(pending)

	for _, id := range pending {
		album, err := scanAlbum(tx.QueryRowContext(ctx, lockAlbumQuery, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.ErrAlbumNotFound
			}
			return err
		}
		locked[id] = album
	}
	return nil
}

// recomputeAlbumTotal re-reads every member duration of album and stores
// the new total. The caller must hold the album's row lock.
func recomputeAlbumTotal(ctx context.Context, tx *sql.Tx, album catalog.Album) error {
	rows, err := tx.QueryContext(ctx, albumSongDurationsQuery, album.ID)
	if err != nil {
		return fmt.Errorf("select album durations: %w", err)
	}
	defer rows.Close()

	var durations []string
	for rows.Next() {
		var d sql.NullString
		if err := rows.Scan(&d); err != nil {
			return fmt.Errorf("scan album duration: %w", err)
		}
		durations = append(durations, d.String)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate album durations: %w", err)
	}

	if err := catalog.RecomputeTotal(&album, durations); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, updateAlbumTotalQuery, album.TotalDuration, album.ID); err != nil {
		return fmt.Errorf("update album total: %w", err)
	}
	return nil
}

// insertAlbum writes album and its songs. Song performer ids must already
// be set.
func insertAlbum(ctx context.Context, tx *sql.Tx, album *catalog.Album) error {
	if err := tx.QueryRowContext(ctx, insertAlbumQuery,
		album.Title, album.Year, album.TotalDuration, album.PerformerID,
	).Scan(&album.ID); err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrAlbumAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return catalog.ErrPerformerNotFound
		}
		return fmt.Errorf("insert album: %w", err)
	}

	for i := range album.Songs {
		song := &album.Songs[i]
		albumID := album.ID
		song.AlbumID = &albumID
		if err := insertSong(ctx, tx, song); err != nil {
			return err
		}
	}
	return nil
}

func insertSong(ctx context.Context, tx *sql.Tx, song *catalog.Song) error {
	if err := tx.QueryRowContext(ctx, insertSongQuery,
		song.Title, song.Duration, string(song.Genre), song.PerformerID, nullInt64(song.AlbumID),
	).Scan(&song.ID); err != nil {
		return fmt.Errorf("insert song %q: %w", song.Title, err)
	}
	return nil
}

func albumWithSongs(ctx context.Context, q queryer, query string, id int64) (catalog.Album, error) {
	album, err := scanAlbum(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Album{}, catalog.ErrAlbumNotFound
		}
		return catalog.Album{}, err
	}

	albums := []catalog.Album{album}
	if err := attachSongs(ctx, q, albums); err != nil {
		return catalog.Album{}, err
	}
	return albums[0], nil
}

// attachSongs loads the songs of every album in one query.
func attachSongs(ctx context.Context, q queryer, albums []catalog.Album) error {
	ids := make([]int64, len(albums))
	index := make(map[int64]int, len(albums))
	for i := range albums {
		ids[i] = albums[i].ID
		index[albums[i].ID] = i
		albums[i].Songs = []catalog.Song{}
	}

	rows, err := q.QueryContext(ctx, songsByAlbumQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("select album songs: %w", err)
	}
	defer rows.Close()

	songs, err := scanSongRows(rows)
	if err != nil {
		return err
	}
	for _, song := range songs {
		if song.AlbumID == nil {
			continue
		}
		if i, ok := index[*song.AlbumID]; ok {
			albums[i].Songs = append(albums[i].Songs, song)
		}
	}
	return nil
}

func scanAlbum(row rowScanner) (catalog.Album, error) {
	var (
		a     catalog.Album
		total sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Year, &total, &a.PerformerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Album{}, err
		}
		return catalog.Album{}, fmt.Errorf("scan album: %w", err)
	}
	a.TotalDuration = total.String
	return a, nil
}

func scanAlbumRows(rows *sql.Rows) ([]catalog.Album, error) {
	var albums []catalog.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}
