package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"songbook/internal/catalog"
)

const (
	performerColumns = `id, pseudonym, biography, performance_type, photo_url`

	selectPerformerByIDQuery = `
		SELECT id, pseudonym, biography, performance_type, photo_url
		FROM performers
		WHERE id = $1`

	lockPerformerQuery = `
		SELECT id, pseudonym, biography, performance_type, photo_url
		FROM performers
		WHERE id = $1
		FOR UPDATE`

	pseudonymTakenQuery = `
		SELECT id
		FROM performers
		WHERE pseudonym = $1 AND id <> $2
		LIMIT 1`

	albumTitlesTakenQuery = `
		SELECT id
		FROM albums
		WHERE title = ANY($1)
		LIMIT 1`

	insertPerformerQuery = `
		INSERT INTO performers (pseudonym, biography, performance_type, photo_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	updatePerformerQuery = `
		UPDATE performers
		SET pseudonym = $1, biography = $2, performance_type = $3, photo_url = $4
		WHERE id = $5`

	deletePerformerQuery = `
		DELETE FROM performers
		WHERE id = $1`

	albumsByPerformerQuery = `
		SELECT id, title, year, total_duration, performer_id
		FROM albums
		WHERE performer_id = ANY($1)
		ORDER BY id ASC`

	songsByPerformerQuery = `
		SELECT id, title, duration, genre, performer_id, album_id
		FROM songs
		WHERE performer_id = ANY($1)
		ORDER BY id ASC`
)

// PerformerFilter constrains the results returned by ListPerformers.
type PerformerFilter struct {
	Pseudonym       string
	PerformanceType string
}

// ListPerformers returns one page of performers with their albums and singles.
func (s *Store) ListPerformers(ctx context.Context, filter PerformerFilter, page Page) ([]catalog.Performer, error) {
	var (
		clauses []string
		args    []any
	)

	if name := strings.TrimSpace(filter.Pseudonym); name != "" {
		args = append(args, "%"+name+"%")
		clauses = append(clauses, fmt.Sprintf("pseudonym ILIKE $%d", len(args)))
	}
	if kind := strings.TrimSpace(filter.PerformanceType); kind != "" {
		args = append(args, "%"+kind+"%")
		clauses = append(clauses, fmt.Sprintf("performance_type ILIKE $%d", len(args)))
	}

	query := "SELECT " + performerColumns + " FROM performers"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, page.limit(), page.offset())
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select performers: %w", err)
	}
	defer rows.Close()

	var performers []catalog.Performer
	for rows.Next() {
		p, err := scanPerformer(rows)
		if err != nil {
			return nil, err
		}
		performers = append(performers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performers: %w", err)
	}
	if len(performers) == 0 {
		return nil, catalog.ErrEmptyResult
	}

	if err := attachDiscography(ctx, s.db, performers); err != nil {
		return nil, err
	}
	return performers, nil
}

// PerformerByID returns a performer with albums (and their songs) and singles.
func (s *Store) PerformerByID(ctx context.Context, id int64) (catalog.Performer, error) {
	return performerWithDiscography(ctx, s.db, id)
}

// CreatePerformer writes a performer together with its nested albums and
// singles. Every nested duration is validated before the first statement.
// The performer row is inserted first to obtain its identity, which is then
// backfilled into every nested album and song before they are written; both
// phases share one transaction.
func (s *Store) CreatePerformer(ctx context.Context, in catalog.PerformerInput) (catalog.Performer, error) {
	if err := in.Validate(); err != nil {
		return catalog.Performer{}, err
	}

	performer := catalog.Performer{
		Pseudonym:       strings.TrimSpace(in.Pseudonym),
		Biography:       in.Biography,
		PerformanceType: in.PerformanceType,
		PhotoURL:        in.PhotoURL,
		Albums:          make([]catalog.Album, 0, len(in.Albums)),
		Singles:         []catalog.Song{},
	}

	titles := make([]string, 0, len(in.Albums))
	for _, a := range in.Albums {
		album := catalog.Album{Title: strings.TrimSpace(a.Title), Year: a.Year}
		durations := make([]string, len(a.Songs))
		for i, song := range a.Songs {
			album.Songs = append(album.Songs, catalog.Song{
				Title:    strings.TrimSpace(song.Title),
				Duration: song.Duration,
				Genre:    song.Genre,
			})
			durations[i] = song.Duration
		}
		if err := catalog.RecomputeTotal(&album, durations); err != nil {
			return catalog.Performer{}, err
		}
		performer.Albums = append(performer.Albums, album)
		titles = append(titles, album.Title)
	}

	for _, single := range catalog.DedupeSingles(in.Albums, in.Singles) {
		performer.Singles = append(performer.Singles, catalog.Song{
			Title:    strings.TrimSpace(single.Title),
			Duration: single.Duration,
			Genre:    single.Genre,
		})
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := exists(ctx, tx, pseudonymTakenQuery, performer.Pseudonym, int64(0))
		if err != nil {
			return fmt.Errorf("lookup pseudonym: %w", err)
		}
		if taken {
			return catalog.ErrPerformerAlreadyExists
		}

		if len(titles) > 0 {
			taken, err := exists(ctx, tx, albumTitlesTakenQuery, pq.Array(titles))
			if err != nil {
				return fmt.Errorf("lookup album titles: %w", err)
			}
			if taken {
				return catalog.ErrAlbumAlreadyExists
			}
		}

		if err := tx.QueryRowContext(ctx, insertPerformerQuery,
			performer.Pseudonym,
			nullString(performer.Biography),
			string(performer.PerformanceType),
			nullString(performer.PhotoURL),
		).Scan(&performer.ID); err != nil {
			if isUniqueViolation(err) {
				return catalog.ErrPerformerAlreadyExists
			}
			return fmt.Errorf("insert performer: %w", err)
		}

		backfillPerformer(&performer)

		for i := range performer.Albums {
			if err := insertAlbum(ctx, tx, &performer.Albums[i]); err != nil {
				return err
			}
		}
		for i := range performer.Singles {
			if err := insertSong(ctx, tx, &performer.Singles[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return catalog.Performer{}, err
	}
	return performer, nil
}

// backfillPerformer stamps the performer's identity on everything it owns.
func backfillPerformer(p *catalog.Performer) {
	for i := range p.Albums {
		p.Albums[i].PerformerID = p.ID
		for j := range p.Albums[i].Songs {
			p.Albums[i].Songs[j].PerformerID = p.ID
		}
	}
	for i := range p.Singles {
		p.Singles[i].PerformerID = p.ID
	}
}

// UpdatePerformer applies a partial update of a performer's scalar fields.
func (s *Store) UpdatePerformer(ctx context.Context, id int64, patch catalog.PerformerPatch) (catalog.Performer, error) {
	if err := patch.Validate(); err != nil {
		return catalog.Performer{}, err
	}
	return s.writePerformer(ctx, id, func(p *catalog.Performer) {
		if patch.Pseudonym != nil {
			p.Pseudonym = strings.TrimSpace(*patch.Pseudonym)
		}
		if patch.Biography != nil {
			p.Biography = patch.Biography
		}
		if patch.PerformanceType != nil {
			p.PerformanceType = *patch.PerformanceType
		}
		if patch.PhotoURL != nil {
			p.PhotoURL = patch.PhotoURL
		}
	})
}

// ReplacePerformer overwrites every scalar field of a performer.
func (s *Store) ReplacePerformer(ctx context.Context, id int64, in catalog.PerformerReplace) (catalog.Performer, error) {
	if err := in.Validate(); err != nil {
		return catalog.Performer{}, err
	}
	return s.writePerformer(ctx, id, func(p *catalog.Performer) {
		p.Pseudonym = strings.TrimSpace(in.Pseudonym)
		p.Biography = in.Biography
		p.PerformanceType = in.PerformanceType
		p.PhotoURL = in.PhotoURL
	})
}

func (s *Store) writePerformer(ctx context.Context, id int64, apply func(*catalog.Performer)) (catalog.Performer, error) {
	var performer catalog.Performer

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanPerformer(tx.QueryRowContext(ctx, lockPerformerQuery, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.ErrPerformerNotFound
			}
			return err
		}

		oldName := current.Pseudonym
		apply(&current)

		if current.Pseudonym != oldName {
			taken, err := exists(ctx, tx, pseudonymTakenQuery, current.Pseudonym, current.ID)
			if err != nil {
				return fmt.Errorf("lookup pseudonym: %w", err)
			}
			if taken {
				return catalog.ErrPerformerAlreadyExists
			}
		}

		if _, err := tx.ExecContext(ctx, updatePerformerQuery,
			current.Pseudonym,
			nullString(current.Biography),
			string(current.PerformanceType),
			nullString(current.PhotoURL),
			current.ID,
		); err != nil {
			if isUniqueViolation(err) {
				return catalog.ErrPerformerAlreadyExists
			}
			return fmt.Errorf("update performer: %w", err)
		}

		performer, err = performerWithDiscography(ctx, tx, current.ID)
		return err
	})
	if err != nil {
		return catalog.Performer{}, err
	}
	return performer, nil
}

// DeletePerformer removes a performer; albums and songs cascade.
func (s *Store) DeletePerformer(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, deletePerformerQuery, id)
	if err != nil {
		return fmt.Errorf("delete performer: %w", err)
	}
	return requireAffected(result, catalog.ErrPerformerNotFound)
}

func performerWithDiscography(ctx context.Context, q queryer, id int64) (catalog.Performer, error) {
	p, err := scanPerformer(q.QueryRowContext(ctx, selectPerformerByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Performer{}, catalog.ErrPerformerNotFound
		}
		return catalog.Performer{}, err
	}

	performers := []catalog.Performer{p}
	if err := attachDiscography(ctx, q, performers); err != nil {
		return catalog.Performer{}, err
	}
	return performers[0], nil
}

// attachDiscography fills Albums (with songs) and Singles for every
// performer using two queries.
func attachDiscography(ctx context.Context, q queryer, performers []catalog.Performer) error {
	ids := make([]int64, len(performers))
	index := make(map[int64]int, len(performers))
	for i := range performers {
		ids[i] = performers[i].ID
		index[performers[i].ID] = i
		performers[i].Albums = []catalog.Album{}
		performers[i].Singles = []catalog.Song{}
	}

	albumRows, err := q.QueryContext(ctx, albumsByPerformerQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("select performer albums: %w", err)
	}
	albums, err := scanAlbumRows(albumRows)
	albumRows.Close()
	if err != nil {
		return err
	}

	songRows, err := q.QueryContext(ctx, songsByPerformerQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("select performer songs: %w", err)
	}
	songs, err := scanSongRows(songRows)
	songRows.Close()
	if err != nil {
		return err
	}

	albumIndex := make(map[int64]int, len(albums))
	for i := range albums {
		albums[i].Songs = []catalog.Song{}
		albumIndex[albums[i].ID] = i
	}
	for _, song := range songs {
		if song.AlbumID == nil {
			if i, ok := index[song.PerformerID]; ok {
				performers[i].Singles = append(performers[i].Singles, song)
			}
			continue
		}
		if i, ok := albumIndex[*song.AlbumID]; ok {
			albums[i].Songs = append(albums[i].Songs, song)
		}
	}
	for _, album := range albums {
		if i, ok := index[album.PerformerID]; ok {
			performers[i].Albums = append(performers[i].Albums, album)
		}
	}
	return nil
}

func scanPerformer(row rowScanner) (catalog.Performer, error) {
	var (
		p     catalog.Performer
		bio   sql.NullString
		kind  string
		photo sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Pseudonym, &bio, &kind, &photo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Performer{}, err
		}
		return catalog.Performer{}, fmt.Errorf("scan performer: %w", err)
	}
	p.Biography = stringPtr(bio)
	p.PerformanceType = catalog.PerformanceType(kind)
	p.PhotoURL = stringPtr(photo)
	return p, nil
}
