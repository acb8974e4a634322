package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"songbook/internal/catalog"
)

func performerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "pseudonym", "biography", "performance_type", "photo_url"})
}

func composite() catalog.PerformerInput {
	return catalog.PerformerInput{
		Pseudonym:       "Nova",
		PerformanceType: catalog.PerformanceSolo,
		Albums: []catalog.AlbumInput{{
			Title: "First",
			Year:  2021,
			Songs: []catalog.SongInput{{Title: "S", Duration: "1:00", Genre: catalog.GenrePop}},
		}},
		Singles: []catalog.SongInput{{Title: "S", Duration: "1:00", Genre: catalog.GenrePop}},
	}
}

func expectCompositePrechecks(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(quoted(pseudonymTakenQuery)).
		WithArgs("Nova", int64(0)).
		WillReturnRows(noRows())
	mock.ExpectQuery(quoted(albumTitlesTakenQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(noRows())
	mock.ExpectQuery(quoted(insertPerformerQuery)).
		WithArgs("Nova", nil, "solo", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
}

func TestCreatePerformerDedupesSingles(t *testing.T) {
	s, mock := newMockStore(t)

	expectCompositePrechecks(mock)
	mock.ExpectQuery(quoted(insertAlbumQuery)).
		WithArgs("First", 2021, "1:00", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(quoted(insertSongQuery)).
		WithArgs("S", "1:00", "pop", int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	p, err := s.CreatePerformer(context.Background(), composite())
	if err != nil {
		t.Fatalf("CreatePerformer returned error: %v", err)
	}
	if p.ID != 1 || len(p.Singles) != 0 || len(p.Albums) != 1 {
		t.Fatalf("unexpected performer: %+v", p)
	}
	album := p.Albums[0]
	if album.TotalDuration != "1:00" || album.PerformerID != 1 {
		t.Fatalf("unexpected album: %+v", album)
	}
	if album.Songs[0].PerformerID != 1 || album.Songs[0].AlbumID == nil || *album.Songs[0].AlbumID != 2 {
		t.Fatalf("song not backfilled: %+v", album.Songs[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePerformerDedupesPaddedSingleTitle(t *testing.T) {
	s, mock := newMockStore(t)
	in := composite()
	in.Singles[0].Title = " S "

	expectCompositePrechecks(mock)
	mock.ExpectQuery(quoted(insertAlbumQuery)).
		WithArgs("First", 2021, "1:00", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(quoted(insertSongQuery)).
		WithArgs("S", "1:00", "pop", int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	p, err := s.CreatePerformer(context.Background(), in)
	if err != nil {
		t.Fatalf("CreatePerformer returned error: %v", err)
	}
	if len(p.Singles) != 0 {
		t.Fatalf("padded duplicate single was kept: %+v", p.Singles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePerformerKeepsDistinctSingles(t *testing.T) {
	s, mock := newMockStore(t)
	in := composite()
	in.Singles[0].Duration = "1:01"

	expectCompositePrechecks(mock)
	mock.ExpectQuery(quoted(insertAlbumQuery)).
		WithArgs("First", 2021, "1:00", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(quoted(insertSongQuery)).
		WithArgs("S", "1:00", "pop", int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(quoted(insertSongQuery)).
		WithArgs("S", "1:01", "pop", int64(1), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectCommit()

	p, err := s.CreatePerformer(context.Background(), in)
	if err != nil {
		t.Fatalf("CreatePerformer returned error: %v", err)
	}
	if len(p.Singles) != 1 || p.Singles[0].PerformerID != 1 || p.Singles[0].AlbumID != nil {
		t.Fatalf("unexpected singles: %+v", p.Singles)
	}
}

func TestCreatePerformerRollsBackPhaseTwoFailure(t *testing.T) {
	s, mock := newMockStore(t)

	expectCompositePrechecks(mock)
	mock.ExpectQuery(quoted(insertAlbumQuery)).
		WithArgs("First", 2021, "1:00", int64(1)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := s.CreatePerformer(context.Background(), composite()); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePerformerInvalidNestedDuration(t *testing.T) {
	s, mock := newMockStore(t)
	in := composite()
	in.Albums[0].Songs[0].Duration = "abc"

	_, err := s.CreatePerformer(context.Background(), in)
	var durErr *catalog.InvalidSongDurationError
	if !errors.As(err, &durErr) {
		t.Fatalf("expected InvalidSongDurationError, got %v", err)
	}
	if durErr.AlbumTitle != "First" || durErr.SongTitle != "S" {
		t.Fatalf("unexpected diagnostics: %+v", durErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePerformerPseudonymTaken(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(pseudonymTakenQuery)).
		WithArgs("Nova", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectRollback()

	_, err := s.CreatePerformer(context.Background(), composite())
	if !errors.Is(err, catalog.ErrPerformerAlreadyExists) {
		t.Fatalf("expected ErrPerformerAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPerformerByIDSplitsAlbumsAndSingles(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(quoted(selectPerformerByIDQuery)).
		WithArgs(int64(1)).
		WillReturnRows(performerRows().AddRow(int64(1), "Nova", "bio", "solo", nil))
	mock.ExpectQuery(quoted(albumsByPerformerQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(albumRows().AddRow(int64(2), "First", 2021, "1:00", int64(1)))
	mock.ExpectQuery(quoted(songsByPerformerQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(songRows().
			AddRow(int64(3), "S", "1:00", "pop", int64(1), int64(2)).
			AddRow(int64(4), "Loose", "2:00", "pop", int64(1), nil))

	p, err := s.PerformerByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("PerformerByID returned error: %v", err)
	}
	if p.Biography == nil || *p.Biography != "bio" || p.PhotoURL != nil {
		t.Fatalf("unexpected scalar fields: %+v", p)
	}
	if len(p.Albums) != 1 || len(p.Albums[0].Songs) != 1 || len(p.Singles) != 1 {
		t.Fatalf("unexpected relations: %+v", p)
	}
	if p.Singles[0].Title != "Loose" {
		t.Fatalf("unexpected single: %+v", p.Singles[0])
	}
}

func TestUpdatePerformerPseudonymTaken(t *testing.T) {
	s, mock := newMockStore(t)
	name := "Taken"

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(lockPerformerQuery)).
		WithArgs(int64(1)).
		WillReturnRows(performerRows().AddRow(int64(1), "Nova", nil, "solo", nil))
	mock.ExpectQuery(quoted(pseudonymTakenQuery)).
		WithArgs("Taken", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectRollback()

	_, err := s.UpdatePerformer(context.Background(), 1, catalog.PerformerPatch{Pseudonym: &name})
	if !errors.Is(err, catalog.ErrPerformerAlreadyExists) {
		t.Fatalf("expected ErrPerformerAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListPerformersEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(quoted("SELECT " + performerColumns + " FROM performers WHERE pseudonym ILIKE $1 ORDER BY id ASC LIMIT $2 OFFSET $3")).
		WithArgs("%zz%", int64(DefaultPageSize), int64(0)).
		WillReturnRows(performerRows())

	_, err := s.ListPerformers(context.Background(), PerformerFilter{Pseudonym: "zz"}, Page{})
	if !errors.Is(err, catalog.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestDeletePerformer(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(quoted(deletePerformerQuery)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.DeletePerformer(context.Background(), 3); err != nil {
		t.Fatalf("DeletePerformer returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeletePerformerNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(quoted(deletePerformerQuery)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeletePerformer(context.Background(), 3); !errors.Is(err, catalog.ErrPerformerNotFound) {
		t.Fatalf("expected ErrPerformerNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
