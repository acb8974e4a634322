package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"songbook/internal/app/users"
	"songbook/internal/catalog"
	"songbook/internal/store"
)

const validToken = "valid-token"

type stubUserService struct {
	registerErr error
	loginEmail  string
	loginErr    error
	lastUpdate  users.ProfileUpdate
}

func (s *stubUserService) Register(_ context.Context, in users.Registration) (store.User, error) {
	if s.registerErr != nil {
		return store.User{}, s.registerErr
	}
	return store.User{ID: 2, Email: in.Email, IsActive: true}, nil
}

func (s *stubUserService) Login(_ context.Context, email, _ string) (users.Token, error) {
	s.loginEmail = email
	if s.loginErr != nil {
		return users.Token{}, s.loginErr
	}
	return users.Token{AccessToken: validToken, TokenType: "bearer", ExpiresIn: 3600}, nil
}

func (s *stubUserService) Authenticate(_ context.Context, token string) (store.User, error) {
	if token != validToken {
		return store.User{}, users.ErrUnauthorized
	}
	return store.User{ID: 1, Email: "ada@example.com", IsActive: true}, nil
}

func (s *stubUserService) UpdateMe(_ context.Context, current store.User, in users.ProfileUpdate) (store.User, error) {
	s.lastUpdate = in
	if in.FirstName != nil {
		current.FirstName = *in.FirstName
	}
	return current, nil
}

func (s *stubUserService) ForgotPassword(context.Context, string) error { return nil }

func (s *stubUserService) ResetPassword(_ context.Context, token, _ string) error {
	if token != "reset" {
		return users.ErrInvalidResetToken
	}
	return nil
}

func (s *stubUserService) RequestVerify(context.Context, string) error { return nil }

func (s *stubUserService) Verify(context.Context, string) (store.User, error) {
	return store.User{}, users.ErrAlreadyVerified
}

type stubSongService struct {
	listResponse []catalog.Song
	listErr      error
	lastFilter   store.SongFilter
	lastPage     store.Page

	created   catalog.NewSong
	createErr error

	lastPatch catalog.SongPatch
	deleteErr error
}

func (s *stubSongService) List(_ context.Context, filter store.SongFilter, page store.Page) ([]catalog.Song, error) {
	s.lastFilter = filter
	s.lastPage = page
	return s.listResponse, s.listErr
}

func (s *stubSongService) Get(_ context.Context, id int64) (catalog.Song, error) {
	return catalog.Song{ID: id}, nil
}

func (s *stubSongService) Create(_ context.Context, in catalog.NewSong) (catalog.Song, error) {
	s.created = in
	if s.createErr != nil {
		return catalog.Song{}, s.createErr
	}
	return catalog.Song{ID: 1, Title: in.Title, Duration: in.Duration, Genre: in.Genre, PerformerID: in.PerformerID}, nil
}

func (s *stubSongService) Update(_ context.Context, id int64, patch catalog.SongPatch) (catalog.Song, error) {
	s.lastPatch = patch
	return catalog.Song{ID: id}, nil
}

func (s *stubSongService) Replace(_ context.Context, id int64, _ catalog.NewSong) (catalog.Song, error) {
	return catalog.Song{ID: id}, nil
}

func (s *stubSongService) Delete(context.Context, int64) error { return s.deleteErr }

type stubAlbumService struct {
	createErr error
	created   catalog.NewAlbum
}

func (s *stubAlbumService) List(context.Context, store.AlbumFilter, store.Page) ([]catalog.Album, error) {
	return nil, catalog.ErrEmptyResult
}

func (s *stubAlbumService) Get(_ context.Context, id int64) (catalog.Album, error) {
	return catalog.Album{ID: id}, nil
}

func (s *stubAlbumService) Create(_ context.Context, in catalog.NewAlbum) (catalog.Album, error) {
	s.created = in
	if s.createErr != nil {
		return catalog.Album{}, s.createErr
	}
	return catalog.Album{ID: 1, Title: in.Title, TotalDuration: "3:00"}, nil
}

func (s *stubAlbumService) Update(_ context.Context, id int64, _ catalog.AlbumPatch) (catalog.Album, error) {
	return catalog.Album{ID: id}, nil
}

func (s *stubAlbumService) Replace(_ context.Context, id int64, title string, year int, performerID int64) (catalog.Album, error) {
	return catalog.Album{ID: id, Title: title, Year: year, PerformerID: performerID}, nil
}

func (s *stubAlbumService) Delete(context.Context, int64) error { return nil }

type stubPerformerService struct {
	getErr  error
	created catalog.PerformerInput
}

func (s *stubPerformerService) List(context.Context, store.PerformerFilter, store.Page) ([]catalog.Performer, error) {
	return []catalog.Performer{{ID: 1, Pseudonym: "Nova"}}, nil
}

func (s *stubPerformerService) Get(_ context.Context, id int64) (catalog.Performer, error) {
	if s.getErr != nil {
		return catalog.Performer{}, s.getErr
	}
	return catalog.Performer{ID: id}, nil
}

func (s *stubPerformerService) Create(_ context.Context, in catalog.PerformerInput) (catalog.Performer, error) {
	s.created = in
	return catalog.Performer{ID: 1, Pseudonym: in.Pseudonym}, nil
}

func (s *stubPerformerService) Update(_ context.Context, id int64, _ catalog.PerformerPatch) (catalog.Performer, error) {
	return catalog.Performer{ID: id}, nil
}

func (s *stubPerformerService) Replace(_ context.Context, id int64, _ catalog.PerformerReplace) (catalog.Performer, error) {
	return catalog.Performer{ID: id}, nil
}

func (s *stubPerformerService) Delete(context.Context, int64) error { return nil }

type fixture struct {
	users      *stubUserService
	songs      *stubSongService
	albums     *stubAlbumService
	performers *stubPerformerService
	handler    http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		users:      &stubUserService{},
		songs:      &stubSongService{},
		albums:     &stubAlbumService{},
		performers: &stubPerformerService{},
	}
	f.handler = New(f.users, f.songs, f.albums, f.performers).Routes()
	return f
}

func (f *fixture) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer "+validToken)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}

func TestHealth(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestCatalogRequiresToken(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/songs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for bad token, got %d", rec.Code)
	}
}

func TestListSongsParsesQuery(t *testing.T) {
	f := newFixture()
	f.songs.listResponse = []catalog.Song{{ID: 1, Title: "Hello"}}

	rec := f.do(http.MethodGet, "/songs?title=hel&genre=pop&performer_id=3&singles=true&page=2&size=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	want := store.SongFilter{Title: "hel", Genre: "pop", PerformerID: 3, SinglesOnly: true}
	if f.songs.lastFilter != want {
		t.Fatalf("filter = %+v, want %+v", f.songs.lastFilter, want)
	}
	if f.songs.lastPage != (store.Page{Number: 2, Size: 5}) {
		t.Fatalf("unexpected page: %+v", f.songs.lastPage)
	}

	var resp listResponse[catalog.Song]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Title != "Hello" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestListDefaultsPage(t *testing.T) {
	f := newFixture()
	f.songs.listResponse = []catalog.Song{{ID: 1}}

	f.do(http.MethodGet, "/songs", nil)
	if f.songs.lastPage != (store.Page{Number: 1, Size: store.DefaultPageSize}) {
		t.Fatalf("unexpected default page: %+v", f.songs.lastPage)
	}
}

func TestListRejectsBadPage(t *testing.T) {
	f := newFixture()

	for _, query := range []string{
		"page=0", "size=0", "size=100000", "page=abc", "performer_id=-1",
		"page=9223372036854775807&size=100",
	} {
		rec := f.do(http.MethodGet, "/songs?"+query, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", query, rec.Code)
		}
	}
}

func TestListEmptyReturnsNoContent(t *testing.T) {
	f := newFixture()
	f.songs.listErr = catalog.ErrEmptyResult

	rec := f.do(http.MethodGet, "/songs", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}

	if rec := f.do(http.MethodGet, "/albums", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for albums, got %d", rec.Code)
	}
}

func TestCreateSongNormalizesGenre(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/songs", map[string]any{
		"title": "Intro", "duration": "3:30", "genre": " Rock ", "performer_id": 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if f.songs.created.Genre != catalog.GenreRock {
		t.Fatalf("expected genre rock, got %q", f.songs.created.Genre)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid duration", &catalog.InvalidSongDurationError{SongTitle: "Intro", Duration: "3:75"}, http.StatusBadRequest},
		{"invalid input", catalog.ErrInvalidInput, http.StatusBadRequest},
		{"empty album", catalog.ErrAlbumMustContainSongs, http.StatusBadRequest},
		{"performer mismatch", catalog.ErrPerformerMismatch, http.StatusBadRequest},
		{"duplicate", catalog.ErrSongAlreadyExists, http.StatusConflict},
		{"missing album", catalog.ErrAlbumNotFound, http.StatusNotFound},
		{"unexpected", errors.New("database is on fire"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.songs.createErr = tc.err

			rec := f.do(http.MethodPost, "/songs", map[string]any{"title": "Intro", "duration": "3:75", "genre": "rock", "performer_id": 1})
			if rec.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusInternalServerError {
				if msg := decodeError(t, rec); strings.Contains(msg, "fire") {
					t.Fatalf("internal error leaked: %q", msg)
				}
			}
		})
	}
}

func TestInvalidDurationMessage(t *testing.T) {
	f := newFixture()
	f.songs.createErr = &catalog.InvalidSongDurationError{SongTitle: "Intro", Duration: "3:75"}

	rec := f.do(http.MethodPost, "/songs", map[string]any{"title": "Intro", "duration": "3:75"})
	if msg := decodeError(t, rec); !strings.Contains(msg, "3:75") || !strings.Contains(msg, "Intro") {
		t.Fatalf("message lacks diagnostics: %q", msg)
	}
}

func TestPatchSongAlbumID(t *testing.T) {
	f := newFixture()

	f.do(http.MethodPatch, "/songs/5", map[string]any{"title": "New"})
	if f.songs.lastPatch.AlbumIDSet {
		t.Fatalf("omitted album_id must not be set")
	}

	f.do(http.MethodPatch, "/songs/5", map[string]any{"album_id": nil})
	if !f.songs.lastPatch.AlbumIDSet || f.songs.lastPatch.AlbumID != nil {
		t.Fatalf("null album_id must detach: %+v", f.songs.lastPatch)
	}

	f.do(http.MethodPatch, "/songs/5", map[string]any{"album_id": 9})
	if !f.songs.lastPatch.AlbumIDSet || f.songs.lastPatch.AlbumID == nil || *f.songs.lastPatch.AlbumID != 9 {
		t.Fatalf("album_id 9 not applied: %+v", f.songs.lastPatch)
	}
}

func TestInvalidPathID(t *testing.T) {
	f := newFixture()

	if rec := f.do(http.MethodGet, "/songs/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestDeleteSong(t *testing.T) {
	f := newFixture()

	if rec := f.do(http.MethodDelete, "/songs/5", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	f.songs.deleteErr = catalog.ErrSongNotFound
	if rec := f.do(http.MethodDelete, "/songs/5", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestCreateAlbumConflict(t *testing.T) {
	f := newFixture()
	f.albums.createErr = catalog.ErrAlbumAlreadyExists

	rec := f.do(http.MethodPost, "/albums", map[string]any{
		"title": "Debut", "year": 2020, "performer_id": 1,
		"songs": []map[string]any{{"title": "One", "duration": "3:00", "genre": "jazz"}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	if len(f.albums.created.Songs) != 1 || f.albums.created.Songs[0].Genre != catalog.GenreJazz {
		t.Fatalf("nested songs not decoded: %+v", f.albums.created)
	}
}

func TestCreatePerformerComposite(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/performers", map[string]any{
		"pseudonym":        "Nova",
		"performance_type": "Solo",
		"albums": []map[string]any{{
			"title": "First", "year": 2021,
			"songs": []map[string]any{{"title": "S", "duration": "1:00", "genre": "pop"}},
		}},
		"singles": []map[string]any{{"title": "S", "duration": "1:00", "genre": "pop"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	in := f.performers.created
	if in.PerformanceType != catalog.PerformanceSolo || len(in.Albums) != 1 || len(in.Albums[0].Songs) != 1 || len(in.Singles) != 1 {
		t.Fatalf("unexpected input: %+v", in)
	}
}

func TestGetPerformerNotFound(t *testing.T) {
	f := newFixture()
	f.performers.getErr = catalog.ErrPerformerNotFound

	if rec := f.do(http.MethodGet, "/performers/3", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestReplaceAlbum(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPut, "/albums/4", map[string]any{"title": "Re", "year": 2001, "performer_id": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var album catalog.Album
	if err := json.Unmarshal(rec.Body.Bytes(), &album); err != nil {
		t.Fatalf("decode album: %v", err)
	}
	if album.Title != "Re" || album.Year != 2001 || album.PerformerID != 2 {
		t.Fatalf("unexpected album: %+v", album)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture()

	if rec := f.do(http.MethodPost, "/health", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestLoginWithForm(t *testing.T) {
	f := newFixture()

	form := url.Values{"username": {"ada@example.com"}, "password": {"password1"}}
	req := httptest.NewRequest(http.MethodPost, "/users/jwt/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if f.users.loginEmail != "ada@example.com" {
		t.Fatalf("unexpected login email %q", f.users.loginEmail)
	}

	var token users.Token
	if err := json.Unmarshal(rec.Body.Bytes(), &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if token.AccessToken != validToken || token.TokenType != "bearer" {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	f := newFixture()
	f.users.loginErr = users.ErrInvalidCredentials

	rec := f.do(http.MethodPost, "/users/jwt/login", map[string]string{"email": "ada@example.com", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/users/register", map[string]string{"email": "b@example.com", "password": "password1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hashed_password") {
		t.Fatalf("password hash must not be serialized: %s", rec.Body.String())
	}

	f.users.registerErr = store.ErrUserExists
	if rec := f.do(http.MethodPost, "/users/register", map[string]string{"email": "b@example.com", "password": "password1"}); rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestPasswordFlows(t *testing.T) {
	f := newFixture()

	if rec := f.do(http.MethodPost, "/users/forgot-password", map[string]string{"email": "ada@example.com"}); rec.Code != http.StatusAccepted {
		t.Fatalf("forgot-password: expected status 202, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/users/reset-password", map[string]string{"token": "reset", "password": "password2"}); rec.Code != http.StatusOK {
		t.Fatalf("reset-password: expected status 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/users/reset-password", map[string]string{"token": "bad", "password": "password2"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("reset-password with bad token: expected status 400, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/users/verify", map[string]string{"token": "t"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("verify already verified: expected status 400, got %d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/users/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var u store.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u.ID != 1 {
		t.Fatalf("unexpected user: %+v", u)
	}

	rec = f.do(http.MethodPatch, "/users/me", map[string]string{"first_name": "Ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if f.users.lastUpdate.FirstName == nil || *f.users.lastUpdate.FirstName != "Ada" {
		t.Fatalf("update not forwarded: %+v", f.users.lastUpdate)
	}
}

func TestInvalidJSON(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/songs", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+validToken)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
