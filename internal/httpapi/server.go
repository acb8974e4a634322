package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"songbook/internal/app/users"
	"songbook/internal/auth"
	"songbook/internal/catalog"
	"songbook/internal/duration"
	"songbook/internal/logging"
	"songbook/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Register(ctx context.Context, in users.Registration) (store.User, error)
	Login(ctx context.Context, email, password string) (users.Token, error)
	Authenticate(ctx context.Context, token string) (store.User, error)
	UpdateMe(ctx context.Context, current store.User, in users.ProfileUpdate) (store.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	RequestVerify(ctx context.Context, email string) error
	Verify(ctx context.Context, token string) (store.User, error)
}

// SongService exposes song workflows.
type SongService interface {
	List(ctx context.Context, filter store.SongFilter, page store.Page) ([]catalog.Song, error)
	Get(ctx context.Context, id int64) (catalog.Song, error)
	Create(ctx context.Context, in catalog.NewSong) (catalog.Song, error)
	Update(ctx context.Context, id int64, patch catalog.SongPatch) (catalog.Song, error)
	Replace(ctx context.Context, id int64, in catalog.NewSong) (catalog.Song, error)
	Delete(ctx context.Context, id int64) error
}

// AlbumService exposes album workflows.
type AlbumService interface {
	List(ctx context.Context, filter store.AlbumFilter, page store.Page) ([]catalog.Album, error)
	Get(ctx context.Context, id int64) (catalog.Album, error)
	Create(ctx context.Context, in catalog.NewAlbum) (catalog.Album, error)
	Update(ctx context.Context, id int64, patch catalog.AlbumPatch) (catalog.Album, error)
	Replace(ctx context.Context, id int64, title string, year int, performerID int64) (catalog.Album, error)
	Delete(ctx context.Context, id int64) error
}

// PerformerService exposes performer workflows.
type PerformerService interface {
	List(ctx context.Context, filter store.PerformerFilter, page store.Page) ([]catalog.Performer, error)
	Get(ctx context.Context, id int64) (catalog.Performer, error)
	Create(ctx context.Context, in catalog.PerformerInput) (catalog.Performer, error)
	Update(ctx context.Context, id int64, patch catalog.PerformerPatch) (catalog.Performer, error)
	Replace(ctx context.Context, id int64, in catalog.PerformerReplace) (catalog.Performer, error)
	Delete(ctx context.Context, id int64) error
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users      UserService
	songs      SongService
	albums     AlbumService
	performers PerformerService
}

// New configures a Server with the given services.
func New(users UserService, songs SongService, albums AlbumService, performers PerformerService) *Server {
	return &Server{
		users:      users,
		songs:      songs,
		albums:     albums,
		performers: performers,
	}
}

// Routes exposes the HTTP handlers for accounts and the catalog.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	u := r.PathPrefix("/users").Subrouter()
	u.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	u.HandleFunc("/jwt/login", s.handleLogin).Methods(http.MethodPost)
	u.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	u.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	u.HandleFunc("/request-verify-token", s.handleRequestVerify).Methods(http.MethodPost)
	u.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)
	u.HandleFunc("/me", s.requireUser(s.handleMe)).Methods(http.MethodGet)
	u.HandleFunc("/me", s.requireUser(s.handleUpdateMe)).Methods(http.MethodPatch)

	r.HandleFunc("/songs", s.requireUser(s.handleListSongs)).Methods(http.MethodGet)
	r.HandleFunc("/songs", s.requireUser(s.handleCreateSong)).Methods(http.MethodPost)
	r.HandleFunc("/songs/{id}", s.requireUser(s.handleGetSong)).Methods(http.MethodGet)
	r.HandleFunc("/songs/{id}", s.requireUser(s.handleUpdateSong)).Methods(http.MethodPatch)
	r.HandleFunc("/songs/{id}", s.requireUser(s.handleReplaceSong)).Methods(http.MethodPut)
	r.HandleFunc("/songs/{id}", s.requireUser(s.handleDeleteSong)).Methods(http.MethodDelete)

	r.HandleFunc("/albums", s.requireUser(s.handleListAlbums)).Methods(http.MethodGet)
	r.HandleFunc("/albums", s.requireUser(s.handleCreateAlbum)).Methods(http.MethodPost)
	r.HandleFunc("/albums/{id}", s.requireUser(s.handleGetAlbum)).Methods(http.MethodGet)
	r.HandleFunc("/albums/{id}", s.requireUser(s.handleUpdateAlbum)).Methods(http.MethodPatch)
	r.HandleFunc("/albums/{id}", s.requireUser(s.handleReplaceAlbum)).Methods(http.MethodPut)
	r.HandleFunc("/albums/{id}", s.requireUser(s.handleDeleteAlbum)).Methods(http.MethodDelete)

	r.HandleFunc("/performers", s.requireUser(s.handleListPerformers)).Methods(http.MethodGet)
	r.HandleFunc("/performers", s.requireUser(s.handleCreatePerformer)).Methods(http.MethodPost)
	r.HandleFunc("/performers/{id}", s.requireUser(s.handleGetPerformer)).Methods(http.MethodGet)
	r.HandleFunc("/performers/{id}", s.requireUser(s.handleUpdatePerformer)).Methods(http.MethodPatch)
	r.HandleFunc("/performers/{id}", s.requireUser(s.handleReplacePerformer)).Methods(http.MethodPut)
	r.HandleFunc("/performers/{id}", s.requireUser(s.handleDeletePerformer)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrEmptyResult):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, catalog.ErrInvalidSongDuration),
		errors.Is(err, duration.ErrInvalidFormat),
		errors.Is(err, catalog.ErrAlbumMustContainSongs),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, catalog.ErrPerformerMismatch),
		errors.Is(err, users.ErrInvalidEmail),
		errors.Is(err, users.ErrInvalidResetToken),
		errors.Is(err, users.ErrInvalidVerifyToken),
		errors.Is(err, users.ErrAlreadyVerified),
		errors.Is(err, auth.ErrPasswordTooShort):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, catalog.ErrPerformerAlreadyExists),
		errors.Is(err, catalog.ErrAlbumAlreadyExists),
		errors.Is(err, catalog.ErrSongAlreadyExists),
		errors.Is(err, store.ErrUserExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, catalog.ErrPerformerNotFound),
		errors.Is(err, catalog.ErrAlbumNotFound),
		errors.Is(err, catalog.ErrSongNotFound),
		errors.Is(err, store.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, users.ErrUnauthorized),
		errors.Is(err, users.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		logging.WithContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
