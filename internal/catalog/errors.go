package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSongDuration matches every *InvalidSongDurationError.
	ErrInvalidSongDuration = errors.New("invalid song duration")
	// ErrAlbumMustContainSongs rejects album writes without a tracklist.
	ErrAlbumMustContainSongs = errors.New("album must contain at least one song")
	// ErrInvalidInput covers missing required fields and unknown enum values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPerformerMismatch signals a song whose performer differs from its album's.
	ErrPerformerMismatch = errors.New("song performer does not match album performer")

	ErrPerformerAlreadyExists = errors.New("performer with the following name already exists")
	ErrAlbumAlreadyExists     = errors.New("album with the following name already exists")
	ErrSongAlreadyExists      = errors.New("song with the following name already exists")

	ErrPerformerNotFound = errors.New("performer not found")
	ErrAlbumNotFound     = errors.New("album not found")
	ErrSongNotFound      = errors.New("song not found")

	// ErrEmptyResult is returned by list queries that matched no rows.
	ErrEmptyResult = errors.New("query returned no results")
)

// InvalidSongDurationError describes a song whose duration failed to parse.
// AlbumTitle is empty for singles and standalone songs.
type InvalidSongDurationError struct {
	SongTitle  string
	Duration   string
	AlbumTitle string
}

func (e *InvalidSongDurationError) Error() string {
	if e.AlbumTitle != "" {
		return fmt.Sprintf("invalid duration %q for song %q in album %q", e.Duration, e.SongTitle, e.AlbumTitle)
	}
	return fmt.Sprintf("invalid duration %q for song %q", e.Duration, e.SongTitle)
}

// Is lets errors.Is(err, ErrInvalidSongDuration) match.
func (e *InvalidSongDurationError) Is(target error) bool {
	return target == ErrInvalidSongDuration
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
