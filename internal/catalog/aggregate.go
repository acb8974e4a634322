package catalog

import (
	"fmt"
	"strings"

	"songbook/internal/duration"
)

// RecomputeTotal sets album.TotalDuration to the sum of durations. Empty
// entries contribute nothing. The caller persists the album.
func RecomputeTotal(album *Album, durations []string) error {
	present := make([]string, 0, len(durations))
	for _, d := range durations {
		if strings.TrimSpace(d) == "" {
			continue
		}
		present = append(present, d)
	}

	total, err := duration.Sum(present)
	if err != nil {
		return fmt.Errorf("recompute total for album %q: %w", album.Title, err)
	}
	album.TotalDuration = total
	return nil
}

// SongTotal sums the durations of nested songs.
func SongTotal(songs []SongInput) (string, error) {
	album := Album{}
	durations := make([]string, len(songs))
	for i, s := range songs {
		durations[i] = s.Duration
	}
	if err := RecomputeTotal(&album, durations); err != nil {
		return "", err
	}
	return album.TotalDuration, nil
}

// ValidateSongDuration checks d and reports failures with the song context.
func ValidateSongDuration(title, d, albumTitle string) error {
	if _, err := duration.Parse(d); err != nil {
		return &InvalidSongDurationError{SongTitle: title, Duration: d, AlbumTitle: albumTitle}
	}
	return nil
}

// SongKey identifies a song for single deduplication.
type SongKey struct {
	Title    string
	Duration string
	Genre    Genre
}

// Key returns the deduplication key of s. The title is trimmed the same way
// it is when stored.
func (s SongInput) Key() SongKey {
	return SongKey{Title: strings.TrimSpace(s.Title), Duration: s.Duration, Genre: s.Genre}
}

// DedupeSingles drops singles whose (title, duration, genre) exactly match a
// song already placed in one of albums. Order of the remaining singles is kept.
func DedupeSingles(albums []AlbumInput, singles []SongInput) []SongInput {
	placed := make(map[SongKey]struct{})
	for _, a := range albums {
		for _, s := range a.Songs {
			placed[s.Key()] = struct{}{}
		}
	}

	out := make([]SongInput, 0, len(singles))
	for _, s := range singles {
		if _, ok := placed[s.Key()]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
