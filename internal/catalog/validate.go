package catalog

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLen     = 64
	maxPseudonymLen = 64
	maxBiographyLen = 500
	maxPhotoURLLen  = 150
)

func requireText(field, value string, max int) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return invalidf("%s is required", field)
	}
	if utf8.RuneCountInString(v) > max {
		return invalidf("%s must be at most %d characters", field, max)
	}
	return nil
}

func optionalText(field string, value *string, max int) error {
	if value != nil && utf8.RuneCountInString(*value) > max {
		return invalidf("%s must be at most %d characters", field, max)
	}
	return nil
}

func validateSongFields(title string, genre Genre) error {
	if err := requireText("song title", title, maxTitleLen); err != nil {
		return err
	}
	if !genre.Valid() {
		return invalidf("unknown genre %q", genre)
	}
	return nil
}

// Validate checks a standalone song create. The duration is checked before
// anything else.
func (s NewSong) Validate() error {
	if err := ValidateSongDuration(s.Title, s.Duration, ""); err != nil {
		return err
	}
	if err := validateSongFields(s.Title, s.Genre); err != nil {
		return err
	}
	if s.PerformerID <= 0 && s.AlbumID == nil {
		return invalidf("performer_id is required for a single")
	}
	return nil
}

// Validate checks the fields present in p. The duration is checked first.
func (p SongPatch) Validate() error {
	title := ""
	if p.Title != nil {
		title = *p.Title
	}
	if p.Duration != nil {
		if err := ValidateSongDuration(title, *p.Duration, ""); err != nil {
			return err
		}
	}
	if p.Title != nil {
		if err := requireText("song title", *p.Title, maxTitleLen); err != nil {
			return err
		}
	}
	if p.Genre != nil && !p.Genre.Valid() {
		return invalidf("unknown genre %q", *p.Genre)
	}
	if p.PerformerID != nil && *p.PerformerID <= 0 {
		return invalidf("performer_id must be positive")
	}
	return nil
}

// Validate checks an album create: every song duration, then the tracklist
// size, then the remaining fields.
func (a NewAlbum) Validate() error {
	for _, s := range a.Songs {
		if err := ValidateSongDuration(s.Title, s.Duration, a.Title); err != nil {
			return err
		}
	}
	if len(a.Songs) == 0 {
		return ErrAlbumMustContainSongs
	}
	if err := validateAlbumFields(a.Title, a.Year); err != nil {
		return err
	}
	if a.PerformerID <= 0 {
		return invalidf("performer_id is required")
	}
	for _, s := range a.Songs {
		if err := validateSongFields(s.Title, s.Genre); err != nil {
			return err
		}
	}
	return nil
}

func validateAlbumFields(title string, year int) error {
	if err := requireText("album title", title, maxTitleLen); err != nil {
		return err
	}
	if year <= 0 {
		return invalidf("album year must be positive")
	}
	return nil
}

// Validate checks the fields present in p.
func (p AlbumPatch) Validate() error {
	if p.Title != nil {
		if err := requireText("album title", *p.Title, maxTitleLen); err != nil {
			return err
		}
	}
	if p.Year != nil && *p.Year <= 0 {
		return invalidf("album year must be positive")
	}
	if p.PerformerID != nil && *p.PerformerID <= 0 {
		return invalidf("performer_id must be positive")
	}
	return nil
}

// Validate checks a composite performer create. Every nested duration, in
// albums and then singles, is checked before any other rule so that a bad
// duration is always the reported failure.
func (p PerformerInput) Validate() error {
	for _, a := range p.Albums {
		for _, s := range a.Songs {
			if err := ValidateSongDuration(s.Title, s.Duration, a.Title); err != nil {
				return err
			}
		}
	}
	for _, s := range p.Singles {
		if err := ValidateSongDuration(s.Title, s.Duration, ""); err != nil {
			return err
		}
	}

	for _, a := range p.Albums {
		if len(a.Songs) == 0 {
			return ErrAlbumMustContainSongs
		}
	}

	if err := validatePerformerFields(p.Pseudonym, p.Biography, p.PerformanceType, p.PhotoURL); err != nil {
		return err
	}

	titles := make(map[string]struct{}, len(p.Albums))
	for _, a := range p.Albums {
		if err := validateAlbumFields(a.Title, a.Year); err != nil {
			return err
		}
		if _, dup := titles[a.Title]; dup {
			return invalidf("album %q is listed twice", a.Title)
		}
		titles[a.Title] = struct{}{}
		for _, s := range a.Songs {
			if err := validateSongFields(s.Title, s.Genre); err != nil {
				return err
			}
		}
	}
	for _, s := range p.Singles {
		if err := validateSongFields(s.Title, s.Genre); err != nil {
			return err
		}
	}
	return nil
}

func validatePerformerFields(pseudonym string, bio *string, kind PerformanceType, photo *string) error {
	if err := requireText("pseudonym", pseudonym, maxPseudonymLen); err != nil {
		return err
	}
	if err := optionalText("biography", bio, maxBiographyLen); err != nil {
		return err
	}
	if !kind.Valid() {
		return invalidf("unknown performance type %q", kind)
	}
	return optionalText("photo_url", photo, maxPhotoURLLen)
}

// Validate checks the fields present in p.
func (p PerformerPatch) Validate() error {
	if p.Pseudonym != nil {
		if err := requireText("pseudonym", *p.Pseudonym, maxPseudonymLen); err != nil {
			return err
		}
	}
	if err := optionalText("biography", p.Biography, maxBiographyLen); err != nil {
		return err
	}
	if p.PerformanceType != nil && !p.PerformanceType.Valid() {
		return invalidf("unknown performance type %q", *p.PerformanceType)
	}
	return optionalText("photo_url", p.PhotoURL, maxPhotoURLLen)
}

// Validate checks every field of r.
func (r PerformerReplace) Validate() error {
	return validatePerformerFields(r.Pseudonym, r.Biography, r.PerformanceType, r.PhotoURL)
}
