package catalog

import "strings"

// Genre is the closed set of song classifications.
type Genre string

const (
	GenrePop        Genre = "pop"
	GenreRock       Genre = "rock"
	GenreHipHop     Genre = "hip-hop"
	GenreRnB        Genre = "rnb"
	GenreJazz       Genre = "jazz"
	GenreBlues      Genre = "blues"
	GenreClassical  Genre = "classical"
	GenreElectronic Genre = "electronic"
	GenreCountry    Genre = "country"
	GenreFolk       Genre = "folk"
	GenreMetal      Genre = "metal"
	GenrePunk       Genre = "punk"
	GenreReggae     Genre = "reggae"
	GenreSoul       Genre = "soul"
	GenreIndie      Genre = "indie"
	GenreOther      Genre = "other"
)

var genres = []Genre{
	GenrePop, GenreRock, GenreHipHop, GenreRnB, GenreJazz, GenreBlues,
	GenreClassical, GenreElectronic, GenreCountry, GenreFolk, GenreMetal,
	GenrePunk, GenreReggae, GenreSoul, GenreIndie, GenreOther,
}

// Genres lists every known genre.
func Genres() []Genre {
	out := make([]Genre, len(genres))
	copy(out, genres)
	return out
}

// ParseGenre normalizes s and checks it against the known genres.
func ParseGenre(s string) (Genre, error) {
	g := Genre(strings.ToLower(strings.TrimSpace(s)))
	if g.Valid() {
		return g, nil
	}
	return "", invalidf("unknown genre %q", s)
}

// Valid reports whether g is a known genre.
func (g Genre) Valid() bool {
	for _, known := range genres {
		if g == known {
			return true
		}
	}
	return false
}

// PerformanceType classifies how many people perform under a name.
type PerformanceType string

const (
	PerformanceSolo  PerformanceType = "solo"
	PerformanceDuo   PerformanceType = "duo"
	PerformanceTrio  PerformanceType = "trio"
	PerformanceGroup PerformanceType = "group"
)

// ParsePerformanceType normalizes s and checks it against the known types.
func ParsePerformanceType(s string) (PerformanceType, error) {
	p := PerformanceType(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p, nil
	}
	return "", invalidf("unknown performance type %q", s)
}

// Valid reports whether p is a known performance type.
func (p PerformanceType) Valid() bool {
	switch p {
	case PerformanceSolo, PerformanceDuo, PerformanceTrio, PerformanceGroup:
		return true
	}
	return false
}
