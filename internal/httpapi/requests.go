package httpapi

import (
	"bytes"
	"encoding/json"

	"songbook/internal/catalog"
)

// optionalID records whether a nullable id was present in a JSON body, so
// an omitted album_id can be told apart from an explicit null.
type optionalID struct {
	Set   bool
	Value *int64
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type songInputRequest struct {
	Title    string `json:"title"`
	Duration string `json:"duration"`
	Genre    string `json:"genre"`
}

func (r songInputRequest) input() catalog.SongInput {
	return catalog.SongInput{Title: r.Title, Duration: r.Duration, Genre: genre(r.Genre)}
}

func songInputs(reqs []songInputRequest) []catalog.SongInput {
	out := make([]catalog.SongInput, len(reqs))
	for i, r := range reqs {
		out[i] = r.input()
	}
	return out
}

type songRequest struct {
	Title       string `json:"title"`
	Duration    string `json:"duration"`
	Genre       string `json:"genre"`
	PerformerID int64  `json:"performer_id"`
	AlbumID     *int64 `json:"album_id"`
}

func (r songRequest) newSong() catalog.NewSong {
	return catalog.NewSong{
		Title:       r.Title,
		Duration:    r.Duration,
		Genre:       genre(r.Genre),
		PerformerID: r.PerformerID,
		AlbumID:     r.AlbumID,
	}
}

type songPatchRequest struct {
	Title       *string    `json:"title"`
	Duration    *string    `json:"duration"`
	Genre       *string    `json:"genre"`
	PerformerID *int64     `json:"performer_id"`
	AlbumID     optionalID `json:"album_id"`
}

func (r songPatchRequest) patch() catalog.SongPatch {
	p := catalog.SongPatch{
		Title:       r.Title,
		Duration:    r.Duration,
		PerformerID: r.PerformerID,
		AlbumIDSet:  r.AlbumID.Set,
		AlbumID:     r.AlbumID.Value,
	}
	if r.Genre != nil {
		g := genre(*r.Genre)
		p.Genre = &g
	}
	return p
}

type albumRequest struct {
	Title       string             `json:"title"`
	Year        int                `json:"year"`
	PerformerID int64              `json:"performer_id"`
	Songs       []songInputRequest `json:"songs"`
}

func (r albumRequest) newAlbum() catalog.NewAlbum {
	return catalog.NewAlbum{
		Title:       r.Title,
		Year:        r.Year,
		PerformerID: r.PerformerID,
		Songs:       songInputs(r.Songs),
	}
}

type albumPatchRequest struct {
	Title       *string `json:"title"`
	Year        *int    `json:"year"`
	PerformerID *int64  `json:"performer_id"`
}

type albumReplaceRequest struct {
	Title       string `json:"title"`
	Year        int    `json:"year"`
	PerformerID int64  `json:"performer_id"`
}

type nestedAlbumRequest struct {
	Title string             `json:"title"`
	Year  int                `json:"year"`
	Songs []songInputRequest `json:"songs"`
}

type performerRequest struct {
	Pseudonym       string               `json:"pseudonym"`
	Biography       *string              `json:"biography"`
	PerformanceType string               `json:"performance_type"`
	PhotoURL        *string              `json:"photo_url"`
	Albums          []nestedAlbumRequest `json:"albums"`
	Singles         []songInputRequest   `json:"singles"`
}

func (r performerRequest) input() catalog.PerformerInput {
	in := catalog.PerformerInput{
		Pseudonym:       r.Pseudonym,
		Biography:       r.Biography,
		PerformanceType: performanceType(r.PerformanceType),
		PhotoURL:        r.PhotoURL,
		Albums:          make([]catalog.AlbumInput, len(r.Albums)),
		Singles:         songInputs(r.Singles),
	}
	for i, a := range r.Albums {
		in.Albums[i] = catalog.AlbumInput{Title: a.Title, Year: a.Year, Songs: songInputs(a.Songs)}
	}
	return in
}

type performerPatchRequest struct {
	Pseudonym       *string `json:"pseudonym"`
	Biography       *string `json:"biography"`
	PerformanceType *string `json:"performance_type"`
	PhotoURL        *string `json:"photo_url"`
}

func (r performerPatchRequest) patch() catalog.PerformerPatch {
	p := catalog.PerformerPatch{
		Pseudonym: r.Pseudonym,
		Biography: r.Biography,
		PhotoURL:  r.PhotoURL,
	}
	if r.PerformanceType != nil {
		kind := performanceType(*r.PerformanceType)
		p.PerformanceType = &kind
	}
	return p
}

type performerReplaceRequest struct {
	Pseudonym       string  `json:"pseudonym"`
	Biography       *string `json:"biography"`
	PerformanceType string  `json:"performance_type"`
	PhotoURL        *string `json:"photo_url"`
}

func (r performerReplaceRequest) replace() catalog.PerformerReplace {
	return catalog.PerformerReplace{
		Pseudonym:       r.Pseudonym,
		Biography:       r.Biography,
		PerformanceType: performanceType(r.PerformanceType),
		PhotoURL:        r.PhotoURL,
	}
}
