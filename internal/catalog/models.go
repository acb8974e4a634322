// Package catalog holds the performer/album/song model and the rules that
// keep an album's total duration in step with its songs.
package catalog

// Song is a track attributed to a performer. A nil AlbumID marks a single.
type Song struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Duration    string `json:"duration"`
	Genre       Genre  `json:"genre"`
	PerformerID int64  `json:"performer_id"`
	AlbumID     *int64 `json:"album_id"`
}

// Album is a titled release. TotalDuration is derived from Songs and is never
// written from client input.
type Album struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Year          int    `json:"year"`
	TotalDuration string `json:"total_duration"`
	PerformerID   int64  `json:"performer_id"`
	Songs         []Song `json:"songs"`
}

// Performer owns albums and singles. Pseudonym is unique across the catalog.
type Performer struct {
	ID              int64           `json:"id"`
	Pseudonym       string          `json:"pseudonym"`
	Biography       *string         `json:"biography"`
	PerformanceType PerformanceType `json:"performance_type"`
	PhotoURL        *string         `json:"photo_url"`
	Albums          []Album         `json:"albums"`
	Singles         []Song          `json:"singles"`
}

// SongInput is a song nested inside an album or performer write.
type SongInput struct {
	Title    string
	Duration string
	Genre    Genre
}

// NewSong is a standalone song create. A zero PerformerID is filled from
// the album when AlbumID is set.
type NewSong struct {
	Title       string
	Duration    string
	Genre       Genre
	PerformerID int64
	AlbumID     *int64
}

// SongPatch carries the fields of a partial song update. AlbumIDSet
// distinguishes "leave album alone" from "detach" (AlbumIDSet with nil AlbumID).
type SongPatch struct {
	Title       *string
	Duration    *string
	Genre       *Genre
	PerformerID *int64
	AlbumIDSet  bool
	AlbumID     *int64
}

// Patch converts a full replacement into a patch that sets every field.
func (s NewSong) Patch() SongPatch {
	return SongPatch{
		Title:       &s.Title,
		Duration:    &s.Duration,
		Genre:       &s.Genre,
		PerformerID: &s.PerformerID,
		AlbumIDSet:  true,
		AlbumID:     s.AlbumID,
	}
}

// Apply copies the set fields of p onto song.
func (p SongPatch) Apply(song *Song) {
	if p.Title != nil {
		song.Title = *p.Title
	}
	if p.Duration != nil {
		song.Duration = *p.Duration
	}
	if p.Genre != nil {
		song.Genre = *p.Genre
	}
	if p.PerformerID != nil {
		song.PerformerID = *p.PerformerID
	}
	if p.AlbumIDSet {
		song.AlbumID = p.AlbumID
	}
}

// AlbumInput is an album nested inside a performer create.
type AlbumInput struct {
	Title string
	Year  int
	Songs []SongInput
}

// NewAlbum is a standalone album create with its tracklist.
type NewAlbum struct {
	Title       string
	Year        int
	PerformerID int64
	Songs       []SongInput
}

// AlbumPatch carries the scalar fields of an album update.
type AlbumPatch struct {
	Title       *string
	Year        *int
	PerformerID *int64
}

// PerformerInput is a composite performer create.
type PerformerInput struct {
	Pseudonym       string
	Biography       *string
	PerformanceType PerformanceType
	PhotoURL        *string
	Albums          []AlbumInput
	Singles         []SongInput
}

// PerformerPatch carries the scalar fields of a performer update. Biography
// and PhotoURL are cleared only by a full replace.
type PerformerPatch struct {
	Pseudonym       *string
	Biography       *string
	PerformanceType *PerformanceType
	PhotoURL        *string
}

// PerformerReplace sets every scalar field of a performer.
type PerformerReplace struct {
	Pseudonym       string
	Biography       *string
	PerformanceType PerformanceType
	PhotoURL        *string
}
