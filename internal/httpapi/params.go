package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"songbook/internal/catalog"
	"songbook/internal/store"
)

const maxPageSize = 99999

// parsePage reads page (>= 1, default 1) and size (1..99999, default 100).
// The resulting row offset must fit a bigint.
func parsePage(q url.Values) (store.Page, error) {
	page := store.Page{Number: 1, Size: store.DefaultPageSize}

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return store.Page{}, invalidParam("page", raw)
		}
		page.Number = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return store.Page{}, invalidParam("size", raw)
		}
		page.Size = n
	}
	if page.Number-1 > math.MaxInt/page.Size {
		return store.Page{}, invalidParam("page", q.Get("page"))
	}
	return page, nil
}

func parseSongFilter(q url.Values) (store.SongFilter, error) {
	filter := store.SongFilter{
		Title: q.Get("title"),
		Genre: q.Get("genre"),
	}

	var err error
	if filter.PerformerID, err = optionalInt64(q, "performer_id"); err != nil {
		return store.SongFilter{}, err
	}
	if filter.AlbumID, err = optionalInt64(q, "album_id"); err != nil {
		return store.SongFilter{}, err
	}
	if raw := q.Get("singles"); raw != "" {
		singles, err := strconv.ParseBool(raw)
		if err != nil {
			return store.SongFilter{}, invalidParam("singles", raw)
		}
		filter.SinglesOnly = singles
	}
	return filter, nil
}

func parseAlbumFilter(q url.Values) (store.AlbumFilter, error) {
	filter := store.AlbumFilter{Title: q.Get("title")}

	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year <= 0 {
			return store.AlbumFilter{}, invalidParam("year", raw)
		}
		filter.Year = year
	}

	var err error
	if filter.PerformerID, err = optionalInt64(q, "performer_id"); err != nil {
		return store.AlbumFilter{}, err
	}
	return filter, nil
}

func parsePerformerFilter(q url.Values) store.PerformerFilter {
	return store.PerformerFilter{
		Pseudonym:       q.Get("pseudonym"),
		PerformanceType: q.Get("performance_type"),
	}
}

func optionalInt64(q url.Values, key string) (int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, invalidParam(key, raw)
	}
	return n, nil
}

func invalidParam(key, raw string) error {
	return fmt.Errorf("%w: invalid %s %q", catalog.ErrInvalidInput, key, raw)
}

// listQuery parses the pagination parameters of r, writing a 400 on failure.
func listQuery(w http.ResponseWriter, r *http.Request) (url.Values, store.Page, bool) {
	q := r.URL.Query()
	page, err := parsePage(q)
	if err != nil {
		writeError(w, r, err)
		return nil, store.Page{}, false
	}
	return q, page, true
}

// genre normalizes a client genre. Unknown values pass through unchanged so
// validation can report them after any duration problem.
func genre(raw string) catalog.Genre {
	g, err := catalog.ParseGenre(raw)
	if err != nil {
		return catalog.Genre(strings.TrimSpace(raw))
	}
	return g
}

func performanceType(raw string) catalog.PerformanceType {
	p, err := catalog.ParsePerformanceType(raw)
	if err != nil {
		return catalog.PerformanceType(strings.TrimSpace(raw))
	}
	return p
}
