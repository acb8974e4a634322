package httpapi

import (
	"net/http"

	"songbook/internal/catalog"
)

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	q, page, ok := listQuery(w, r)
	if !ok {
		return
	}
	filter, err := parseAlbumFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	albums, err := s.albums.List(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[catalog.Album]{Items: albums})
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	album, err := s.albums.Create(r.Context(), req.newAlbum())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, album)
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	album, err := s.albums.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req albumPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	album, err := s.albums.Update(r.Context(), id, catalog.AlbumPatch{
		Title:       req.Title,
		Year:        req.Year,
		PerformerID: req.PerformerID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleReplaceAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req albumReplaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	album, err := s.albums.Replace(r.Context(), id, req.Title, req.Year, req.PerformerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.albums.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
