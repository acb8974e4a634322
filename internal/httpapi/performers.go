package httpapi

import (
	"net/http"

	"songbook/internal/catalog"
)

func (s *Server) handleListPerformers(w http.ResponseWriter, r *http.Request) {
	q, page, ok := listQuery(w, r)
	if !ok {
		return
	}

	performers, err := s.performers.List(r.Context(), parsePerformerFilter(q), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[catalog.Performer]{Items: performers})
}

// handleCreatePerformer accepts a performer together with its albums and
// singles and stores them atomically.
func (s *Server) handleCreatePerformer(w http.ResponseWriter, r *http.Request) {
	var req performerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	performer, err := s.performers.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, performer)
}

func (s *Server) handleGetPerformer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	performer, err := s.performers.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performer)
}

func (s *Server) handleUpdatePerformer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req performerPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	performer, err := s.performers.Update(r.Context(), id, req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performer)
}

func (s *Server) handleReplacePerformer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req performerReplaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	performer, err := s.performers.Replace(r.Context(), id, req.replace())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performer)
}

func (s *Server) handleDeletePerformer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.performers.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
