package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"aph/internal/adapters/http/middleware"
	programstore "aph/internal/adapters/storage/program"
)

// handleListPrograms lists active programs. Admins and coaches may pass
// ?all=true to include inactive ones.
func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	filter := programstore.ListFilter{ActiveOnly: true}
	if r.URL.Query().Get("all") == "true" && middleware.UserFromContext(r.Context()).CanViewDatabase() {
		filter.ActiveOnly = false
	}
	programs, err := s.stores.Programs.List(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(programs, toProgramView))
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.stores.Programs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		internalError(w, err)
		return
	}
	if p == nil {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, toProgramView(*p))
}

func (s *Server) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var in programInput
	if !strictDecode(w, r, &in) {
		return
	}
	p, err := s.stores.Programs.Create(r.Context(), in.newProgram())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProgramView(p))
}

func (s *Server) handleUpdateProgram(w http.ResponseWriter, r *http.Request) {
	var in programInput
	if !strictDecode(w, r, &in) {
		return
	}
	p, err := s.stores.Programs.Update(r.Context(), chi.URLParam(r, "id"), in.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgramView(p))
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.stores.Programs.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
