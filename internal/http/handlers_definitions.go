package http

import (
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

func (s *Server) registerDefinitionRoutes(mux *http.ServeMux, dir core.Direction) {
	base := "/api/" + string(dir) + "s"
	mux.HandleFunc("GET "+base, s.handleListDefinitions(dir))
	mux.HandleFunc("POST "+base, s.handleCreateDefinition(dir))
	mux.HandleFunc("GET "+base+"/{id}", s.handleGetDefinition(dir))
	mux.HandleFunc("PUT "+base+"/{id}", s.handleUpdateDefinition(dir))
	mux.HandleFunc("DELETE "+base+"/{id}", s.handleDeleteDefinition(dir))
	mux.HandleFunc("GET "+base+"/{id}/items", s.handleListItems(dir))
	mux.HandleFunc("PUT "+base+"/{id}/update-status", s.handleUpdateStatus(dir))
}

// handleListDefinitions returns incomes split into fixed and dynamic, and
// outcomes as one list totalled over the requested month.
func (s *Server) handleListDefinitions(dir core.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if dir == core.Income {
			list, err := s.defs.List(r.Context(), p, dir, services.MonthFilter{})
			if err != nil {
				writeError(w, r, err)
				return
			}
			resp := incomeListResponse{Fixed: []summaryResponse{}, Dynamic: []summaryResponse{}}
			for _, sum := range list {
				if sum.Kind == core.Dynamic {
					resp.Dynamic = append(resp.Dynamic, newSummaryResponse(sum))
				} else {
					resp.Fixed = append(resp.Fixed, newSummaryResponse(sum))
				}
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		f, err := parseMonthFilter(r.URL.Query(), s.now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := s.defs.List(r.Context(), p, dir, f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mapSlice(list, newSummaryResponse))
	}
}

func (s *Server) handleCreateDefinition(dir core.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req definitionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		d, err := req.definition(dir, 0)
		if err != nil {
			writeError(w, r, err)
			return
		}

		created, item, err := s.defs.Create(r.Context(), p, d)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, createdDefinitionResponse{
			definitionResponse: newDefinitionResponse(created),
			Item:               newItemResponse(item),
		})
	}
}

func (s *Server) handleGetDefinition(dir core.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		d, err := s.defs.Get(r.Context(), p, dir, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newDefinitionResponse(d))
	}
}

func (s *Server) handleUpdateDefinition(dir core.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req definitionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		d, err := req.definition(dir, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		updated, err := s.defs.Update(r.Context(), p, d)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newDefinitionResponse(updated))
	}
}

func (s *Server) handleDeleteDefinition(dir core.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.defs.Delete(r.Context(), p, dir, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListItems(dir core.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		items, err := s.defs.Items(r.Context(), p, dir, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mapSlice(items, newItemResponse))
	}
}

func (s *Server) handleUpdateStatus(dir core.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		change, err := req.change()
		if err != nil {
			writeError(w, r, err)
			return
		}

		if _, err := s.defs.UpdateStatus(r.Context(), p, dir, id, change); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
