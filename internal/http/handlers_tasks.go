package http

import (
	"net/http"

	"finanzas/internal/core"
)

func groupPath(kind core.GroupKind) string {
	if kind == core.Activity {
		return "/api/activities"
	}
	return "/api/projects"
}

func (s *Server) registerGroupRoutes(mux *http.ServeMux, kind core.GroupKind) {
	base := groupPath(kind)
	mux.HandleFunc("GET "+base, s.handleListGroups(kind))
	mux.HandleFunc("POST "+base, s.handleCreateGroup(kind))
	mux.HandleFunc("GET "+base+"/{id}", s.handleGetGroup(kind))
	mux.HandleFunc("DELETE "+base+"/{id}", s.handleDeleteGroup(kind))
	mux.HandleFunc("GET "+base+"/{id}/tasks", s.handleListTasks(kind))
	mux.HandleFunc("POST "+base+"/{id}/tasks", s.handleCreateTask(kind))
	mux.HandleFunc("GET "+base+"/{id}/tasks/{task}", s.handleGetTask(kind))
	mux.HandleFunc("DELETE "+base+"/{id}/tasks/{task}", s.handleDeleteTask(kind))
	mux.HandleFunc("PUT "+base+"/{id}/tasks/{task}/update-status", s.handleUpdateTaskStatus(kind))
}

func (s *Server) handleListGroups(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		groups, err := s.tasks.ListGroups(r.Context(), p, kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mapSlice(groups, newGroupResponse))
	}
}

func (s *Server) handleCreateGroup(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req groupRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		g, err := s.tasks.CreateGroup(r.Context(), p, core.Group{Kind: kind, Name: sanitizeInput(req.Name)})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newGroupResponse(g))
	}
}

func (s *Server) handleGetGroup(kind core.GroupKind) http.HandlerFunc {
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
		g, err := s.tasks.GetGroup(r.Context(), p, kind, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newGroupResponse(g))
	}
}

func (s *Server) handleDeleteGroup(kind core.GroupKind) http.HandlerFunc {
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
		if err := s.tasks.DeleteGroup(r.Context(), p, kind, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListTasks(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		groupID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		tasks, err := s.tasks.ListTasks(r.Context(), p, kind, groupID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mapSlice(tasks, newTaskResponse))
	}
}

func (s *Server) handleCreateTask(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		groupID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req taskRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := req.task()
		if err != nil {
			writeError(w, r, err)
			return
		}

		created, err := s.tasks.CreateTask(r.Context(), p, kind, groupID, t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newTaskResponse(created))
	}
}

// taskIDs reads the group and task ids from the path.
func taskIDs(r *http.Request) (groupID, id int64, err error) {
	if groupID, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(r, "task"); err != nil {
		return 0, 0, err
	}
	return groupID, id, nil
}

func (s *Server) handleGetTask(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		groupID, id, err := taskIDs(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		t, err := s.tasks.GetTask(r.Context(), p, kind, groupID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newTaskResponse(t))
	}
}

func (s *Server) handleDeleteTask(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		groupID, id, err := taskIDs(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.tasks.DeleteTask(r.Context(), p, kind, groupID, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleUpdateTaskStatus(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		groupID, id, err := taskIDs(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		if _, err := s.tasks.UpdateStatus(r.Context(), p, kind, groupID, id, core.Status(req.Status)); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
