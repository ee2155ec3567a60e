package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/colonyops/casetrack/internal/core/dashboard"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the allowance for form fields and boundaries on top of
// the attachment size limit.
const multipartOverhead = 1 << 20

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := task.ParseQuery(params.Get("status"), params.Get("priority"), params.Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	list, err := s.app.Tasks.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, task.Filter(list, q))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.app.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in task.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err), nil)
		return
	}

	t, err := s.app.Tasks.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch task.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err), nil)
		return
	}

	t, err := s.app.Tasks.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) attach(w http.ResponseWriter, r *http.Request) {
	if limit := s.app.Blobs.MaxSize(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read form file: %v", err), nil)
		return
	}
	defer func() { _ = file.Close() }()

	t, err := s.app.Attachments.Attach(r.Context(), chi.URLParam(r, "id"), header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) detach(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer", nil)
		return
	}

	t, err := s.app.Attachments.Detach(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Tasks.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Build(list, s.now()))
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Tasks.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Board(list))
}
