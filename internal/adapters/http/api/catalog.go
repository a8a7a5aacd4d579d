package api

import (
	"net/http"

	"github.com/okian/critic/internal/adapters/repository"
)

type nameRequest struct {
	Name string `json:"name"`
}

type assignAllResponse struct {
	Added int `json:"added"`
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// respond writes v as 200, or the mapped error.
func respond[T any](s *Server, w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// done writes 204, or the mapped error.
func (s *Server) done(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// catalog returns the catalog, or writes the mapped error and returns nil.
func (s *Server) catalog(w http.ResponseWriter, r *http.Request) repository.Catalog {
	c, err := s.deps.Catalog()
	if err != nil {
		s.fail(w, r, err)
		return nil
	}
	return c
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	ts, err := cat.ListTitles(r.Context())
	respond(s, w, r, nonNil(ts), err)
}

func (s *Server) handleCreateTitle(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := cat.CreateTitle(r.Context(), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleRenameTitle(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.RenameTitle(r.Context(), id, req.Name))
}

func (s *Server) handleDeleteTitle(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.DeleteTitle(r.Context(), id))
}

func (s *Server) handleGroupsByTitle(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	gs, err := cat.GroupsByTitle(r.Context(), id)
	respond(s, w, r, nonNil(gs), err)
}

// association reads the title and group ids of /titles/{id}/groups/{groupID}.
func association(r *http.Request) (titleID, groupID int64, err error) {
	if titleID, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	if groupID, err = pathID(r, "groupID"); err != nil {
		return 0, 0, err
	}
	return titleID, groupID, nil
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	titleID, groupID, err := association(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.AssignGroup(r.Context(), titleID, groupID))
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	titleID, groupID, err := association(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.UnassignGroup(r.Context(), titleID, groupID))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	gs, err := cat.ListGroups(r.Context())
	respond(s, w, r, nonNil(gs), err)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := cat.CreateGroup(r.Context(), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.RenameGroup(r.Context(), id, req.Name))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.DeleteGroup(r.Context(), id))
}

func (s *Server) handleAssignAll(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := cat.AddGroupToAll(r.Context(), id)
	respond(s, w, r, assignAllResponse{Added: n}, err)
}

func (s *Server) handleTitlesByGroup(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ts, err := cat.TitlesByGroup(r.Context(), id)
	respond(s, w, r, nonNil(ts), err)
}

func (s *Server) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cs, err := cat.ListCriteria(r.Context(), id)
	respond(s, w, r, nonNil(cs), err)
}

func (s *Server) handleCreateCriterion(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := cat.CreateCriterion(r.Context(), id, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleRenameCriterion(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.RenameCriterion(r.Context(), id, req.Name))
}

func (s *Server) handleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog(w, r)
	if cat == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, cat.DeleteCriterion(r.Context(), id))
}
