package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/critic/internal/domain/model"
)

// pageSizeHeader carries the page size a ranking response was cut to.
const pageSizeHeader = "X-Page-Size"

// handleNextContest handles GET /contests/next?group_id=N. Without a group
// any group with two or more titles may be chosen. Responds 204 when no
// pair is left to compare.
func (s *Server) handleNextContest(w http.ResponseWriter, r *http.Request) {
	groupID, err := queryInt(r, "group_id", 0)
	if err != nil || groupID < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid group_id", ErrBadRequest))
		return
	}
	c, err := s.deps.NextContest(r.Context(), int64(groupID))
	if errors.Is(err, model.ErrNoEligiblePair) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// resultRequest is the body of POST /results.
type resultRequest struct {
	ContestID   uuid.UUID  `json:"contest_id"`
	GroupID     int64      `json:"group_id"`
	CriterionID int64      `json:"criterion_id"`
	AID         int64      `json:"a_id"`
	BID         int64      `json:"b_id"`
	Score       scoreField `json:"score"`
}

// scoreField accepts a number (0, 0.5, 1) or a word (win, draw, loss).
type scoreField struct {
	model.Score
	set bool
}

func (f *scoreField) UnmarshalJSON(b []byte) error {
	var word string
	if err := json.Unmarshal(b, &word); err == nil {
		sc, err := model.ParseScore(word)
		if err != nil {
			return err
		}
		f.Score, f.set = sc, true
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: score must be a number or a word", model.ErrInvalidScore)
	}
	f.Score, f.set = model.Score(n), true
	return nil
}

func (req resultRequest) validate() error {
	switch {
	case req.GroupID <= 0:
		return fmt.Errorf("%w: missing group_id", ErrBadRequest)
	case req.AID <= 0 || req.BID <= 0:
		return fmt.Errorf("%w: missing a_id or b_id", ErrBadRequest)
	case !req.Score.set:
		return fmt.Errorf("%w: missing score", model.ErrInvalidScore)
	}
	return nil
}

// handlePostResult handles POST /results.
func (s *Server) handlePostResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.deps.Judge(r.Context(), Judgment{
		ContestID:   req.ContestID,
		GroupID:     req.GroupID,
		CriterionID: req.CriterionID,
		AID:         req.AID,
		BID:         req.BID,
		Score:       req.Score.Score,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleTop handles GET /top?group=NAME&page_size=N&page=P.
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "page_size", s.defaultPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := queryInt(r, "page", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.deps.Top(r.Context(), r.URL.Query().Get("group"), size, page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// page_size above the cap is served capped; offsets follow the cap.
	w.Header().Set(pageSizeHeader, strconv.Itoa(s.deps.PageSize(size)))
	writeJSON(w, http.StatusOK, nonNil(rows))
}
