package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/service"
)

// Handlers holds the services the REST API delegates to.
type Handlers struct {
	Feedback *service.FeedbackService
	Catalog  *service.CatalogService
}

type createFeedbackRequest struct {
	TargetType   string          `json:"target_type"`
	TargetID     *int64          `json:"target_id,omitempty"`
	FeedbackType string          `json:"feedback_type"`
	Payload      json.RawMessage `json:"payload"`
	RiskLevel    string          `json:"risk_level,omitempty"`
}

type reviewRequest struct {
	ReviewNotes string `json:"review_notes"`
}

// CreateFeedback handles POST /api/v1/feedback.
func (h *Handlers) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createFeedbackRequest](w, r)
	if !ok {
		return
	}
	cmd, err := feedback.ParseCreateCommand(req.TargetType, req.TargetID, req.FeedbackType, req.Payload, req.RiskLevel)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	it, err := h.Feedback.Create(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// ListFeedback handles GET /api/v1/feedback. The view parameter selects the
// "pending" or "human_review" queues; other filters apply otherwise.
func (h *Handlers) ListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	afterID, err := queryInt(r, "after_id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var items []feedback.Item
	switch view := q.Get("view"); view {
	case "pending":
		items, err = h.Feedback.Pending(r.Context(), afterID, int(limit))
	case "human_review":
		items, err = h.Feedback.AwaitingHumanReview(r.Context(), afterID, int(limit))
	case "":
		items, err = h.Feedback.List(r.Context(), feedback.ListFilter{
			Status:       feedback.Status(strings.ToUpper(q.Get("status"))),
			TargetType:   feedback.TargetType(strings.ToUpper(q.Get("target_type"))),
			RiskLevel:    feedback.RiskLevel(strings.ToUpper(q.Get("risk_level"))),
			FeedbackType: feedback.Type(strings.ToUpper(q.Get("feedback_type"))),
			AfterID:      afterID,
			Limit:        int(limit),
			OldestFirst:  strings.EqualFold(q.Get("order"), "asc"),
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown view "+view)
		return
	}
	handleList(w, r, items, err)
}

// GetFeedback handles GET /api/v1/feedback/{id}.
func (h *Handlers) GetFeedback(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Feedback.Get)(w, r)
}

// reviewAction returns a handler applying action with the optional notes in the body.
func (h *Handlers) reviewAction(action feedback.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		req, ok := readJSON[reviewRequest](w, r)
		if !ok {
			return
		}
		it, err := h.Feedback.Process(r.Context(), feedback.ProcessCommand{
			FeedbackID:  id,
			Action:      action,
			ReviewNotes: req.ReviewNotes,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

// MergeFeedback handles POST /api/v1/feedback/{id}/merge.
func (h *Handlers) MergeFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	it, err := h.Feedback.Merge(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// RejectFeedback handles POST /api/v1/feedback/{id}/reject.
func (h *Handlers) RejectFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[reviewRequest](w, r)
	if !ok {
		return
	}
	it, err := h.Feedback.Reject(r.Context(), id, req.ReviewNotes)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}
