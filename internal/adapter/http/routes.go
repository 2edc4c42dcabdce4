package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/standardhub/internal/domain/feedback"
)

// Version is reported by GET /api/v1/.
var Version = "dev"

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		// Feedback queue
		r.Post("/feedback", h.CreateFeedback)
		r.Get("/feedback", h.ListFeedback)
		r.Get("/feedback/{id}", h.GetFeedback)
		r.Post("/feedback/{id}/llm-approve", h.reviewAction(feedback.ActionLLMApprove))
		r.Post("/feedback/{id}/llm-reject", h.reviewAction(feedback.ActionLLMReject))
		r.Post("/feedback/{id}/human-approve", h.reviewAction(feedback.ActionHumanApprove))
		r.Post("/feedback/{id}/human-reject", h.reviewAction(feedback.ActionHumanReject))
		r.Post("/feedback/{id}/merge", h.MergeFeedback)
		r.Post("/feedback/{id}/reject", h.RejectFeedback)

		// Catalogue reads
		r.Get("/coding-rules/{id}", handleGet(h.Catalog.CodingRule))
		r.Get("/rule-examples/{id}", handleGet(h.Catalog.RuleExample))
		r.Get("/class-templates/{id}", handleGet(h.Catalog.ClassTemplate))
		r.Get("/checklist-items/{id}", handleGet(h.Catalog.ChecklistItem))
		r.Get("/archunit-tests/{id}", handleGet(h.Catalog.ArchUnitTest))
	})
}
