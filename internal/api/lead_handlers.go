package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/service/lead"
)

// HandleCreateLead captures a new lead.
func (h *Handlers) HandleCreateLead(w http.ResponseWriter, r *http.Request) {
	var input lead.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	l, err := h.leads.Create(r.Context(), projectID(r), input)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusCreated, l)
}

// HandleGetLead returns a single lead.
func (h *Handlers) HandleGetLead(w http.ResponseWriter, r *http.Request) {
	l, err := h.leads.Get(r.Context(), projectID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, l)
}

// HandleListLeads returns leads matching the query filters.
func (h *Handlers) HandleListLeads(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	leads, total, err := h.leads.List(r.Context(), projectID(r), f)
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	respondList(w, leads, total, len(leads))
}

// HandleLeadTransition moves a lead to a new lifecycle status.
func (h *Handlers) HandleLeadTransition(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status  string `json:"status"`
		Reason  string `json:"reason"`
		ActorID string `json:"actor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	l, err := h.leads.Transition(r.Context(), projectID(r), chi.URLParam(r, "id"),
		domain.LeadStatus(input.Status), input.Reason, input.ActorID)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, l)
}

// HandleLeadScore applies a score delta with an audit reason.
func (h *Handlers) HandleLeadScore(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Delta   int    `json:"delta"`
		Reason  string `json:"reason"`
		ActorID string `json:"actor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	l, err := h.leads.ApplyScoreDelta(r.Context(), projectID(r), chi.URLParam(r, "id"),
		input.Delta, input.Reason, input.ActorID)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, l)
}

// HandleLeadMetrics returns the aggregated lead metrics block.
func (h *Handlers) HandleLeadMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.leads.Metrics(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, m)
}

// HandleLeadAnalytics returns funnel, source and score-distribution data.
func (h *Handlers) HandleLeadAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.leads.Analytics(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, a)
}
