package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/service/adcampaign"
)

const defaultRankSize = 5

// HandleCreateAdCampaign creates a draft campaign.
func (h *Handlers) HandleCreateAdCampaign(w http.ResponseWriter, r *http.Request) {
	var input adcampaign.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.adCampaigns.Create(r.Context(), projectID(r), input)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusCreated, c)
}

// HandleGetAdCampaign returns one campaign.
func (h *Handlers) HandleGetAdCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.adCampaigns.Get(r.Context(), projectID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, c)
}

// HandleListAdCampaigns returns campaigns matching the query filters.
func (h *Handlers) HandleListAdCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, total, err := h.adCampaigns.List(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if campaigns == nil {
		campaigns = []domain.AdCampaign{}
	}
	respondList(w, campaigns, total, len(campaigns))
}

// HandleUpdateAdCampaign applies a partial update.
func (h *Handlers) HandleUpdateAdCampaign(w http.ResponseWriter, r *http.Request) {
	var input adcampaign.UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.adCampaigns.Update(r.Context(), projectID(r), chi.URLParam(r, "id"), input); err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}

// HandleAdCampaignTransition moves a campaign through its lifecycle.
func (h *Handlers) HandleAdCampaignTransition(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status  string `json:"status"`
		Reason  string `json:"reason"`
		ActorID string `json:"actor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.adCampaigns.Transition(r.Context(), projectID(r), chi.URLParam(r, "id"),
		domain.AdCampaignStatus(input.Status), input.Reason, input.ActorID)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, c)
}

// HandleAdCampaignStatistics returns the cross-campaign statistics block.
func (h *Handlers) HandleAdCampaignStatistics(w http.ResponseWriter, r *http.Request) {
	s, err := h.adCampaigns.Statistics(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, s)
}

// HandleAdCampaignDashboard returns the combined dashboard envelope.
func (h *Handlers) HandleAdCampaignDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.adCampaigns.Dashboard(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, d)
}

// HandleTopAdCampaigns returns the best campaigns ranked by CTR.
func (h *Handlers) HandleTopAdCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.adCampaigns.TopPerforming(r.Context(), projectID(r), rankSize(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, campaigns)
}

// HandleWorstAdCampaigns returns the weakest campaigns ranked by CTR.
func (h *Handlers) HandleWorstAdCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.adCampaigns.WorstPerforming(r.Context(), projectID(r), rankSize(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, campaigns)
}

func rankSize(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if n < 1 {
		return defaultRankSize
	}
	return n
}
