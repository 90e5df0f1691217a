package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/mailing"
	"github.com/ignite/crm-backoffice/internal/service/emailcampaign"
)

// HandleCreateEmailCampaign creates a draft campaign against a list.
func (h *Handlers) HandleCreateEmailCampaign(w http.ResponseWriter, r *http.Request) {
	var input emailcampaign.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.emailCampaigns.CreateCampaign(r.Context(), projectID(r), input)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusCreated, c)
}

// HandleGetEmailCampaign returns one campaign with its metrics record.
func (h *Handlers) HandleGetEmailCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.emailCampaigns.GetCampaign(r.Context(), projectID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, c)
}

// HandleListEmailCampaigns returns campaigns matching the query filters.
func (h *Handlers) HandleListEmailCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, total, err := h.emailCampaigns.ListCampaigns(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if campaigns == nil {
		campaigns = []domain.EmailCampaign{}
	}
	respondList(w, campaigns, total, len(campaigns))
}

// HandleUpdateEmailCampaign applies a partial update while editable.
func (h *Handlers) HandleUpdateEmailCampaign(w http.ResponseWriter, r *http.Request) {
	var input emailcampaign.UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.emailCampaigns.UpdateCampaign(r.Context(), projectID(r), chi.URLParam(r, "id"), input)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, c)
}

// HandleDeleteEmailCampaign removes a draft or cancelled campaign.
func (h *Handlers) HandleDeleteEmailCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.emailCampaigns.DeleteCampaign(r.Context(), projectID(r), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}

// HandleScheduleEmailCampaign stamps a future send time.
func (h *Handlers) HandleScheduleEmailCampaign(w http.ResponseWriter, r *http.Request) {
	var input struct {
		At      time.Time `json:"at"`
		ActorID string    `json:"actor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.emailCampaigns.Schedule(r.Context(), projectID(r), chi.URLParam(r, "id"), input.At, input.ActorID)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, c)
}

// HandleSendEmailCampaign dispatches the campaign to its list now.
func (h *Handlers) HandleSendEmailCampaign(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ActorID string `json:"actor_id"`
	}
	json.NewDecoder(r.Body).Decode(&input)

	report, err := h.emailCampaigns.Send(r.Context(), projectID(r), chi.URLParam(r, "id"), input.ActorID)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, report)
}

// HandleEmailCampaignTransition drives pause, resume and cancel.
func (h *Handlers) HandleEmailCampaignTransition(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status  string `json:"status"`
		Reason  string `json:"reason"`
		ActorID string `json:"actor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.emailCampaigns.Transition(r.Context(), projectID(r), chi.URLParam(r, "id"),
		domain.EmailCampaignStatus(input.Status), input.Reason, input.ActorID)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, c)
}

// HandleEmailMetricEvent folds a delivery event into the funnel record.
func (h *Handlers) HandleEmailMetricEvent(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Event string `json:"event"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if input.Count == 0 {
		input.Count = 1
	}

	c, err := h.emailCampaigns.ApplyMetricEvent(r.Context(), projectID(r), chi.URLParam(r, "id"),
		emailcampaign.MetricEvent(input.Event), input.Count)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, c)
}

// HandleEmailOverview returns the aggregated email analytics block.
func (h *Handlers) HandleEmailOverview(w http.ResponseWriter, r *http.Request) {
	o, err := h.emailCampaigns.Overview(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	respondData(w, http.StatusOK, o)
}

// HandleEmailPerformance returns per-campaign rate rows.
func (h *Handlers) HandleEmailPerformance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.emailCampaigns.Performance(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []emailcampaign.CampaignPerformance{}
	}
	respondData(w, http.StatusOK, rows)
}

// HandleCreateEmailList creates a new active list.
func (h *Handlers) HandleCreateEmailList(w http.ResponseWriter, r *http.Request) {
	var input emailcampaign.CreateListInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	l, err := h.emailCampaigns.CreateList(r.Context(), projectID(r), input)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusCreated, l)
}

// HandleListEmailLists returns lists matching the query filters.
func (h *Handlers) HandleListEmailLists(w http.ResponseWriter, r *http.Request) {
	lists, total, err := h.emailCampaigns.Lists(r.Context(), projectID(r), parseFilters(r))
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if lists == nil {
		lists = []domain.EmailList{}
	}
	respondList(w, lists, total, len(lists))
}

// HandleEmailListTransition activates or archives a list.
func (h *Handlers) HandleEmailListTransition(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	l, err := h.emailCampaigns.TransitionList(r.Context(), projectID(r), chi.URLParam(r, "id"),
		domain.EmailListStatus(input.Status))
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusOK, l)
}

// HandleDraftsFromFeed builds draft campaigns from an RSS feed.
func (h *Handlers) HandleDraftsFromFeed(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FeedURL  string                `json:"feed_url"`
		Defaults mailing.DraftDefaults `json:"defaults"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	drafts, err := h.emailCampaigns.DraftsFromFeed(r.Context(), projectID(r), input.FeedURL, input.Defaults)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusCreated, drafts)
}
