package api

import (
	"net/http"
	"time"

	"github.com/ignite/crm-backoffice/internal/service/adcampaign"
	"github.com/ignite/crm-backoffice/internal/service/emailcampaign"
	"github.com/ignite/crm-backoffice/internal/service/lead"
	"github.com/ignite/crm-backoffice/internal/storage"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Handlers bundles the services the HTTP surface exposes.
type Handlers struct {
	leads          *lead.Service
	adCampaigns    *adcampaign.Service
	emailCampaigns *emailcampaign.Service
	media          *storage.MediaStore
}

// NewHandlers creates a new Handlers instance. Media may be nil when no
// storage backend is configured; its routes then answer 503.
func NewHandlers(leads *lead.Service, adCampaigns *adcampaign.Service, emailCampaigns *emailcampaign.Service, media *storage.MediaStore) *Handlers {
	return &Handlers{
		leads:          leads,
		adCampaigns:    adCampaigns,
		emailCampaigns: emailCampaigns,
		media:          media,
	}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   timeNow().UTC().Format(time.RFC3339),
	})
}
