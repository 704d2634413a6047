package httpapi

import (
	"net/http"
	"strings"
	"time"

	"posvenda.org/internal/crm"
	"posvenda.org/internal/stream"
)

type campaignRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        string            `json:"type"`
	Channel     string            `json:"channel"`
	Template    string            `json:"template"`
	Settings    map[string]string `json:"settings"`
	ScheduledAt *time.Time        `json:"scheduled_at"`
}

type executeCampaignRequest struct {
	ContactIDs []string `json:"contact_ids"`
}

func (a *API) handleCampaignsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listCampaigns(w, r)
	case http.MethodPost:
		a.createCampaign(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCampaignResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/campaigns/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id, action, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getCampaign(w, r, id)
		case http.MethodPut:
			a.updateCampaign(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
	case "execute":
		a.executeCampaign(w, r, id)
	case "pause":
		a.transitionCampaign(w, r, id, "pause")
	case "resume":
		a.transitionCampaign(w, r, id, "resume")
	case "cancel":
		a.transitionCampaign(w, r, id, "cancel")
	case "stats":
		a.campaignStats(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listCampaigns(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	items, err := a.crm.ListCampaigns(r.Context(), identity.TenantID)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createCampaign(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req campaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.Template) == "" {
		writeError(w, r, http.StatusBadRequest, "template is required")
		return
	}
	if !crm.ValidCampaignType(crm.CampaignType(req.Type)) {
		writeError(w, r, http.StatusBadRequest, "type must be greeting, survey, follow_up or promotional")
		return
	}
	if !crm.ValidChannel(crm.Channel(req.Channel)) {
		writeError(w, r, http.StatusBadRequest, "channel must be whatsapp, sms or email")
		return
	}

	campaign := &crm.Campaign{
		TenantID:    identity.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Type:        crm.CampaignType(req.Type),
		Channel:     crm.Channel(req.Channel),
		Template:    req.Template,
		Settings:    req.Settings,
		ScheduledAt: req.ScheduledAt,
	}
	if err := a.crm.CreateCampaign(r.Context(), campaign); err != nil {
		handleCRMError(w, r, err)
		return
	}

	a.audit(r.Context(), "crm.campaign.create", map[string]any{"campaign_id": campaign.ID})
	w.Header().Set("Location", "/api/campaigns/"+campaign.ID)
	writeJSON(w, http.StatusCreated, campaign)
}

func (a *API) getCampaign(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	campaign, err := a.crm.GetCampaign(r.Context(), identity.TenantID, id)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (a *API) updateCampaign(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req campaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := a.crm.GetCampaign(r.Context(), identity.TenantID, id)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		campaign.Name = req.Name
	}
	campaign.Description = req.Description
	if req.Type != "" {
		if !crm.ValidCampaignType(crm.CampaignType(req.Type)) {
			writeError(w, r, http.StatusBadRequest, "type must be greeting, survey, follow_up or promotional")
			return
		}
		campaign.Type = crm.CampaignType(req.Type)
	}
	if req.Channel != "" {
		if !crm.ValidChannel(crm.Channel(req.Channel)) {
			writeError(w, r, http.StatusBadRequest, "channel must be whatsapp, sms or email")
			return
		}
		campaign.Channel = crm.Channel(req.Channel)
	}
	if strings.TrimSpace(req.Template) != "" {
		campaign.Template = req.Template
	}
	campaign.Settings = req.Settings
	campaign.ScheduledAt = req.ScheduledAt

	if err := a.crm.UpdateCampaign(r.Context(), campaign); err != nil {
		handleCRMError(w, r, err)
		return
	}
	a.audit(r.Context(), "crm.campaign.update", map[string]any{"campaign_id": campaign.ID})
	writeJSON(w, http.StatusOK, campaign)
}

func (a *API) executeCampaign(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	var req executeCampaignRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	created, err := a.crm.ExecuteCampaign(r.Context(), identity.TenantID, id, req.ContactIDs)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}

	campaign, err := a.crm.GetCampaign(r.Context(), identity.TenantID, id)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	if a.stream != nil {
		a.stream.Publish(stream.DispatchEvent{
			TenantID:   identity.TenantID,
			CampaignID: id,
			Channel:    campaign.Channel,
			Status:     crm.DispatchPending,
		})
	}

	a.audit(r.Context(), "crm.campaign.execute", map[string]any{
		"campaign_id": id,
		"dispatches":  created,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign":   campaign,
		"dispatches": created,
	})
}

func (a *API) transitionCampaign(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var (
		identity, ok = a.identity(w, r)
		campaign     *crm.Campaign
		err          error
	)
	if !ok {
		return
	}

	switch action {
	case "pause":
		campaign, err = a.crm.PauseCampaign(r.Context(), identity.TenantID, id)
	case "resume":
		campaign, err = a.crm.ResumeCampaign(r.Context(), identity.TenantID, id)
	case "cancel":
		// Cancellation discards queued work, so only admins may do it.
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		campaign, err = a.crm.CancelCampaign(r.Context(), identity.TenantID, id)
	}
	if err != nil {
		handleCRMError(w, r, err)
		return
	}

	a.audit(r.Context(), "crm.campaign."+action, map[string]any{"campaign_id": id})
	writeJSON(w, http.StatusOK, campaign)
}

func (a *API) campaignStats(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	stats, err := a.crm.CampaignStatistics(r.Context(), identity.TenantID, id)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.identity(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": crm.BuiltinTemplates()})
}
