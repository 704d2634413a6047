package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"posvenda.org/internal/crm"
	"posvenda.org/internal/stream"
	"posvenda.org/internal/whatsapp"
)

type sendMessageRequest struct {
	ContactID string `json:"contact_id"`
	Number    string `json:"number"`
	Message   string `json:"message"`
}

func (a *API) handleWhatsAppStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.identity(w, r); !ok {
		return
	}
	state, err := a.whatsapp.InstanceStatus(r.Context())
	if err != nil {
		handleGatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"instance":  state.Instance,
		"state":     state.State,
		"connected": state.Connected(),
	})
}

// handleWhatsAppSend delivers a one-off message outside any campaign. The
// dispatch row is recorded first so a gateway failure still leaves a trace.
func (a *API) handleWhatsAppSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "message is required")
		return
	}

	number := strings.TrimSpace(req.Number)
	contactID := strings.TrimSpace(req.ContactID)
	message := req.Message
	if contactID != "" {
		contact, err := a.crm.GetContact(r.Context(), identity.TenantID, contactID)
		if err != nil {
			handleCRMError(w, r, err)
			return
		}
		if contact.Phone == "" {
			writeError(w, r, http.StatusBadRequest, "contact has no phone number")
			return
		}
		number = contact.Phone
		message = crm.RenderTemplate(message, contact)
	}
	if number == "" {
		writeError(w, r, http.StatusBadRequest, "contact_id or number is required")
		return
	}

	dispatch := &crm.Dispatch{
		TenantID:  identity.TenantID,
		ContactID: contactID,
		Channel:   crm.ChannelWhatsApp,
		Message:   message,
	}
	if err := a.crm.CreateDispatch(r.Context(), dispatch); err != nil {
		handleCRMError(w, r, err)
		return
	}

	externalID, sendErr := a.whatsapp.SendText(r.Context(), number, message)
	status := crm.DispatchSent
	errMsg := ""
	if sendErr != nil {
		status = crm.DispatchFailed
		errMsg = sendErr.Error()
	}
	if err := a.crm.MarkDispatch(r.Context(), dispatch.ID, status, externalID, errMsg); err != nil {
		handleCRMError(w, r, err)
		return
	}
	dispatch.Status = status
	dispatch.ExternalID = externalID
	dispatch.ErrorMessage = errMsg

	if a.stream != nil {
		a.stream.Publish(stream.DispatchEvent{
			TenantID:   identity.TenantID,
			DispatchID: dispatch.ID,
			Channel:    crm.ChannelWhatsApp,
			Status:     status,
		})
	}
	a.audit(r.Context(), "whatsapp.send", map[string]any{
		"dispatch_id": dispatch.ID,
		"status":      string(status),
	})

	if sendErr != nil {
		handleGatewayError(w, r, sendErr)
		return
	}
	writeJSON(w, http.StatusCreated, dispatch)
}

type sendBulkRequest struct {
	CampaignID string `json:"campaign_id"`
}

// handleWhatsAppSendBulk drains the pending dispatch queue of a running
// campaign through the gateway. Each dispatch is marked sent or failed
// individually; a gateway error on one recipient does not stop the pass.
// When the queue is empty afterwards the campaign moves to completed.
func (a *API) handleWhatsAppSendBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	var req sendBulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		writeError(w, r, http.StatusBadRequest, "campaign_id is required")
		return
	}

	campaign, err := a.crm.GetCampaign(r.Context(), identity.TenantID, req.CampaignID)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	if campaign.Status != crm.StatusRunning {
		writeError(w, r, http.StatusConflict, "campaign is not running")
		return
	}
	if campaign.Channel != crm.ChannelWhatsApp {
		writeError(w, r, http.StatusBadRequest, "campaign channel is not whatsapp")
		return
	}

	pending, err := a.crm.PendingDispatches(r.Context(), identity.TenantID, campaign.ID)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}

	var sent, failed int
	for _, d := range pending {
		contact, err := a.crm.GetContact(r.Context(), identity.TenantID, d.ContactID)
		if err != nil || contact.Phone == "" {
			failed++
			_ = a.crm.MarkDispatch(r.Context(), d.ID, crm.DispatchFailed, "", "contact unreachable")
			continue
		}
		externalID, sendErr := a.whatsapp.SendText(r.Context(), contact.Phone, d.Message)
		status := crm.DispatchSent
		errMsg := ""
		if sendErr != nil {
			status = crm.DispatchFailed
			errMsg = sendErr.Error()
			failed++
		} else {
			sent++
		}
		if err := a.crm.MarkDispatch(r.Context(), d.ID, status, externalID, errMsg); err != nil {
			handleCRMError(w, r, err)
			return
		}
		if a.stream != nil {
			a.stream.Publish(stream.DispatchEvent{
				TenantID:   identity.TenantID,
				CampaignID: campaign.ID,
				DispatchID: d.ID,
				Channel:    crm.ChannelWhatsApp,
				Status:     status,
			})
		}
	}

	if len(pending) > 0 {
		if done, err := a.crm.CompleteCampaign(r.Context(), identity.TenantID, campaign.ID); err == nil {
			campaign = done
		}
	}

	a.audit(r.Context(), "whatsapp.send_bulk", map[string]any{
		"campaign_id": campaign.ID,
		"sent":        sent,
		"failed":      failed,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign": campaign,
		"total":    len(pending),
		"sent":     sent,
		"failed":   failed,
	})
}

// handleWhatsAppWebhook ingests gateway events. It always answers 200 for
// well-formed requests so the gateway does not retry forever; events we
// cannot use are counted as ignored.
func (a *API) handleWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	// Gateway payloads carry many fields we do not model, so the strict
	// decoder is not used here.
	var evt whatsapp.WebhookEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&evt); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	msg, ok := whatsapp.ParseInbound(evt)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	reply, err := a.crm.RecordInbound(r.Context(), msg.Phone, msg.Text)
	if err != nil {
		if errors.Is(err, crm.ErrNotFound) || errors.Is(err, crm.ErrInvalidInput) {
			// Unknown sender: nothing to correlate with, drop silently.
			writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	a.audit(r.Context(), "whatsapp.reply", map[string]any{
		"reply_id":  reply.ID,
		"tenant_id": reply.TenantID,
		"sentiment": string(reply.Sentiment),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "recorded",
		"reply_id":  reply.ID,
		"sentiment": reply.Sentiment,
	})
}

func handleGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, whatsapp.ErrNotConfigured):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, whatsapp.ErrGateway):
		writeError(w, r, http.StatusBadGateway, err.Error())
	default:
		writeError(w, r, http.StatusBadGateway, "gateway unreachable")
	}
}
