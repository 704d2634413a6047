package httpapi

import (
	"net/http"
	"strings"
	"time"

	"posvenda.org/internal/crm"
)

type contactRequest struct {
	Name     string            `json:"name"`
	Phone    string            `json:"phone"`
	Email    string            `json:"email"`
	Document string            `json:"document"`
	Address  string            `json:"address"`
	Custom   map[string]string `json:"custom"`
	Tags     []string          `json:"tags"`
	Status   string            `json:"status"`
}

type contactListResponse struct {
	Items   []*crm.Contact `json:"items"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	AsOf    time.Time      `json:"as_of"`
}

func (a *API) handleContactsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listContacts(w, r)
	case http.MethodPost:
		a.createContact(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleContactResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/contacts/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch path {
	case "import":
		a.importContacts(w, r)
		return
	case "export":
		a.exportContacts(w, r)
		return
	case "stats":
		a.contactStats(w, r)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getContact(w, r, path)
	case http.MethodPut:
		a.updateContact(w, r, path)
	case http.MethodDelete:
		a.deleteContact(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listContacts(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 100000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	perPage, err := parsePositiveInt(q.Get("per_page"), 50, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "per_page must be between 1 and 1000")
		return
	}

	items, err := a.crm.ListContacts(r.Context(), identity.TenantID, page, perPage, q.Get("search"))
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactListResponse{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		AsOf:    time.Now().UTC(),
	})
}

func (a *API) createContact(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.Phone) == "" && strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "phone or email is required")
		return
	}

	contact := &crm.Contact{
		TenantID: identity.TenantID,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Document: req.Document,
		Address:  req.Address,
		Custom:   req.Custom,
		Tags:     req.Tags,
	}
	if err := a.crm.CreateContact(r.Context(), contact); err != nil {
		handleCRMError(w, r, err)
		return
	}

	a.audit(r.Context(), "crm.contact.create", map[string]any{"contact_id": contact.ID})
	w.Header().Set("Location", "/api/contacts/"+contact.ID)
	writeJSON(w, http.StatusCreated, contact)
}

func (a *API) getContact(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	contact, err := a.crm.GetContact(r.Context(), identity.TenantID, id)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (a *API) updateContact(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	contact, err := a.crm.GetContact(r.Context(), identity.TenantID, id)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		contact.Name = req.Name
	}
	contact.Phone = req.Phone
	contact.Email = req.Email
	contact.Document = req.Document
	contact.Address = req.Address
	contact.Custom = req.Custom
	contact.Tags = req.Tags
	if req.Status != "" {
		status := crm.ContactStatus(req.Status)
		if status != crm.ContactActive && status != crm.ContactInactive {
			writeError(w, r, http.StatusBadRequest, "status must be active or inactive")
			return
		}
		contact.Status = status
	}
	if strings.TrimSpace(contact.Phone) == "" && strings.TrimSpace(contact.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "phone or email is required")
		return
	}

	if err := a.crm.UpdateContact(r.Context(), contact); err != nil {
		handleCRMError(w, r, err)
		return
	}
	a.audit(r.Context(), "crm.contact.update", map[string]any{"contact_id": contact.ID})
	writeJSON(w, http.StatusOK, contact)
}

func (a *API) deleteContact(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	if err := a.crm.DeleteContact(r.Context(), identity.TenantID, id); err != nil {
		handleCRMError(w, r, err)
		return
	}
	a.audit(r.Context(), "crm.contact.delete", map[string]any{"contact_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (a *API) contactStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	stats, err := a.crm.ContactStatistics(r.Context(), identity.TenantID)
	if err != nil {
		handleCRMError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) importContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	body := r.Body
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()
		body = file
	}

	result, err := a.crm.ImportContacts(r.Context(), identity.TenantID, body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	a.audit(r.Context(), "crm.contact.import", map[string]any{
		"imported": result.Imported,
		"skipped":  result.Skipped,
	})
	writeJSON(w, http.StatusOK, result)
}

func (a *API) exportContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.csv"`)
	if err := a.crm.ExportContacts(r.Context(), identity.TenantID, w); err != nil {
		// Headers are out; the truncated body is the best signal left.
		return
	}
}
