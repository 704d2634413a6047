// Package httpapi is the HTTP layer: routing, middleware, request decoding
// and error mapping. Business rules live in the service packages.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"posvenda.org/internal/audit"
	"posvenda.org/internal/auth"
	"posvenda.org/internal/crm"
	"posvenda.org/internal/dashboard"
	"posvenda.org/internal/obs"
	"posvenda.org/internal/stream"
	"posvenda.org/internal/whatsapp"
)

// ReadyProbe reports readiness (for example a database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Auth        *auth.Service
	Issuer      *auth.Issuer
	CRM         *crm.Service
	Dashboard   *dashboard.Service
	WhatsApp    *whatsapp.Client
	Stream      *stream.Stream
	ReadyProbe  ReadyProbe
	Version     string
	CORSOrigins []string
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	auth        *auth.Service
	issuer      *auth.Issuer
	crm         *crm.Service
	dashboard   *dashboard.Service
	whatsapp    *whatsapp.Client
	stream      *stream.Stream
	readyProbe  ReadyProbe
	version     string
	corsOrigins []string
}

func New(cfg Config) *API {
	a := &API{
		mux:         http.NewServeMux(),
		auth:        cfg.Auth,
		issuer:      cfg.Issuer,
		crm:         cfg.CRM,
		dashboard:   cfg.Dashboard,
		whatsapp:    cfg.WhatsApp,
		stream:      cfg.Stream,
		readyProbe:  cfg.ReadyProbe,
		version:     cfg.Version,
		corsOrigins: cfg.CORSOrigins,
	}

	// auth
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)

	// contacts
	a.mux.HandleFunc("/api/contacts", a.handleContactsCollection)
	a.mux.HandleFunc("/api/contacts/", a.handleContactResource)

	// campaigns
	a.mux.HandleFunc("/api/campaigns", a.handleCampaignsCollection)
	a.mux.HandleFunc("/api/campaigns/", a.handleCampaignResource)
	a.mux.HandleFunc("/api/templates", a.handleTemplates)

	// dashboard
	a.mux.HandleFunc("/api/dashboard/overview", a.handleDashboardOverview)
	a.mux.HandleFunc("/api/dashboard/campaigns", a.handleDashboardCampaigns)
	a.mux.HandleFunc("/api/dashboard/dispatches", a.handleDashboardDispatches)
	a.mux.HandleFunc("/api/dashboard/sentiment", a.handleDashboardSentiment)
	a.mux.HandleFunc("/api/dashboard/replies", a.handleDashboardReplies)
	a.mux.HandleFunc("/api/dashboard/stream", a.Stream)

	// whatsapp gateway
	a.mux.HandleFunc("/api/whatsapp/status", a.handleWhatsAppStatus)
	a.mux.HandleFunc("/api/whatsapp/send", a.handleWhatsAppSend)
	a.mux.HandleFunc("/api/whatsapp/send-bulk", a.handleWhatsAppSendBulk)
	a.mux.HandleFunc("/api/whatsapp/webhook", a.handleWhatsAppWebhook)

	// health/ready
	a.mux.HandleFunc("/api/health", a.Health)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 2<<20)
	h = a.cors(h)
	h = SecurityHeaders(h)
	h = RateLimit(h, 50, 25)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "posvenda-api",
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"message": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("value must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("value out of range")
	}
	return val, nil
}

// handleCRMError maps service errors to HTTP statuses.
func handleCRMError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, crm.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, crm.ErrInvalidStatus), errors.Is(err, crm.ErrNoRecipients):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, crm.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
