// Package httpapi is the HTTP layer: routing, authentication, middleware and
// the JSON handlers over the auth, fleet and document services.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"rooflens.io/internal/auth"
	"rooflens.io/internal/document"
	"rooflens.io/internal/fleet"
	"rooflens.io/internal/obs"
)

// ReadyProbe reports service readiness, pinging the database when one is
// configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API wires the HTTP surface.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	fleet      *fleet.Service
	docs       *document.Service
	readyProbe ReadyProbe
	version    string
}

func New(authSvc *auth.Service, fleetSvc *fleet.Service, docSvc *document.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		fleet:      fleetSvc,
		docs:       docSvc,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication and account provisioning
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/accounts", a.handleAccounts)
	a.mux.HandleFunc("/v1/auth/accounts/", a.handleAccountResource)

	// business records
	a.mux.HandleFunc("/v1/customers", a.handleCustomers)
	a.mux.HandleFunc("/v1/customers/", a.handleCustomerResource)
	a.mux.HandleFunc("/v1/buildings", a.handleBuildings)
	a.mux.HandleFunc("/v1/buildings/", a.handleBuildingResource)
	a.mux.HandleFunc("/v1/reports", a.handleReports)
	a.mux.HandleFunc("/v1/reports/", a.handleReportResource)

	// documents: staff lifecycle
	a.mux.HandleFunc("/v1/documents", a.handleDocuments)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)

	// documents: anonymous token surface
	a.mux.HandleFunc("/offer/public/", a.handlePublicDocument)
	a.mux.HandleFunc("/service-agreement/public/", a.handlePublicDocument)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rooflens-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "rooflens-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
