package httpapi

import (
	"net/http"
	"strings"

	"rooflens.io/internal/audit"
	"rooflens.io/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string        `json:"token"`
	Account *auth.Account `json:"account"`
}

type provisionRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	BranchID   string `json:"branch_id,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	token, acct, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// One message for unknown account, wrong password and disabled login.
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"account_id": acct.ID,
		"role":       string(acct.Role),
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Account: acct})
}

func (a *API) handleAccounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		accounts, err := a.auth.Accounts(r.Context(), actor, r.URL.Query().Get("branch"))
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": accounts})
	case http.MethodPost:
		a.provisionAccount(w, r, actor)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) provisionAccount(w http.ResponseWriter, r *http.Request, actor auth.Principal) {
	var req provisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}
	scope := auth.TenantScope{
		BranchID:   strings.TrimSpace(req.BranchID),
		CompanyID:  strings.TrimSpace(req.CompanyID),
		CustomerID: strings.TrimSpace(req.CustomerID),
	}

	acct, err := a.auth.Provision(r.Context(), actor, req.Email, req.Password, role, scope)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.account.provisioned", map[string]any{
		"account_id": acct.ID,
		"role":       string(acct.Role),
		"branch_id":  acct.BranchID,
	})
	w.Header().Set("Location", "/v1/auth/accounts/"+acct.ID)
	writeJSON(w, http.StatusCreated, acct)
}

type accountStatusRequest struct {
	Status string `json:"status"`
}

// handleAccountResource serves /v1/auth/accounts/{id}/status: enabling and
// disabling a login without deleting its provisioning history.
func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/auth/accounts/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "status" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req accountStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := a.auth.SetAccountStatus(r.Context(), actor, parts[0], strings.TrimSpace(req.Status))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.account.status_changed", map[string]any{
		"account_id": acct.ID,
		"status":     acct.Status,
	})
	writeJSON(w, http.StatusOK, acct)
}
