package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rooflens.io/internal/fleet"
)

type customerRequest struct {
	Name      string `json:"name"`
	BranchID  string `json:"branch_id"`
	CompanyID string `json:"company_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

type buildingRequest struct {
	Address    string  `json:"address"`
	BranchID   string  `json:"branch_id"`
	CustomerID string  `json:"customer_id"`
	CompanyID  string  `json:"company_id,omitempty"`
	RoofType   string  `json:"roof_type,omitempty"`
	RoofAreaM2 float64 `json:"roof_area_m2,omitempty"`
}

type reportRequest struct {
	Title       string     `json:"title"`
	BranchID    string     `json:"branch_id"`
	CustomerID  string     `json:"customer_id"`
	CompanyID   string     `json:"company_id,omitempty"`
	BuildingID  string     `json:"building_id,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	InspectedAt *time.Time `json:"inspected_at,omitempty"`
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req customerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.fleet.CreateCustomer(r.Context(), p, fleet.Customer{
			Name:      req.Name,
			BranchID:  req.BranchID,
			CompanyID: req.CompanyID,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
		})
		if err != nil {
			handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/customers/"+c.ID)
		writeJSON(w, http.StatusCreated, c)
	case http.MethodGet:
		customers, err := a.fleet.ListCustomers(r.Context(), p)
		if err != nil {
			handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": customers})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCustomerResource(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	id := resourceID(r.URL.Path, "/v1/customers/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	c, err := a.fleet.GetCustomer(r.Context(), p, id)
	if err != nil {
		handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleBuildings(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req buildingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		b, err := a.fleet.CreateBuilding(r.Context(), p, fleet.Building{
			Address:    req.Address,
			BranchID:   req.BranchID,
			CustomerID: req.CustomerID,
			CompanyID:  req.CompanyID,
			RoofType:   req.RoofType,
			RoofAreaM2: req.RoofAreaM2,
		})
		if err != nil {
			handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/buildings/"+b.ID)
		writeJSON(w, http.StatusCreated, b)
	case http.MethodGet:
		buildings, err := a.fleet.ListBuildings(r.Context(), p)
		if err != nil {
			handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": buildings})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleBuildingResource(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	id := resourceID(r.URL.Path, "/v1/buildings/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	b, err := a.fleet.GetBuilding(r.Context(), p, id)
	if err != nil {
		handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req reportRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rep := fleet.Report{
			Title:      req.Title,
			BranchID:   req.BranchID,
			CustomerID: req.CustomerID,
			CompanyID:  req.CompanyID,
			BuildingID: req.BuildingID,
			Summary:    req.Summary,
		}
		if req.InspectedAt != nil {
			rep.InspectedAt = *req.InspectedAt
		}
		created, err := a.fleet.CreateReport(r.Context(), p, rep)
		if err != nil {
			handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/reports/"+created.ID)
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		reports, err := a.fleet.ListReports(r.Context(), p)
		if err != nil {
			handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": reports})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleReportResource(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	id := resourceID(r.URL.Path, "/v1/reports/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rep, err := a.fleet.GetReport(r.Context(), p, id)
	if err != nil {
		handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// resourceID extracts a single trailing path element after the prefix.
func resourceID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.Trim(id, "/")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
