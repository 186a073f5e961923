// Package fleet holds the staff-managed business records: customers, their
// buildings, and inspection reports. All access runs through the same guard
// and tenant scope as the document lifecycle.
package fleet

import (
	"time"

	"rooflens.io/internal/auth"
)

// Customer is a private person or a company contact owned by one branch.
type Customer struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	CompanyID string    `json:"company_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tenant returns the ownership boundary of the customer record. The customer
// identifier doubles as the tenant's customer id.
func (c *Customer) Tenant() auth.Tenant {
	return auth.Tenant{BranchID: c.BranchID, CustomerID: c.ID, CompanyID: c.CompanyID}
}

// Building is an inspected property belonging to a customer.
type Building struct {
	ID         string    `json:"id"`
	BranchID   string    `json:"branch_id"`
	CustomerID string    `json:"customer_id"`
	CompanyID  string    `json:"company_id,omitempty"`
	Address    string    `json:"address"`
	RoofType   string    `json:"roof_type,omitempty"`
	RoofAreaM2 float64   `json:"roof_area_m2,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (b *Building) Tenant() auth.Tenant {
	return auth.Tenant{BranchID: b.BranchID, CustomerID: b.CustomerID, CompanyID: b.CompanyID}
}

// Report is a completed roof inspection write-up for a building.
type Report struct {
	ID          string    `json:"id"`
	BranchID    string    `json:"branch_id"`
	CustomerID  string    `json:"customer_id"`
	CompanyID   string    `json:"company_id,omitempty"`
	BuildingID  string    `json:"building_id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	InspectedAt time.Time `json:"inspected_at"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Report) Tenant() auth.Tenant {
	return auth.Tenant{BranchID: r.BranchID, CustomerID: r.CustomerID, CompanyID: r.CompanyID}
}
