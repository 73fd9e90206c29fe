// Package policy is the read-mostly insurance product catalog. Admins
// create catalog entries; everyone can browse them; the registration
// ledger references them by id.
package policy

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive  = "active"
	StatusRetired = "retired"
)

// Policy maps to the policies table.
type Policy struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Description      *string   `db:"description" json:"description,omitempty"`
	Price            float64   `db:"price" json:"price"`
	DurationMonths   int       `db:"duration_months" json:"duration_months"`
	InsuranceCompany *string   `db:"insurance_company" json:"insurance_company,omitempty"`
	CoveredHospital  *string   `db:"covered_hospital" json:"covered_hospital,omitempty"`
	CoverageDetails  *string   `db:"coverage_details" json:"coverage_details,omitempty"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
