// Package credential is the registry of verifiable credentials issued
// by hospitals. Credentials are immutable once issued: there is no
// update or delete path, only issuance and subject-DID retrieval.
package credential

import (
	"time"

	"github.com/google/uuid"
)

// Default W3C envelope values stamped onto every issued credential.
var (
	DefaultContexts = []string{"https://www.w3.org/2018/credentials/v1"}
	DefaultTypes    = []string{"VerifiableCredential", "ProcedureCredential"}
)

// Procedure is the medical event a credential attests to.
type Procedure struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

// Credential maps to the credentials table.
type Credential struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Contexts     []string  `db:"contexts" json:"@context"`
	Types        []string  `db:"types" json:"type"`
	IssuerDID    string    `db:"issuer_did" json:"issuer"`
	SubjectDID   string    `db:"subject_did" json:"subject_did"`
	Procedure    Procedure `db:"-" json:"procedure"`
	IssuanceDate time.Time `db:"issuance_date" json:"issuance_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
