package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ClaimCategory string

const (
	CategoryTravel           ClaimCategory = "Travel"
	CategoryStationery       ClaimCategory = "Stationery"
	CategoryRegistrationFees ClaimCategory = "Registration Fees"
	CategoryAcademicEvents   ClaimCategory = "Academic Events"
	CategoryOther            ClaimCategory = "Other"
)

func (c ClaimCategory) Valid() bool {
	switch c {
	case CategoryTravel, CategoryStationery, CategoryRegistrationFees,
		CategoryAcademicEvents, CategoryOther:
		return true
	}
	return false
}

// Document is the stored metadata of one uploaded receipt. The bytes live in
// object storage; claims only hold references.
type Document struct {
	FileName    string    `json:"file_name"`
	FileURL     string    `json:"file_url"`
	StoragePath string    `json:"storage_path"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Size        int64     `json:"size"`
	MIMEType    string    `json:"mime_type"`
}

// AuditEntry is one record in a claim's append-only history. Entries are
// never mutated or reordered after append.
type AuditEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Status    ClaimStatus `json:"status"`
	ChangedBy Role        `json:"changed_by"`
	Notes     string      `json:"notes"`
}

type Claim struct {
	ID           uuid.UUID       `db:"id"`
	OwnerID      uuid.UUID       `db:"owner_id"`
	Category     ClaimCategory   `db:"category"`
	Amount       decimal.Decimal `db:"amount"`
	Description  string          `db:"description"`
	DateIncurred time.Time       `db:"date_incurred"`
	Status       ClaimStatus     `db:"status"`
	Documents    []Document      `db:"documents"`
	AuditTrail   []AuditEntry    `db:"audit_trail"`
	Version      int64           `db:"version"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// AppendAudit records a history entry and returns it. The claim's status is
// not touched; callers set it when the entry reflects a status change.
func (c *Claim) AppendAudit(status ClaimStatus, changedBy Role, notes string) AuditEntry {
	entry := AuditEntry{
		Timestamp: time.Now().UTC(),
		Status:    status,
		ChangedBy: changedBy,
		Notes:     notes,
	}
	c.AuditTrail = append(c.AuditTrail, entry)
	return entry
}

// AppendDocument attaches receipt metadata to the claim.
func (c *Claim) AppendDocument(doc Document) {
	c.Documents = append(c.Documents, doc)
}
