package dto

import (
	"time"

	"easybills/internal/models"
)

type CreateClaimRequest struct {
	Category     string `json:"category" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
	Description  string `json:"description" validate:"required"`
	DateIncurred string `json:"date_incurred" validate:"required"`
	Status       string `json:"status" validate:"omitempty,oneof=draft submitted"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

type ResubmitClaimRequest struct {
	Category     string `json:"category"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	DateIncurred string `json:"date_incurred"`
}

type DocumentResponse struct {
	FileName    string `json:"file_name"`
	FileURL     string `json:"file_url"`
	StoragePath string `json:"storage_path"`
	UploadedAt  string `json:"uploaded_at"`
	Size        int64  `json:"size"`
	MIMEType    string `json:"mime_type"`
}

type AuditEntryResponse struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
	Notes     string `json:"notes"`
}

type ClaimResponse struct {
	ID           string               `json:"id"`
	OwnerID      string               `json:"owner_id"`
	Category     string               `json:"category"`
	Amount       string               `json:"amount"`
	Description  string               `json:"description"`
	DateIncurred string               `json:"date_incurred"`
	Status       string               `json:"status"`
	Documents    []DocumentResponse   `json:"documents"`
	AuditTrail   []AuditEntryResponse `json:"audit_trail"`
	CreatedAt    string               `json:"created_at"`
	UpdatedAt    string               `json:"updated_at"`
}

func FromClaim(claim *models.Claim) ClaimResponse {
	resp := ClaimResponse{
		ID:           claim.ID.String(),
		OwnerID:      claim.OwnerID.String(),
		Category:     string(claim.Category),
		Amount:       claim.Amount.StringFixed(2),
		Description:  claim.Description,
		DateIncurred: claim.DateIncurred.Format("2006-01-02"),
		Status:       string(claim.Status),
		Documents:    make([]DocumentResponse, 0, len(claim.Documents)),
		AuditTrail:   make([]AuditEntryResponse, 0, len(claim.AuditTrail)),
		CreatedAt:    claim.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    claim.UpdatedAt.Format(time.RFC3339),
	}
	for _, doc := range claim.Documents {
		resp.Documents = append(resp.Documents, DocumentResponse{
			FileName:    doc.FileName,
			FileURL:     doc.FileURL,
			StoragePath: doc.StoragePath,
			UploadedAt:  doc.UploadedAt.Format(time.RFC3339),
			Size:        doc.Size,
			MIMEType:    doc.MIMEType,
		})
	}
	for _, entry := range claim.AuditTrail {
		resp.AuditTrail = append(resp.AuditTrail, AuditEntryResponse{
			Timestamp: entry.Timestamp.Format(time.RFC3339),
			Status:    string(entry.Status),
			ChangedBy: string(entry.ChangedBy),
			Notes:     entry.Notes,
		})
	}
	return resp
}

func FromClaims(claims []*models.Claim) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(claims))
	for _, claim := range claims {
		out = append(out, FromClaim(claim))
	}
	return out
}
