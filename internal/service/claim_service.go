package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"easybills/internal/models"
	"easybills/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClaimStore is the persistence boundary for claims. Implemented by
// repository.ClaimRepository.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Claim, error)
	ListAll(ctx context.Context) ([]*models.Claim, error)
	Update(ctx context.Context, claim *models.Claim) error
}

// UserStore is the persistence boundary for users. Implemented by
// repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, picture string) error
}

// Notifier sends a status-change email to the claim owner. Failures are
// reported as values, never raised.
type Notifier interface {
	Dispatch(ctx context.Context, status models.ClaimStatus, recipient string, nctx NotificationContext) DispatchResult
}

// Emitter pushes events to live connections. A nil Emitter disables realtime
// updates without affecting the engine.
type Emitter interface {
	EmitToOwner(ownerID uuid.UUID, event string, payload any)
	Broadcast(event string, payload any)
}

// ClaimStatusEvent is the payload of claimStatusUpdated / claimUpdated events.
type ClaimStatusEvent struct {
	ClaimID    string             `json:"claim_id"`
	Status     models.ClaimStatus `json:"status"`
	AuditEntry models.AuditEntry  `json:"audit_entry"`
}

// Upload is the in-memory form of a file received from the owner.
type Upload struct {
	FileName string
	MIMEType string
	Data     []byte
}

type CreateClaimInput struct {
	Category     string
	Amount       decimal.Decimal
	Description  string
	DateIncurred time.Time
	Status       string // empty, "draft", or "submitted"
}

type ResubmitInput struct {
	Category     string
	Amount       *decimal.Decimal
	Description  string
	DateIncurred time.Time
}

// ClaimService owns the claim lifecycle: creation, the status-transition
// state machine, document attachment, and the best-effort fan-out to email
// and realtime consumers.
type ClaimService struct {
	claims   ClaimStore
	users    UserStore
	notifier Notifier
	emitter  Emitter
	files    FileStore
	logger   *zap.Logger
}

func NewClaimService(
	claims ClaimStore,
	users UserStore,
	notifier Notifier,
	emitter Emitter,
	files FileStore,
	logger *zap.Logger,
) *ClaimService {
	return &ClaimService{
		claims:   claims,
		users:    users,
		notifier: notifier,
		emitter:  emitter,
		files:    files,
		logger:   logger,
	}
}

// Create validates the input and persists a new claim with its mandatory
// initial audit entry. An omitted status means the claim is submitted
// immediately.
func (s *ClaimService) Create(ctx context.Context, ownerID uuid.UUID, in CreateClaimInput, upload *Upload) (*models.Claim, error) {
	category := models.ClaimCategory(in.Category)
	if !category.Valid() {
		return nil, validationf("invalid category %q", in.Category)
	}
	if !in.Amount.IsPositive() {
		return nil, validationf("amount must be positive")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, validationf("amount must have at most two decimal places")
	}
	if in.Description == "" {
		return nil, validationf("description is required")
	}
	if in.DateIncurred.IsZero() {
		return nil, validationf("date incurred is required")
	}

	status := models.StatusSubmitted
	notes := "Claim submitted for processing."
	switch in.Status {
	case "", string(models.StatusSubmitted):
	case string(models.StatusDraft):
		status = models.StatusDraft
		notes = "Claim created as draft."
	default:
		return nil, validationf("initial status must be draft or submitted, got %q", in.Status)
	}

	now := time.Now().UTC()
	claim := &models.Claim{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Category:     category,
		Amount:       in.Amount,
		Description:  in.Description,
		DateIncurred: in.DateIncurred,
		Status:       status,
		Documents:    []models.Document{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	claim.AppendAudit(status, models.RoleFaculty, notes)

	if upload != nil {
		if doc, err := s.storeReceipt(ctx, claim.ID, *upload); err != nil {
			// The claim is still valid without its receipt; the owner can
			// re-attach it through the documents endpoint.
			s.logger.Warn("Receipt upload failed during claim creation",
				zap.String("claim_id", claim.ID.String()),
				zap.Error(err),
			)
		} else {
			claim.AppendDocument(doc)
		}
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.emit(claim.OwnerID, claim.ID, claim.Status, claim.AuditTrail[len(claim.AuditTrail)-1])
	return claim, nil
}

// Transition applies a reviewer-requested status change. The claim is
// persisted before any notification fires; email and realtime failures are
// logged and swallowed, never rolled back or surfaced.
func (s *ClaimService) Transition(ctx context.Context, claimID uuid.UUID, label string, actorRole models.Role, notes string) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}

	target, err := models.ParseStatusLabel(label)
	if err != nil {
		return nil, validationf("%v", err)
	}
	if claim.Status.Terminal() {
		return nil, validationf("claim is %s and can no longer be updated", claim.Status)
	}
	if !claim.Status.CanTransitionTo(target) {
		return nil, validationf("cannot move claim from %s to %s", claim.Status, target)
	}

	owner, err := s.users.GetByID(ctx, claim.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load claim owner: %w", err)
	}

	if notes == "" {
		notes = fmt.Sprintf("Status changed to %s", target)
	}
	entry := claim.AppendAudit(target, actorRole, notes)
	claim.Status = target

	if err := s.save(ctx, claim); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		result := s.notifier.Dispatch(ctx, target, owner.Email, NotificationContext{
			ClaimID: claim.ID.String(),
			Status:  target,
			Notes:   notes,
			Amount:  claim.Amount.StringFixed(2),
		})
		if !result.Success {
			s.logger.Warn("Status notification not delivered",
				zap.String("claim_id", claim.ID.String()),
				zap.Error(result.Err),
			)
		}
	}

	s.emit(claim.OwnerID, claim.ID, claim.Status, entry)
	return claim, nil
}

// AttachDocument appends receipt metadata to the owner's claim along with an
// audit entry. The claim status is left unchanged.
func (s *ClaimService) AttachDocument(ctx context.Context, claimID, actorID uuid.UUID, upload Upload) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.OwnerID != actorID {
		return nil, ErrForbidden
	}

	doc, err := s.storeReceipt(ctx, claim.ID, upload)
	if err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	claim.AppendDocument(doc)
	entry := claim.AppendAudit(claim.Status, models.RoleFaculty,
		fmt.Sprintf("Document uploaded: %s", upload.FileName))

	if err := s.save(ctx, claim); err != nil {
		return nil, err
	}

	s.emit(claim.OwnerID, claim.ID, claim.Status, entry)
	return claim, nil
}

// Resubmit lets the owner edit an editable claim (draft or referred back),
// optionally attach a replacement receipt, and send it back for review.
func (s *ClaimService) Resubmit(ctx context.Context, claimID, actorID uuid.UUID, in ResubmitInput, upload *Upload) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.OwnerID != actorID {
		return nil, ErrForbidden
	}
	if !claim.Status.Editable() {
		return nil, validationf("claim is %s and cannot be resubmitted", claim.Status)
	}

	if in.Category != "" {
		category := models.ClaimCategory(in.Category)
		if !category.Valid() {
			return nil, validationf("invalid category %q", in.Category)
		}
		claim.Category = category
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
			return nil, validationf("amount must be positive with at most two decimal places")
		}
		claim.Amount = *in.Amount
	}
	if in.Description != "" {
		claim.Description = in.Description
	}
	if !in.DateIncurred.IsZero() {
		claim.DateIncurred = in.DateIncurred
	}

	if upload != nil {
		doc, err := s.storeReceipt(ctx, claim.ID, *upload)
		if err != nil {
			return nil, fmt.Errorf("store receipt: %w", err)
		}
		claim.AppendDocument(doc)
	}

	claim.Status = models.StatusSubmitted
	entry := claim.AppendAudit(models.StatusSubmitted, models.RoleFaculty,
		"Claim resubmitted for review.")

	if err := s.save(ctx, claim); err != nil {
		return nil, err
	}

	s.emit(claim.OwnerID, claim.ID, claim.Status, entry)
	return claim, nil
}

// Get returns one claim, visible to its owner and to reviewers.
func (s *ClaimService) Get(ctx context.Context, claimID, actorID uuid.UUID, actorRole models.Role) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.OwnerID != actorID && actorRole != models.RoleAccounts {
		return nil, ErrForbidden
	}
	return claim, nil
}

// ListByOwner returns the owner's claims, newest first.
func (s *ClaimService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Claim, error) {
	claims, err := s.claims.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// ListAll returns every claim, newest first, for the reviewer dashboard.
func (s *ClaimService) ListAll(ctx context.Context) ([]*models.Claim, error) {
	claims, err := s.claims.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

func (s *ClaimService) load(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("load claim: %w", err)
	}
	return claim, nil
}

func (s *ClaimService) save(ctx context.Context, claim *models.Claim) error {
	if err := s.claims.Update(ctx, claim); err != nil {
		if errors.Is(err, repository.ErrStaleClaim) {
			return ErrConflict
		}
		return fmt.Errorf("save claim: %w", err)
	}
	return nil
}

func (s *ClaimService) storeReceipt(ctx context.Context, claimID uuid.UUID, upload Upload) (models.Document, error) {
	key := BuildReceiptKey(claimID, upload.FileName)
	url, err := s.files.Upload(ctx, upload.Data, upload.MIMEType, key)
	if err != nil {
		return models.Document{}, err
	}
	return models.Document{
		FileName:    upload.FileName,
		FileURL:     url,
		StoragePath: key,
		UploadedAt:  time.Now().UTC(),
		Size:        int64(len(upload.Data)),
		MIMEType:    upload.MIMEType,
	}, nil
}

// emit pushes realtime events for a claim change. A missing emitter is a
// no-op; delivery problems stay inside the hub.
func (s *ClaimService) emit(ownerID, claimID uuid.UUID, status models.ClaimStatus, entry models.AuditEntry) {
	if s.emitter == nil {
		return
	}
	event := ClaimStatusEvent{
		ClaimID:    claimID.String(),
		Status:     status,
		AuditEntry: entry,
	}
	s.emitter.EmitToOwner(ownerID, "claimStatusUpdated", event)
	s.emitter.Broadcast("claimUpdated", event)
}
