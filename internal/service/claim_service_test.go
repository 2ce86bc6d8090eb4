package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"easybills/internal/models"
	"easybills/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- fakes ----

type memClaimStore struct {
	mu        sync.Mutex
	claims    map[uuid.UUID]*models.Claim
	updateErr error
}

func newMemClaimStore() *memClaimStore {
	return &memClaimStore{claims: make(map[uuid.UUID]*models.Claim)}
}

func copyClaim(c *models.Claim) *models.Claim {
	clone := *c
	clone.Documents = append([]models.Document{}, c.Documents...)
	clone.AuditTrail = append([]models.AuditEntry{}, c.AuditTrail...)
	return &clone
}

func (s *memClaimStore) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = copyClaim(claim)
	return nil
}

func (s *memClaimStore) GetByID(_ context.Context, id uuid.UUID) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyClaim(claim), nil
}

func (s *memClaimStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Claim
	for _, claim := range s.claims {
		if claim.OwnerID == ownerID {
			out = append(out, copyClaim(claim))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memClaimStore) ListAll(_ context.Context) ([]*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Claim
	for _, claim := range s.claims {
		out = append(out, copyClaim(claim))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memClaimStore) Update(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.claims[claim.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != claim.Version {
		return repository.ErrStaleClaim
	}
	claim.Version++
	claim.UpdatedAt = time.Now().UTC()
	s.claims[claim.ID] = copyClaim(claim)
	return nil
}

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *memUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (s *memUserStore) UpdateProfile(_ context.Context, id uuid.UUID, name, picture string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Name = name
		u.Picture = picture
	}
	return nil
}

type dispatchCall struct {
	status    models.ClaimStatus
	recipient string
	nctx      NotificationContext
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []dispatchCall
	fail  bool
}

func (n *recordingNotifier) Dispatch(_ context.Context, status models.ClaimStatus, recipient string, nctx NotificationContext) DispatchResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, dispatchCall{status: status, recipient: recipient, nctx: nctx})
	if n.fail {
		return DispatchResult{Success: false, Err: fmt.Errorf("smtp unavailable")}
	}
	return DispatchResult{Success: true}
}

type emittedEvent struct {
	owner uuid.UUID
	name  string
}

type recordingEmitter struct {
	mu        sync.Mutex
	toOwner   []emittedEvent
	broadcast []string
}

func (e *recordingEmitter) EmitToOwner(ownerID uuid.UUID, event string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toOwner = append(e.toOwner, emittedEvent{owner: ownerID, name: event})
}

func (e *recordingEmitter) Broadcast(event string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcast = append(e.broadcast, event)
}

type memFileStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *memFileStore) Upload(_ context.Context, _ []byte, _ string, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://files.test/" + key, nil
}

// ---- harness ----

type fixture struct {
	svc      *ClaimService
	claims   *memClaimStore
	users    *memUserStore
	notifier *recordingNotifier
	emitter  *recordingEmitter
	files    *memFileStore
	owner    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	claims := newMemClaimStore()
	users := newMemUserStore()
	notifier := &recordingNotifier{}
	emitter := &recordingEmitter{}
	files := &memFileStore{}

	owner := &models.User{
		ID:    uuid.New(),
		Email: "dana@example.edu",
		Name:  "Dana",
		Role:  models.RoleFaculty,
	}
	require.NoError(t, users.Create(context.Background(), owner))

	svc := NewClaimService(claims, users, notifier, emitter, files, zap.NewNop())
	return &fixture{svc: svc, claims: claims, users: users, notifier: notifier, emitter: emitter, files: files, owner: owner}
}

func (f *fixture) createClaim(t *testing.T, status string) *models.Claim {
	t.Helper()
	claim, err := f.svc.Create(context.Background(), f.owner.ID, CreateClaimInput{
		Category:     "Travel",
		Amount:       decimal.RequireFromString("500.00"),
		Description:  "Conference travel",
		DateIncurred: time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC),
		Status:       status,
	}, nil)
	require.NoError(t, err)
	return claim
}

func requireAuditInvariant(t *testing.T, claim *models.Claim) {
	t.Helper()
	require.NotEmpty(t, claim.AuditTrail)
	assert.Equal(t, claim.Status, claim.AuditTrail[len(claim.AuditTrail)-1].Status)
}

// ---- creation ----

func TestCreateClaimDefaultsToSubmitted(t *testing.T) {
	f := newFixture(t)

	claim := f.createClaim(t, "")

	assert.Equal(t, models.StatusSubmitted, claim.Status)
	require.Len(t, claim.AuditTrail, 1)
	assert.Equal(t, models.StatusSubmitted, claim.AuditTrail[0].Status)
	assert.Equal(t, models.RoleFaculty, claim.AuditTrail[0].ChangedBy)
	requireAuditInvariant(t, claim)
}

func TestCreateClaimAsDraft(t *testing.T) {
	f := newFixture(t)

	claim := f.createClaim(t, "draft")

	assert.Equal(t, models.StatusDraft, claim.Status)
	requireAuditInvariant(t, claim)
}

func TestCreateClaimValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		input CreateClaimInput
	}{
		{"unknown category", CreateClaimInput{Category: "Snacks", Amount: decimal.RequireFromString("10.00"), Description: "x", DateIncurred: time.Now()}},
		{"zero amount", CreateClaimInput{Category: "Travel", Amount: decimal.Zero, Description: "x", DateIncurred: time.Now()}},
		{"negative amount", CreateClaimInput{Category: "Travel", Amount: decimal.RequireFromString("-5.00"), Description: "x", DateIncurred: time.Now()}},
		{"three decimal places", CreateClaimInput{Category: "Travel", Amount: decimal.RequireFromString("10.001"), Description: "x", DateIncurred: time.Now()}},
		{"missing description", CreateClaimInput{Category: "Travel", Amount: decimal.RequireFromString("10.00"), DateIncurred: time.Now()}},
		{"missing date", CreateClaimInput{Category: "Travel", Amount: decimal.RequireFromString("10.00"), Description: "x"}},
		{"illegal initial status", CreateClaimInput{Category: "Travel", Amount: decimal.RequireFromString("10.00"), Description: "x", DateIncurred: time.Now(), Status: "rejected"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.owner.ID, tc.input, nil)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestCreateClaimWithReceipt(t *testing.T) {
	f := newFixture(t)

	claim, err := f.svc.Create(context.Background(), f.owner.ID, CreateClaimInput{
		Category:     "Travel",
		Amount:       decimal.RequireFromString("99.95"),
		Description:  "Taxi receipts",
		DateIncurred: time.Now(),
	}, &Upload{FileName: "taxi receipt.pdf", MIMEType: "application/pdf", Data: []byte("pdf-bytes")})
	require.NoError(t, err)

	require.Len(t, claim.Documents, 1)
	doc := claim.Documents[0]
	assert.Equal(t, "taxi receipt.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.MIMEType)
	assert.Equal(t, int64(len("pdf-bytes")), doc.Size)
	assert.Contains(t, doc.FileURL, "https://files.test/claims/"+claim.ID.String())
}

func TestCreateClaimSurvivesStorageOutage(t *testing.T) {
	f := newFixture(t)
	f.files.err = fmt.Errorf("bucket unavailable")

	claim, err := f.svc.Create(context.Background(), f.owner.ID, CreateClaimInput{
		Category:     "Other",
		Amount:       decimal.RequireFromString("12.00"),
		Description:  "Misc",
		DateIncurred: time.Now(),
	}, &Upload{FileName: "r.png", MIMEType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Empty(t, claim.Documents)
}

// ---- transitions ----

func TestTransitionApprovedLabel(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")

	updated, err := f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "looks good")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingPayment, updated.Status)
	require.Len(t, updated.AuditTrail, 2)
	last := updated.AuditTrail[1]
	assert.Equal(t, models.StatusPendingPayment, last.Status)
	assert.Equal(t, models.RoleAccounts, last.ChangedBy)
	assert.Equal(t, "looks good", last.Notes)
	requireAuditInvariant(t, updated)

	require.Len(t, f.notifier.calls, 1)
	call := f.notifier.calls[0]
	assert.Equal(t, models.StatusPendingPayment, call.status)
	assert.Equal(t, f.owner.Email, call.recipient)
	assert.Equal(t, claim.ID.String(), call.nctx.ClaimID)
	assert.Equal(t, "500.00", call.nctx.Amount)

	require.Len(t, f.emitter.toOwner, 2) // create + transition
	assert.Equal(t, f.owner.ID, f.emitter.toOwner[1].owner)
	assert.Equal(t, "claimStatusUpdated", f.emitter.toOwner[1].name)
	assert.Contains(t, f.emitter.broadcast, "claimUpdated")
}

func TestTransitionLabelMapping(t *testing.T) {
	cases := []struct {
		label string
		from  string // label to reach the source state, empty for submitted
		want  models.ClaimStatus
	}{
		{label: "approved", want: models.StatusPendingPayment},
		{label: "more_info", want: models.StatusReferredBack},
		{label: "rejected", want: models.StatusRejected},
		{label: "paid", from: "approved", want: models.StatusDisbursed},
	}

	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			f := newFixture(t)
			claim := f.createClaim(t, "")
			if tc.from != "" {
				_, err := f.svc.Transition(context.Background(), claim.ID, tc.from, models.RoleAccounts, "")
				require.NoError(t, err)
			}

			updated, err := f.svc.Transition(context.Background(), claim.ID, tc.label, models.RoleAccounts, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, updated.Status)
			requireAuditInvariant(t, updated)
		})
	}
}

func TestTransitionDefaultNotes(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")

	updated, err := f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "")
	require.NoError(t, err)
	assert.Equal(t, "Status changed to pending_payment", updated.AuditTrail[1].Notes)
}

func TestTransitionUnknownLabelRejected(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")

	_, err := f.svc.Transition(context.Background(), claim.ID, "escalated", models.RoleAccounts, "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	stored, err := f.claims.GetByID(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, stored.Status)
	assert.Len(t, stored.AuditTrail, 1)
}

func TestTransitionFromTerminalStateRejected(t *testing.T) {
	for _, terminal := range []string{"rejected", "paid"} {
		t.Run(terminal, func(t *testing.T) {
			f := newFixture(t)
			claim := f.createClaim(t, "")
			if terminal == "paid" {
				_, err := f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "")
				require.NoError(t, err)
			}
			_, err := f.svc.Transition(context.Background(), claim.ID, terminal, models.RoleAccounts, "")
			require.NoError(t, err)

			_, err = f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "")
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestTransitionIllegalEdgeRejected(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "draft")

	// A draft has not been submitted yet, so a reviewer cannot approve it.
	_, err := f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTransitionClaimNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Transition(context.Background(), uuid.New(), "approved", models.RoleAccounts, "")
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestTransitionValidatesLabelBeforeOwnerLookup(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")

	// Orphaned claim: the owner row is gone.
	f.users.mu.Lock()
	delete(f.users.users, f.owner.ID)
	f.users.mu.Unlock()

	// A bad label is still a validation failure, not a missing-owner error.
	_, err := f.svc.Transition(context.Background(), claim.ID, "escalated", models.RoleAccounts, "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	// A valid label surfaces the missing owner.
	_, err = f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTransitionSucceedsWhenNotificationFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true
	claim := f.createClaim(t, "")

	updated, err := f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPayment, updated.Status)

	stored, err := f.claims.GetByID(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPayment, stored.Status)
}

func TestTransitionStaleWriteConflicts(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")
	f.claims.updateErr = repository.ErrStaleClaim

	_, err := f.svc.Transition(context.Background(), claim.ID, "approved", models.RoleAccounts, "")
	assert.ErrorIs(t, err, ErrConflict)
}

// ---- documents ----

func TestAttachDocumentByOwner(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")

	updated, err := f.svc.AttachDocument(context.Background(), claim.ID, f.owner.ID, Upload{
		FileName: "receipt.pdf",
		MIMEType: "application/pdf",
		Data:     []byte("pdf"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSubmitted, updated.Status)
	require.Len(t, updated.Documents, 1)
	require.Len(t, updated.AuditTrail, 2)
	assert.Equal(t, "Document uploaded: receipt.pdf", updated.AuditTrail[1].Notes)
	assert.Equal(t, models.StatusSubmitted, updated.AuditTrail[1].Status)
	requireAuditInvariant(t, updated)
}

func TestAttachDocumentByNonOwnerForbidden(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")

	_, err := f.svc.AttachDocument(context.Background(), claim.ID, uuid.New(), Upload{
		FileName: "receipt.pdf",
		MIMEType: "application/pdf",
		Data:     []byte("pdf"),
	})
	require.ErrorIs(t, err, ErrForbidden)

	stored, err := f.claims.GetByID(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Documents)
	assert.Len(t, stored.AuditTrail, 1)
}

// ---- resubmission ----

func TestResubmitReferredBackClaim(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")
	_, err := f.svc.Transition(context.Background(), claim.ID, "more_info", models.RoleAccounts, "need itemized receipt")
	require.NoError(t, err)

	amount := decimal.RequireFromString("480.00")
	updated, err := f.svc.Resubmit(context.Background(), claim.ID, f.owner.ID, ResubmitInput{
		Amount:      &amount,
		Description: "Conference travel, itemized",
	}, &Upload{FileName: "itemized.pdf", MIMEType: "application/pdf", Data: []byte("pdf")})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSubmitted, updated.Status)
	assert.Equal(t, "480.00", updated.Amount.StringFixed(2))
	assert.Equal(t, "Conference travel, itemized", updated.Description)
	require.Len(t, updated.Documents, 1)
	assert.Equal(t, "Claim resubmitted for review.", updated.AuditTrail[len(updated.AuditTrail)-1].Notes)
	requireAuditInvariant(t, updated)
}

func TestResubmitRejectedClaimFails(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")
	_, err := f.svc.Transition(context.Background(), claim.ID, "rejected", models.RoleAccounts, "")
	require.NoError(t, err)

	_, err = f.svc.Resubmit(context.Background(), claim.ID, f.owner.ID, ResubmitInput{Description: "retry"}, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	stored, err := f.claims.GetByID(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, "Conference travel", stored.Description)
}

func TestResubmitByNonOwnerForbidden(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "draft")

	_, err := f.svc.Resubmit(context.Background(), claim.ID, uuid.New(), ResubmitInput{}, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

// ---- listing and visibility ----

func TestListByOwnerNewestFirst(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.createClaim(t, "")
		time.Sleep(2 * time.Millisecond)
	}

	claims, err := f.svc.ListByOwner(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, claims, 3)
	for i := 1; i < len(claims); i++ {
		assert.False(t, claims[i].CreatedAt.After(claims[i-1].CreatedAt))
	}
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	claim := f.createClaim(t, "")

	_, err := f.svc.Get(context.Background(), claim.ID, f.owner.ID, models.RoleFaculty)
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), claim.ID, uuid.New(), models.RoleAccounts)
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), claim.ID, uuid.New(), models.RoleFaculty)
	assert.ErrorIs(t, err, ErrForbidden)
}
