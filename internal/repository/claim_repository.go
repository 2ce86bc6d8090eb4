package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"easybills/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrStaleClaim is returned by Update when the row was modified since it was
// loaded (version mismatch).
var ErrStaleClaim = errors.New("claim was modified concurrently")

var claimColumns = []string{
	"id", "owner_id", "category", "amount", "description", "date_incurred",
	"status", "documents", "audit_trail", "version", "created_at", "updated_at",
}

type ClaimRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewClaimRepository(db *pgxpool.Pool, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	documents, auditTrail, err := marshalJSONFields(claim)
	if err != nil {
		return err
	}

	query := squirrel.Insert("claims").
		Columns(claimColumns...).
		Values(
			claim.ID, claim.OwnerID, claim.Category, claim.Amount, claim.Description,
			claim.DateIncurred, claim.Status, documents, auditTrail, claim.Version,
			claim.CreatedAt, claim.UpdatedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	query := squirrel.Select(claimColumns...).
		From("claims").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, sql, args...)
	return scanClaim(row)
}

func (r *ClaimRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Claim, error) {
	return r.list(ctx, squirrel.Eq{"owner_id": ownerID})
}

func (r *ClaimRepository) ListAll(ctx context.Context) ([]*models.Claim, error) {
	return r.list(ctx, nil)
}

func (r *ClaimRepository) list(ctx context.Context, where any) ([]*models.Claim, error) {
	query := squirrel.Select(claimColumns...).
		From("claims").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if where != nil {
		query = query.Where(where)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

// Update persists the claim's mutable fields. The documents and audit trail
// are always written as whole JSONB values. The write is guarded by the
// version the claim was loaded with; a mismatch returns ErrStaleClaim.
func (r *ClaimRepository) Update(ctx context.Context, claim *models.Claim) error {
	documents, auditTrail, err := marshalJSONFields(claim)
	if err != nil {
		return err
	}

	query := squirrel.Update("claims").
		Set("category", claim.Category).
		Set("amount", claim.Amount).
		Set("description", claim.Description).
		Set("date_incurred", claim.DateIncurred).
		Set("status", claim.Status).
		Set("documents", documents).
		Set("audit_trail", auditTrail).
		Set("version", claim.Version+1).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": claim.ID, "version": claim.Version}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleClaim
	}

	claim.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var (
		claim      models.Claim
		documents  []byte
		auditTrail []byte
	)
	err := row.Scan(
		&claim.ID, &claim.OwnerID, &claim.Category, &claim.Amount, &claim.Description,
		&claim.DateIncurred, &claim.Status, &documents, &auditTrail, &claim.Version,
		&claim.CreatedAt, &claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(documents, &claim.Documents); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if err := json.Unmarshal(auditTrail, &claim.AuditTrail); err != nil {
		return nil, fmt.Errorf("decode audit trail: %w", err)
	}

	return &claim, nil
}

func marshalJSONFields(claim *models.Claim) (documents, auditTrail []byte, err error) {
	if claim.Documents == nil {
		claim.Documents = []models.Document{}
	}
	if claim.AuditTrail == nil {
		claim.AuditTrail = []models.AuditEntry{}
	}

	documents, err = json.Marshal(claim.Documents)
	if err != nil {
		return nil, nil, fmt.Errorf("encode documents: %w", err)
	}
	auditTrail, err = json.Marshal(claim.AuditTrail)
	if err != nil {
		return nil, nil, fmt.Errorf("encode audit trail: %w", err)
	}
	return documents, auditTrail, nil
}
