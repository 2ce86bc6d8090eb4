// Seed creates the database schema and a pair of demo accounts with a few
// claims, so a fresh environment is usable immediately.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"easybills/internal/models"
	"easybills/internal/repository"
	"easybills/pkg/auth"
	"easybills/pkg/config"
	"easybills/pkg/logger"
	"easybills/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	picture TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'Faculty',
	password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS claims (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES users(id),
	category TEXT NOT NULL,
	amount NUMERIC(10,2) NOT NULL,
	description TEXT NOT NULL,
	date_incurred DATE NOT NULL,
	status TEXT NOT NULL,
	documents JSONB NOT NULL DEFAULT '[]',
	audit_trail JSONB NOT NULL DEFAULT '[]',
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_claims_owner_created ON claims (owner_id, created_at DESC);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Applying schema")
	if _, err := db.Exec(ctx, schema); err != nil {
		appLogger.Fatal("Failed to apply schema", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db, appLogger)
	claimRepo := repository.NewClaimRepository(db, appLogger)

	faculty, err := ensureUser(ctx, userRepo, "faculty@easybills.local", "Dana Faculty", models.RoleFaculty, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to seed faculty user", zap.Error(err))
	}
	if _, err := ensureUser(ctx, userRepo, "accounts@easybills.local", "Avery Accounts", models.RoleAccounts, appLogger); err != nil {
		appLogger.Fatal("Failed to seed accounts user", zap.Error(err))
	}

	if err := seedClaims(ctx, db, claimRepo, faculty, appLogger); err != nil {
		appLogger.Fatal("Failed to seed claims", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!")
}

func ensureUser(ctx context.Context, repo *repository.UserRepository, email, name string, role models.Role, appLogger *zap.Logger) (*models.User, error) {
	existing, err := repo.GetByEmail(ctx, email)
	if err == nil {
		appLogger.Info("User already seeded", zap.String("email", email))
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword("changeme123")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Role:      role,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}

	appLogger.Info("Seeded user", zap.String("email", email), zap.String("role", string(role)))
	return user, nil
}

func seedClaims(ctx context.Context, db *pgxpool.Pool, repo *repository.ClaimRepository, owner *models.User, appLogger *zap.Logger) error {
	var count int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM claims WHERE owner_id = $1", owner.ID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		appLogger.Info("Claims already seeded", zap.Int("count", count))
		return nil
	}

	samples := []struct {
		category    models.ClaimCategory
		amount      string
		description string
	}{
		{models.CategoryTravel, "182.50", "Train tickets for the Spring research symposium"},
		{models.CategoryStationery, "34.99", "Whiteboard markers and lab notebooks"},
		{models.CategoryRegistrationFees, "450.00", "Conference registration, ICML workshop track"},
	}

	now := time.Now().UTC()
	for _, s := range samples {
		amount, err := decimal.NewFromString(s.amount)
		if err != nil {
			return err
		}

		claim := &models.Claim{
			ID:           uuid.New(),
			OwnerID:      owner.ID,
			Category:     s.category,
			Amount:       amount,
			Description:  s.description,
			DateIncurred: now.AddDate(0, 0, -14),
			Status:       models.StatusSubmitted,
			Documents:    []models.Document{},
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		claim.AppendAudit(models.StatusSubmitted, models.RoleFaculty, "Claim submitted for processing.")

		if err := repo.Create(ctx, claim); err != nil {
			return err
		}
	}

	appLogger.Info("Seeded demo claims", zap.Int("count", len(samples)))
	return nil
}
