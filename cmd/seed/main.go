// seed inserts development directory records for local testing: one donor, one
// unvetted NGO, and one vetted NGO. Idempotent: records whose external id exists are skipped.
// Put dev_admin in ADMIN_EXTERNAL_IDS to use the admin routes with the seeded donor.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"givebridge/backend/internal/config"
	"givebridge/backend/internal/db"
	"givebridge/backend/internal/logger"
	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
	"givebridge/backend/internal/user/repository"
)

type seedUser struct {
	id, externalID, email, first, last string
	role                               domain.Role
	attrs                              domain.RoleAttributes
	vetted                             bool
}

var seedUsers = []seedUser{
	{
		id: "00000000-0000-4000-8000-000000000001", externalID: "dev_admin", email: "admin@example.com",
		first: "Dev", last: "Admin", role: domain.RoleDonor,
		attrs: domain.DonorAttributes{PreferredCategories: []domain.Category{domain.CategoryEducation}},
	},
	{
		id: "00000000-0000-4000-8000-000000000002", externalID: "dev_ngo_pending", email: "pending@example.org",
		first: "Pending", last: "Org", role: domain.RoleNGO,
		attrs: domain.NGOAttributes{OrganizationName: "Pending Relief", Category: domain.CategoryPoverty, FoundedYear: 2015},
	},
	{
		id: "00000000-0000-4000-8000-000000000003", externalID: "dev_ngo_vetted", email: "vetted@example.org",
		first: "Vetted", last: "Org", role: domain.RoleNGO,
		attrs:  domain.NGOAttributes{OrganizationName: "Clean Water Now", Category: domain.CategoryEnvironment, FoundedYear: 2009},
		vetted: true,
	},
}

func main() {
	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, "givebridge-seed")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{})
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer conn.Close()
	if err := seed(ctx, repository.NewPostgresRepository(conn), log); err != nil {
		log.Fatal("seed", zap.Error(err))
	}
}

func seed(ctx context.Context, dir repository.Repository, log *zap.Logger) error {
	now := time.Now().UTC()
	for _, u := range seedUsers {
		rec := &domain.IdentityRecord{
			ID: u.id, ExternalID: u.externalID, Email: u.email,
			Name: domain.Name{First: u.first, Last: u.last}, Role: u.role,
			EmailVerified: true, Active: true, Attributes: u.attrs,
			CreatedAt: now, UpdatedAt: now,
		}
		err := dir.Create(ctx, rec)
		if errors.Is(err, apperrors.ErrDuplicateExternalID) || errors.Is(err, apperrors.ErrDuplicateEmail) {
			log.Info("seed: already present, skipping", zap.String("external_id", u.externalID))
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", u.externalID, err)
		}
		if u.vetted {
			if _, err := dir.SetNGOVerified(ctx, rec.ID, true); err != nil {
				return fmt.Errorf("verify %s: %w", u.externalID, err)
			}
		}
		log.Info("seed: created", zap.String("external_id", u.externalID), zap.String("role", string(u.role)))
	}
	return nil
}
