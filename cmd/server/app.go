package main

import (
	"database/sql"
	"fmt"

	"github.com/iliyamo/ordermgmt/internal/database"
	"github.com/iliyamo/ordermgmt/internal/logger"
	"github.com/iliyamo/ordermgmt/internal/repository"
	"github.com/iliyamo/ordermgmt/internal/service"
	"github.com/iliyamo/ordermgmt/internal/utils"
)

// stores bundles the SQL repositories over one connection pool.
type stores struct {
	db        *sql.DB
	users     *repository.UserRepo
	roles     *repository.RoleRepo
	tokens    *repository.TokenRepo
	inventory *repository.InventoryRepo
}

// openStores connects, applies pending migrations and builds the
// repositories.
func openStores() (*stores, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DB.Driver, err)
	}
	if err := database.Migrate(db, cfg.DB, database.Up); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &stores{
		db:        db,
		users:     repository.NewUserRepo(db),
		roles:     repository.NewRoleRepo(db),
		tokens:    repository.NewTokenRepo(db),
		inventory: repository.NewInventoryRepo(db),
	}, nil
}

func (s *stores) Close() error { return s.db.Close() }

func newAuthService(s *stores, events service.EventPublisher) (*service.AuthService, *utils.TokenSigner, error) {
	signer, err := utils.NewTokenSigner(cfg.SignerConfig())
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewAuthService(service.Deps{
		Users:      s.users,
		Roles:      s.roles,
		Tokens:     s.tokens,
		Hasher:     utils.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers),
		Signer:     signer,
		Events:     events,
		RefreshTTL: cfg.RefreshTTL,
		Logger:     logger.WithComponent(log, "auth"),
	})
	return svc, signer, nil
}
