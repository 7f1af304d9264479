// Command admin-seed creates an admin user in the configured PostgreSQL
// database. It is a no-op when the email already exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"merchant-service/config"
	pgStorage "merchant-service/internal/adapter/storage/postgres"
	"merchant-service/internal/core/domain"
	"merchant-service/internal/service"
	"merchant-service/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		email      = flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email (env ADMIN_EMAIL)")
		password   = flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (env ADMIN_PASSWORD)")
		role       = flag.String("role", envOr("ADMIN_ROLE", string(domain.AdminRoleAdmin)), "ADMIN, SUPPORT_ADMIN or USER")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" || *password == "" {
		log.Fatal().Msg("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}
	if len(*password) < 8 {
		log.Fatal().Msg("admin password must be at least 8 characters")
	}
	r := domain.AdminRole(strings.ToUpper(*role))
	switch r {
	case domain.AdminRoleAdmin, domain.AdminRoleSupportAdmin, domain.AdminRoleUser:
	default:
		log.Fatal().Str("role", *role).Msg("unknown admin role")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	users := pgStorage.NewAdminUserRepository(pool)
	existing, err := users.GetByEmail(ctx, addr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up admin user")
	}
	if existing != nil {
		log.Info().Str("email", addr).Msg("Admin user already exists")
		return
	}

	hash, err := service.NewBcryptHashService(cfg.Merchant.BcryptCost).Hash(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	now := time.Now().UTC()
	user := &domain.AdminUser{
		ID:           uuid.New(),
		Email:        addr,
		PasswordHash: hash,
		Role:         r,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin user")
	}

	log.Info().Str("email", addr).Str("role", string(r)).Str("id", user.ID.String()).Msg("Admin user created")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
