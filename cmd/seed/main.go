package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/repository"
	"github.com/placement-sarthi/placement-api/internal/seed"
	"github.com/placement-sarthi/placement-api/internal/service"
	"github.com/placement-sarthi/placement-api/migrations"
	"github.com/placement-sarthi/placement-api/pkg/config"
	"github.com/placement-sarthi/placement-api/pkg/database"
	"github.com/placement-sarthi/placement-api/pkg/logger"
	"github.com/placement-sarthi/placement-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	file := flag.String("file", cfg.Seed.File, "path to the YAML fixture file")
	flag.Parse()

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	fx, err := seed.Load(*file)
	if err != nil {
		logr.Fatal("failed to load fixtures", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db, migrations.Files, logr); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	uploads, err := storage.OpenObjectStore(ctx, cfg.Uploads, "/"+strings.Trim(cfg.APIPrefix, "/")+"/files")
	if err != nil {
		logr.Fatal("failed to open upload storage", zap.Error(err))
	}

	validate := validator.New()
	users := service.NewUserService(repository.NewUserRepository(db), validate, logr)
	seeder := &seed.Seeder{
		Accounts:  users,
		Companies: service.NewCompanyService(repository.NewCompanyRepository(db), users, validate, logr, cfg.Accounts.DefaultPassword),
		Students: service.NewStudentService(repository.NewStudentRepository(db), users, uploads, nil, validate, logr, service.StudentServiceConfig{
			DefaultPassword: cfg.Accounts.DefaultPassword,
		}),
		Events: service.NewEventService(repository.NewEventRepository(db), nil, validate, logr),
		Logger: logr,
	}

	sum, err := seeder.Apply(ctx, fx)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
	logr.Info("seed complete", zap.Int("created", sum.Created), zap.Int("skipped", sum.Skipped))
}
