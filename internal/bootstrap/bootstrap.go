// Package bootstrap wires config, storage, inference and usecases for the
// server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/fadilmartias/hireflow/internal/config"
	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/repository"
	"github.com/fadilmartias/hireflow/internal/service"
	"github.com/fadilmartias/hireflow/internal/usecase"
	"github.com/fadilmartias/hireflow/internal/util"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Components struct {
	DB         *gorm.DB
	Gateway    *service.InferenceGateway
	Interviews *usecase.InterviewUsecase
	Scoring    *usecase.ScoringUsecase
}

func Build(ctx context.Context, log *zap.Logger) (*Components, error) {
	appCfg := config.LoadAppConfig()
	inferenceCfg := config.LoadInferenceConfig()
	scoringCfg := config.LoadScoringConfig()

	db, err := ConnectDB(config.LoadDBConfig(), appCfg)
	if err != nil {
		return nil, err
	}

	generator, err := NewGenerator(ctx, inferenceCfg, log)
	if err != nil {
		return nil, err
	}
	gateway := service.NewInferenceGateway(generator, inferenceCfg, log)
	fallback := service.NewFallbackEngine()
	resumes := service.NewResumeReader(util.NewPDFExtractor(true, log), service.ResumeSources{
		FetchTimeout: scoringCfg.ResumeFetchTimeout,
		Root:         scoringCfg.ResumeRoot,
		AllowedHosts: scoringCfg.ResumeAllowedHosts,
	}, log)

	return &Components{
		DB:         db,
		Gateway:    gateway,
		Interviews: usecase.NewInterviewUsecase(repository.NewInterviewSessionRepository(db), gateway, fallback, log),
		Scoring: usecase.NewScoringUsecase(repository.NewJobPostingRepository(db), gateway, fallback, resumes, usecase.ScoringOptions{
			PacingDelay:        scoringCfg.PacingDelay,
			RescoreParallelism: scoringCfg.RescoreParallelism,
		}, log),
	}, nil
}

// NewGenerator picks the provider named by INFERENCE_PROVIDER. A missing
// credential is not an error: the generator then fails every call and the
// gateway falls back.
func NewGenerator(ctx context.Context, cfg *config.InferenceConfig, log *zap.Logger) (service.Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenRouter:
		return service.NewOpenRouterService(config.LoadOpenRouterConfig(), cfg.MaxOutputTokens, log), nil
	default:
		gemini, err := service.NewGeminiService(ctx, config.LoadGeminiConfig(), cfg.MaxOutputTokens, log)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	}
}

func ConnectDB(dbConfig *config.DBConfig, appConfig *config.AppConfig) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if appConfig.LogDebug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dbConfig.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get database instance: %w", err)
	}
	if !appConfig.IsProduction() {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(10)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(20)
		pgDB.SetMaxOpenConns(200)
		pgDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&model.InterviewSession{}, &model.JobPosting{}, &model.Applicant{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}
