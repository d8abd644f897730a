package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rfeflow/rfe-api/api/swagger"
	"github.com/rfeflow/rfe-api/internal/handler"
	"github.com/rfeflow/rfe-api/internal/middleware"
	"github.com/rfeflow/rfe-api/internal/repository"
	"github.com/rfeflow/rfe-api/internal/service"
	"github.com/rfeflow/rfe-api/pkg/cache"
	"github.com/rfeflow/rfe-api/pkg/config"
	"github.com/rfeflow/rfe-api/pkg/crypto"
	"github.com/rfeflow/rfe-api/pkg/database"
	"github.com/rfeflow/rfe-api/pkg/jobs"
	"github.com/rfeflow/rfe-api/pkg/logger"
	corsmiddleware "github.com/rfeflow/rfe-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rfeflow/rfe-api/pkg/middleware/requestid"
	"github.com/rfeflow/rfe-api/pkg/storage"
)

// @title RFE Responder API
// @version 1.0.0
// @description Multi-tenant case management API for responding to USCIS Requests for Evidence
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	cipher, err := crypto.NewFieldCipher(cfg.Crypto.EncryptionKey, cfg.Crypto.BlindIndexSecret)
	if err != nil {
		sugar.Fatalw("failed to init field cipher", "error", err)
	}

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	checklistRepo := repository.NewChecklistRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	exhibitRepo := repository.NewExhibitRepository(db)
	knowledgeRepo := repository.NewKnowledgeDocRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditRecorder := service.NewAuditRecorder(auditRepo, logr)
	metricsSvc := service.NewMetricsService()

	analysisSvc := service.NewAnalysisService(
		caseRepo, sectionRepo, checklistRepo, draftRepo,
		redisClient, cfg.Analysis.SignalChannel,
		jobs.QueueConfig{
			Workers:    cfg.Analysis.QueueConcurrency,
			MaxRetries: cfg.Analysis.QueueRetries,
			Logger:     logr,
		},
		auditRecorder, metricsSvc, logr,
	)

	authSvc := service.NewAuthService(userRepo, redisClient, auditRecorder, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	caseSvc := service.NewCaseService(caseRepo, userRepo, cipher, auditRecorder, analysisSvc, validate, logr)
	documentSvc := service.NewDocumentService(documentRepo, caseRepo, auditRecorder, validate, logr, service.DocumentConfig{
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
	})
	sectionSvc := service.NewSectionService(sectionRepo, caseRepo, auditRecorder, validate, logr)
	checklistSvc := service.NewChecklistService(checklistRepo, caseRepo, auditRecorder, validate, logr)
	draftSvc := service.NewDraftService(draftRepo, caseRepo, analysisSvc, auditRecorder, validate, logr)
	exhibitSvc := service.NewExhibitService(exhibitRepo, caseRepo, auditRecorder, validate, logr)
	knowledgeSvc := service.NewKnowledgeDocService(knowledgeRepo, auditRecorder, validate, logr)
	userSvc := service.NewUserService(userRepo, service.NewLogMailer(logr), auditRecorder, validate, logr)
	tenantSvc := service.NewTenantService(tenantRepo, auditRecorder, validate, logr)
	dashboardSvc := service.NewDashboardService(caseRepo, redisClient, cipher, metricsSvc, cfg.Dashboard.CacheTTL, logr)
	auditQuerySvc := service.NewAuditQueryService(auditRepo, logr)

	exportSvc := service.NewExportService(service.ExportServiceDeps{
		Jobs:      exportJobRepo,
		Cases:     caseRepo,
		Sections:  sectionRepo,
		Drafts:    draftRepo,
		Checklist: checklistRepo,
		Exhibits:  exhibitRepo,
		Cipher:    cipher,
		Store:     exportStore,
		Signer:    exportSigner,
		Audit:     auditRecorder,
		Metrics:   metricsSvc,
		Logger:    logr,
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})

	retentionSvc := service.NewRetentionService(tenantRepo, auditRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exportSvc.StartWorkers(ctx)
	analysisSvc.StartWorkers(ctx)

	if cfg.Retention.Enabled {
		go retentionSvc.Run(ctx, cfg.Retention.SweepInterval)
	}

	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportSvc.Cleanup(ctx, cfg.Exports.SignedURLTTL); err != nil {
					sugar.Warnw("export cleanup failed", "error", err)
				}
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Tenant:    handler.NewTenantHandler(tenantSvc),
		Users:     handler.NewUserHandler(userSvc),
		Cases:     handler.NewCaseHandler(caseSvc, auditQuerySvc),
		Documents: handler.NewDocumentHandler(documentSvc),
		Sections:  handler.NewSectionHandler(sectionSvc),
		Checklist: handler.NewChecklistHandler(checklistSvc),
		Drafts:    handler.NewDraftHandler(draftSvc),
		Exhibits:  handler.NewExhibitHandler(exhibitSvc),
		Knowledge: handler.NewKnowledgeDocHandler(knowledgeSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Exports:   handler.NewExportHandler(exportSvc),
		Analysis:  handler.NewAnalysisHandler(analysisSvc, documentSvc, cfg.Analysis.CallbackToken),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("server shutdown", "error", err)
	}

	exportSvc.StopWorkers()
	analysisSvc.StopWorkers()
}
