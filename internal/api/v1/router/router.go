package router

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"piktor/internal/api/v1/handler"
	"piktor/internal/config"
	"piktor/internal/gemini"
	"piktor/internal/middleware"
	"piktor/internal/pubsub"
	"piktor/internal/repository"
	"piktor/internal/service"
	"piktor/internal/storage"
	"piktor/internal/wizard"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the full API. It returns the root handler plus the database
// handles so main can close them on shutdown.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *sql.DB, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	dsn := normalizeDSN(cfg)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection")
		return nil, nil, nil, err
	}
	if err := db.Ping(); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// Usage accounting and subscription upserts run serializable
	// transactions and use the pgx native pool.
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create pgx pool")
		return nil, nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})
	store := storage.NewStore(s3Client, cfg.S3Bucket, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
		return nil, nil, nil, err
	}

	geminiClient := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		Model:      cfg.GeminiImageModel,
		Timeout:    time.Duration(cfg.GeminiTimeoutSec) * time.Second,
		Logger:     logger,
	})

	// Repositories
	userRepo := repository.NewUserRepo(db)
	projectRepo := repository.NewProjectRepo(db)
	visualRepo := repository.NewVisualRepo(db)
	imageRepo := repository.NewImageRepo(db)
	editRepo := repository.NewEditRepo(db)
	statsRepo := repository.NewStatsRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	dlqRepo := repository.NewDLQRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)

	// Services
	subSvc := service.NewSubscriptionService(subscriptionRepo, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, subSvc, logger)
	userSvc := service.NewUserService(userRepo, usageRepo, subSvc, stripeSvc, store, logger)
	projectSvc := service.NewProjectService(projectRepo, logger)
	generationSvc := service.NewGenerationService(
		visualRepo, imageRepo, usageRepo, subSvc,
		geminiClient, store, pubSubPublisher,
		cfg.PubSubRenderTopic, cfg.GeminiImageModel, cfg.GenerationMaxInFlight,
		logger,
	)
	editSvc := service.NewEditService(
		editRepo, imageRepo, visualRepo, usageRepo, subSvc,
		geminiClient, store, cfg.GeminiImageModel,
		logger,
	)
	visualSvc := service.NewVisualService(visualRepo, imageRepo, editRepo, statsRepo, store, logger)
	ticketSvc := service.NewTicketService(ticketRepo)
	legalSvc := service.NewLegalService(cfg.LegalContentDir)
	dlqSvc := service.NewDLQService(dlqRepo)

	// Wizard sessions live in memory with a 24h TTL.
	wizardSessions := wizard.NewStore(24 * time.Hour)

	// Handlers
	userHandler := handler.NewUserHandler(userSvc, validate, logger)
	projectHandler := handler.NewProjectHandler(projectSvc, validate)
	wizardHandler := handler.NewWizardHandler(wizardSessions, generationSvc, validate, logger)
	visualHandler := handler.NewVisualHandler(visualSvc, validate, logger)
	editHandler := handler.NewEditHandler(editSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, subSvc, logger)
	ticketHandler := handler.NewTicketHandler(ticketSvc, validate)
	legalHandler := handler.NewLegalHandler(legalSvc)
	dlqHandler := handler.NewDLQHandler(dlqSvc, logger)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.DLQEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	projectHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	wizardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	visualHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	editHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	ticketHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	legalHandler.RegisterRoutes(apiV1Mux)
	dlqHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Redirect all other root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger, c.Handler(mux)), db, pool, nil
}

// normalizeDSN applies the connection string tweaks each environment needs:
// local development disables SSL, everything else goes through a transaction
// pooler and must avoid server-side prepared statements.
func normalizeDSN(cfg *config.Config) string {
	dsn := cfg.DBConnectionString
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		dsn += dsnSeparator(dsn) + "sslmode=disable"
	}
	if cfg.Environment != "development" && !strings.Contains(dsn, "prefer_simple_protocol") {
		dsn += dsnSeparator(dsn) + "prefer_simple_protocol=true"
	}
	return dsn
}

func dsnSeparator(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return "&"
		}
		return "?"
	}
	return " "
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists. Presigned URL operations
		// inspect the middleware stack.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
