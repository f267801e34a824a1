package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"roomscene_backend/internal/app/di"
	"roomscene_backend/internal/app/router"
	sceneadapters "roomscene_backend/internal/feature/scene/adapters"
	"roomscene_backend/internal/feature/scene/adapters/inference"
	"roomscene_backend/internal/feature/scene/adapters/storage"
	"roomscene_backend/internal/feature/scene/builder"
	scenehandler "roomscene_backend/internal/feature/scene/transport/handler"
	"roomscene_backend/internal/feature/scene/usecase"
	infradb "roomscene_backend/internal/platform/db"
	"roomscene_backend/internal/platform/http/handler"
	jwtmw "roomscene_backend/internal/platform/jwt"
	infraredis "roomscene_backend/internal/platform/redis"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close DB", "error", err)
		}
	}()
	checks := []handler.Check{{Name: "db", Ping: sqlDB.PingContext}}

	// Redis
	var rdb *redisv9.Client
	if cfg, enabled := infraredis.LoadConfig(); enabled {
		if tmp, err := infraredis.NewRedisClient(ctx, cfg); err != nil {
			slog.Warn("Redis unavailable. Running without cache.", "error", err)
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("Failed to close Redis client", "error", err)
				}
			}()
			checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}})
		}
	}

	// Config
	pipelineCfg, err := usecase.LoadPipelineConfig()
	if err != nil {
		return err
	}
	inferenceCfg, err := inference.LoadConfig()
	if err != nil {
		return err
	}
	camera, err := di.LoadCamera()
	if err != nil {
		return err
	}

	// Collaborators
	store, err := storage.NewLocalStore(storage.LoadConfig())
	if err != nil {
		return err
	}
	httpDetector, depth := di.NewInferenceClients(inferenceCfg)
	backend := di.DetectorBackendFromEnv()
	detector, closeDetector, err := di.NewDetector(ctx, backend, httpDetector)
	if err != nil {
		return err
	}
	defer closeDetector()
	slog.Info("detector selected", "backend", backend)

	// Repository
	projectRepo := sceneadapters.NewProjectRepository(db)
	detectionRepo := sceneadapters.NewDetectionRepository(db)
	sceneRepo, err := di.NewSceneRepository(rdb, db)
	if err != nil {
		return err
	}

	// Usecase
	pipelineUC := usecase.NewPipelineUsecase(usecase.PipelineDeps{
		Store:      store,
		Detector:   detector,
		Depth:      depth,
		Projects:   projectRepo,
		Detections: detectionRepo,
		Scenes:     sceneRepo,
		Builder:    builder.New(camera),
	}, pipelineCfg)
	projectUC := usecase.NewProjectUsecase(projectRepo, detectionRepo, sceneRepo)

	// Handler
	projectH := scenehandler.NewProjectHandler(pipelineUC, projectUC, pipelineCfg.MaxImageBytes)
	mediaH := scenehandler.NewMediaHandler(store)

	// JWT_SECRETチェック
	secret := jwtmw.SecretFromEnv()
	if secret == "" {
		slog.Warn("JWT_SECRET is not set. All authenticated routes will fail.")
	}

	// ルータ生成
	r := router.NewRouter(router.Handlers{Projects: projectH, Media: mediaH, Checks: checks}, secret)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
