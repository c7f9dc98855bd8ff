package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"igress/internal/api"
	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common/security"
	"igress/internal/domain/repository"
	"igress/internal/platform/cache"
	"igress/internal/platform/config"
	"igress/internal/platform/database"
	"igress/internal/platform/judge"
	"igress/internal/platform/logger"
	"igress/internal/platform/metrics"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := &cli.Command{
		Name:  "igress",
		Usage: "classroom testing and grading API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to an env file",
				Value: ".env",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			fromFile := config.Load(cmd.String("env"))
			logger.Init(config.AppConfig.LogLevel, config.AppConfig.LogFile)
			if !fromFile {
				logger.Log.Info("no env file found, relying on environment variables", zap.String("env", cmd.String("env")))
			}
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema",
				Action: migrate,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, _ *cli.Command) error {
	if err := database.Connect(ctx); err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx, database.DB); err != nil {
		return err
	}
	logger.Log.Info("schema applied")
	return nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.AppConfig
	security.InitJWT()
	metrics.Init()

	if err := database.Connect(ctx); err != nil {
		return err
	}
	defer database.Close()

	if err := cache.ConnectRedis(ctx); err != nil {
		return err
	}
	defer cache.CloseRedis()

	// Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	blockRepo := repository.NewPgBlockRepository(database.DB)
	classroomRepo := repository.NewPgClassroomRepository(database.DB)
	testRepo := repository.NewPgTestRepository(database.DB)
	questionRepo := repository.NewPgQuestionRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	attendanceRepo := repository.NewPgAttendanceRepository(database.DB)
	tx := database.NewTransactor(database.DB)

	judgeClient := judge.NewClient(judge.Options{
		BaseURL:           cfg.JudgeURL,
		RapidAPIKey:       cfg.JudgeRapidAPIKey,
		RapidAPIHost:      cfg.JudgeRapidAPIHost,
		AuthUser:          cfg.JudgeAuthUser,
		AuthToken:         cfg.JudgeAuthToken,
		Timeout:           cfg.JudgeTimeout,
		MaxRetries:        cfg.JudgeMaxRetries,
		RetryBase:         cfg.JudgeRetryBase,
		BatchSize:         cfg.JudgeBatchSize,
		RequestsPerSecond: cfg.JudgeRPS,
	}, nil)

	// Services
	access := service.NewAccessService(userRepo, cache.NewRedisPrincipalCache(cache.RDB, cfg.RoleCacheTTL))
	blocks := service.NewBlockService(userRepo, blockRepo, tx, access)
	services := api.Services{
		Auth:      service.NewAuthService(userRepo, tx),
		Access:    access,
		Classroom: service.NewClassroomService(classroomRepo, userRepo),
		Question:  service.NewQuestionService(questionRepo, testRepo, tx),
		Test:      service.NewTestService(testRepo),
		Submission: service.NewSubmissionService(
			submissionRepo, questionRepo, testRepo, classroomRepo,
			judgeClient, tx, cache.NewRedisLocker(cache.RDB), cfg.FinalizeLockTTL,
		),
		Admin:      service.NewAdminService(userRepo, blocks),
		Student:    service.NewStudentService(classroomRepo, testRepo),
		Supervisor: service.NewSupervisorService(testRepo, attendanceRepo, classroomRepo, userRepo, blocks),
	}

	router := api.NewRouter(services, api.RouterOptions{
		AllowedOrigins: []string{cfg.FrontendURL, "http://localhost:3000", "http://localhost:5173"},
		AuthLimiter:    middleware.NewRateLimiter(ctx, cfg.AuthRateLimitPerMinute, time.Minute),
		MaxBodyBytes:   cfg.MaxRequestBytes,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		// finalize waits on the judge
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Log.Info("server stopped")
	return nil
}
