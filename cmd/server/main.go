// Package main runs the spaces coordination HTTP server with WebSocket and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-spaces/backend/config"
	"github.com/aura-spaces/backend/internal/auth"
	"github.com/aura-spaces/backend/internal/authz"
	"github.com/aura-spaces/backend/internal/middleware"
	"github.com/aura-spaces/backend/internal/participants"
	"github.com/aura-spaces/backend/internal/realtime"
	"github.com/aura-spaces/backend/internal/recordings"
	"github.com/aura-spaces/backend/internal/segments"
	"github.com/aura-spaces/backend/internal/spaces"
	"github.com/aura-spaces/backend/pkg/database"
	"github.com/aura-spaces/backend/pkg/queue"
	"github.com/aura-spaces/backend/pkg/redis"
	"github.com/aura-spaces/backend/pkg/response"
	"github.com/aura-spaces/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		SegmentsBucket:       cfg.AWS.SegmentsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	verifier := auth.NewTokenVerifier(cfg.Identity.JWTSecret, cfg.Identity.Issuer)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	sfu := realtime.NewSFU(logger, realtime.ParseICEServers(cfg.WebRTC.ICEUrls))
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Identity
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, logger)

	// Stores
	spaceRepo := spaces.NewRepository(pool)
	participantRepo := participants.NewRepository(pool)
	recordingRepo := recordings.NewRepository(pool)
	segmentRepo := segments.NewRepository(pool)
	guard := authz.NewGuard(participantRepo)

	// Handlers
	spaceHandler := spaces.NewHandler(spaceRepo, guard, logger)
	participantHandler := participants.NewHandler(participantRepo, spaceRepo, guard, logger)
	recordingHandler := recordings.NewHandler(recordingRepo, spaceRepo, participantRepo, guard, jobQueue, logger)
	segmentHandler := segments.NewHandler(segmentRepo, recordingRepo, participantRepo, s3Client, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: join-code preview for the join screen
	router.GET("/spaces/code/:code", spaceHandler.GetByCode)

	// Guest-capable endpoints: a bearer token is resolved when present,
	// guests pass with a session id.
	guest := router.Group("")
	guest.Use(middleware.OptionalAuth(verifier, authRepo))
	{
		guest.POST("/spaces/:id/join", participantHandler.Join)
		guest.POST("/spaces/:id/leave", participantHandler.Leave)
	}

	// Protected API (identity token required)
	api := router.Group("")
	api.Use(middleware.Auth(verifier, authRepo))
	{
		api.GET("/auth/me", authHandler.Me)

		// Spaces
		api.POST("/spaces", spaceHandler.Create)
		api.GET("/spaces/:id", spaceHandler.Get)
		api.PATCH("/spaces/:id", spaceHandler.Update)
		api.POST("/spaces/:id/end", spaceHandler.End)

		// Participants
		api.GET("/spaces/:id/participants", participantHandler.List)
		api.PATCH("/participants/:id/role", participantHandler.UpdateRole)
		api.POST("/participants/:id/kick", participantHandler.Kick)

		// Recording sessions
		api.POST("/spaces/:id/recording/start", recordingHandler.StartSession)
		api.POST("/recording-sessions/:id/stop", recordingHandler.StopSession)
		api.GET("/spaces/:id/recording-sessions", recordingHandler.ListSessions)

		// Participant recordings
		api.POST("/recording-sessions/:id/recordings", recordingHandler.CreateRecording)
		api.GET("/recording-sessions/:id/recordings", recordingHandler.ListRecordings)
		api.PATCH("/recordings/:id", recordingHandler.UpdateRecording)
		api.POST("/recordings/:id/complete", recordingHandler.CompleteRecording)

		// Segments
		api.POST("/recordings/:id/segments", segmentHandler.Append)
		api.GET("/recordings/:id/segments", segmentHandler.List)
		api.POST("/recordings/:id/segments/upload-url", segmentHandler.UploadURL)
	}

	// WebSocket (token in query; guests connect without one)
	router.GET("/ws", realtime.ServeWs(hub, logger, verifier, spaceRepo, sfu))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
