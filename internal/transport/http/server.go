package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"lostfound/internal/cache"
	"lostfound/internal/config"
	"lostfound/internal/database"
	"lostfound/internal/database/migrations"
	"lostfound/internal/handler"
	"lostfound/internal/queue"
	"lostfound/internal/realtime"
	"lostfound/internal/redis"
	"lostfound/internal/repository"
	"lostfound/internal/service"
	"lostfound/internal/worker"
)

const (
	tokenPurgeInterval = 6 * time.Hour
	tokenPurgeGrace    = 7 * 24 * time.Hour
	shutdownTimeout    = 15 * time.Second
)

// Run loads config, wires every component and serves until SIGINT/SIGTERM.
func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := migrations.MigrateUp(db.DB); err != nil {
			return err
		}
	}

	// 3. Wire services
	app, cleanup, err := build(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer cleanup()

	go purgeTokens(ctx, app.auth)

	// 4. Serve
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(app.routes),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: /feed/live holds its connection open.
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[Server] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("[Server] Stopped")
	return nil
}

type app struct {
	routes RouterConfig
	auth   *service.AuthService
}

// build wires repositories, the event pipeline and services.
//
// With REDIS_URL the feed index, change stream, worker pool and pub/sub are
// used. Without it, events are handled inline and broadcast in-process, and
// the feed reads straight from the database.
func build(ctx context.Context, cfg *config.Config, db *sqlx.DB) (*app, func(), error) {
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	postRepo := repository.NewPostRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	var (
		index     cache.FeedIndex
		publisher queue.Publisher
		changes   realtime.Stream
		cleanups  []func()
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { rdb.Close() })

		index = cache.NewFeedIndex(rdb.Client)
		publisher = queue.NewPublisher(rdb.Client)
		changes = realtime.NewNotifier(rdb.Client)

		workerCfg := worker.DefaultManagerConfig()
		workerCfg.WorkerCount = cfg.WorkerCount
		manager := worker.NewManager(queue.NewConsumer(rdb.Client), worker.NewHandler(index, changes), workerCfg)
		if err := manager.Start(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("start workers: %w", err)
		}
		cleanups = append(cleanups, manager.Stop)
	} else {
		log.Printf("[Server] REDIS_URL not set: in-process events, feed reads from the database")
		hub := realtime.NewLocalHub()
		changes = hub
		publisher = worker.NewInlinePublisher(worker.NewHandler(nil, hub))
	}

	var images service.ImageStore
	mediaService, err := service.NewMediaService(ctx, cfg)
	if err != nil {
		log.Printf("[Server] Image uploads disabled: %v", err)
	} else {
		images = mediaService
	}

	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	postService := service.NewPostService(postRepo, claimRepo, commentRepo, images, publisher, index, cfg.PublicBaseURL)
	claimService := service.NewClaimService(postRepo, claimRepo, publisher)
	commentService := service.NewCommentService(postRepo, commentRepo, userRepo, publisher)
	feedService := service.NewFeedService(index, postRepo, claimRepo, commentRepo, changes, cfg.PublicBaseURL)
	notificationService := service.NewNotificationService(claimRepo, commentRepo)

	return &app{
		auth: authService,
		routes: RouterConfig{
			AuthHandler:         handler.NewAuthHandler(userService, authService),
			UserHandler:         handler.NewUserHandler(userService),
			FeedHandler:         handler.NewFeedHandler(feedService),
			PostHandler:         handler.NewPostHandler(postService),
			ClaimHandler:        handler.NewClaimHandler(claimService),
			CommentHandler:      handler.NewCommentHandler(commentService),
			NotificationHandler: handler.NewNotificationHandler(notificationService),
			JWTSecret:           cfg.JWTSecret,
		},
	}, cleanup, nil
}

// purgeTokens deletes long-expired refresh tokens until ctx ends.
func purgeTokens(ctx context.Context, auth *service.AuthService) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = auth.PurgeExpired(ctx, tokenPurgeGrace)
		}
	}
}
