package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"freeshare/internal/auth"
	"freeshare/internal/config"
	"freeshare/internal/db"
	"freeshare/internal/events"
	"freeshare/internal/handlers"
	"freeshare/internal/middleware"
	"freeshare/internal/oauth"
	"freeshare/internal/observability"
	"freeshare/internal/rabbitmq"
	"freeshare/internal/repositories"
	"freeshare/internal/storage"
	"freeshare/internal/ws"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log.Logger = newLogger(cfg, cmd.ErrOrStderr())
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	database, err := db.Connect(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()
	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	users := repositories.NewUserRepo(database)
	sessions := repositories.NewSessionRepo(database)
	items := repositories.NewItemRepo(database)
	conversations := repositories.NewConversationRepo(database)

	authService := auth.NewService(users, sessions, cfg.SessionTTL)
	oauthManager, err := oauth.NewManager(cfg.BaseURL, cfg.OAuthStateSecret, oauth.DefaultProviders(cfg))
	if err != nil {
		return fmt.Errorf("oauth: %w", err)
	}
	if cfg.OAuthStateSecret == "" {
		log.Warn().Msg("OAUTH_STATE_SECRET not set, OAuth state is only valid for this process")
	}

	broker := rabbitmq.Connect(cfg.AMQPURL, cfg.AMQPExchange)
	defer func() {
		if err := broker.Close(); err != nil {
			log.Error().Err(err).Msg("close broker")
		}
	}()
	if broker.Mode() == rabbitmq.ModeNoop {
		log.Warn().Str("reason", broker.Reason()).Msg("event broker unavailable, events are dropped")
	} else {
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("event broker connected")
	}
	emitter := events.NewEmitter(broker, serviceName, cfg.AppEnv)

	hub := ws.NewHub()
	routes := handlers.Routes{
		Sessions:      authService,
		DB:            database,
		Auth:          handlers.NewAuthHandler(authService, oauthManager, emitter, cfg.FrontendURL),
		Users:         handlers.NewUserHandler(users, items),
		Items:         handlers.NewItemHandler(items, emitter),
		Conversations: handlers.NewConversationHandler(conversations, items, users, hub, emitter),
		WebSocket:     ws.NewConversationWebSocketHandler(hub, conversations, authService).Handle,
	}

	if cfg.S3Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, cfg)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		routes.Uploads = handlers.NewUploadHandler(uploader)
	} else {
		log.Info().Msg("S3_BUCKET not set, image uploads disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(cfg, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.AppEnv).Str("db_driver", cfg.DBDriver).Msg("starting freeshare api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// newRouter installs the global middleware chain and mounts routes.
func newRouter(cfg config.Config, routes handlers.Routes) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		handlers.Recovery(),
		otelgin.Middleware(serviceName),
		middleware.RequestID(),
		observability.RequestLogger(),
		observability.HTTPMetricsMiddleware(),
		middleware.CORS(cfg.AllowedOrigins),
	)
	if cfg.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	routes.Register(r)
	return r
}
