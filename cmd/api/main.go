package main

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/config"
	httptransport "github.com/Gurpreetsingh4547/project-peak-api/internal/http"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/http/handler"
	httpmiddleware "github.com/Gurpreetsingh4547/project-peak-api/internal/http/middleware"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/jwt"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/mailer"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/repository"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/server"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/service"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newMongoDatabase,
			newUserRepository,
			newProjectRepository,
			newMailSender,
			newTokenIssuer,
			service.NewAuthService,
			service.NewProjectService,
			handler.NewAuthHandler,
			handler.NewProjectHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newMongoDatabase(lc fx.Lifecycle, cfg config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return db, nil
}

func newUserRepository(db *mongo.Database) repository.UserRepository {
	return repository.NewMongoUserRepo(db)
}

func newProjectRepository(db *mongo.Database) repository.ProjectRepository {
	return repository.NewMongoProjectRepo(db)
}

func newMailSender(cfg config.Config) (mailer.Sender, error) {
	return mailer.NewSMTPSender(cfg)
}

func newTokenIssuer(cfg config.Config) *jwt.Issuer {
	return jwt.NewIssuer(cfg.JWTSecret, cfg.CookieExpiry, cfg.ResetTokenTTL)
}

func newAuthMiddleware(issuer *jwt.Issuer, authService *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Issuer: issuer, AuthService: authService}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
