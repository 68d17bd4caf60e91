// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/factory"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/iam"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	sdkAuth "github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/utils/auth"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/internal/bootstrap"
	"github.com/AccelByte/extend-season-pass/internal/config"
	"github.com/AccelByte/extend-season-pass/internal/server"
	"github.com/AccelByte/extend-season-pass/pkg/passconfig"
	"github.com/AccelByte/extend-season-pass/pkg/service"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	pass              *passconfig.Config
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	shutdownTelemetry func(context.Context) error

	storage      *bootstrap.Storage
	entitlements *bootstrap.Entitlements
	lifecycle    *bootstrap.Lifecycle

	// AccelByte SDK repositories (shared across all services)
	configRepo *sdkAuth.ConfigRepositoryImpl
	tokenRepo  *sdkAuth.TokenRepositoryImpl
}

// New creates the full service: the season pass components plus the
// gRPC, metrics and telemetry servers.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. Season pass config (YAML)
// 2. AccelByte SDK (only when AB_ENABLED)
// 3. Redis (when any component is Redis-backed)
// 4. Storage (progress, season state, snapshot, backups)
// 5. Premium providers and preservation
// 6. Season lifecycle (validator, advisor, engine, coordinator)
// 7. Servers (gRPC, metrics)
// 8. Telemetry (OpenTelemetry tracing)
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// ============================================================
	// Step 7: Setup servers
	// ============================================================
	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort, app.storage.Health, app.lifecycle.Coordinator)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(app.storage.Seasons, app.lifecycle.Coordinator); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	// ============================================================
	// Step 8: Setup telemetry
	// ============================================================
	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// Open initializes the season pass components without any server. The
// admin commands run on top of it.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing season pass...")

	app := &App{cfg: cfg}

	// ============================================================
	// Step 1: Load season pass configuration
	// ============================================================
	pass, err := passconfig.LoadOrDefault(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load season pass config from %s: %w", cfg.ConfigPath, err)
	}
	app.pass = pass
	logrus.Infof("loaded season pass configuration, premium mode %s", pass.PremiumMode())

	// ============================================================
	// Step 2: Initialize Client Auth using AccelByte SDK
	// ============================================================
	var platformServices *bootstrap.Platform
	if cfg.ABEnabled {
		if err := app.initAccelByteSDKAuth(); err != nil {
			return nil, fmt.Errorf("failed to init AccelByte SDK: %w", err)
		}
		platformServices = &bootstrap.Platform{
			Items:  app.initItemGranter(),
			Wallet: app.initStatWallet(),
		}
	}

	// ============================================================
	// Step 3: Initialize Redis
	// ============================================================
	if cfg.NeedsRedis(pass.PremiumMode()) {
		if err := app.initRedis(ctx); err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
	}

	// ============================================================
	// Step 4: Open storage
	// ============================================================
	app.storage, err = bootstrap.InitStorage(cfg, app.redisClient)
	if err != nil {
		app.closeRedis()
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// ============================================================
	// Step 5: Premium providers
	// ============================================================
	app.entitlements, err = bootstrap.InitEntitlements(ctx, cfg, pass, app.storage, app.redisClient, platformServices)
	if err != nil {
		_ = app.storage.Close()
		app.closeRedis()
		return nil, fmt.Errorf("failed to init premium providers: %w", err)
	}

	// ============================================================
	// Step 6: Season lifecycle
	// ============================================================
	app.lifecycle = bootstrap.InitLifecycle(cfg, pass, app.storage, app.entitlements)

	return app, nil
}

// Pass returns the season pass configuration.
func (a *App) Pass() *passconfig.Config { return a.pass }

// Storage returns the persisted state.
func (a *App) Storage() *bootstrap.Storage { return a.storage }

// Entitlements returns the premium components.
func (a *App) Entitlements() *bootstrap.Entitlements { return a.entitlements }

// Lifecycle returns the season operation components.
func (a *App) Lifecycle() *bootstrap.Lifecycle { return a.lifecycle }

// initAccelByteSDKAuth initializes the AccelByte SDK auth by performing client login.
//
// The Client Auth is configured via environment variables:
// - AB_BASE_URL: AccelByte platform base URL
// - AB_CLIENT_ID: OAuth2 client ID
// - AB_CLIENT_SECRET: OAuth2 client secret
// - AB_NAMESPACE: Game namespace
//
// The configRepo and tokenRepo are stored in the App struct and must be
// reused by all AccelByte services to share authentication.
func (a *App) initAccelByteSDKAuth() error {
	a.configRepo = sdkAuth.DefaultConfigRepositoryImpl()
	a.tokenRepo = sdkAuth.DefaultTokenRepositoryImpl()
	refreshRepo := &sdkAuth.RefreshTokenImpl{AutoRefresh: true, RefreshRate: 0.8}

	oauthService := iam.OAuth20Service{
		Client:                 factory.NewIamClient(a.configRepo),
		ConfigRepository:       a.configRepo,
		TokenRepository:        a.tokenRepo,
		RefreshTokenRepository: refreshRepo,
	}

	clientID := a.configRepo.GetClientId()
	clientSecret := a.configRepo.GetClientSecret()

	if err := oauthService.LoginClient(&clientID, &clientSecret); err != nil {
		return fmt.Errorf("unable to login using clientId and clientSecret: %w", err)
	}

	logrus.Info("AccelByte SDK initialized and authenticated")
	return nil
}

// initRedis initializes the Redis client.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisHost + ":" + a.cfg.RedisPort,
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(a.cfg.RedisRetryDelayMs) * time.Millisecond
	maxRetries := backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries))

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		backoff.WithContext(maxRetries, ctx),
	)

	if err != nil {
		_ = client.Close()
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		logrus.Errorf("Redis close error: %v", err)
	}
	a.redisClient = nil
}

// initItemGranter creates the fulfillment client for the premium pass item.
//
// IMPORTANT: Reuses a.configRepo and a.tokenRepo to share the authenticated
// session from initAccelByteSDKAuth(). Do NOT create new repository instances.
func (a *App) initItemGranter() *service.EntitlementService {
	fulfillmentService := &platform.FulfillmentService{
		Client:           factory.NewPlatformClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}

	return service.NewEntitlementService(fulfillmentService, service.EntitlementServiceConfig{
		Namespace: a.cfg.ABNamespace,
	})
}

// initStatWallet keeps the season currency in a user statistic.
func (a *App) initStatWallet() *service.StatWallet {
	statisticService := &social.UserStatisticService{
		Client:           factory.NewSocialClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}

	return service.NewStatWallet(statisticService, service.StatWalletConfig{
		Namespace: a.cfg.ABNamespace,
		StatCode:  a.cfg.CurrencyStatCode,
	})
}
