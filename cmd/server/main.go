package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	authapi "github.com/laundryhub/laundryhub-auth/api/echo"
	"github.com/laundryhub/laundryhub-auth/cache"
	rediscache "github.com/laundryhub/laundryhub-auth/cache/redis"
	"github.com/laundryhub/laundryhub-auth/config"
	"github.com/laundryhub/laundryhub-auth/domain"
	"github.com/laundryhub/laundryhub-auth/internal/auth"
	"github.com/laundryhub/laundryhub-auth/internal/crypto"
	"github.com/laundryhub/laundryhub-auth/internal/federation"
	"github.com/laundryhub/laundryhub-auth/internal/mailer"
	applog "github.com/laundryhub/laundryhub-auth/log"
	"github.com/laundryhub/laundryhub-auth/mongodb"
	"github.com/laundryhub/laundryhub-auth/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applog.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Msg("starting laundryhub-auth server")

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("initializing MongoDB connection")
	}
	defer mongodb.CloseMongoDB(context.Background())
	db := mongodb.GetDB()

	// Repositories
	affiliates, err := mongodb.NewAccountRepository(ctx, db, mongodb.AffiliatesCollection)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing affiliate repository")
	}
	customers, err := mongodb.NewAccountRepository(ctx, db, mongodb.CustomersCollection)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing customer repository")
	}
	admins, err := mongodb.NewAccountRepository(ctx, db, mongodb.AdminsCollection)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing admin repository")
	}
	operators, err := mongodb.NewAccountRepository(ctx, db, mongodb.OperatorsCollection)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing operator repository")
	}
	refreshRepo, err := mongodb.NewRefreshTokenRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing refresh token repository")
	}
	blacklistRepo, err := mongodb.NewBlacklistRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing blacklist repository")
	}
	mailboxRepo, err := mongodb.NewMailboxRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing oauth session repository")
	}

	// Revocation cache: redis when configured, in-process otherwise.
	var revoked cache.RevocationStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connecting to redis")
		}
		revoked = rediscache.NewRevocationStore(client, "laundryhub-auth")
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis revocation cache")
	} else {
		store := cache.NewMemoryRevocationStore()
		defer store.Stop()
		revoked = store
	}

	// Collaborators
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	encryptor, err := crypto.NewAESEncryptor(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing token encryptor")
	}
	emailSender := mailer.NewLogMailer()

	callbackBase := cfg.AppOrigin + "/auth/oauth"
	providers := federation.NewRegistry(federation.RegistryConfig{
		Google: federation.Credentials{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  callbackBase + "/google/callback",
		},
		Facebook: federation.Credentials{
			ClientID:     cfg.FacebookClientID,
			ClientSecret: cfg.FacebookClientSecret,
			RedirectURL:  callbackBase + "/facebook/callback",
		},
		GitHub: federation.Credentials{
			ClientID:     cfg.GithubClientID,
			ClientSecret: cfg.GithubClientSecret,
			RedirectURL:  callbackBase + "/github/callback",
		},
	})

	// Services
	roles := services.NewRoleRegistry(affiliates, customers, admins, operators)
	tokens := services.NewTokenService(cfg.JWTSecretKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL(), roles)
	authSvc := services.NewAuthService(roles, tokens, refreshRepo, blacklistRepo, revoked, hasher, emailSender, cfg.RefreshTokenTTL(), cfg.AppOrigin)
	federationSvc := services.NewFederationService(roles, tokens, encryptor)
	relaySvc := services.NewRelayService(mailboxRepo)
	registrationSvc := services.NewRegistrationService(roles, tokens, authSvc, hasher, encryptor, emailSender)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	api := authapi.NewAuthAPI(authSvc, tokens, federationSvc, relaySvc, registrationSvc, providers)
	api.RegisterRoutes(e)
	e.GET("/healthz", func(c echo.Context) error {
		if err := mongodb.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"success": false,
				"message": "database unreachable",
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"roles":   domain.AllRoles,
		})
	})

	go func() {
		addr := ":" + cfg.HTTPPort
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
