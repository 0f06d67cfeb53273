package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/polyblog/backend/docs"
	"github.com/polyblog/backend/internal/config"
	"github.com/polyblog/backend/internal/db"
	"github.com/polyblog/backend/internal/handler"
	"github.com/polyblog/backend/internal/mail"
	"github.com/polyblog/backend/internal/security"
	"github.com/polyblog/backend/internal/service"
)

// @title Polyblog Auth API
// @version 1.0
// @description Authentication and account-verification API for the Polyblog platform.
// @BasePath /
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[Init] no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Init] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("[Init] postgres: %v", err)
	}
	defer store.Close()

	dsn, err := db.BuildURL(cfg.Postgres)
	if err != nil {
		log.Fatalf("[Init] postgres dsn: %v", err)
	}
	if err := db.Migrate(ctx, dsn); err != nil {
		log.Fatalf("[Init] migrations: %v", err)
	}
	if err := store.SeedRolesAndRanks(ctx); err != nil {
		log.Fatalf("[Init] seed roles/ranks: %v", err)
	}

	var sender mail.Mailer
	if cfg.Mail.SMTPHost != "" {
		sender = mail.NewSMTPMailer(cfg.Mail)
	} else {
		log.Println("[Init] SMTP_HOST not set, mail goes to the log")
		sender = mail.LogMailer{}
	}

	tokens := security.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	authService := service.NewAuthService(store, tokens, sender, cfg)
	rankService := service.NewRankService(store)
	sweeper := service.NewSweeper(store, time.Hour)
	go sweeper.Run(ctx)

	var limiter handler.Limiter
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		limiter = handler.NewRedisLimiter(client)
	} else {
		limiter = handler.NewLocalLimiter()
	}

	router := buildRouter(cfg, store, authService, rankService, limiter)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("[Init] listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Init] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[Shutdown] draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Shutdown] %v", err)
	}
}

func buildRouter(cfg *config.Config, store *db.Postgres, authService *service.AuthService, rankService *service.RankService, limiter handler.Limiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.CORSAllowedOrigins))

	cookies := handler.CookieConfig{
		Domain:     cfg.Auth.CookieDomain,
		Secure:     cfg.Auth.CookieSecure,
		SameSite:   sameSiteMode(cfg.Auth.CookieSameSite),
		AccessAge:  int(cfg.Auth.AccessTTL.Seconds()),
		RefreshAge: int(cfg.Auth.RefreshTTL.Seconds()),
	}
	authHandler := handler.NewAuthHandler(authService, cookies)
	rankHandler := handler.NewRankHandler(rankService)
	catalogHandler := handler.NewCatalogHandler(store)
	requireAuth := handler.AuthMiddleware(authService)

	router.GET("/healthz", handler.Healthz)
	router.GET("/openapi.json", handler.OpenAPIDoc)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.POST("/register", handler.RateLimit(limiter, "register", handler.Quota{Limit: 3, Window: time.Hour}), authHandler.Register)
		auth.POST("/verify-email", handler.RateLimit(limiter, "verify", handler.Quota{Limit: 10, Window: time.Hour}), authHandler.VerifyEmail)
		auth.POST("/resend-verification", handler.RateLimit(limiter, "resend", handler.Quota{Limit: 3, Window: time.Hour}), authHandler.ResendVerification)
		auth.POST("/login", handler.RateLimit(limiter, "login", handler.Quota{Limit: 5, Window: 15 * time.Minute}), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/password-reset-request", handler.RateLimit(limiter, "reset-request", handler.Quota{Limit: 3, Window: time.Hour}), authHandler.PasswordResetRequest)
		auth.POST("/password-reset-confirm", handler.RateLimit(limiter, "reset-confirm", handler.Quota{Limit: 5, Window: time.Hour}), authHandler.PasswordResetConfirm)
		auth.GET("/me", requireAuth, authHandler.Me)

		api.GET("/roles", catalogHandler.ListRoles)
		api.GET("/ranks", catalogHandler.ListRanks)
		api.POST("/ranks/comment", requireAuth, rankHandler.RecordComment)
		api.POST("/ranks/like", requireAuth, rankHandler.RecordLike)
	}

	return router
}

func sameSiteMode(value string) http.SameSite {
	switch value {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
