package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/auth"
	"github.com/vaultline/vaultline/internal/config"
	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/middleware"
	"github.com/vaultline/vaultline/internal/notification"
	"github.com/vaultline/vaultline/internal/passcode"
	"github.com/vaultline/vaultline/internal/payments"
	"github.com/vaultline/vaultline/internal/payout"
	"github.com/vaultline/vaultline/internal/secure"
	"github.com/vaultline/vaultline/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger zerolog.Logger
	Mailer notification.Mailer
	// Users overrides the user store; when nil it is derived from DB.
	Users identity.Repository
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Mailer == nil {
		return fmt.Errorf("mailer is required")
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	userRepo := d.Users
	if userRepo == nil {
		if d.DB != nil {
			cipher, err := secure.NewCipher(d.Cfg.EncryptionKey, d.Logger)
			if err != nil {
				return err
			}
			userRepo = identity.NewPostgresRepository(d.DB, cipher, d.Logger)
		} else {
			userRepo = identity.NewMemoryRepository()
		}
	}
	var payoutRepo payout.Repository
	if d.DB != nil {
		payoutRepo = payout.NewPostgresRepository(d.DB)
	} else {
		payoutRepo = payout.NewMemoryRepository()
	}
	var passcodeStore passcode.Store
	if d.Cache != nil {
		passcodeStore = passcode.NewRedisStore(d.Cache)
	} else {
		passcodeStore = passcode.NewMemoryStore()
	}

	// Services and handlers
	identitySvc := identity.NewService(userRepo, d.Logger)
	passcodes := passcode.NewIssuer(passcodeStore, passcode.Options{
		TTL:         d.Cfg.PasscodeTTL,
		MaxAttempts: d.Cfg.PasscodeMaxAttempts,
	}, d.Logger)
	sessions := session.NewIssuer(d.Cfg.SessionSecret, d.Cfg.AppName, d.Cfg.SessionTTL)
	authSvc := auth.NewService(identitySvc, passcodes, d.Mailer, sessions, d.Cfg.PasscodeTTL, d.Logger)
	payoutSvc := payout.NewService(payoutRepo, d.Cfg.PayoutCacheTTL, d.Logger)
	receiptSvc := payments.NewService(d.Mailer, d.Cfg.ReceiptRecipient, d.Logger)

	authHandler := auth.NewHandler(authSvc)
	identityHandler := identity.NewHandler(identitySvc)
	payoutHandler := payout.NewHandler(payoutSvc)
	paymentHandler := payments.NewHandler(receiptSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, authHandler, AuthLimits{
		SignIn:         middleware.SignInRateLimit(d.Cache, d.Cfg.SignInRateLimit, d.Logger),
		VerifyPasscode: middleware.EmailRateLimit(d.Cache, "passcode_verify", d.Cfg.PasscodeRateLimit, d.Logger),
		ForgotPassword: middleware.EmailRateLimit(d.Cache, "password_forgot", d.Cfg.PasscodeRateLimit, d.Logger),
		ResetPassword:  middleware.EmailRateLimit(d.Cache, "password_reset", d.Cfg.PasscodeRateLimit, d.Logger),
	})

	// Protected routes
	protected := api.Group("", middleware.RequireSession(authSvc))
	protected.Post("/auth/sign-out", authHandler.SignOut)
	RegisterIdentityRoutes(protected, identityHandler)
	RegisterPayoutRoutes(protected, payoutHandler)
	RegisterPaymentRoutes(protected, paymentHandler, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	admin := protected.Group("/admin", middleware.RequireAdmin())
	RegisterAdminRoutes(admin, identityHandler, payoutHandler)

	return nil
}
