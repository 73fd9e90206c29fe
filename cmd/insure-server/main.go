package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verimed/insure/internal/config"
	"github.com/verimed/insure/internal/domain/claim"
	"github.com/verimed/insure/internal/domain/credential"
	"github.com/verimed/insure/internal/domain/identity"
	"github.com/verimed/insure/internal/domain/inbox"
	"github.com/verimed/insure/internal/domain/policy"
	"github.com/verimed/insure/internal/domain/registration"
	"github.com/verimed/insure/internal/platform/auth"
	"github.com/verimed/insure/internal/platform/db"
	"github.com/verimed/insure/internal/platform/ledger"
	"github.com/verimed/insure/internal/platform/middleware"
	"github.com/verimed/insure/internal/platform/reporting"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "insure-server",
		Short: "Health insurance API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hospitalCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveSigningSecret returns the configured JWT secret, or generates a
// random ephemeral key when development mode runs without one. The second
// return value is true when a random key was generated.
func resolveSigningSecret(configured string) ([]byte, bool, error) {
	if configured != "" {
		return []byte(configured), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate ephemeral signing key: %w", err)
	}
	return key, true, nil
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the insurance API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// hospitalCmd provisions a hospital account: it registers a DID with the
// ledger registry and creates an approved hospital user bound to it.
func hospitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hospital",
		Short: "Manage hospital accounts",
	}

	provisionCmd := &cobra.Command{
		Use:   "provision",
		Short: "Register a hospital DID and create its account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			did, _ := cmd.Flags().GetString("did")
			if name == "" || username == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --username, --email and --password are required")
			}

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if did == "" {
				client := ledger.NewClient(cfg.LedgerURL, cfg.DIDMethod, cfg.LedgerRequestTimeout(), logger)
				did, err = client.RegisterDID(ctx, name)
				if err != nil {
					return fmt.Errorf("register DID: %w", err)
				}
				fmt.Printf("Registered DID: %s\n", did)
			}

			issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL())
			svc := identity.NewService(identity.NewUserRepoPG(pool), issuer)
			u, err := svc.CreateHospital(ctx, name, username, email, password, did)
			if err != nil {
				return fmt.Errorf("create hospital account: %w", err)
			}

			fmt.Printf("Hospital account created: %s (%s)\n", u.ID, did)
			return nil
		},
	}
	provisionCmd.Flags().String("name", "", "Hospital display name")
	provisionCmd.Flags().String("username", "", "Login username")
	provisionCmd.Flags().String("email", "", "Contact email")
	provisionCmd.Flags().String("password", "", "Login password")
	provisionCmd.Flags().String("did", "", "Existing DID (skips ledger registration)")

	cmd.AddCommand(provisionCmd)
	return cmd
}

// adminCmd promotes an existing account to admin.
func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	promoteCmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote an existing user to admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			users := identity.NewUserRepoPG(pool)
			u, err := users.GetByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("lookup user: %w", err)
			}

			issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL())
			svc := identity.NewService(users, issuer)
			if _, err := svc.Approve(ctx, u.ID, identity.RoleAdmin, identity.StatusApproved, ""); err != nil {
				return fmt.Errorf("promote user: %w", err)
			}

			fmt.Printf("Promoted %s to admin.\n", email)
			return nil
		},
	}
	promoteCmd.Flags().String("email", "", "Email of the account to promote")

	cmd.AddCommand(promoteCmd)
	return cmd
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Two groups under /api/v1: login and signup stay open, everything
	// else requires a bearer token.
	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(rateLimitCfg))

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(rateLimitCfg))
	secret, ephemeral, err := resolveSigningSecret(cfg.JWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing secret")
	}
	if ephemeral {
		logger.Warn().Msg("JWT_SECRET not set, using an ephemeral signing key; tokens will not survive a restart")
	}
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware(secret))
	} else {
		api.Use(auth.Middleware(secret))
	}

	// Repositories
	userRepo := identity.NewUserRepoPG(pool)
	policyRepo := policy.NewRepoPG(pool)
	regRepo := registration.NewRepoPG(pool)
	credRepo := credential.NewRepoPG(pool)
	claimRepo := claim.NewRepoPG(pool)
	msgRepo := inbox.NewRepoPG(pool)

	// Services
	issuer := auth.NewIssuer(secret, cfg.JWTTTL())
	identitySvc := identity.NewService(userRepo, issuer)
	policySvc := policy.NewService(policyRepo)
	regSvc := registration.NewService(regRepo, policyRepo, identitySvc, db.NewTxRunner(pool))
	credSvc := credential.NewService(credRepo)
	claimSvc := claim.NewService(claimRepo, regSvc, credSvc)
	inboxSvc := inbox.NewService(msgRepo, identitySvc)

	// Handlers
	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	policy.NewHandler(policySvc).RegisterRoutes(api)
	registration.NewHandler(regSvc).RegisterRoutes(api)
	credential.NewHandler(credSvc).RegisterRoutes(api)
	claim.NewHandler(claimSvc).RegisterRoutes(api)
	inbox.NewHandler(inboxSvc).RegisterRoutes(api)
	reporting.NewHandler(pool).RegisterRoutes(api)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
