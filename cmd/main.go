package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"coopfund/internal/auth"
	"coopfund/internal/config"
	"coopfund/internal/custody"
	"coopfund/internal/database"
	"coopfund/internal/handlers"
	"coopfund/internal/jobs"
	"coopfund/internal/models"
	"coopfund/internal/repository"
	"coopfund/internal/scoring"
	"coopfund/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize settlement rail
	rail, err := custody.NewSolanaRail(
		cfg.Custody.Network,
		cfg.Custody.MintAddress,
		cfg.Custody.PrivateKey,
	)
	if err != nil {
		log.Fatalf("Failed to initialize custody rail: %v", err)
	}

	// Initialize scoring engine; fall back to the static engine when no
	// external screening service is configured
	var engine scoring.Engine
	if cfg.Scoring.Endpoint != "" {
		engine = scoring.NewHTTPEngine(cfg.Scoring.Endpoint, cfg.Scoring.APIKey)
		log.Printf("Using scoring service at %s", cfg.Scoring.Endpoint)
	} else {
		engine = scoring.NewStaticEngine()
		log.Println("No scoring service configured, using static engine")
	}

	// Initialize services
	db := database.GetDB()
	ledgerService := services.NewLedgerService(db)
	memberService := services.NewMemberService(db, ledgerService, cfg.App.InitialMemberGrant)
	redemptionService := services.NewRedemptionService(db, ledgerService, memberService, rail)
	treasuryService := services.NewTreasuryService(db, ledgerService)
	governanceService := services.NewGovernanceService(db, engine, rail)
	authorityService := services.NewAuthorityService(db)

	// Seed redemption caps from the environment; unset caps keep whatever
	// was last set at runtime
	if err := redemptionService.ApplyConfiguredCaps(context.Background(), cfg.App.MaxRedemptionPerUser, cfg.App.MaxDailyRedemptions); err != nil {
		log.Fatalf("Failed to apply configured redemption caps: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(memberService)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService, ledgerService, repo)
	governanceHandler := handlers.NewGovernanceHandler(governanceService, repo)
	treasuryHandler := handlers.NewTreasuryHandler(treasuryService)
	adminHandler := handlers.NewAdminHandler(authorityService, memberService, repo)

	// Start reserve resync job (runs every 15 minutes)
	resyncJob := jobs.NewReserveResync(redemptionService, 15*time.Minute)
	go resyncJob.Start()
	defer resyncJob.Stop()
	log.Println("Reserve resync job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Member endpoints
		api.GET("/balance", redemptionHandler.GetBalance)
		api.GET("/ledger", redemptionHandler.GetLedgerEntries)

		// Redemption endpoints
		api.POST("/redemptions", redemptionHandler.Redeem)
		api.GET("/redemptions", redemptionHandler.ListMine)
		api.GET("/redemptions/:id", redemptionHandler.GetRequest)

		// Governance endpoints
		api.POST("/proposals", governanceHandler.Submit)
		api.GET("/proposals", governanceHandler.List)
		api.GET("/proposals/:id", governanceHandler.Get)
		api.POST("/proposals/:id/withdraw", governanceHandler.Withdraw)
	}

	// Operations routes (protected + BACKEND role)
	ops := router.Group("/api/ops")
	ops.Use(auth.AuthMiddleware())
	ops.Use(auth.RoleMiddleware(authorityService, models.RoleBackend))
	{
		ops.GET("/redemptions", redemptionHandler.ListAll)
		ops.POST("/redemptions/:id/fulfill", redemptionHandler.Fulfill)
		ops.POST("/redemptions/:id/cancel", redemptionHandler.Cancel)
		ops.POST("/redemptions/:id/forfeit", redemptionHandler.Forfeit)

		ops.POST("/proposals/:id/vote", governanceHandler.Vote)
		ops.GET("/proposals/:id/votes", governanceHandler.Votes)
		ops.POST("/proposals/:id/evaluate", governanceHandler.Evaluate)
	}

	// Treasury routes (protected + TREASURER role)
	treasury := router.Group("/api/treasury")
	treasury.Use(auth.AuthMiddleware())
	treasury.Use(auth.RoleMiddleware(authorityService, models.RoleTreasurer))
	{
		treasury.POST("/withdraw", treasuryHandler.Withdraw)
		treasury.GET("/vault-balance", treasuryHandler.VaultBalance)
		treasury.GET("/reserve", redemptionHandler.GetReserve)
		treasury.POST("/reserve/resync", redemptionHandler.ResyncReserve)
		treasury.PUT("/caps/per-user", redemptionHandler.SetPerUserCap)
		treasury.PUT("/caps/daily", redemptionHandler.SetDailyCap)

		treasury.POST("/redemptions/:id/emergency-resolve", redemptionHandler.EmergencyResolve)

		treasury.POST("/proposals/:id/fund", governanceHandler.Fund)
	}

	// Admin routes (protected + ADMIN role)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.RoleMiddleware(authorityService, models.RoleAdmin))
	{
		admin.POST("/roles/grant", adminHandler.GrantRole)
		admin.POST("/roles/revoke", adminHandler.RevokeRole)
		admin.GET("/roles/:wallet", adminHandler.GetRoles)
		admin.POST("/transfer/initiate", adminHandler.InitiateAdminTransfer)
		admin.POST("/transfer/complete", adminHandler.CompleteAdminTransfer)

		admin.POST("/members/:wallet/suspend", adminHandler.SuspendMember)
		admin.POST("/members/:wallet/reinstate", adminHandler.ReinstateMember)

		admin.GET("/audit", adminHandler.GetAuditLogs)

		admin.POST("/treasury/emergency-withdraw", treasuryHandler.EmergencyWithdraw)
		admin.POST("/proposals/:id/fail", governanceHandler.Fail)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
