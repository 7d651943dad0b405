package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leadboard-go/internal/api"
	"leadboard-go/internal/config"
	"leadboard-go/internal/core"
	"leadboard-go/internal/db"
	"leadboard-go/internal/identity"
	"leadboard-go/internal/metrics"
	"leadboard-go/internal/middleware"
	"leadboard-go/internal/models"
)

// backend is the store and identity provider pair selected by STORE_BACKEND.
type backend struct {
	store    db.DocumentStore
	provider core.IdentityProvider
	minter   core.TokenMinter
	close    func() error
}

func main() {
	// --- 1. Load .env and initialize Logger (Zap) ---
	ginMode := os.Getenv("GIN_MODE")
	if err := config.LoadDotEnv(ginMode); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: failed to load .env: %v", err)
	}
	zapLogger, err := newLogger(os.Getenv("GIN_MODE"))
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded",
		zap.String("appId", appConfig.AppID),
		zap.String("storeBackend", appConfig.StoreBackend),
	)

	// --- 3. Initialize the document store and identity provider ---
	// Google clients keep this context for token refresh; it must outlive startup.
	be, err := initBackend(context.Background(), appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize backend", zap.Error(err))
	}
	defer func() {
		if err := be.close(); err != nil {
			zapLogger.Warn("Backend close failed", zap.Error(err))
		}
	}()

	// --- 4. Initialize Services ---
	appMetrics := metrics.New()
	paths := db.NewPaths(appConfig.AppID)

	var sessionOpts []core.SessionOption
	switch {
	case appConfig.InitialAuthToken != "":
		sessionOpts = append(sessionOpts, core.WithBootstrapToken(appConfig.InitialAuthToken))
	case appConfig.BootstrapUID != "":
		sessionOpts = append(sessionOpts, core.WithBootstrapUID(be.minter, appConfig.BootstrapUID))
	}
	session := core.NewSessionService(be.provider, zapLogger, sessionOpts...)

	controller := core.NewController(zapLogger, paths, session,
		core.NewMirror[models.Client](be.store, core.RoleClients, core.DecodeClient, zapLogger, appMetrics),
		core.NewMirror[models.Lead](be.store, core.RoleLeads, core.DecodeLead, zapLogger, appMetrics),
		appMetrics,
	)

	var auditService core.AuditService
	if appConfig.AuditEnabled {
		auditService = core.NewAuditService(be.store, paths)
	}
	mutations := core.NewMutationService(be.store, paths, controller, controller, auditService, zapLogger, appMetrics)
	zapLogger.Info("Core services initialized successfully.")

	// --- 5. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))

	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured.")
	}

	csrfKey, err := appConfig.CSRFKey()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Invalid CSRF key", zap.Error(err))
	}
	if csrfKey != nil {
		router.Use(middleware.CSRF(csrfKey, middleware.CSRFOptions{
			Secure:         appConfig.IsRelease(),
			TrustedOrigins: trustedOrigins(appConfig.ClientURL),
		}))
		zapLogger.Info("CSRF protection enabled for form submissions.")
	} else {
		zapLogger.Warn("CSRF protection SKIPPED: CSRF_AUTH_KEY is not configured.")
	}

	// --- 6. Setup Routes ---
	if err := api.SetupRoutes(router, zapLogger, controller, mutations, appMetrics); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to set up routes", zap.Error(err))
	}

	// --- 7. Start the view controller and the HTTP server ---
	runCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		if err := controller.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("View controller stopped", zap.Error(err))
		}
	}()

	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 8. Sign in ---
	stopIdentity := session.Start(runCtx, controller)
	defer stopIdentity()

	// --- 9. Graceful Shutdown Handling ---
	<-runCtx.Done()
	zapLogger.Info("Received shutdown signal")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	<-controller.Done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server forced to shut down", zap.Error(err))
	}

	cascadesDone := make(chan struct{})
	go func() {
		mutations.Wait()
		close(cascadesDone)
	}()
	select {
	case <-cascadesDone:
	case <-shutdownCtx.Done():
		zapLogger.Warn("Shutdown timed out with lead deletions still in flight")
	}

	zapLogger.Info("Server exiting gracefully.")
}

func newLogger(ginMode string) (*zap.Logger, error) {
	if ginMode == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initBackend(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*backend, error) {
	switch appConfig.StoreBackend {
	case config.StoreBackendMemory:
		mem := db.NewMemStore()
		if appConfig.SeedFile != "" {
			seed, err := db.LoadSeed(appConfig.SeedFile)
			if err != nil {
				return nil, err
			}
			n := seed.Apply(mem)
			logger.Info("Memory store seeded", zap.String("file", appConfig.SeedFile), zap.Int("documents", n))
		}
		local := identity.NewLocalProvider(logger)
		logger.Info("Using the in-memory store and local identity provider.")
		return &backend{store: mem, provider: local, minter: local, close: func() error { return nil }}, nil

	case config.StoreBackendFirestore:
		clients, err := db.InitFirebase(ctx, appConfig, logger)
		if err != nil {
			return nil, err
		}
		provider, err := identity.NewFirebaseProvider(ctx, appConfig.FirebaseAPIKey, clients.Auth, logger)
		if err != nil {
			clients.Close()
			return nil, err
		}
		logger.Info("Firebase Admin SDK (Firestore, Auth) initialized successfully.")
		return &backend{
			store:    db.NewFirestoreStore(clients.Firestore, logger),
			provider: provider,
			minter:   provider,
			close:    clients.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store backend %q", appConfig.StoreBackend)
}

// trustedOrigins returns the host of clientURL, which gorilla/csrf accepts as an origin.
func trustedOrigins(clientURL string) []string {
	if clientURL == "" {
		return nil
	}
	u, err := url.Parse(clientURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
