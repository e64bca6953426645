package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhalloran/scrawl/internal/auth"
	"github.com/dhalloran/scrawl/internal/background"
	"github.com/dhalloran/scrawl/internal/captcha"
	"github.com/dhalloran/scrawl/internal/config"
	"github.com/dhalloran/scrawl/internal/handlers"
	middlewareCustom "github.com/dhalloran/scrawl/internal/middleware"
	"github.com/dhalloran/scrawl/internal/render"
	"github.com/dhalloran/scrawl/internal/routes"
	"github.com/dhalloran/scrawl/internal/services"
	"github.com/dhalloran/scrawl/internal/session"
	pkglogger "github.com/dhalloran/scrawl/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Load challenge fonts. An empty set is survivable: the renderer falls
	// back to its built-in face.
	fonts, err := render.LoadFontSet(cfg.Captcha.FontDir)
	if err != nil {
		logger.Warn("failed to load font dir, using built-in face", slog.Any("error", err))
		fonts = &render.FontSet{}
	}
	logger.Info("fonts loaded", slog.Int("count", fonts.Len()), slog.Any("names", fonts.Names()))

	// Challenge pipeline
	store := session.NewStore()
	generator := captcha.NewGenerator(rand.NewSource(time.Now().UnixNano()))
	renderer := render.NewRenderer(render.Config{
		Height:    cfg.Captcha.Height,
		BlurSigma: cfg.Captcha.BlurSigma,
	}, fonts, rand.NewSource(time.Now().UnixNano()+1))

	validatorCfg := captcha.DefaultValidatorConfig()
	validatorCfg.MinSolveTimeDesktop = cfg.Captcha.MinSolveTime
	validatorCfg.MinSolveTimeMobile = cfg.Captcha.MinSolveTime
	validator := captcha.NewValidator(validatorCfg)

	tokenManager := auth.NewTokenManager(cfg.Token.Secret, cfg.Token.Expiry)
	verdictLogger := pkglogger.NewVerdictLogger(logger)

	challengeService := services.NewChallengeService(
		store,
		generator,
		renderer,
		validator,
		tokenManager,
		services.ChallengeConfig{
			Width:               cfg.Captcha.Width,
			SessionTTL:          cfg.Captcha.SessionTTL,
			WrongTextRetryDelay: cfg.Captcha.WrongTextRetryDelay,
			BotlikeRetryDelay:   cfg.Captcha.BotlikeRetryDelay,
		},
		logger,
		verdictLogger,
	)

	// Email collaborator
	var emailService services.EmailService
	if cfg.Email.Provider == "ses" {
		emailService, err = services.NewAWSSESEmailService(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.ToAddress,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		emailService = services.NewLogEmailService(logger)
	}

	// Constant-time delay on refused submissions
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   200,
		RandomDelayMs: 100,
	})

	contactService := services.NewContactService(challengeService, emailService, timingDelay, logger)

	// Initialize handlers
	captchaHandler := handlers.NewCaptchaHandler(challengeService)
	contactHandler := handlers.NewContactHandler(contactService)

	// Session cleanup
	cleanupManager := background.NewCleanupManager(store, logger, cfg.Captcha.CleanupInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, captchaHandler, contactHandler)

	// Health check
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
