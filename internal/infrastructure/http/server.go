package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/propbazaar/payments-service/internal/adapter/handler/http"
	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/infrastructure/database"
	gatewayfactory "github.com/propbazaar/payments-service/internal/infrastructure/gateway"
	"github.com/propbazaar/payments-service/internal/middleware/auth"
	"github.com/propbazaar/payments-service/internal/usecase"
	pkgErrors "github.com/propbazaar/payments-service/pkg/errors"
	"github.com/propbazaar/payments-service/pkg/logger"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	registry *gatewayfactory.Registry

	checkout   *usecase.CheckoutService
	reconcile  *usecase.ReconcileService
	activation *usecase.ActivationService
}

func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	repos *database.Repositories,
	registry *gatewayfactory.Registry,
	checkout *usecase.CheckoutService,
	reconcile *usecase.ReconcileService,
	activation *usecase.ActivationService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		httpErr := pkgErrors.ToHTTPError(err)
		if jsonErr := c.JSON(httpErr.Code, echo.Map{
			"error": fmt.Sprintf("%v", httpErr.Message),
		}); jsonErr != nil {
			log.Error("Failed to write error response", zap.Error(jsonErr))
		}
	}

	e.Use(middleware.Recover())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:     cfg,
		logger:     log,
		echo:       e,
		repos:      repos,
		registry:   registry,
		checkout:   checkout,
		reconcile:  reconcile,
		activation: activation,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	paymentHandler := handlers.NewPaymentHandler(
		s.checkout, s.reconcile, s.activation,
		s.repos.Transaction, s.repos.ActivationFailure, s.logger)
	webhookHandler := handlers.NewPhonePeWebhookHandler(
		s.reconcile, s.registry, s.repos.Transaction, s.repos.CallbackEvent, s.logger)
	packageHandler := handlers.NewPackageHandler(s.repos.Package, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/api/v1/packages",
			"/api/v1/payments/phonepe/callback",
		},
	}

	v1 := s.echo.Group("/api/v1")

	// Public: package catalogue and the gateway callback. The callback
	// authenticates with its checksum header, not a JWT.
	v1.GET("/packages", packageHandler.ListPackages)
	v1.POST("/payments/phonepe/callback", webhookHandler.Callback)

	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	payments := protected.Group("/payments")
	payments.POST("/:method/transaction", paymentHandler.CreateTransaction)
	payments.GET("/transactions", paymentHandler.ListTransactions)
	payments.GET("/transactions/:id", paymentHandler.GetTransaction)
	payments.POST("/transactions/:id/claim", paymentHandler.ClaimPayment)
	payments.PUT("/transactions/:id/status", paymentHandler.UpdateStatus)
	payments.POST("/transactions/:id/activate", paymentHandler.RetryActivation)
	payments.GET("/activation-failures", paymentHandler.ListActivationFailures)
	payments.GET("/phonepe/status/:reference", webhookHandler.PollStatus)
}
