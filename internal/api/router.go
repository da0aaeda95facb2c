package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/ledger-system/docs"
	"github.com/99minutos/ledger-system/internal/api/handler"
	"github.com/99minutos/ledger-system/internal/api/middleware"
	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
	"github.com/99minutos/ledger-system/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	JWTSecret string
	Profiles  middleware.ProfileLoader
	Balances  ports.BalanceService
	Contracts ports.ContractService
	// Ready maps a dependency name to its readiness probe.
	Ready  map[string]handlers.Pinger
	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))

	// --- Health probes and tooling (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Ready)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated routes ---
	balanceHandler := handler.NewBalanceHandler(d.Balances)
	contractHandler := handler.NewContractHandler(d.Contracts)

	authn := middleware.Auth(d.JWTSecret)
	caller := middleware.LoadProfile(d.Profiles)
	clientOnly := middleware.RBAC(domain.RoleClient)

	e.POST("/jobs/:job_id/pay", balanceHandler.PayJob, authn, caller, clientOnly)
	e.POST("/balances/deposit/:userId", balanceHandler.Deposit, authn, caller, clientOnly)
	e.GET("/jobs", contractHandler.ContractsWithUnpaidJobs, authn, caller)
	e.GET("/jobs/unpaid", contractHandler.UnpaidJobs, authn, caller)
	e.GET("/contracts", contractHandler.List, authn, caller)
	e.GET("/contracts/:id", contractHandler.Get, authn, caller)

	return e
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
