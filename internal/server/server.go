package server

import (
	"context"
	"net/http"
	"time"

	"event-tickets/internal/dto"
	"event-tickets/internal/handler"
	appmiddleware "event-tickets/internal/middleware"
	"event-tickets/internal/ratelimit"
	"event-tickets/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Options struct {
	Environment    string
	AdminAPIKey    string
	AllowedOrigins []string
}

type Server struct {
	echo           *echo.Echo
	opts           Options
	logger         *zap.Logger
	limiter        *ratelimit.Limiter
	ticketHandler  *handler.TicketHandler
	webhookHandler *handler.WebhookHandler
}

func NewServer(
	opts Options,
	logger *zap.Logger,
	limiter *ratelimit.Limiter,
	ticketService service.TicketService,
	redemptionService service.RedemptionService,
	webhookService service.WebhookService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, appmiddleware.AdminKeyHeader},
		MaxAge:       86400,
	}))

	s := &Server{
		echo:           e,
		opts:           opts,
		logger:         logger,
		limiter:        limiter,
		ticketHandler:  handler.NewTicketHandler(ticketService, redemptionService),
		webhookHandler: handler.NewWebhookHandler(webhookService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, dto.HealthResponse{
			Status: "ok",
			Time:   time.Now().UTC(),
			Env:    s.opts.Environment,
		})
	})

	// -------- stripe webhooks --------
	api.POST("/webhooks/stripe", s.webhookHandler.StripeWebhook)

	// -------- admin --------
	tickets := api.Group("/admin/tickets", appmiddleware.AdminKey(s.opts.AdminAPIKey))
	tickets.GET("", s.ticketHandler.ListTickets)
	tickets.POST("/create", s.ticketHandler.CreateTicket)
	tickets.POST("/send", s.ticketHandler.SendTicket)
	tickets.GET("/stats", s.ticketHandler.GetStats)

	// -------- door scanner --------
	scanner := tickets.Group("/validate", appmiddleware.ScannerRateLimit(s.limiter, s.logger))
	scanner.GET("", s.ticketHandler.ValidateTicket)
	scanner.POST("", s.ticketHandler.RedeemTicket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
