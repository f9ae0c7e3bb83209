package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/presensi/attendance-api/internal/api/handler"
	"github.com/presensi/attendance-api/internal/api/middleware"
	"github.com/presensi/attendance-api/internal/core/domain"
	"github.com/presensi/attendance-api/internal/core/ports"
	"github.com/presensi/attendance-api/internal/infrastructure/http/handlers"
)

// bodySlack is the room left for form fields and multipart framing on top of
// the photo size limit.
const bodySlack = 1 << 20

// Deps groups everything the router needs to build the handlers.
type Deps struct {
	AuthService       ports.AuthService
	AttendanceService ports.AttendanceService
	Thumbnails        handler.ThumbnailResolver
	JWTSecret         string
	Location          *time.Location
	MaxPhotoBytes     int64
	UploadDir         string
	// Readiness lists the dependencies pinged by /health/ready.
	Readiness map[string]handlers.Pinger
	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
	Logger   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "presensi",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit(d.MaxPhotoBytes)))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	attendanceHandler := handler.NewAttendanceHandler(d.AttendanceService, d.Thumbnails, d.MaxPhotoBytes, d.Logger)
	reportHandler := handler.NewReportHandler(d.AttendanceService, d.Location, d.Thumbnails)
	authMiddleware := middleware.Auth(d.JWTSecret)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Attendance routes ---
	presensi := e.Group("/api/presensi", authMiddleware)
	presensi.POST("/check-in", attendanceHandler.CheckIn)
	presensi.PUT("/check-out", attendanceHandler.CheckOut)
	presensi.GET("/search/tanggal", attendanceHandler.SearchByDate)
	presensi.PUT("/:id", attendanceHandler.Update)
	presensi.DELETE("/:id", attendanceHandler.Delete)

	// --- Reports (admin only) ---
	reports := e.Group("/api/reports", authMiddleware, middleware.RBAC(domain.RoleAdmin))
	reports.GET("/daily", reportHandler.Daily)

	// --- Uploaded selfies ---
	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}

	// --- Health checks (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Readiness)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func bodyLimit(maxPhotoBytes int64) string {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = 5 << 20
	}
	return fmt.Sprintf("%dK", (maxPhotoBytes+bodySlack)>>10)
}
