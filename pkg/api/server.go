package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dnsmate/pdns-fanout/pkg/api/handler"
	"github.com/dnsmate/pdns-fanout/pkg/api/router"
	"github.com/dnsmate/pdns-fanout/pkg/config"
	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// CustomValidator 将go-playground验证器接入echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate 实现echo.Validator接口
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Server 表示管理API服务
type Server struct {
	e      *echo.Echo
	host   string
	port   int
	logger config.Logger
}

// NewServer 创建管理API服务
func NewServer(cfg *config.Config, reg registry.EndpointRegistry, orchestrator *fanout.Orchestrator, logger config.Logger) *Server {
	// 创建Echo实例
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	// 添加中间件
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("HTTP请求",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	// 创建处理器
	endpointHandler := handler.NewEndpointHandler(reg, logger)
	zoneHandler := handler.NewZoneHandler(reg, orchestrator, logger)
	recordHandler := handler.NewRecordHandler(reg, orchestrator, logger)
	healthHandler := handler.NewHealthHandler(orchestrator)
	metricsHandler := handler.NewMetricsHandler(orchestrator)

	// 注册路由
	router.RegisterRoutes(e, zoneHandler, recordHandler, healthHandler)
	router.RegisterAdminRoutes(e, endpointHandler, metricsHandler)

	return &Server{
		e:      e,
		host:   cfg.Server.ListenAddress,
		port:   cfg.Server.Port,
		logger: logger,
	}
}

// Start 以非阻塞方式启动服务
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("管理API服务启动", zap.String("address", addr))

	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			s.logger.Error("管理API服务启动失败", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown 关闭服务
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("正在关闭管理API服务...")
	return s.e.Shutdown(ctx)
}
