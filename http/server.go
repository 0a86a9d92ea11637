// Package http 提供表单页面与预测API
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"studentrisk/config"
)

// Server HTTP服务器
type Server struct {
	server  *http.Server
	config  ServerConfig
	logger  *zap.Logger
	limiter *RateLimiter
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
	RateLimit      config.RateLimitConfig
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfigFrom(config.Default().Http)
}

// ServerConfigFrom 从配置文件构建服务器配置
func ServerConfigFrom(c config.HTTPConfig) ServerConfig {
	return ServerConfig{
		Port:           c.Port,
		Timeout:        c.Timeout,
		MaxBodyBytes:   c.MaxBodyBytes,
		AllowedOrigins: c.AllowedOrigins,
		RateLimit:      c.RateLimit,
	}
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, handler *Handler, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	handler.Register(mux)

	middlewares := []Middleware{
		RecoveryMiddleware(logger),            // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(logger),              // 2. 日志中间件
		SecurityHeadersMiddleware,             // 3. 安全头中间件
		CORSMiddleware(config.AllowedOrigins), // 4. CORS中间件
	}
	if config.MaxBodyBytes > 0 {
		middlewares = append(middlewares, RequestSizeMiddleware(config.MaxBodyBytes))
	}

	var limiter *RateLimiter
	if config.RateLimit.Enabled {
		var err error
		limiter, err = NewRateLimiter(config.RateLimit.Capacity, config.RateLimit.Refill, config.RateLimit.MaxClients)
		if err != nil {
			return nil, err
		}
		middlewares = append(middlewares, RateLimitMiddleware(limiter))
	}

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      Chain(middlewares...)(mux),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config:  config,
		logger:  logger,
		limiter: limiter,
	}, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler 返回带中间件的处理器
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
