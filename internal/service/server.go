package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server 快照 / 回调 HTTP 服务
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	listener   net.Listener
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

// Listen 先绑定端口，绑定失败在启动阶段就能返回
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr 实际监听地址（":0" 时为系统分配端口）
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Serve 阻塞直到 Stop；正常关闭返回 nil
func (s *Server) Serve() error {
	s.logger.Info("Starting wisefido-lora HTTP server", zap.String("addr", s.Addr()))
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping wisefido-lora HTTP server")
	return s.httpServer.Shutdown(ctx)
}
