// Package remote exposes a running step session's controller on a Unix
// socket so other processes can inspect and steer it.
package remote

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/npratt/prfkit/internal/controller"
)

// Server serves control requests for one controller.
type Server struct {
	controller *controller.Controller
	sockPath   string
	startTime  time.Time
	logger     *slog.Logger

	listener net.Listener
	running  bool
	mu       sync.RWMutex
}

// New creates a Server that listens on sockPath.
func New(sockPath string, ctrl *controller.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		controller: ctrl,
		sockPath:   sockPath,
		logger:     logger,
	}
}

// Running returns whether the server is currently listening.
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// StartTime returns when the server started listening.
func (s *Server) StartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime
}

// SocketPath returns the Unix socket path.
func (s *Server) SocketPath() string {
	return s.sockPath
}
