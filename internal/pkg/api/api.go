package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/dispatch"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/registry"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/safety"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// writeWait bounds how long a watch frame write may block before the
// watcher is considered gone.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The control surface is same-host tooling; any origin may watch.
		return true
	},
}

// Server serves the control API: registry and safety snapshots, broadcast
// commands and the websocket watch feed.
type Server struct {
	addr       string
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	monitor    *safety.Monitor
	engine     *gin.Engine
	closing    chan struct{}

	mu sync.Mutex
	ln net.Listener
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithAddr sets the address the API listens on.
func WithAddr(addr string) Cfg {
	return func(s *Server) error {
		if addr == "" {
			return errors.New("addr must not be empty")
		}
		s.addr = addr
		return nil
	}
}

// WithRegistry sets the registry the API snapshots.
func WithRegistry(reg *registry.Registry) Cfg {
	return func(s *Server) error {
		s.registry = reg
		return nil
	}
}

// WithDispatcher sets the dispatcher broadcasts go through.
func WithDispatcher(d *dispatch.Dispatcher) Cfg {
	return func(s *Server) error {
		s.dispatcher = d
		return nil
	}
}

// WithMonitor sets the safety monitor whose reports the API serves.
func WithMonitor(m *safety.Monitor) Cfg {
	return func(s *Server) error {
		s.monitor = m
		return nil
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfgs ...Cfg) (*Server, error) {
	srv := &Server{
		closing: make(chan struct{}),
	}
	for _, cfg := range cfgs {
		if err := cfg(srv); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if srv.addr == "" {
		return nil, errors.New("addr is required")
	}
	if srv.registry == nil {
		return nil, errors.New("registry is required")
	}
	if srv.dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if srv.monitor == nil {
		return nil, errors.New("monitor is required")
	}
	gin.SetMode(gin.ReleaseMode)
	srv.engine = gin.New()
	srv.engine.Use(gin.Recovery())
	srv.registerRoutes()
	return srv, nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.health)
	api := s.engine.Group("/api")
	{
		api.GET("/robots", s.robots)
		api.GET("/safety", s.safetyReport)
		api.POST("/stop", s.stop)
		api.POST("/resume", s.resume)
		api.POST("/speed-limit", s.speedLimit)
		api.GET("/watch", s.watch)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the bound listen address. It is empty until Run has bound
// the listener, and resolves the port when the configured address uses :0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Run serves the control API until ctx is cancelled. A bind failure is
// fatal and returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", s.addr)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	logger.WithField("addr", ln.Addr().String()).Info("control api listening")

	srv := &http.Server{Handler: s.engine}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "serve control api failed")
	case <-ctx.Done():
	}

	// Watch handlers hold hijacked connections that Shutdown will not
	// close; closing tells them to drain out first.
	close(s.closing)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown control api failed")
	}
	<-errc
	logger.Info("control api stopped")
	return ctx.Err()
}

// ErrorResponse is the payload for rejected requests.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the rejection code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// robotsResponse is the GET /api/robots payload.
type robotsResponse struct {
	Count  int               `json:"count"`
	Robots []registry.Detail `json:"robots"`
}

// commandResponse reports how many robots a broadcast reached.
type commandResponse struct {
	Delivered int `json:"delivered"`
}

// speedLimitRequest is the POST /api/speed-limit body. The limit is a
// pointer so an explicit zero passes the required check.
type speedLimitRequest struct {
	Limit *float64 `json:"limit" binding:"required,gte=0,lte=200"`
}

// watchFrame is one websocket watch feed frame.
type watchFrame struct {
	Robots []registry.Detail `json:"robots"`
	Safety safety.Report     `json:"safety"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// robots handles GET /api/robots.
func (s *Server) robots(c *gin.Context) {
	details := s.registry.SnapshotDetail()
	c.JSON(http.StatusOK, robotsResponse{
		Count:  len(details),
		Robots: details,
	})
}

// safetyReport handles GET /api/safety.
func (s *Server) safetyReport(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.LastReport())
}

// stop handles POST /api/stop: a global emergency stop.
func (s *Server) stop(c *gin.Context) {
	c.JSON(http.StatusOK, commandResponse{Delivered: s.dispatcher.StopAll()})
}

// resume handles POST /api/resume.
func (s *Server) resume(c *gin.Context) {
	c.JSON(http.StatusOK, commandResponse{Delivered: s.dispatcher.ResumeAll()})
}

// speedLimit handles POST /api/speed-limit.
func (s *Server) speedLimit(c *gin.Context) {
	var req speedLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, commandResponse{Delivered: s.dispatcher.SetSpeedLimit(*req.Limit)})
}

// watch handles GET /api/watch: it upgrades to a websocket and pushes
// snapshot frames on the safety monitor's cadence until the watcher goes
// away or the server shuts down.
func (s *Server) watch(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Warning("websocket upgrade failed")
		return
	}
	defer conn.Close()
	logger.WithField("watcher", conn.RemoteAddr().String()).Info("watcher connected")

	ticker := time.NewTicker(s.monitor.Interval())
	defer ticker.Stop()
	for {
		if err := s.pushFrame(conn); err != nil {
			logger.WithField("watcher", conn.RemoteAddr().String()).Debug("dropping watcher")
			return
		}
		select {
		case <-s.closing:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) pushFrame(conn *websocket.Conn) error {
	frame := watchFrame{
		Robots: s.registry.SnapshotDetail(),
		Safety: s.monitor.LastReport(),
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
