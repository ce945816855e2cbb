package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/fileserver-admin/api/controllers"
	"github.com/moyoez/fileserver-admin/api/middlewares"
	"github.com/moyoez/fileserver-admin/metrics"
	"github.com/moyoez/fileserver-admin/notify"
	"github.com/moyoez/fileserver-admin/panel"
	"github.com/moyoez/fileserver-admin/tool"
)

// Server is the local panel backend. It only answers loopback clients.
type Server struct {
	port  int
	panel *panel.Controller
	hub   *notify.Hub // nil disables /notify-ws

	mu     sync.RWMutex
	server *http.Server
}

// NewServer creates a panel server on port. hub may be nil.
func NewServer(port int, p *panel.Controller, hub *notify.Hub) *Server {
	return &Server{
		port:  port,
		panel: p,
		hub:   hub,
	}
}

// Handler builds the gin engine with all routes.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares.RequestLogger)

	pc := controllers.NewPanelController(s.panel)

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", pc.HandleStatus)               // state, health, banner, progress
		self.POST("/login", pc.HandleLogin)                // JSON credentials
		self.POST("/logout", pc.HandleLogout)              // clears the saved token
		self.GET("/files", pc.HandleListFiles)             // ?folder= selects the filter and reloads
		self.GET("/files/:fileId", pc.HandleFileInfo)      // server metadata
		self.DELETE("/files/:fileId", pc.HandleDelete)     // ?confirmed=true required
		self.GET("/search", pc.HandleSearch)               // ?term= filters loaded rows
		self.POST("/search", pc.HandleServerSearch)        // server-side search
		self.POST("/upload", pc.HandleUpload)              // multipart "files" + "folder"
		self.GET("/download/:fileId", pc.HandleDownload)   // streamed with Content-Disposition
		self.GET("/view", pc.HandleView)                   // ?url= redirects to the file
		self.GET("/create-qr-code", pc.HandleQRCode)       // PNG QR code of a file link
		self.GET("/metrics", gin.WrapH(metrics.Handler())) // Prometheus
		if s.hub != nil && notify.Enabled() {
			self.GET("/notify-ws", controllers.HandleNotifyWS(s.hub))
		}
	}
	return engine
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting panel server on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("panel server failed: %v", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
