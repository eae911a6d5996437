package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trade-automator/src/baseline"
	"trade-automator/src/helpers"
	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
	"trade-automator/src/periodstore"
	"trade-automator/src/stream"
)

// -----------------------------------------------------------------------------
// PushServer
// -----------------------------------------------------------------------------

type PushServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Hub    *Hub
	engine *gin.Engine

	Periods   *periodstore.Store
	Baselines *baseline.Calculator
	Streams   *stream.MultiStreamManager
	Triggers  interfaces.ITriggerStore

	httpServer *http.Server
	sessionSeq atomic.Int64
	startedAt  time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewPushServer(cfg *models.MConfig, hub *Hub, periods *periodstore.Store,
	baselines *baseline.Calculator, streams *stream.MultiStreamManager,
	triggers interfaces.ITriggerStore, log *logger.Logger) *PushServer {

	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &PushServer{
		Config:    cfg,
		Logger:    log,
		Hub:       hub,
		engine:    gin.Default(),
		Periods:   periods,
		Baselines: baselines,
		Streams:   streams,
		Triggers:  triggers,
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *PushServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/triggers", s.getTriggers)
	s.engine.GET("/api/streams", s.getStreams)
	s.engine.POST("/api/streams/:id/start", s.startStream)
	s.engine.POST("/api/streams/:id/stop", s.stopStream)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *PushServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)
	s.startedAt = time.Now()

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *PushServer) Stop() error {
	for _, sess := range s.Hub.Sessions() {
		s.Hub.UnregisterSession(sess.ID)
		sess.CloseNormal("server shutting down")
	}
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// WebSocket Handling
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *PushServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	id := fmt.Sprintf("%s#%d", c.ClientIP(), s.sessionSeq.Add(1))
	session := NewSession(id, s.Hub, conn)
	s.Hub.RegisterSession(session)

	go session.writePump()
	go session.readPump()
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *PushServer) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":           "ok",
		"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
		"connections":      s.Hub.ConnectionCount(),
		"periods":          s.Periods.Len(),
		"cached_baselines": s.Baselines.CachedLen(),
		"streams":          s.Streams.Health(),
		"system_memory_mb": helpers.GetTotalSystemMemoryMB(),
	})
}

// -----------------------------------------------------------------------------

func (s *PushServer) getConfig(c *gin.Context) {
	// Strategy money fields are operator-owned; exposing them read-only is fine
	// on a loopback-bound admin surface.
	c.JSON(200, gin.H{
		"strategies": s.Config.Strategies,
		"streams":    s.Config.Feed.Streams,
	})
}

// -----------------------------------------------------------------------------

func (s *PushServer) getTriggers(c *gin.Context) {
	periodParam := c.Query("period")
	if periodParam == "" {
		c.JSON(400, gin.H{"error": "period query parameter required"})
		return
	}

	period, err := strconv.ParseInt(periodParam, 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "period must be a unix timestamp"})
		return
	}

	records, err := s.Triggers.ListByPeriod(period)
	if err != nil {
		s.Logger.Error("Trigger listing failed: %v", err)
		c.JSON(500, gin.H{"error": "trigger store unavailable"})
		return
	}

	c.JSON(200, gin.H{"period": period, "triggers": records})
}

// -----------------------------------------------------------------------------

func (s *PushServer) getStreams(c *gin.Context) {
	c.JSON(200, gin.H{"streams": s.Streams.Health()})
}

func (s *PushServer) startStream(c *gin.Context) {
	id := c.Param("id")
	if err := s.Streams.StartStream(id); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "started", "id": id})
}

func (s *PushServer) stopStream(c *gin.Context) {
	id := c.Param("id")
	if err := s.Streams.StopStream(id); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "stopped", "id": id})
}
