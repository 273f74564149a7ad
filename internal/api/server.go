package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tradehook/internal/admin"
	"tradehook/internal/engine"
	"tradehook/internal/events"
	"tradehook/internal/monitor"
	"tradehook/internal/persist"
	"tradehook/internal/risk"
	"tradehook/pkg/db"
)

// Server wires HTTP endpoints around the signal pipeline.
type Server struct {
	Router  *gin.Engine
	Bus     *events.Bus
	DB      *db.Database
	Gate    *admin.Gate
	RiskMgr *risk.Manager
	Engine  *engine.Engine
	Queue   *persist.Queue
	Meta    SystemMeta

	webhookToken string
	jwtSecret    string
	passwordHash string
	startedAt    time.Time

	stateMu  sync.Mutex
	appState *db.AppState
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	Venue      string
	InstanceID string
	Version    string
}

// Options carry the credentials the server enforces and the durable state
// document restored at startup.
type Options struct {
	WebhookToken  string
	JWTSecret     string
	AdminPassword string
	AppState      *db.AppState
}

func NewServer(bus *events.Bus, database *db.Database, gate *admin.Gate, riskMgr *risk.Manager, eng *engine.Engine, queue *persist.Queue, meta SystemMeta, opts Options) (*Server, error) {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	hash, err := hashPassword(opts.AdminPassword)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Router:       r,
		Bus:          bus,
		DB:           database,
		Gate:         gate,
		RiskMgr:      riskMgr,
		Engine:       eng,
		Queue:        queue,
		Meta:         meta,
		webhookToken: opts.WebhookToken,
		jwtSecret:    opts.JWTSecret,
		passwordHash: hash,
		startedAt:    time.Now().UTC(),
		appState:     opts.AppState,
	}
	if s.appState == nil {
		s.appState = &db.AppState{}
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/metrics", gin.WrapH(monitor.Handler()))
	s.Router.GET("/ws", s.websocket)

	s.Router.POST("/webhook", s.handleWebhook)

	api := s.Router.Group("/api")
	{
		api.POST("/auth/login", s.login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.jwtSecret))
		{
			protected.GET("/system/status", s.getSystemStatus)
			protected.GET("/positions", s.getPositions)
			protected.GET("/brackets", s.getBrackets)
			protected.GET("/stats", s.getStats)
			protected.GET("/trades", s.getTrades)
			protected.GET("/signals", s.getSignals)
			protected.GET("/admin/webhook", s.getWebhookConfig)
			protected.PUT("/admin/webhook", s.updateWebhookConfig)
			protected.GET("/admin/policy", s.getPolicy)
			protected.PUT("/admin/policy", s.updatePolicy)
			protected.GET("/admin/risk", s.getRiskSettings)
			protected.PUT("/admin/risk", s.updateRiskSettings)
			protected.POST("/engine/start", s.startEngine)
			protected.POST("/engine/stop", s.stopEngine)
		}
	}
}
