package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradehook/internal/admin"
	"tradehook/internal/risk"
	"tradehook/pkg/db"
)

const (
	settingKeyPolicy = "policy_settings"
	settingKeyRisk   = "risk_settings"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}
	if err := checkPassword(s.passwordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	expiresAt := time.Now().Add(24 * time.Hour)
	token, err := generateToken(s.jwtSecret, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt.UTC(),
	})
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"venue":      s.Meta.Venue,
		"instanceId": s.Meta.InstanceID,
		"version":    s.Meta.Version,
		"running":    s.Engine.Running(),
		"startedAt":  s.startedAt,
		"positions":  s.Engine.Ledger().Len(),
	})
}

func (s *Server) getPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.Engine.Ledger().All()})
}

func (s *Server) getBrackets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"brackets": s.Engine.Watcher().Armed()})
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"daily":     s.Gate.Stats(),
		"positions": s.Engine.Ledger().Len(),
	})
}

func (s *Server) getTrades(c *gin.Context) {
	trades, err := s.DB.ListTrades(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) getSignals(c *gin.Context) {
	signals, err := s.DB.ListSignals(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (s *Server) getPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, s.Gate.Settings())
}

func (s *Server) updatePolicy(c *gin.Context) {
	var settings admin.PolicySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid policy settings: " + err.Error()})
		return
	}
	s.Gate.UpdateSettings(settings)
	s.persistSetting(settingKeyPolicy, settings)
	c.JSON(http.StatusOK, s.Gate.Settings())
}

func (s *Server) getRiskSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.RiskMgr.Settings())
}

func (s *Server) updateRiskSettings(c *gin.Context) {
	var settings risk.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid risk settings: " + err.Error()})
		return
	}
	s.RiskMgr.UpdateSettings(settings)
	s.persistSetting(settingKeyRisk, settings)
	c.JSON(http.StatusOK, s.RiskMgr.Settings())
}

func (s *Server) getWebhookConfig(c *gin.Context) {
	s.stateMu.Lock()
	webhook := s.appState.Webhook
	s.stateMu.Unlock()
	c.JSON(http.StatusOK, gin.H{"webhook": webhook})
}

type webhookConfigRequest struct {
	URL    string            `json:"url" binding:"required"`
	Secret string            `json:"secret"`
	Routes map[string]string `json:"routes"`
}

// updateWebhookConfig registers the inbound webhook and persists the full
// state document as a single queued write.
func (s *Server) updateWebhookConfig(c *gin.Context) {
	var req webhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook config: " + err.Error()})
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	s.stateMu.Lock()
	if s.appState.Webhook == nil {
		s.appState.Webhook = &db.WebhookState{CreatedAt: now}
	}
	s.appState.Webhook.URL = req.URL
	s.appState.Webhook.Secret = req.Secret
	s.appState.Webhook.Routes = req.Routes
	s.appState.Webhook.UpdatedAt = now
	snapshot := *s.appState
	webhook := *s.appState.Webhook
	snapshot.Webhook = &webhook
	s.stateMu.Unlock()

	if s.Queue != nil {
		s.Queue.EnqueueAppState(&snapshot)
	}
	c.JSON(http.StatusOK, gin.H{"webhook": snapshot.Webhook})
}

func (s *Server) startEngine(c *gin.Context) {
	s.Engine.Start()
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (s *Server) stopEngine(c *gin.Context) {
	s.Engine.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (s *Server) persistSetting(key string, value any) {
	if s.Queue == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.Queue.EnqueueSetting(key, string(raw))
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		return 100
	}
	return limit
}
