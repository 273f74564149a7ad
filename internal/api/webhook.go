package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tradehook/internal/engine"
	"tradehook/internal/events"
	"tradehook/internal/monitor"
	"tradehook/internal/signal"
	"tradehook/pkg/db"
)

const maxWebhookBody = 64 << 10

// handleWebhook is the pipeline entry point. Any payload yields exactly one
// response: success and rejections answer 200 so the sender does not retry a
// decision, execution failures answer 500.
func (s *Server) handleWebhook(c *gin.Context) {
	start := time.Now()

	if s.webhookToken != "" && c.GetHeader("X-Webhook-Token") != s.webhookToken {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  "invalid webhook token",
		})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to read request body",
		})
		return
	}

	sig := signal.Normalize(raw)
	monitor.SignalsReceived.WithLabelValues(sig.Symbol, string(sig.Action)).Inc()
	s.Bus.Publish(events.EventSignalReceived, events.SignalEvent{
		Topic:     events.EventSignalReceived,
		Symbol:    sig.Symbol,
		Action:    string(sig.Action),
		Amount:    sig.Amount,
		Price:     sig.Price,
		Strategy:  sig.Strategy,
		Timestamp: time.Now().UTC(),
	})

	if verdict := s.Gate.Validate(&sig); !verdict.Approved {
		monitor.SignalsRejected.WithLabelValues(sig.Symbol, "policy").Inc()
		s.Bus.Publish(events.EventSignalRejected, events.SignalEvent{
			Topic:     events.EventSignalRejected,
			Symbol:    sig.Symbol,
			Action:    string(sig.Action),
			Reason:    verdict.Reason,
			Strategy:  sig.Strategy,
			Timestamp: time.Now().UTC(),
		})
		s.recordSignal(sig, raw, "rejected", verdict.Reason)
		c.JSON(http.StatusOK, gin.H{
			"status": "rejected",
			"reason": verdict.Reason,
			"signal": sig,
		})
		return
	}

	result, err := s.Engine.ExecuteSignal(c.Request.Context(), &sig)
	elapsed := time.Since(start)
	monitor.ExecutionSeconds.Observe(elapsed.Seconds())

	if err != nil {
		if engine.IsRejection(err) {
			monitor.SignalsRejected.WithLabelValues(sig.Symbol, "risk").Inc()
			s.recordSignal(sig, raw, "rejected", err.Error())
			c.JSON(http.StatusOK, gin.H{
				"status": "rejected",
				"reason": err.Error(),
				"signal": sig,
			})
			return
		}
		monitor.OrdersFailed.WithLabelValues(sig.Symbol).Inc()
		s.recordSignal(sig, raw, "failed", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  err.Error(),
			"signal": sig,
		})
		return
	}

	monitor.OrdersExecuted.WithLabelValues(result.Symbol, result.Action).Inc()
	if result.Realized {
		s.Gate.RecordResult(result.PnL)
	}
	s.recordSignal(sig, raw, "executed", "")
	s.recordTrade(result, sig.Strategy)

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"signal":        sig,
		"result":        result,
		"executionTime": elapsed.String(),
	})
}

func (s *Server) recordSignal(sig signal.Signal, raw []byte, outcome, reason string) {
	if s.Queue == nil {
		return
	}
	s.Queue.EnqueueSignal(db.SignalRecord{
		ID:        uuid.NewString(),
		Symbol:    sig.Symbol,
		Action:    string(sig.Action),
		Outcome:   outcome,
		Reason:    reason,
		Raw:       string(raw),
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Server) recordTrade(result *engine.ExecutionResult, strategy string) {
	if s.Queue == nil {
		return
	}
	s.Queue.EnqueueTrade(db.TradeRecord{
		ID:        uuid.NewString(),
		OrderID:   result.OrderID,
		Symbol:    result.Symbol,
		Action:    result.Action,
		Amount:    result.Amount,
		Price:     result.Price,
		Status:    result.Status,
		Strategy:  strategy,
		CreatedAt: result.ExecutedAt,
	})
}
