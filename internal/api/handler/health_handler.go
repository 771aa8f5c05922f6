package handler

import (
	"net/http"

	"github.com/cuongbtq/notify-pipeline/internal/notifier"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports the enqueue mode and broker connectivity
type HealthHandler struct {
	serviceName string
	notifier    notifier.Notifier
	broker      BrokerStatus
}

func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		serviceName: deps.ServiceName,
		notifier:    deps.Notifier,
		broker:      deps.Broker,
	}
}

// Health handles GET /health. A disconnected broker reports degraded but
// still returns 200 since enqueues fall back to direct execution.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": h.serviceName,
		"mode":    h.notifier.Mode(),
	}

	if h.broker != nil {
		connected := h.broker.IsConnected()
		resp["rabbitmq"] = gin.H{
			"connected": connected,
			"blocked":   h.broker.Blocked(),
		}
		if !connected {
			resp["status"] = "degraded"
		}
	}

	c.JSON(http.StatusOK, resp)
}
