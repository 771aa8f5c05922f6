package router

import (
	"github.com/cuongbtq/notify-pipeline/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	health := handler.NewHealthHandler(deps)
	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	notifications := handler.NewNotificationHandler(deps)

	v1 := r.Group("/api/v1")
	{
		n := v1.Group("/notifications")
		{
			n.POST("/otp-email", notifications.OTPEmail)
			n.POST("/task-assignment", notifications.TaskAssignment)
			n.POST("/task-created", notifications.TaskCreated)
			n.POST("/task-status", notifications.TaskStatus)
			n.POST("/task-deleted", notifications.TaskDeleted)
		}

		if deps.Messages != nil {
			messages := handler.NewMessageHandler(deps)
			v1.GET("/rooms/:room/messages", messages.ListRoomMessages)
		}
	}

	return r
}
