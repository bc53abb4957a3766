package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fitlink/fitlink-backend/internal/handlers"
	"github.com/fitlink/fitlink-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	TemplateHandler *handlers.TemplateHandler
	TaskHandler     *handlers.TaskHandler
	LogHandler      *handlers.LogHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Webhook-Token"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/webhooks/delivery", cfg.TaskHandler.DeliveryWebhook)

	// Tenant scoped
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireTenant())
	// Templates
	api.GET("/templates", cfg.TemplateHandler.List)
	api.POST("/templates", cfg.TemplateHandler.Create)
	api.PATCH("/templates/:id", cfg.TemplateHandler.Update)
	api.GET("/templates/:id/preview", cfg.TemplateHandler.Preview)
	// Tasks
	api.POST("/tasks/generate", cfg.TaskHandler.Generate)
	api.GET("/tasks", cfg.TaskHandler.List)
	api.POST("/tasks/:id/skip", cfg.TaskHandler.Skip)
	api.POST("/tasks/:id/delete", cfg.TaskHandler.Delete)
	api.POST("/tasks/:id/sent", cfg.TaskHandler.MarkSent)
	api.POST("/tasks/:id/dispatch", cfg.TaskHandler.Dispatch)
	api.POST("/tasks/:id/undo", cfg.TaskHandler.Undo)
	api.GET("/tasks/:id/logs", cfg.LogHandler.ListByTask)
	// Students
	api.GET("/students/:id/logs", cfg.LogHandler.ListByStudent)

	return router
}

func SplitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
