package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/kocahmet1/ultrasat-progress/internal/http/handlers"
	httpMW "github.com/kocahmet1/ultrasat-progress/internal/http/middleware"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	Log         *logger.Logger

	ProgressHandler *httpH.ProgressHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		if cfg.ProgressHandler != nil {
			api.POST("/attempts", cfg.ProgressHandler.RecordAttempt)
			api.POST("/exams/progress", cfg.ProgressHandler.RecordExamProgress)

			api.GET("/users/:user_id/stats", cfg.ProgressHandler.GetStats)
			api.GET("/users/:user_id/progress", cfg.ProgressHandler.ListProgress)
			api.GET("/users/:user_id/progress/:subcategory_id", cfg.ProgressHandler.GetSubcategoryProgress)
		}
	}

	return r
}
