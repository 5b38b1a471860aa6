package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	httpx "github.com/kocahmet1/ultrasat-progress/internal/http"
	"github.com/kocahmet1/ultrasat-progress/internal/http/handlers"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

func wireRouter(db *gorm.DB, log *logger.Logger, serviceName string, svc Services) *gin.Engine {
	log.Info("Wiring router...")
	return httpx.NewRouter(httpx.RouterConfig{
		ServiceName:     serviceName,
		Log:             log,
		ProgressHandler: handlers.NewProgressHandler(svc.Progress),
		HealthHandler:   handlers.NewHealthHandler(pingDB(db)),
	})
}
