package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version identifiers reported by the version endpoint.
const (
	ServiceName    = "AI Bug Hunter & Code Analyzer"
	ServiceVersion = "2.0.0"
	APIVersion     = "v2"
)

// versionLastUpdated is stamped at process start.
var versionLastUpdated = time.Now().UTC()

// SystemHandler serves health and version probes.
type SystemHandler struct {
	db          *gorm.DB
	environment string
}

// NewSystemHandler constructs a system handler.
func NewSystemHandler(db *gorm.DB, environment string) *SystemHandler {
	return &SystemHandler{db: db, environment: environment}
}

// Health reports liveness, exercising the store with a trivial read.
func (h *SystemHandler) Health(c *gin.Context) {
	database := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	sqlDB, errDB := h.db.DB()
	if errDB != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		database = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   ServiceName,
		"version":   ServiceVersion,
		"database":  database,
		"timestamp": time.Now().UTC(),
	})
}

// Version reports the service version descriptor.
func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":      ServiceVersion,
		"api_version":  APIVersion,
		"environment":  h.environment,
		"last_updated": versionLastUpdated,
	})
}

// Root reports the API banner.
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": ServiceName + " API",
		"version": ServiceVersion,
		"status":  "running",
	})
}
