package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fooddelivery/pkg/database"
	"fooddelivery/pkg/guard"
	"fooddelivery/pkg/orders"
	"fooddelivery/pkg/stats"
)

type Handler struct {
	db     *gorm.DB
	guard  *guard.Guard
	orders *orders.Service
	stats  *stats.Service
	log    logrus.FieldLogger
}

func NewHandler(db *gorm.DB, g *guard.Guard, o *orders.Service, s *stats.Service, log logrus.FieldLogger) *Handler {
	return &Handler{db: db, guard: g, orders: o, stats: s, log: log}
}

func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log), corsMiddleware())

	r.GET("/manage/health", h.healthCheck)

	v1 := r.Group("/api/v1")
	v1.GET("/stats", h.getStats)

	v1.GET("/orders", h.listOrders)
	v1.POST("/orders", h.placeOrder)
	v1.GET("/orders/:id", h.getOrder)
	v1.PATCH("/orders/:id/status", h.setOrderStatus)

	records := v1.Group("/records/:kind")
	records.GET("", h.listRecords)
	records.POST("", h.createRecord)
	records.GET("/:id", h.getRecord)
	records.PUT("/:id", h.updateRecord)
	records.DELETE("/:id", h.deleteRecord)
	records.GET("/:id/dependents", h.getDependents)

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	})
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request handled")
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	if err := database.Ping(h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"details": "Database is reachable",
	})
}

func (h *Handler) getStats(c *gin.Context) {
	summary, err := h.stats.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}
