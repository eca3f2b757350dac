package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hostel/internal/config"
	"hostel/internal/hostel"
	"hostel/internal/photos"
	"hostel/internal/store"
)

// Handler carries the dependencies of the HTTP layer.
type Handler struct {
	svc    *hostel.Service
	photos *photos.Store
	db     *store.DB
	cache  *store.Redis
	cfg    config.App
	log    *zap.Logger
}

// New creates a handler.
func New(svc *hostel.Service, ph *photos.Store, db *store.DB, cache *store.Redis, cfg config.App, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, photos: ph, db: db, cache: cache, cfg: cfg, log: log}
}

// fail writes err using the three-way error contract: invalid input is a
// 400, a domain rule failure stays a 200 with success=false and a message,
// anything else is logged and becomes a generic 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve hostel.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ve.Error()})
		return
	}
	var be hostel.BusinessError
	if errors.As(err, &be) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": be.Error()})
		return
	}
	h.log.Error("storage failure",
		zap.String("method", c.Request.Method), zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func okMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// idParam parses the numeric :id path segment; on failure it has already
// written the 400.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// Healthz reports store and redis connectivity. Redis is optional (rate
// limiting falls back to memory), so only the database gates the status.
func (h *Handler) Healthz(c *gin.Context) {
	dbHealthy := h.db.Healthy(c.Request.Context())
	redisHealthy := h.cache.Healthy(c.Request.Context())
	status := http.StatusOK
	state := "ok"
	if !dbHealthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "db": dbHealthy, "redis": redisHealthy})
}
