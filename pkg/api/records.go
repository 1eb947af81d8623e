package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fooddelivery/pkg/database"
	"fooddelivery/pkg/guard"
	"fooddelivery/pkg/models"
)

func parseKind(c *gin.Context) (models.Kind, bool) {
	kind, err := models.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return 0, false
	}
	return kind, true
}

// writeError maps persistence errors of create and update to status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case database.IsDuplicateKey(err):
		c.JSON(http.StatusConflict, gin.H{"error": "record with the same unique value already exists"})
	case database.IsForeignKeyViolation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "referenced record does not exist"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) listRecords(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "50"))
	if err != nil || size < 1 || size > 100 {
		size = 50
	}

	db := h.db.WithContext(c.Request.Context())
	var total int64
	if err := db.Model(kind.New()).Count(&total).Error; err != nil {
		writeError(c, err)
		return
	}

	items := kind.NewSlice()
	if err := db.Order("id").Offset((page - 1) * size).Limit(size).Find(items).Error; err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": total,
		"items":         items,
	})
}

func (h *Handler) getRecord(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	record := kind.New()
	if err := h.db.WithContext(c.Request.Context()).First(record, id).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) createRecord(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	switch kind {
	case models.KindOrder:
		h.placeOrder(c)
		return
	case models.KindStatus:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "statuses are a fixed list"})
		return
	}

	record := kind.New()
	if err := c.ShouldBindJSON(record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Omit(clause.Associations).Create(record).Error; err != nil {
		writeError(c, err)
		return
	}
	h.invalidateStats(c)
	c.JSON(http.StatusCreated, record)
}

// updateRecord replaces every column except the id and creation time.
func (h *Handler) updateRecord(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	if kind == models.KindStatus {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "statuses are a fixed list"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	existing := kind.New()
	if err := db.First(existing, id).Error; err != nil {
		writeError(c, err)
		return
	}

	patch := kind.New()
	if err := c.ShouldBindJSON(patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := db.Model(existing).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(patch).Error
	if err != nil {
		writeError(c, err)
		return
	}

	if err := db.First(existing, id).Error; err != nil {
		writeError(c, err)
		return
	}
	h.invalidateStats(c)
	c.JSON(http.StatusOK, existing)
}

func (h *Handler) getDependents(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	dependents, err := h.guard.CheckDependents(c.Request.Context(), kind, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":       kind.String(),
		"id":         id,
		"dependents": dependents,
	})
}

func (h *Handler) deleteRecord(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	res := h.guard.Delete(c.Request.Context(), kind, id)

	status := http.StatusOK
	switch res.Outcome {
	case guard.OutcomeBlocked, guard.OutcomeReferenced:
		status = http.StatusConflict
	case guard.OutcomeFailed:
		status = http.StatusInternalServerError
	}
	c.JSON(status, res)
}

func (h *Handler) invalidateStats(c *gin.Context) {
	if err := h.stats.Invalidate(c.Request.Context()); err != nil {
		h.log.WithError(err).Warn("failed to invalidate cached statistics")
	}
}
