package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pdftranslate/audit"
	"pdftranslate/middleware"
	"pdftranslate/models"
)

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	fontCached := false
	if h.FontCached != nil {
		fontCached = h.FontCached()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"provider":   h.Provider,
		"fontCached": fontCached,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

// Logs 返回某天的审计记录，默认今天
func (h *Handler) Logs(c *gin.Context) {
	log := h.logger.WithField("requestId", middleware.GetRequestID(c))
	if h.Audit == nil {
		h.writeError(c, log, models.NewAppError(models.ErrInternal, "audit log is not configured", nil))
		return
	}

	date := c.DefaultQuery("date", h.Audit.Today())
	if _, err := time.Parse(audit.DateLayout, date); err != nil {
		h.writeError(c, log, models.NewAppErrorWithDetails(models.ErrInvalidInput, "date must be YYYY-MM-DD", date, err))
		return
	}

	records, err := h.Audit.Read(date)
	if err != nil {
		h.writeError(c, log, models.NewAppError(models.ErrInternal, "failed to read audit log", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    date,
		"count":   len(records),
		"records": records,
	})
}

// LogDates 列出有审计记录的日期
func (h *Handler) LogDates(c *gin.Context) {
	log := h.logger.WithField("requestId", middleware.GetRequestID(c))
	if h.Audit == nil {
		h.writeError(c, log, models.NewAppError(models.ErrInternal, "audit log is not configured", nil))
		return
	}

	dates, err := h.Audit.Dates()
	if err != nil {
		h.writeError(c, log, models.NewAppError(models.ErrInternal, "failed to list audit logs", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}
