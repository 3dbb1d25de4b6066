package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pdftranslate/middleware"
	"pdftranslate/models"
	"pdftranslate/translator"
)

// formOverhead multipart 表单除文件外的余量
const formOverhead = 1 << 20

// JobRunner 执行翻译任务
type JobRunner interface {
	Translate(ctx context.Context, job models.TranslateJob) (*models.JobResult, error)
}

// AuditLog 审计记录存储
type AuditLog interface {
	Append(record models.AuditRecord) error
	Read(date string) ([]models.AuditRecord, error)
	Dates() ([]string, error)
	Today() string
}

// Handler HTTP 处理器
type Handler struct {
	Jobs           JobRunner
	Audit          AuditLog
	MaxUploadBytes int64
	Provider       string
	FontCached     func() bool

	logger logrus.FieldLogger
}

// NewHandler 创建处理器
func NewHandler(jobs JobRunner, audit AuditLog, maxUploadBytes int64, provider string, fontCached func() bool, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Jobs:           jobs,
		Audit:          audit,
		MaxUploadBytes: maxUploadBytes,
		Provider:       provider,
		FontCached:     fontCached,
		logger:         logger,
	}
}

// Register 注册路由
func (h *Handler) Register(r gin.IRouter, adminToken string) {
	api := r.Group("/api")
	{
		api.POST("/translate", h.Translate)
		api.GET("/health", h.Health)

		admin := api.Group("/admin", middleware.AdminAuth(adminToken))
		admin.GET("/logs", h.Logs)
		admin.GET("/logs/dates", h.LogDates)
	}
}

// Translate 处理翻译请求：同步执行，JSON 或 PDF 响应
func (h *Handler) Translate(c *gin.Context) {
	log := h.logger.WithField("requestId", middleware.GetRequestID(c))

	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+formOverhead)
	}

	// 解析表单
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.writeError(c, log, h.tooLarge())
			return
		}
		h.writeError(c, log, models.NewAppError(models.ErrInvalidInput, "no file uploaded", err))
		return
	}

	// 检查文件类型
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".pdf" {
		h.writeError(c, log, models.NewAppErrorWithDetails(models.ErrInvalidInput, "only .pdf files are supported", ext, nil))
		return
	}
	if h.MaxUploadBytes > 0 && file.Size > h.MaxUploadBytes {
		h.writeError(c, log, h.tooLarge())
		return
	}

	targetLang := strings.TrimSpace(c.PostForm("target_lang"))
	if targetLang == "" {
		h.writeError(c, log, models.NewAppError(models.ErrInvalidInput, "target_lang is required", nil))
		return
	}
	if err := translator.ValidateLanguage(targetLang); err != nil {
		h.writeError(c, log, models.NewAppErrorWithDetails(models.ErrInvalidInput, "invalid target_lang", targetLang, err))
		return
	}

	sourceLang := strings.TrimSpace(c.PostForm("source_lang"))
	if sourceLang != "" {
		if err := translator.ValidateLanguage(sourceLang); err != nil {
			h.writeError(c, log, models.NewAppErrorWithDetails(models.ErrInvalidInput, "invalid source_lang", sourceLang, err))
			return
		}
	}

	mode, ok := models.ParseOutputMode(strings.ToLower(strings.TrimSpace(c.PostForm("output"))))
	if !ok {
		h.writeError(c, log, models.NewAppErrorWithDetails(models.ErrInvalidInput, "output must be json or pdf", c.PostForm("output"), nil))
		return
	}

	noCache := false
	if v := strings.TrimSpace(c.PostForm("no_cache")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(c, log, models.NewAppErrorWithDetails(models.ErrInvalidInput, "no_cache must be a boolean", v, err))
			return
		}
		noCache = parsed
	}

	data, err := readUpload(file)
	if err != nil {
		h.writeError(c, log, models.NewAppError(models.ErrInvalidInput, "failed to read uploaded file", err))
		return
	}

	log.WithFields(logrus.Fields{
		"file":       file.Filename,
		"size":       len(data),
		"targetLang": targetLang,
		"output":     mode,
	}).Info("translation requested")

	result, err := h.Jobs.Translate(c.Request.Context(), models.TranslateJob{
		Data:       data,
		Filename:   file.Filename,
		TargetLang: targetLang,
		SourceLang: sourceLang,
		Mode:       mode,
		NoCache:    noCache,
	})
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	h.recordAudit(c, log, file.Filename, mode, result)

	if mode == models.OutputPDF {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
		c.Header("Content-Length", strconv.Itoa(len(result.PDF)))
		c.Data(http.StatusOK, "application/pdf", result.PDF)
		return
	}

	c.JSON(http.StatusOK, result)
}

// recordAudit 写审计记录，失败只记日志
func (h *Handler) recordAudit(c *gin.Context, log logrus.FieldLogger, filename string, mode models.OutputMode, result *models.JobResult) {
	if h.Audit == nil {
		return
	}
	record := models.AuditRecord{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		RequestID:      middleware.GetRequestID(c),
		ClientIP:       c.ClientIP(),
		SourceLanguage: result.SourceLanguage,
		TargetLanguage: result.TargetLanguage,
		PageCount:      result.PageCount,
		CharacterCount: result.CharacterCount,
		Filename:       filename,
		Output:         string(mode),
	}
	if err := h.Audit.Append(record); err != nil {
		log.WithError(err).Warn("failed to write audit record")
	}
}

func (h *Handler) tooLarge() error {
	return models.NewAppErrorWithDetails(models.ErrFileTooLarge, "uploaded file is too large",
		fmt.Sprintf("limit is %d MB", h.MaxUploadBytes>>20), nil)
}

// writeError 用户只看到 Message 和 Details，完整错误链写日志
func (h *Handler) writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewAppError(models.ErrInternal, "internal server error", err)
	}

	status := appErr.Code.HTTPStatus()
	entry := log.WithError(err).WithFields(logrus.Fields{"code": appErr.Code, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Error("translation request failed")
	} else {
		entry.Warn("translation request rejected")
	}

	message := appErr.Message
	if appErr.Details != "" {
		message += ": " + appErr.Details
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error":     message,
		"code":      appErr.Code,
		"requestId": middleware.GetRequestID(c),
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
