package translator

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pdftranslate/models"
)

// ChunkingTranslator 把超长文本按块顺序翻译后拼接
type ChunkingTranslator struct {
	Provider  Provider
	ChunkSize int
	Timeout   time.Duration
	// PinDetectedSource 为 true 时把第一个块检测到的语言作为后续块的源语言
	PinDetectedSource bool

	logger logrus.FieldLogger
}

// NewChunkingTranslator 创建分块翻译器
func NewChunkingTranslator(provider Provider, chunkSize int, timeout time.Duration, logger logrus.FieldLogger) *ChunkingTranslator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChunkingTranslator{
		Provider:  provider,
		ChunkSize: chunkSize,
		Timeout:   timeout,
		logger:    logger,
	}
}

// Translate 翻译全文
// 块按序号依次翻译，任何一块失败整个任务失败，不重试，已完成的部分丢弃
func (c *ChunkingTranslator) Translate(ctx context.Context, text, targetLang, sourceLang string) (models.TranslationResult, error) {
	if text == "" {
		return models.TranslationResult{}, models.NewAppError(models.ErrInvalidInput, "text to translate is empty", nil)
	}
	if targetLang == "" {
		return models.TranslationResult{}, models.NewAppError(models.ErrInvalidInput, "target language is required", nil)
	}

	chunks := SplitChunks(text, c.ChunkSize)
	log := c.logger.WithFields(logrus.Fields{
		"provider":   c.Provider.Name(),
		"chunks":     len(chunks),
		"targetLang": targetLang,
	})
	if len(chunks) > 1 {
		log.Info("translating text in chunks")
	}

	var (
		out      strings.Builder
		detected string
	)
	out.Grow(len(text))

	for _, chunk := range chunks {
		req := Request{
			Text:       chunk.Text,
			TargetLang: targetLang,
			SourceLang: sourceLang,
		}
		if chunk.Index > 0 && sourceLang == "" && c.PinDetectedSource {
			req.SourceLang = detected
		}

		resp, err := c.translateChunk(ctx, req)
		if err != nil {
			log.WithError(err).WithField("chunk", chunk.Index).Error("chunk translation failed")
			return models.TranslationResult{}, classifyError(err)
		}

		switch {
		case chunk.Index == 0:
			detected = resp.DetectedSourceLanguage
		case sourceLang == "" && resp.DetectedSourceLanguage != "" &&
			!strings.EqualFold(resp.DetectedSourceLanguage, detected):
			log.WithFields(logrus.Fields{
				"chunk":    chunk.Index,
				"detected": resp.DetectedSourceLanguage,
				"first":    detected,
			}).Warn("chunk detected a different source language")
		}

		out.WriteString(resp.Text)
	}

	return models.TranslationResult{
		TranslatedText:         out.String(),
		DetectedSourceLanguage: detected,
	}, nil
}

// translateChunk 单块调用带独立超时
func (c *ChunkingTranslator) translateChunk(ctx context.Context, req Request) (Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Provider.Translate(ctx, req)
}

// classifyError 把提供商错误归类为超时或被拒绝
func classifyError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewAppError(models.ErrTranslationTimeout,
			"translation timed out: the text may be too long or the service too slow", err)
	}
	if errors.Is(err, context.Canceled) {
		return models.NewAppError(models.ErrCanceled,
			"translation canceled: the client closed the request", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewAppError(models.ErrTranslationTimeout,
			"translation timed out: the text may be too long or the service too slow", err)
	}

	var remote *RemoteError
	if errors.As(err, &remote) {
		return models.NewAppErrorWithDetails(models.ErrTranslationRejected,
			"translation service rejected the request", remote.Message, err)
	}
	return models.NewAppErrorWithDetails(models.ErrTranslationRejected,
		"translation service unavailable", err.Error(), err)
}
