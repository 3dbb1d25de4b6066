package translator

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"pdftranslate/layout"
	"pdftranslate/models"
	"pdftranslate/pdf"
)

// TextExtractor 从 PDF 中读取文本和页面尺寸
type TextExtractor interface {
	Extract(data []byte) (*models.SourceDocument, *models.ExtractedText, error)
}

// TextTranslator 翻译全文
type TextTranslator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) (models.TranslationResult, error)
}

// FontProvider 提供渲染字体
type FontProvider interface {
	EnsureFont(ctx context.Context) ([]byte, error)
}

// DocumentTranslator 文档翻译流程：提取 → 校验 → 翻译 → 排版 → 渲染
type DocumentTranslator struct {
	Extractor  TextExtractor
	Translator TextTranslator
	Fonts      FontProvider
	Engine     *layout.Engine
	Renderer   pdf.Renderer

	logger logrus.FieldLogger

	fontMu sync.Mutex
	font   *layout.TrueTypeFont
}

// NewDocumentTranslator 创建文档翻译器
func NewDocumentTranslator(extractor TextExtractor, translator TextTranslator, fonts FontProvider,
	engine *layout.Engine, renderer pdf.Renderer, logger logrus.FieldLogger) *DocumentTranslator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DocumentTranslator{
		Extractor:  extractor,
		Translator: translator,
		Fonts:      fonts,
		Engine:     engine,
		Renderer:   renderer,
		logger:     logger,
	}
}

// Translate 执行一次翻译任务，每个请求独立，不保留状态
func (dt *DocumentTranslator) Translate(ctx context.Context, job models.TranslateJob) (*models.JobResult, error) {
	if len(job.Data) == 0 {
		return nil, models.NewAppError(models.ErrInvalidInput, "no file uploaded", nil)
	}
	if strings.TrimSpace(job.TargetLang) == "" {
		return nil, models.NewAppError(models.ErrInvalidInput, "target language is required", nil)
	}
	mode, ok := models.ParseOutputMode(string(job.Mode))
	if !ok {
		return nil, models.NewAppErrorWithDetails(models.ErrInvalidInput, "invalid output mode", string(job.Mode), nil)
	}

	start := time.Now()
	log := dt.logger.WithFields(logrus.Fields{
		"file":       job.Filename,
		"targetLang": job.TargetLang,
		"mode":       mode,
	})

	// 1. 提取
	source, extracted, err := dt.Extractor.Extract(job.Data)
	if err != nil {
		return nil, err
	}

	// 2. 校验
	if strings.TrimSpace(extracted.Text) == "" {
		return nil, models.NewAppError(models.ErrNoExtractableText,
			"no extractable text found: the document may be scanned or image-only", nil)
	}
	charCount := utf8.RuneCountInString(extracted.Text)
	log.WithFields(logrus.Fields{
		"pages":      extracted.PageCount,
		"characters": charCount,
	}).Info("text extracted")

	// 3. 翻译全文
	if job.NoCache {
		ctx = WithoutCache(ctx)
	}
	translation, err := dt.Translator.Translate(ctx, extracted.Text, job.TargetLang, job.SourceLang)
	if err != nil {
		return nil, err
	}

	sourceLang := job.SourceLang
	if sourceLang == "" {
		sourceLang = translation.DetectedSourceLanguage
	}

	result := &models.JobResult{
		OriginalText:   extracted.Text,
		TranslatedText: translation.TranslatedText,
		SourceLanguage: strings.ToUpper(sourceLang),
		TargetLanguage: strings.ToUpper(job.TargetLang),
		PageCount:      extracted.PageCount,
		CharacterCount: charCount,
	}

	// 4. JSON 模式到此结束
	if mode == models.OutputJSON {
		log.WithField("duration", time.Since(start).String()).Info("translation finished")
		return result, nil
	}

	// 5. 重新排版并渲染
	font, measurer, err := dt.prepareFont(ctx, translation.TranslatedText)
	if err != nil {
		return nil, err
	}

	doc, err := dt.Engine.Reflow(source.Pages, translation.TranslatedText, measurer)
	if err != nil {
		return nil, err
	}

	data, err := dt.Renderer.Render(doc, font, extracted.Info)
	if err != nil {
		return nil, err
	}

	result.PDF = data
	result.Filename = OutputFilename(job.Filename)
	result.OutputPages = len(doc.Pages)

	log.WithFields(logrus.Fields{
		"inputPages":  len(source.Pages),
		"outputPages": len(doc.Pages),
		"lines":       doc.LineCount(),
		"bytes":       len(data),
		"duration":    time.Since(start).String(),
	}).Info("translation finished")

	return result, nil
}

// prepareFont 获取 TTF 字体；下载失败时，若文本都在 Latin-1 内且渲染器支持，退回内置 Helvetica
func (dt *DocumentTranslator) prepareFont(ctx context.Context, text string) (pdf.FontSource, layout.Measurer, error) {
	data, err := dt.Fonts.EnsureFont(ctx)
	if err != nil {
		if dt.Renderer.SupportsCoreFonts() && pdf.CoreFontCovers(text) {
			dt.logger.WithError(err).Warn("font unavailable, falling back to core Helvetica")
			return pdf.FontSource{}, pdf.NewCoreFontMeasurer(dt.Engine.FontSize()), nil
		}
		return pdf.FontSource{}, nil, err
	}

	ttf, err := dt.trueTypeFont(data)
	if err != nil {
		return pdf.FontSource{}, nil, models.NewAppError(models.ErrFontUnavailable, "font file is not a usable TrueType font", err)
	}
	// 每个任务使用自己的测量器，宽度缓存随任务结束释放
	return pdf.FontSource{Family: pdf.DefaultFontFamily, Data: data}, ttf.NewMeasurer(dt.Engine.FontSize()), nil
}

// trueTypeFont 字体在进程内只解析一次
func (dt *DocumentTranslator) trueTypeFont(data []byte) (*layout.TrueTypeFont, error) {
	dt.fontMu.Lock()
	defer dt.fontMu.Unlock()

	if dt.font != nil {
		return dt.font, nil
	}
	f, err := layout.ParseTrueTypeFont(data)
	if err != nil {
		return nil, err
	}
	dt.font = f
	return f, nil
}

// OutputFilename 输出文件名 translated_<原文件名>.pdf
func OutputFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '"', '/', '\\', '\r', '\n':
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." {
		base = "document"
	}
	return "translated_" + base + ".pdf"
}
