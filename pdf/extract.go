// Package pdf 负责读取上传的 PDF（文本、元数据、页面尺寸）和渲染排版结果
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	dslipakpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"pdftranslate/models"
)

// A4 页面尺寸，在无法读取 MediaBox 时使用
var A4 = models.PageGeometry{Width: 595.28, Height: 841.89}

// pageSeparator 页与页之间的分隔
const pageSeparator = "\n\n"

// Extractor 文本提取器
// ledongthuc/pdf 为主，失败或没有文本时用 dslipak/pdf 再试一次；页面尺寸由 pdfcpu 读取
type Extractor struct {
	logger logrus.FieldLogger
}

// NewExtractor 创建提取器
func NewExtractor(logger logrus.FieldLogger) *Extractor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Extractor{logger: logger}
}

// parsed 某个解析库的提取结果
type parsed struct {
	name   string
	pages  []string
	info   models.DocumentInfo
	boxes  []models.PageGeometry
	chars  int
	parseE error
}

// Extract 读取文档
// 返回的文本可能为空（扫描件），由调用方决定如何处理；只有完全无法解析时才返回 ErrExtraction
func (e *Extractor) Extract(data []byte) (*models.SourceDocument, *models.ExtractedText, error) {
	if len(data) == 0 {
		return nil, nil, models.NewAppError(models.ErrInvalidInput, "uploaded file is empty", nil)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, nil, models.NewAppError(models.ErrExtraction, "file is not a PDF document", nil)
	}

	primary := e.parseLedongthuc(data)
	best := primary
	if primary.parseE != nil || primary.chars == 0 {
		fallback := e.parseDslipak(data)
		if fallback.parseE == nil && (best.parseE != nil || fallback.chars > best.chars) {
			e.logger.WithField("parser", fallback.name).Info("using fallback text extraction")
			// 元数据和 MediaBox 保留主解析器的结果
			if best.parseE == nil {
				fallback.info = best.info
				fallback.boxes = best.boxes
			}
			best = fallback
		}
	}
	if best.parseE != nil {
		return nil, nil, models.NewAppError(models.ErrExtraction, "unable to parse PDF document", best.parseE)
	}

	geometry, err := PageGeometries(data)
	if err != nil {
		e.logger.WithError(err).Warn("pdfcpu could not read page dimensions, using MediaBox")
		geometry = best.boxes
	}
	if len(geometry) == 0 {
		geometry = make([]models.PageGeometry, max(len(best.pages), 1))
		for i := range geometry {
			geometry[i] = A4
		}
	}

	text := normalizeText(strings.Join(best.pages, pageSeparator))

	e.logger.WithFields(logrus.Fields{
		"parser":     best.name,
		"pages":      len(geometry),
		"characters": len([]rune(text)),
	}).Debug("pdf extracted")

	return &models.SourceDocument{Data: data, Pages: geometry},
		&models.ExtractedText{Text: text, PageCount: len(geometry), Info: best.info},
		nil
}

func (e *Extractor) parseLedongthuc(data []byte) (result parsed) {
	result.name = "ledongthuc/pdf"
	defer func() {
		if r := recover(); r != nil {
			result.parseE = fmt.Errorf("%s panicked: %v", result.name, r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.parseE = err
		return result
	}

	result.info = documentInfo(reader.Trailer().Key("Info"))

	pageCount := reader.NumPage()
	result.pages = make([]string, 0, pageCount)
	result.boxes = make([]models.PageGeometry, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		result.boxes = append(result.boxes, mediaBox(page.V))
		if page.V.IsNull() {
			result.pages = append(result.pages, "")
			continue
		}

		text, err := safePlainText(func() (string, error) { return page.GetPlainText(nil) })
		if err != nil {
			e.logger.WithError(err).WithField("page", i).Warn("failed to extract page text")
			text = ""
		}
		result.pages = append(result.pages, cleanPageText(text))
		result.chars += countVisible(text)
	}
	return result
}

func (e *Extractor) parseDslipak(data []byte) (result parsed) {
	result.name = "dslipak/pdf"
	defer func() {
		if r := recover(); r != nil {
			result.parseE = fmt.Errorf("%s panicked: %v", result.name, r)
		}
	}()

	reader, err := dslipakpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.parseE = err
		return result
	}

	pageCount := reader.NumPage()
	result.pages = make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		text, err := safePlainText(func() (string, error) { return page.GetPlainText(nil) })
		if err != nil {
			e.logger.WithError(err).WithField("page", i).Warn("dslipak/pdf failed to extract page text")
			text = ""
		}
		result.pages = append(result.pages, cleanPageText(text))
		result.chars += countVisible(text)
	}
	return result
}

// safePlainText 单页提取出错不影响其他页
func safePlainText(fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while extracting text: %v", r)
		}
	}()
	return fn()
}

// PageGeometries 用 pdfcpu 读取每页的 MediaBox 尺寸（宽松校验模式）
func PageGeometries(data []byte) ([]models.PageGeometry, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, errors.New("document has no pages")
	}

	pages := make([]models.PageGeometry, len(dims))
	for i, d := range dims {
		pages[i] = models.PageGeometry{Width: d.Width, Height: d.Height}
	}
	return pages, nil
}

// mediaBox 读取页面（含继承）的 MediaBox，缺失时为 A4
func mediaBox(page lpdf.Value) models.PageGeometry {
	for v, depth := page, 0; !v.IsNull() && depth < 32; v, depth = v.Key("Parent"), depth+1 {
		box := v.Key("MediaBox")
		if box.Len() != 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return models.PageGeometry{Width: w, Height: h}
		}
	}
	return A4
}

// documentInfo 读取 Info 字典
func documentInfo(info lpdf.Value) models.DocumentInfo {
	if info.IsNull() {
		return models.DocumentInfo{}
	}
	return models.DocumentInfo{
		Title:    strings.TrimSpace(info.Key("Title").Text()),
		Author:   strings.TrimSpace(info.Key("Author").Text()),
		Subject:  strings.TrimSpace(info.Key("Subject").Text()),
		Creator:  strings.TrimSpace(info.Key("Creator").Text()),
		Producer: strings.TrimSpace(info.Key("Producer").Text()),
	}
}

// cleanPageText 统一换行，去掉行尾空白和页首尾空行
func cleanPageText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// normalizeText NFC 规范化，去掉 NUL
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return norm.NFC.String(text)
}

func countVisible(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) && unicode.IsPrint(r) {
			n++
		}
	}
	return n
}
