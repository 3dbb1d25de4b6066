package pdf

import (
	"bytes"
	"errors"
	"sync"

	"github.com/jung-kurt/gofpdf"

	"pdftranslate/layout"
	"pdftranslate/models"
)

const coreFontFamily = "Helvetica"

// FpdfRenderer 基于 jung-kurt/gofpdf 的渲染器
type FpdfRenderer struct{}

func (r *FpdfRenderer) Name() string { return "gofpdf" }

func (r *FpdfRenderer) SupportsCoreFonts() bool { return true }

// Render 每页使用自己的尺寸；gofpdf 原点在左上角，Y 需要翻转
func (r *FpdfRenderer) Render(doc *layout.Document, font FontSource, info models.DocumentInfo) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, renderError(r.Name(), errors.New("document has no pages"))
	}

	first := doc.Pages[0].Geometry
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	// 文档属性
	pdf.SetTitle(info.Title, true)
	pdf.SetAuthor(info.Author, true)
	pdf.SetSubject(info.Subject, true)
	pdf.SetCreator(Creator, true)

	family := coreFontFamily
	translate := func(s string) string { return s }
	if font.IsCore() {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	} else {
		family = font.family()
		pdf.AddUTF8FontFromBytes(family, "", font.Data)
	}
	if err := pdf.Error(); err != nil {
		return nil, renderError(r.Name(), err)
	}

	for _, page := range doc.Pages {
		g := page.Geometry
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: g.Width, Ht: g.Height})

		// 不透明背景覆盖整页
		bg := page.Background
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.Rect(0, 0, g.Width, g.Height, "F")

		pdf.SetFont(family, "", doc.FontSize)
		pdf.SetTextColor(0, 0, 0)
		for _, line := range page.Lines {
			pdf.Text(line.X, g.Height-line.Y, translate(line.Text))
		}

		if err := pdf.Error(); err != nil {
			return nil, renderError(r.Name(), err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, renderError(r.Name(), err)
	}
	return buf.Bytes(), nil
}

// CoreFontMeasurer 使用 gofpdf 内置 Helvetica 的字宽表测量文本
type CoreFontMeasurer struct {
	mu        sync.Mutex
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

// NewCoreFontMeasurer 创建内置字体测量器
func NewCoreFontMeasurer(fontSize float64) *CoreFontMeasurer {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont(coreFontFamily, "", fontSize)
	return &CoreFontMeasurer{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (m *CoreFontMeasurer) MeasureString(text string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	width := m.pdf.GetStringWidth(m.translate(text))
	if err := m.pdf.Error(); err != nil {
		return 0, err
	}
	return width, nil
}
