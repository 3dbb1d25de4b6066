// Package layout 把翻译后的文本重新排版成分页的页面描述
//
// 坐标系与 PDF 一致：原点在左下角，Y 向上。引擎只产生页面描述，
// 不读写任何 PDF，渲染由 pdf 包完成。
package layout

import (
	"fmt"
	"strings"

	"pdftranslate/models"
)

const (
	// emptyParagraphAdvance 空段落下移的行高比例
	emptyParagraphAdvance = 0.5
	// paragraphSpacing 段落结束后额外下移的行高比例
	paragraphSpacing = 0.3
)

// Color RGB 颜色
type Color struct {
	R, G, B uint8
}

// White 页面背景色
var White = Color{R: 255, G: 255, B: 255}

// Line 一行文本，(X, Y) 为基线起点
type Line struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Page 一页的描述
type Page struct {
	Index      int                 `json:"index"`
	Geometry   models.PageGeometry `json:"geometry"`
	Original   bool                `json:"original"` // 对应原文档中的页
	Background Color               `json:"background"`
	Lines      []Line              `json:"lines"`
}

// Document 排版结果
type Document struct {
	Pages    []Page  `json:"pages"`
	FontSize float64 `json:"fontSize"`
}

// LineCount 全部页面的行数
func (d *Document) LineCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Lines)
	}
	return n
}

// Options 排版参数
type Options struct {
	FontSize   float64
	LineHeight float64 // 字号的倍数
	Margin     float64 // 四边相同
}

// Engine 排版引擎，无状态，可并发使用
type Engine struct {
	opts Options
}

// NewEngine 创建排版引擎
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// LineHeight 行高（点）
func (e *Engine) LineHeight() float64 {
	return e.opts.FontSize * e.opts.LineHeight
}

// FontSize 字号
func (e *Engine) FontSize() float64 {
	return e.opts.FontSize
}

// cursor 当前写入位置，仅在换页时重置
type cursor struct {
	pageIndex int
	y         float64
}

// reflowState 一次排版的状态
type reflowState struct {
	originals  []models.PageGeometry
	doc        *Document
	cur        cursor
	margin     float64
	lineHeight float64
}

// Reflow 按原页面尺寸排版文本
// 先使用原文档的页，用完后按第一页的尺寸追加新页；输出页数不少于原页数
func (e *Engine) Reflow(pages []models.PageGeometry, text string, m Measurer) (*Document, error) {
	if len(pages) == 0 {
		return nil, models.NewAppError(models.ErrInvalidInput, "document has no pages", nil)
	}
	for i, g := range pages {
		if g.Width <= 0 || g.Height <= 0 {
			return nil, models.NewAppError(models.ErrInvalidInput,
				fmt.Sprintf("page %d has invalid size %.2fx%.2f", i+1, g.Width, g.Height), nil)
		}
	}

	st := &reflowState{
		originals:  pages,
		doc:        &Document{FontSize: e.opts.FontSize},
		margin:     e.opts.Margin,
		lineHeight: e.LineHeight(),
	}
	st.preparePage()

	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimSuffix(paragraph, "\r")
		if strings.TrimSpace(paragraph) == "" {
			st.cur.y -= st.lineHeight * emptyParagraphAdvance
			continue
		}
		if err := st.layoutParagraph(paragraph, m); err != nil {
			return nil, err
		}
	}

	// 没用到的原页也要输出
	for len(st.doc.Pages) < len(pages) {
		st.preparePage()
	}

	return st.doc, nil
}

// layoutParagraph 按单词贪心折行
func (st *reflowState) layoutParagraph(paragraph string, m Measurer) error {
	line := ""
	for _, word := range strings.Fields(paragraph) {
		testLine := word
		if line != "" {
			testLine = line + " " + word
		}

		width, err := m.MeasureString(testLine)
		if err != nil {
			return models.NewAppError(models.ErrRender, "failed to measure text", err)
		}

		maxWidth := st.page().Geometry.Width - 2*st.margin
		if width > maxWidth && line != "" {
			st.drawLine(line)
			line = word
		} else {
			line = testLine
		}
	}

	if line != "" {
		st.drawLine(line)
	}
	st.cur.y -= st.lineHeight * paragraphSpacing
	return nil
}

// drawLine 在当前位置画一行，放不下时先换页
func (st *reflowState) drawLine(text string) {
	if st.cur.y < st.margin+st.lineHeight {
		st.preparePage()
	}

	page := st.page()
	page.Lines = append(page.Lines, Line{X: st.margin, Y: st.cur.y, Text: text})
	st.cur.y -= st.lineHeight
}

// preparePage 取下一张原页，没有则按第一页尺寸新建；铺白色背景并把光标放到顶部
func (st *reflowState) preparePage() {
	index := len(st.doc.Pages)
	geometry := st.originals[0]
	original := index < len(st.originals)
	if original {
		geometry = st.originals[index]
	}

	st.doc.Pages = append(st.doc.Pages, Page{
		Index:      index,
		Geometry:   geometry,
		Original:   original,
		Background: White,
	})
	st.cur = cursor{pageIndex: index, y: geometry.Height - st.margin}
}

func (st *reflowState) page() *Page {
	return &st.doc.Pages[st.cur.pageIndex]
}
