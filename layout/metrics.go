package layout

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Measurer 测量一行文本在当前字体和字号下的宽度（点）
type Measurer interface {
	MeasureString(text string) (float64, error)
}

// MeasureFunc 函数形式的 Measurer
type MeasureFunc func(text string) (float64, error)

func (f MeasureFunc) MeasureString(text string) (float64, error) {
	return f(text)
}

// TrueTypeFont 解析后的 TTF 字体，可在进程内共享
type TrueTypeFont struct {
	font *truetype.Font
}

// ParseTrueTypeFont 解析字体数据
func ParseTrueTypeFont(fontData []byte) (*TrueTypeFont, error) {
	ttfFont, err := truetype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &TrueTypeFont{font: ttfFont}, nil
}

// NewMeasurer 创建 72 DPI 的测量器，宽度缓存只属于这个测量器
func (f *TrueTypeFont) NewMeasurer(fontSize float64) *TrueTypeMeasurer {
	return &TrueTypeMeasurer{
		font: f.font,
		face: truetype.NewFace(f.font, &truetype.Options{
			Size: fontSize,
			DPI:  72, // PDF 使用 72 DPI
		}),
		fontSize:   fontSize,
		widthCache: make(map[string]float64),
	}
}

// TrueTypeMeasurer 使用 TTF 字形步进计算宽度，结果按文本缓存
// 缓存随测量器释放，每次排版使用新的测量器
type TrueTypeMeasurer struct {
	font     *truetype.Font
	face     font.Face
	fontSize float64

	faceMu     sync.Mutex
	mutex      sync.RWMutex
	widthCache map[string]float64
}

// NewTrueTypeMeasurer 解析字体数据并创建测量器
func NewTrueTypeMeasurer(fontData []byte, fontSize float64) (*TrueTypeMeasurer, error) {
	f, err := ParseTrueTypeFont(fontData)
	if err != nil {
		return nil, err
	}
	return f.NewMeasurer(fontSize), nil
}

// MeasureString 计算文本宽度，含字距调整
func (m *TrueTypeMeasurer) MeasureString(text string) (float64, error) {
	if text == "" {
		return 0, nil
	}

	m.mutex.RLock()
	if width, ok := m.widthCache[text]; ok {
		m.mutex.RUnlock()
		return width, nil
	}
	m.mutex.RUnlock()

	width := m.calculate(text)

	m.mutex.Lock()
	m.widthCache[text] = width
	m.mutex.Unlock()

	return width, nil
}

// calculate truetype 的 face 不是并发安全的
func (m *TrueTypeMeasurer) calculate(text string) float64 {
	m.faceMu.Lock()
	defer m.faceMu.Unlock()

	total := fixed.Int26_6(0)
	prev := rune(-1)
	for _, r := range text {
		if m.font.Index(r) == 0 {
			// 缺失字形按 notdef 步进
			if advance, ok := m.face.GlyphAdvance(0xFFFD); ok {
				total += advance
			}
			prev = -1
			continue
		}
		if advance, ok := m.face.GlyphAdvance(r); ok {
			total += advance
		}
		if prev >= 0 {
			total += m.face.Kern(prev, r)
		}
		prev = r
	}

	return float64(total) / 64.0
}

// FontSize 字号
func (m *TrueTypeMeasurer) FontSize() float64 {
	return m.fontSize
}

// CacheSize 已缓存的宽度条目数
func (m *TrueTypeMeasurer) CacheSize() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.widthCache)
}
