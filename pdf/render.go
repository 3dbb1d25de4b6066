package pdf

import (
	"fmt"

	"pdftranslate/layout"
	"pdftranslate/models"
)

// Creator 写入输出文档的 Creator
const Creator = "pdftranslate"

// DefaultFontFamily 嵌入字体在文档内的名称
const DefaultFontFamily = "NotoSans"

// FontSource 渲染字体，Data 为空时使用内置 Helvetica（仅 Latin-1）
type FontSource struct {
	Family string
	Data   []byte
}

// IsCore 是否使用内置字体
func (f FontSource) IsCore() bool {
	return len(f.Data) == 0
}

func (f FontSource) family() string {
	if f.Family == "" {
		return DefaultFontFamily
	}
	return f.Family
}

// Renderer 把页面描述渲染成 PDF 字节
type Renderer interface {
	Render(doc *layout.Document, font FontSource, info models.DocumentInfo) ([]byte, error)
	Name() string
	// SupportsCoreFonts 没有 TTF 时能否使用内置字体
	SupportsCoreFonts() bool
}

// NewRenderer 按名称创建渲染器
func NewRenderer(backend string) (Renderer, error) {
	switch backend {
	case "", "gofpdf":
		return &FpdfRenderer{}, nil
	case "gopdf":
		return &GopdfRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", backend)
	}
}

// CoreFontCovers 文本能否只用内置字体（cp1252 中与 Latin-1 重合的部分）显示
func CoreFontCovers(text string) bool {
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
		case r >= 0x20 && r < 0x7F:
		case r >= 0xA0 && r <= 0xFF:
		default:
			return false
		}
	}
	return true
}

func renderError(backend string, err error) error {
	return models.NewAppError(models.ErrRender, "failed to render PDF", fmt.Errorf("%s: %w", backend, err))
}
