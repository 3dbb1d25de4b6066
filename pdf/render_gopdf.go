package pdf

import (
	"errors"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"pdftranslate/layout"
	"pdftranslate/models"
)

// GopdfRenderer 基于 signintech/gopdf 的渲染器，必须提供 TTF 字体
type GopdfRenderer struct{}

func (r *GopdfRenderer) Name() string { return "gopdf" }

func (r *GopdfRenderer) SupportsCoreFonts() bool { return false }

// Render gopdf 原点在左上角，Text 以当前 Y 为基线
func (r *GopdfRenderer) Render(doc *layout.Document, font FontSource, info models.DocumentInfo) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, renderError(r.Name(), errors.New("document has no pages"))
	}
	if font.IsCore() {
		return nil, renderError(r.Name(), errors.New("a TrueType font is required"))
	}

	first := doc.Pages[0].Geometry
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		PageSize: gopdf.Rect{W: first.Width, H: first.Height},
		Unit:     gopdf.UnitPT,
	})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:        info.Title,
		Author:       info.Author,
		Subject:      info.Subject,
		Creator:      Creator,
		Producer:     Creator,
		CreationDate: time.Now(),
	})

	family := font.family()
	if err := pdf.AddTTFFontData(family, font.Data); err != nil {
		return nil, renderError(r.Name(), fmt.Errorf("add font: %w", err))
	}

	for _, page := range doc.Pages {
		g := page.Geometry
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: g.Width, H: g.Height}})

		bg := page.Background
		pdf.SetFillColor(bg.R, bg.G, bg.B)
		pdf.RectFromUpperLeftWithStyle(0, 0, g.Width, g.Height, "F")

		if err := pdf.SetFont(family, "", doc.FontSize); err != nil {
			return nil, renderError(r.Name(), fmt.Errorf("set font: %w", err))
		}
		pdf.SetTextColor(0, 0, 0)
		for i, line := range page.Lines {
			pdf.SetXY(line.X, g.Height-line.Y)
			if err := pdf.Text(line.Text); err != nil {
				return nil, renderError(r.Name(), fmt.Errorf("page %d line %d: %w", page.Index+1, i+1, err))
			}
		}
	}

	data, err := pdf.GetBytesPdfReturnErr()
	if err != nil {
		return nil, renderError(r.Name(), err)
	}
	return data, nil
}
