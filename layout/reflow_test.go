package layout

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdftranslate/models"
)

const charWidth = 5.0

// fixedMeasurer 每个字符宽 5pt
var fixedMeasurer = MeasureFunc(func(text string) (float64, error) {
	return float64(utf8.RuneCountInString(text)) * charWidth, nil
})

// 600x800 页面，边距 50，行高 15：可写宽度 500（100 个字符），每页 46 行
var (
	testPage    = models.PageGeometry{Width: 600, Height: 800}
	testOptions = Options{FontSize: 10, LineHeight: 1.5, Margin: 50}
)

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestReflowOnePageBecomesFive(t *testing.T) {
	engine := NewEngine(testOptions)
	// 每行 20 个单词，共 200 行
	doc, err := engine.Reflow([]models.PageGeometry{testPage}, words(4000, "abcd"), fixedMeasurer)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 5)
	assert.Equal(t, 200, doc.LineCount())
	for i, p := range doc.Pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, testPage, p.Geometry)
		assert.Equal(t, White, p.Background)
		assert.Equal(t, i == 0, p.Original)
	}
	assert.Len(t, doc.Pages[0].Lines, 46)
	assert.Len(t, doc.Pages[4].Lines, 16)
}

func TestReflowPageBreakThreshold(t *testing.T) {
	engine := NewEngine(testOptions)
	doc, err := engine.Reflow([]models.PageGeometry{testPage}, words(3000, "abcd"), fixedMeasurer)
	require.NoError(t, err)

	limit := testOptions.Margin + engine.LineHeight()
	for _, p := range doc.Pages {
		require.NotEmpty(t, p.Lines)
		assert.Equal(t, p.Geometry.Height-testOptions.Margin, p.Lines[0].Y, "cursor resets to the top margin")
		prev := p.Lines[0].Y + 1
		for _, l := range p.Lines {
			assert.GreaterOrEqual(t, l.Y, limit)
			assert.Less(t, l.Y, prev, "cursor only moves down within a page")
			assert.Equal(t, testOptions.Margin, l.X)
			prev = l.Y
		}
	}
}

func TestReflowNoSpuriousWraps(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog while translation chunks arrive in order " +
		strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit ", 30)
	engine := NewEngine(testOptions)
	doc, err := engine.Reflow([]models.PageGeometry{testPage}, text, fixedMeasurer)
	require.NoError(t, err)

	maxWidth := testPage.Width - 2*testOptions.Margin
	var lines []string
	for _, p := range doc.Pages {
		for _, l := range p.Lines {
			lines = append(lines, l.Text)
		}
	}
	require.Greater(t, len(lines), 1)

	for i, line := range lines {
		width, _ := fixedMeasurer(line)
		assert.LessOrEqual(t, width, maxWidth)
		if i+1 < len(lines) {
			next := strings.Fields(lines[i+1])[0]
			grown, _ := fixedMeasurer(line + " " + next)
			assert.Greater(t, grown, maxWidth, "line %d could have held the next word", i)
		}
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(lines, " ")))
}

func TestReflowKeepsUnusedOriginalPages(t *testing.T) {
	pages := []models.PageGeometry{testPage, {Width: 300, Height: 400}, testPage}
	doc, err := NewEngine(testOptions).Reflow(pages, "short text", fixedMeasurer)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 3)
	assert.Len(t, doc.Pages[0].Lines, 1)
	for i, p := range doc.Pages {
		assert.True(t, p.Original)
		assert.Equal(t, pages[i], p.Geometry)
		assert.Equal(t, White, p.Background)
	}
	assert.Empty(t, doc.Pages[1].Lines)
	assert.Empty(t, doc.Pages[2].Lines)
}

func TestReflowOverflowClonesFirstPage(t *testing.T) {
	small := models.PageGeometry{Width: 300, Height: 200}
	pages := []models.PageGeometry{testPage, small}
	doc, err := NewEngine(testOptions).Reflow(pages, words(3000, "abcd"), fixedMeasurer)
	require.NoError(t, err)

	require.Greater(t, len(doc.Pages), 2)
	assert.Equal(t, small, doc.Pages[1].Geometry)
	for _, p := range doc.Pages[2:] {
		assert.Equal(t, testPage, p.Geometry)
		assert.False(t, p.Original)
	}
}

func TestReflowParagraphSpacing(t *testing.T) {
	engine := NewEngine(testOptions)
	doc, err := engine.Reflow([]models.PageGeometry{testPage}, "a\n\n\r\n   \nb\nc", fixedMeasurer)
	require.NoError(t, err)

	lh := engine.LineHeight()
	lines := doc.Pages[0].Lines
	require.Len(t, lines, 3)

	top := testPage.Height - testOptions.Margin
	assert.Equal(t, "a", lines[0].Text)
	assert.InDelta(t, top, lines[0].Y, 1e-9)

	// a 之后一行加段间距，再有三个空段落
	wantB := top - lh - 0.3*lh - 3*0.5*lh
	assert.Equal(t, "b", lines[1].Text)
	assert.InDelta(t, wantB, lines[1].Y, 1e-9)

	assert.InDelta(t, wantB-lh-0.3*lh, lines[2].Y, 1e-9)
}

func TestReflowOversizedWordDrawnAsIs(t *testing.T) {
	long := strings.Repeat("x", 150)
	doc, err := NewEngine(testOptions).Reflow([]models.PageGeometry{testPage}, "ab "+long+" cd", fixedMeasurer)
	require.NoError(t, err)

	lines := doc.Pages[0].Lines
	require.Len(t, lines, 3)
	assert.Equal(t, "ab", lines[0].Text)
	assert.Equal(t, long, lines[1].Text)
	assert.Equal(t, "cd", lines[2].Text)
}

func TestReflowEmptyParagraphsCanPushPastMargin(t *testing.T) {
	// 空段落不检查溢出，下一行触发换页
	text := strings.Repeat("\n", 200) + "tail"
	doc, err := NewEngine(testOptions).Reflow([]models.PageGeometry{testPage}, text, fixedMeasurer)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 2)
	assert.Empty(t, doc.Pages[0].Lines)
	require.Len(t, doc.Pages[1].Lines, 1)
	assert.Equal(t, testPage.Height-testOptions.Margin, doc.Pages[1].Lines[0].Y)
}

func TestReflowErrors(t *testing.T) {
	engine := NewEngine(testOptions)

	_, err := engine.Reflow(nil, "text", fixedMeasurer)
	assert.True(t, models.IsCode(err, models.ErrInvalidInput))

	_, err = engine.Reflow([]models.PageGeometry{{Width: 0, Height: 100}}, "text", fixedMeasurer)
	assert.True(t, models.IsCode(err, models.ErrInvalidInput))

	boom := errors.New("boom")
	failing := MeasureFunc(func(string) (float64, error) { return 0, boom })
	_, err = engine.Reflow([]models.PageGeometry{testPage}, "text", failing)
	assert.True(t, models.IsCode(err, models.ErrRender))
	assert.ErrorIs(t, err, boom)
}
