package layout

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"pdftranslate/models"
)

func TestTrueTypeMeasurer(t *testing.T) {
	m, err := NewTrueTypeMeasurer(goregular.TTF, 11)
	require.NoError(t, err)

	empty, err := m.MeasureString("")
	require.NoError(t, err)
	assert.Zero(t, empty)

	narrow, err := m.MeasureString("iiii")
	require.NoError(t, err)
	wide, err := m.MeasureString("WWWW")
	require.NoError(t, err)
	assert.Greater(t, narrow, 0.0)
	assert.Greater(t, wide, narrow)

	// 字号 11 时一个字符不会超过一个 em
	one, err := m.MeasureString("M")
	require.NoError(t, err)
	assert.LessOrEqual(t, one, 11.0)

	longer, err := m.MeasureString("hello world")
	require.NoError(t, err)
	shorter, err := m.MeasureString("hello")
	require.NoError(t, err)
	assert.Greater(t, longer, shorter)
}

func TestTrueTypeMeasurerScalesWithSize(t *testing.T) {
	small, err := NewTrueTypeMeasurer(goregular.TTF, 10)
	require.NoError(t, err)
	large, err := NewTrueTypeMeasurer(goregular.TTF, 20)
	require.NoError(t, err)

	a, _ := small.MeasureString("Translation")
	b, _ := large.MeasureString("Translation")
	assert.InDelta(t, 2*a, b, 0.5)
}

func TestTrueTypeMeasurerConcurrent(t *testing.T) {
	m, err := NewTrueTypeMeasurer(goregular.TTF, 11)
	require.NoError(t, err)
	want, _ := m.MeasureString("concurrent measuring")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.MeasureString("concurrent measuring")
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestNewTrueTypeMeasurerRejectsGarbage(t *testing.T) {
	_, err := NewTrueTypeMeasurer([]byte("definitely not a font"), 11)
	assert.Error(t, err)
}

func TestTrueTypeFontMeasurersHaveOwnCache(t *testing.T) {
	f, err := ParseTrueTypeFont(goregular.TTF)
	require.NoError(t, err)

	first := f.NewMeasurer(11)
	for i := 0; i < 100; i++ {
		_, err := first.MeasureString(fmt.Sprintf("line number %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 100, first.CacheSize())

	second := f.NewMeasurer(11)
	assert.Zero(t, second.CacheSize())

	want, err := first.MeasureString("line number 7")
	require.NoError(t, err)
	got, err := second.MeasureString("line number 7")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, second.CacheSize())
}

func TestReflowWithFreshMeasurersDoesNotAccumulate(t *testing.T) {
	f, err := ParseTrueTypeFont(goregular.TTF)
	require.NoError(t, err)
	engine := NewEngine(Options{FontSize: 11, LineHeight: 1.6, Margin: 50})
	pages := []models.PageGeometry{{Width: 595, Height: 842}}

	sizes := make([]int, 0, 5)
	for job := 0; job < 5; job++ {
		words := make([]string, 500)
		for i := range words {
			words[i] = fmt.Sprintf("w%d-%d", job, i)
		}
		m := f.NewMeasurer(11)
		_, err := engine.Reflow(pages, strings.Join(words, " "), m)
		require.NoError(t, err)
		sizes = append(sizes, m.CacheSize())
	}

	// 每个任务的缓存只包含本任务的文本
	for _, n := range sizes[1:] {
		assert.InDelta(t, sizes[0], n, float64(sizes[0])/2)
	}
}
