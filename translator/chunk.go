package translator

import (
	"unicode/utf8"

	"pdftranslate/models"
)

// SplitChunks 按位置把文本切成不超过 limit 个字符的连续子串
// 计数单位是 rune，不会切开多字节字符；按 Index 顺序拼接即得原文
func SplitChunks(text string, limit int) []models.TranslationChunk {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []models.TranslationChunk{{Index: 0, Text: text}}
	}

	var chunks []models.TranslationChunk
	start, n := 0, 0
	for i := range text {
		if n == limit {
			chunks = append(chunks, models.TranslationChunk{Index: len(chunks), Text: text[start:i]})
			start, n = i, 0
		}
		n++
	}
	chunks = append(chunks, models.TranslationChunk{Index: len(chunks), Text: text[start:]})
	return chunks
}
