package models

// TranslationChunk 按位置切分的文本块，Index 是重组顺序
type TranslationChunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// TranslationResult 整个任务的翻译结果
// DetectedSourceLanguage 只取第一个块的检测结果
type TranslationResult struct {
	TranslatedText         string `json:"translatedText"`
	DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
}

// AuditRecord 每个完成的任务写入一条审计记录
type AuditRecord struct {
	Timestamp      string `json:"timestamp"`
	RequestID      string `json:"requestId,omitempty"`
	ClientIP       string `json:"clientIp"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	PageCount      int    `json:"pageCount"`
	CharacterCount int    `json:"characterCount"`
	Filename       string `json:"filename"`
	Output         string `json:"output"`
}
