package models

// PageGeometry 页面尺寸（PDF 点）
type PageGeometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DocumentInfo 文档元数据
type DocumentInfo struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`
}

// SourceDocument 上传的原始文档，加载后不再修改
type SourceDocument struct {
	Data  []byte
	Pages []PageGeometry
}

// ExtractedText 提取结果，每个请求只产生一次
type ExtractedText struct {
	Text      string       `json:"text"`
	PageCount int          `json:"pageCount"`
	Info      DocumentInfo `json:"info"`
}

// OutputMode 输出模式
type OutputMode string

const (
	OutputJSON OutputMode = "json"
	OutputPDF  OutputMode = "pdf"
)

// ParseOutputMode 解析输出模式，空值默认为 JSON
func ParseOutputMode(s string) (OutputMode, bool) {
	switch OutputMode(s) {
	case "", OutputJSON:
		return OutputJSON, true
	case OutputPDF:
		return OutputPDF, true
	default:
		return "", false
	}
}

// TranslateJob 一次翻译任务的输入
type TranslateJob struct {
	Data       []byte
	Filename   string
	TargetLang string
	SourceLang string
	Mode       OutputMode
	NoCache    bool
}

// JobResult 翻译任务的输出
type JobResult struct {
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	PageCount      int    `json:"pageCount"`
	CharacterCount int    `json:"characterCount"`

	// 仅 PDF 模式
	PDF         []byte `json:"-"`
	Filename    string `json:"-"`
	OutputPages int    `json:"outputPages,omitempty"`
}
