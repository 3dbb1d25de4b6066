package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// ProviderType 翻译服务类型
type ProviderType string

const (
	ProviderDeepL          ProviderType = "deepl"
	ProviderLibreTranslate ProviderType = "libretranslate"
)

const (
	DeepLFreeURL = "https://api-free.deepl.com/v2/translate"
	DeepLProURL  = "https://api.deepl.com/v2/translate"
)

// Request 单次翻译请求（一个块）
type Request struct {
	Text       string
	TargetLang string
	SourceLang string // 为空时由服务自动检测
}

// Response 单次翻译响应
type Response struct {
	Text                   string `json:"text"`
	DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
}

// Provider 翻译服务接口
type Provider interface {
	Translate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// ProviderConfig 提供商配置
type ProviderConfig struct {
	Type   ProviderType `json:"type"`
	APIKey string       `json:"apiKey"`
	APIURL string       `json:"apiUrl"`
}

// RemoteError 翻译服务返回的错误
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("translation service returned %d: %s", e.StatusCode, e.Message)
}

// BaseProvider 基础提供商实现
type BaseProvider struct {
	Config     ProviderConfig
	HTTPClient *http.Client
}

// NewProvider 创建提供商实例，超时由调用方的 context 控制
func NewProvider(config ProviderConfig, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{}
	}
	base := &BaseProvider{Config: config, HTTPClient: client}

	switch config.Type {
	case ProviderDeepL:
		return NewDeepLProvider(base), nil
	case ProviderLibreTranslate:
		if config.APIURL == "" {
			return nil, fmt.Errorf("libretranslate requires an api url")
		}
		return &LibreTranslateProvider{BaseProvider: base}, nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// doRequest 执行 HTTP 请求，非 200 响应返回 RemoteError
func (b *BaseProvider) doRequest(req *http.Request) ([]byte, error) {
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read translation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(body, resp.Status)}
	}

	return body, nil
}

// remoteMessage 从错误响应体里取出服务给出的说明
func remoteMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		return text
	}
	return fallback
}

// DeepLProvider DeepL 翻译服务
type DeepLProvider struct {
	*BaseProvider
	baseURL string
}

// NewDeepLProvider 创建 DeepL 提供商，未指定 APIURL 时按密钥选择端点
func NewDeepLProvider(base *BaseProvider) *DeepLProvider {
	baseURL := base.Config.APIURL
	if baseURL == "" {
		baseURL = BaseURLForKey(base.Config.APIKey)
	}
	return &DeepLProvider{BaseProvider: base, baseURL: baseURL}
}

// BaseURLForKey 以 ":fx" 结尾的是免费版密钥
func BaseURLForKey(authKey string) string {
	if strings.HasSuffix(authKey, ":fx") {
		return DeepLFreeURL
	}
	return DeepLProURL
}

func (p *DeepLProvider) Name() string {
	return string(ProviderDeepL)
}

// BaseURL 实际使用的端点
func (p *DeepLProvider) BaseURL() string {
	return p.baseURL
}

func (p *DeepLProvider) Translate(ctx context.Context, r Request) (Response, error) {
	form := url.Values{}
	form.Set("auth_key", p.Config.APIKey)
	form.Set("text", r.Text)
	form.Set("target_lang", toDeepLCode(r.TargetLang))
	if r.SourceLang != "" {
		form.Set("source_lang", toDeepLSourceCode(r.SourceLang))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := p.doRequest(req)
	if err != nil {
		return Response{}, err
	}

	var resp struct {
		Translations []struct {
			Text                   string `json:"text"`
			DetectedSourceLanguage string `json:"detected_source_language"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, &RemoteError{Message: fmt.Sprintf("malformed translation response: %v", err)}
	}
	if len(resp.Translations) == 0 {
		return Response{}, &RemoteError{Message: "malformed translation response: no translations returned"}
	}

	first := resp.Translations[0]
	return Response{
		Text:                   first.Text,
		DetectedSourceLanguage: first.DetectedSourceLanguage,
	}, nil
}

// toDeepLCode DeepL 使用大写代码，如 DE、EN-US、PT-BR
func toDeepLCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// toDeepLSourceCode 源语言只接受基础语言，不带地区
func toDeepLSourceCode(code string) string {
	code = toDeepLCode(code)
	if i := strings.IndexByte(code, '-'); i > 0 {
		return code[:i]
	}
	return code
}

// LibreTranslateProvider LibreTranslate 提供商
type LibreTranslateProvider struct {
	*BaseProvider
}

func (p *LibreTranslateProvider) Name() string {
	return string(ProviderLibreTranslate)
}

func (p *LibreTranslateProvider) Translate(ctx context.Context, r Request) (Response, error) {
	sourceLangCode := "auto"
	if r.SourceLang != "" {
		sourceLangCode = mapToLibreTranslateLanguageCode(r.SourceLang)
	}

	reqBody := map[string]interface{}{
		"q":      r.Text,
		"source": sourceLangCode,
		"target": mapToLibreTranslateLanguageCode(r.TargetLang),
		"format": "text",
	}
	if p.Config.APIKey != "" {
		reqBody["api_key"] = p.Config.APIKey
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Config.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := p.doRequest(req)
	if err != nil {
		return Response{}, err
	}

	var resp struct {
		TranslatedText   string `json:"translatedText"`
		DetectedLanguage *struct {
			Language string `json:"language"`
		} `json:"detectedLanguage,omitempty"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, &RemoteError{Message: fmt.Sprintf("malformed translation response: %v", err)}
	}
	if resp.Error != "" {
		return Response{}, &RemoteError{Message: resp.Error}
	}

	out := Response{Text: resp.TranslatedText}
	if resp.DetectedLanguage != nil {
		out.DetectedSourceLanguage = strings.ToUpper(resp.DetectedLanguage.Language)
	}
	return out, nil
}

// mapToLibreTranslateLanguageCode LibreTranslate 使用小写基础语言代码
func mapToLibreTranslateLanguageCode(code string) string {
	switch strings.ToLower(code) {
	case "zh-hant", "zh-tw", "zh-hk":
		return "zt"
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}

// ValidateLanguage 校验语言代码是否为合法的 BCP 47 标签
func ValidateLanguage(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("language code is empty")
	}
	if _, err := language.Parse(strings.ReplaceAll(code, "_", "-")); err != nil {
		return fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return nil
}
