package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseURLForKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"0123-abcd:fx", DeepLFreeURL},
		{"0123-abcd", DeepLProURL},
		{"", DeepLProURL},
		{"fx", DeepLProURL},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseURLForKey(tt.key), tt.key)
	}
}

func TestNewProviderSelectsEndpoint(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: ProviderDeepL, APIKey: "k:fx"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DeepLFreeURL, p.(*DeepLProvider).BaseURL())

	p, err = NewProvider(ProviderConfig{Type: ProviderDeepL, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DeepLProURL, p.(*DeepLProvider).BaseURL())

	_, err = NewProvider(ProviderConfig{Type: "babel"}, nil)
	assert.Error(t, err)

	_, err = NewProvider(ProviderConfig{Type: ProviderLibreTranslate}, nil)
	assert.Error(t, err)
}

func TestDeepLProviderTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.PostForm.Get("auth_key"))
		assert.Equal(t, "Hello world", r.PostForm.Get("text"))
		assert.Equal(t, "DE", r.PostForm.Get("target_lang"))
		assert.Equal(t, "", r.PostForm.Get("source_lang"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Hallo Welt"}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{Type: ProviderDeepL, APIKey: "secret", APIURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), Request{Text: "Hello world", TargetLang: "de"})
	require.NoError(t, err)
	assert.Equal(t, "Hallo Welt", resp.Text)
	assert.Equal(t, "EN", resp.DetectedSourceLanguage)
}

func TestDeepLProviderSendsSourceLang(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "EN", r.PostForm.Get("source_lang"))
		assert.Equal(t, "PT-BR", r.PostForm.Get("target_lang"))
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Olá"}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{Type: ProviderDeepL, APIURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), Request{Text: "Hi", TargetLang: "pt-BR", SourceLang: "en-GB"})
	require.NoError(t, err)
}

func TestDeepLProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"quota", 456, `{"message":"Quota exceeded"}`, "Quota exceeded"},
		{"forbidden", http.StatusForbidden, `{"message":"Wrong endpoint"}`, "Wrong endpoint"},
		{"empty list", http.StatusOK, `{"translations":[]}`, "no translations returned"},
		{"not json", http.StatusOK, `<html>`, "malformed translation response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := NewProvider(ProviderConfig{Type: ProviderDeepL, APIURL: srv.URL}, srv.Client())
			require.NoError(t, err)

			_, err = p.Translate(context.Background(), Request{Text: "x", TargetLang: "DE"})
			require.Error(t, err)

			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Contains(t, remote.Message, tt.message)
		})
	}
}

func TestLibreTranslateProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body["q"])
		assert.Equal(t, "auto", body["source"])
		assert.Equal(t, "fr", body["target"])
		assert.Equal(t, "text", body["format"])
		assert.Equal(t, "key", body["api_key"])

		_, _ = w.Write([]byte(`{"translatedText":"Bonjour","detectedLanguage":{"confidence":90,"language":"en"}}`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{Type: ProviderLibreTranslate, APIURL: srv.URL, APIKey: "key"}, srv.Client())
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), Request{Text: "Hello", TargetLang: "FR"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", resp.Text)
	assert.Equal(t, "EN", resp.DetectedSourceLanguage)
}

func TestMapToLibreTranslateLanguageCode(t *testing.T) {
	assert.Equal(t, "en", mapToLibreTranslateLanguageCode("EN-US"))
	assert.Equal(t, "de", mapToLibreTranslateLanguageCode("de"))
	assert.Equal(t, "zt", mapToLibreTranslateLanguageCode("zh-Hant"))
	assert.Equal(t, "zh", mapToLibreTranslateLanguageCode("ZH"))
}

func TestValidateLanguage(t *testing.T) {
	for _, ok := range []string{"DE", "en-US", "pt_BR", "zh-Hans"} {
		assert.NoError(t, ValidateLanguage(ok), ok)
	}
	for _, bad := range []string{"", "  ", "not a language", "12"} {
		assert.Error(t, ValidateLanguage(bad), bad)
	}
}
