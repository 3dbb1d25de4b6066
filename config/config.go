// Package config 负责加载服务配置：默认值 → YAML 文件 → 环境变量
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath 配置文件路径环境变量
	EnvConfigPath = "PDFTRANSLATE_CONFIG"

	DefaultAddr        = ":8080"
	DefaultMaxUploadMB = 20
	DefaultProvider    = "deepl"
	// DefaultChunkSize 低于 DeepL 单次请求上限
	DefaultChunkSize       = 45000
	DefaultTimeout         = 60 * time.Second
	DefaultFontURL         = "https://github.com/googlefonts/noto-fonts/raw/main/hinted/ttf/NotoSans/NotoSans-Regular.ttf"
	DefaultFontCachePath   = "data/fonts/NotoSans-Regular.ttf"
	DefaultDownloadTimeout = 30 * time.Second
	DefaultFontSize        = 11.0
	DefaultLineHeight      = 1.6
	DefaultMargin          = 50.0
	DefaultRenderBackend   = "gofpdf"
	DefaultAuditDir        = "data/logs"
)

// Config 服务配置
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Translation TranslationConfig `yaml:"translation"`
	Fonts       FontsConfig       `yaml:"fonts"`
	Layout      LayoutConfig      `yaml:"layout"`
	Render      RenderConfig      `yaml:"render"`
	Audit       AuditConfig       `yaml:"audit"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
	AdminToken  string `yaml:"admin_token"`
	Mode        string `yaml:"mode"` // gin 模式: debug, release, test
}

type TranslationConfig struct {
	Provider  string        `yaml:"provider"` // deepl, libretranslate
	AuthKey   string        `yaml:"auth_key"`
	APIURL    string        `yaml:"api_url"` // 为空时 deepl 按密钥选择
	ChunkSize int           `yaml:"chunk_size"`
	Timeout   time.Duration `yaml:"timeout"`
	// PinDetectedSource 把第一个块检测到的源语言传给后续块
	PinDetectedSource bool   `yaml:"pin_detected_source"`
	CacheDir          string `yaml:"cache_dir"`
}

type FontsConfig struct {
	URL             string        `yaml:"url"`
	CachePath       string        `yaml:"cache_path"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

type LayoutConfig struct {
	FontSize   float64 `yaml:"font_size"`
	LineHeight float64 `yaml:"line_height"` // 行高倍数
	Margin     float64 `yaml:"margin"`
}

type RenderConfig struct {
	Backend string `yaml:"backend"` // gofpdf, gopdf
}

type AuditConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        DefaultAddr,
			MaxUploadMB: DefaultMaxUploadMB,
			Mode:        "release",
		},
		Translation: TranslationConfig{
			Provider:  DefaultProvider,
			ChunkSize: DefaultChunkSize,
			Timeout:   DefaultTimeout,
		},
		Fonts: FontsConfig{
			URL:             DefaultFontURL,
			CachePath:       DefaultFontCachePath,
			DownloadTimeout: DefaultDownloadTimeout,
		},
		Layout: LayoutConfig{
			FontSize:   DefaultFontSize,
			LineHeight: DefaultLineHeight,
			Margin:     DefaultMargin,
		},
		Render: RenderConfig{Backend: DefaultRenderBackend},
		Audit:  AuditConfig{Dir: DefaultAuditDir},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load 加载配置，path 为空时读取 PDFTRANSLATE_CONFIG，文件不存在则只用默认值和环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// 使用默认值
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 环境变量覆盖
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("DEEPL_AUTH_KEY", &c.Translation.AuthKey)
	str("TRANSLATION_PROVIDER", &c.Translation.Provider)
	str("TRANSLATION_API_URL", &c.Translation.APIURL)
	str("TRANSLATION_CACHE_DIR", &c.Translation.CacheDir)
	str("ADMIN_TOKEN", &c.Server.AdminToken)
	str("GIN_MODE", &c.Server.Mode)
	str("FONT_URL", &c.Fonts.URL)
	str("FONT_CACHE_PATH", &c.Fonts.CachePath)
	str("RENDER_BACKEND", &c.Render.Backend)
	str("AUDIT_DIR", &c.Audit.Dir)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := lookup("LIBRETRANSLATE_URL"); ok && v != "" {
		c.Translation.Provider = "libretranslate"
		c.Translation.APIURL = v
	}
	if v, ok := lookup("TRANSLATION_CHUNK_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRANSLATION_CHUNK_SIZE: %w", err)
		}
		c.Translation.ChunkSize = n
	}
	if v, ok := lookup("TRANSLATION_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRANSLATION_TIMEOUT: %w", err)
		}
		c.Translation.Timeout = d
	}
	if v, ok := lookup("MAX_UPLOAD_MB"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.Server.MaxUploadMB = n
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if c.Translation.ChunkSize <= 0 {
		errs = append(errs, errors.New("translation.chunk_size must be positive"))
	}
	if c.Translation.Timeout <= 0 {
		errs = append(errs, errors.New("translation.timeout must be positive"))
	}
	switch c.Translation.Provider {
	case "deepl", "libretranslate":
	default:
		errs = append(errs, fmt.Errorf("unknown translation.provider %q", c.Translation.Provider))
	}
	if c.Translation.Provider == "libretranslate" && c.Translation.APIURL == "" {
		errs = append(errs, errors.New("translation.api_url is required for libretranslate"))
	}
	if c.Layout.FontSize <= 0 || c.Layout.LineHeight <= 0 {
		errs = append(errs, errors.New("layout.font_size and layout.line_height must be positive"))
	}
	if c.Layout.Margin < 0 {
		errs = append(errs, errors.New("layout.margin must not be negative"))
	}
	switch c.Render.Backend {
	case "gofpdf", "gopdf":
	default:
		errs = append(errs, fmt.Errorf("unknown render.backend %q", c.Render.Backend))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("server.max_upload_mb must be positive"))
	}
	if c.Fonts.CachePath == "" {
		errs = append(errs, errors.New("fonts.cache_path is required"))
	}
	return errors.Join(errs...)
}

// MaxUploadBytes 上传大小上限（字节）
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// LineHeightPoints 实际行高（点）
func (l LayoutConfig) LineHeightPoints() float64 {
	return l.FontSize * l.LineHeight
}
