package translator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Cache 块翻译结果的磁盘缓存
type Cache struct {
	dir   string
	mutex sync.RWMutex
}

// NewCache 创建缓存
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Get 获取缓存
func (c *Cache) Get(key string) (Response, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return Response{}, false
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}

// Set 设置缓存
func (c *Cache) Set(key string, value Response) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	return os.WriteFile(c.path(key), data, 0644)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, hashKey(key)+".json")
}

// hashKey 计算缓存键的哈希
func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// CacheKey 生成缓存键
func CacheKey(provider string, req Request) string {
	data := map[string]string{
		"provider":   provider,
		"text":       req.Text,
		"targetLang": req.TargetLang,
		"sourceLang": req.SourceLang,
	}
	jsonData, _ := json.Marshal(data)
	return string(jsonData)
}

type noCacheKey struct{}

// WithoutCache 返回跳过缓存读取的 context，结果仍会写入缓存
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey{}).(bool)
	return v
}

// CachedProvider 带缓存的提供商
type CachedProvider struct {
	Provider
	cache  *Cache
	logger logrus.FieldLogger
}

// NewCachedProvider 包装提供商，cache 为 nil 时原样返回
func NewCachedProvider(p Provider, cache *Cache, logger logrus.FieldLogger) Provider {
	if cache == nil {
		return p
	}
	return &CachedProvider{Provider: p, cache: cache, logger: logger}
}

func (p *CachedProvider) Translate(ctx context.Context, req Request) (Response, error) {
	key := CacheKey(p.Provider.Name(), req)
	if !cacheBypassed(ctx) {
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
	}

	resp, err := p.Provider.Translate(ctx, req)
	if err != nil {
		return Response{}, err
	}

	if err := p.cache.Set(key, resp); err != nil {
		p.logger.WithError(err).Warn("failed to write translation cache")
	}
	return resp, nil
}
