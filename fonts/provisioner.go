// Package fonts 负责获取渲染用的 Unicode TrueType 字体并缓存到磁盘
package fonts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"pdftranslate/models"
)

// maxFontSize 字体下载大小上限
const maxFontSize = 64 << 20

// Provisioner 字体提供者，进程内共享
// 并发的首次调用只触发一次下载，成功结果缓存在内存，失败不缓存
type Provisioner struct {
	URL       string
	CachePath string
	Timeout   time.Duration

	client *http.Client
	logger logrus.FieldLogger

	group singleflight.Group
	mu    sync.RWMutex
	data  []byte
}

// NewProvisioner 创建字体提供者
func NewProvisioner(url, cachePath string, timeout time.Duration, client *http.Client, logger logrus.FieldLogger) *Provisioner {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Provisioner{
		URL:       url,
		CachePath: cachePath,
		Timeout:   timeout,
		client:    client,
		logger:    logger,
	}
}

// EnsureFont 返回字体字节：内存 → 磁盘缓存 → 下载
// 共享的加载不绑定任何一个请求的 ctx，调用方取消只影响自己的等待
func (p *Provisioner) EnsureFont(ctx context.Context) ([]byte, error) {
	p.mu.RLock()
	data := p.data
	p.mu.RUnlock()
	if data != nil {
		return data, nil
	}

	ch := p.group.DoChan("font", func() (interface{}, error) {
		p.mu.RLock()
		cached := p.data
		p.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		data, err := p.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.data = data
		p.mu.Unlock()
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, models.NewAppError(models.ErrFontUnavailable, "font unavailable", res.Err)
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, models.NewAppError(models.ErrCanceled, "request canceled while waiting for font", ctx.Err())
		}
		return nil, models.NewAppError(models.ErrFontUnavailable, "font unavailable", ctx.Err())
	}
}

// Cached 字体是否已在内存或磁盘上（磁盘文件需有 sfnt 文件头）
func (p *Provisioner) Cached() bool {
	p.mu.RLock()
	loaded := p.data != nil
	p.mu.RUnlock()
	if loaded {
		return true
	}

	f, err := os.Open(p.CachePath)
	if err != nil {
		return false
	}
	defer f.Close()
	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return hasSfntHeader(header)
}

func (p *Provisioner) load(ctx context.Context) ([]byte, error) {
	log := p.logger.WithFields(logrus.Fields{"url": p.URL, "path": p.CachePath})

	data, err := os.ReadFile(p.CachePath)
	switch {
	case err == nil && len(data) > 0:
		verr := validateFont(data)
		if verr == nil {
			log.Debug("font loaded from cache")
			return data, nil
		}
		// 损坏的缓存删除后重新下载
		log.WithError(verr).Warn("cached font is invalid, downloading again")
		if rerr := os.Remove(p.CachePath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove invalid font cache: %w", rerr)
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read font cache: %w", err)
	}

	log.Info("downloading font")

	start := time.Now()
	data, err = p.download(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateFont(data); err != nil {
		return nil, fmt.Errorf("download font: %w", err)
	}
	if err := writeAtomic(p.CachePath, data); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"bytes":    len(data),
		"duration": time.Since(start).String(),
	}).Info("font cached")
	return data, nil
}

// validateFont 只接受能被解析的 TrueType 字体
func validateFont(data []byte) error {
	if !hasSfntHeader(data) {
		return errors.New("not a TrueType font")
	}
	if _, err := truetype.Parse(data); err != nil {
		return fmt.Errorf("not a usable TrueType font: %w", err)
	}
	return nil
}

func hasSfntHeader(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	switch string(data[:4]) {
	case "\x00\x01\x00\x00", "true":
		return true
	}
	return false
}

func (p *Provisioner) download(ctx context.Context) ([]byte, error) {
	if p.URL == "" {
		return nil, errors.New("no font url configured")
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download font: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download font: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontSize+1))
	if err != nil {
		return nil, fmt.Errorf("download font: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("download font: empty body")
	}
	if len(data) > maxFontSize {
		return nil, errors.New("download font: file too large")
	}
	return data, nil
}

// writeAtomic 先写同目录临时文件再重命名，读者只会看到完整文件或没有文件
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create font dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".font-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp font file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write font: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync font: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close font: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename font: %w", err)
	}
	return nil
}
