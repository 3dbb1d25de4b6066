package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pdftranslate/audit"
	"pdftranslate/config"
	"pdftranslate/fonts"
	"pdftranslate/handlers"
	"pdftranslate/layout"
	"pdftranslate/middleware"
	"pdftranslate/pdf"
	"pdftranslate/translator"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger := newLogger(cfg.Log)

	r, fontProvisioner, err := newServer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise server")
	}

	// 预热字体缓存，失败时首个 PDF 请求会重试
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Fonts.DownloadTimeout)
		defer cancel()
		if _, err := fontProvisioner.EnsureFont(ctx); err != nil {
			logger.WithError(err).Warn("font warm-up failed")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.Server.Addr,
			"provider": cfg.Translation.Provider,
			"renderer": cfg.Render.Backend,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Translation.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// newServer 组装翻译管线和路由
func newServer(cfg *config.Config, logger *logrus.Logger) (*gin.Engine, *fonts.Provisioner, error) {
	client := &http.Client{}

	provider, err := translator.NewProvider(translator.ProviderConfig{
		Type:   translator.ProviderType(cfg.Translation.Provider),
		APIKey: cfg.Translation.AuthKey,
		APIURL: cfg.Translation.APIURL,
	}, client)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Translation.CacheDir != "" {
		cache, err := translator.NewCache(cfg.Translation.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		provider = translator.NewCachedProvider(provider, cache, logger)
	}

	chunker := translator.NewChunkingTranslator(provider, cfg.Translation.ChunkSize, cfg.Translation.Timeout, logger)
	chunker.PinDetectedSource = cfg.Translation.PinDetectedSource

	renderer, err := pdf.NewRenderer(cfg.Render.Backend)
	if err != nil {
		return nil, nil, err
	}

	fontProvisioner := fonts.NewProvisioner(cfg.Fonts.URL, cfg.Fonts.CachePath, cfg.Fonts.DownloadTimeout, client, logger)

	engine := layout.NewEngine(layout.Options{
		FontSize:   cfg.Layout.FontSize,
		LineHeight: cfg.Layout.LineHeight,
		Margin:     cfg.Layout.Margin,
	})

	documents := translator.NewDocumentTranslator(pdf.NewExtractor(logger), chunker, fontProvisioner, engine, renderer, logger)

	store, err := audit.NewStore(cfg.Audit.Dir)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Server.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))

	h := handlers.NewHandler(documents, store, cfg.MaxUploadBytes(), provider.Name(), fontProvisioner.Cached, logger)
	h.Register(r, cfg.Server.AdminToken)

	return r, fontProvisioner, nil
}
