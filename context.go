package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assets"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/config"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/logging"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/metrics"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/version"
)

type globalFlags struct {
	configPath string
	cacheDir   string
	logLevel   string
}

// commandContext 按需加载配置与共享依赖，同一次调用内只初始化一次。
type commandContext struct {
	flags *globalFlags

	once    sync.Once
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Recorder
	err     error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// configPath 返回最终使用的配置路径：--config 优先，其次 ASSET_CACHE_CONFIG，空串表示默认路径。
func (c *commandContext) configPath() string {
	if path := strings.TrimSpace(c.flags.configPath); path != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv(envConfigPath))
}

// ensure 遵循“配置 → 命令行覆盖 → 日志”顺序初始化，所有子命令共享同一份实例。
func (c *commandContext) ensure() (*config.Config, *logrus.Logger, error) {
	c.once.Do(func() {
		cfg, err := config.Load(c.configPath())
		if err != nil {
			c.err = fmt.Errorf("加载配置失败: %w", err)
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.err = err
			return
		}
		logger, err := logging.InitLogger(cfg.Global)
		if err != nil {
			c.err = fmt.Errorf("初始化日志失败: %w", err)
			return
		}
		c.cfg = cfg
		c.logger = logger
		c.metrics = metrics.NewRecorder()
	})
	return c.cfg, c.logger, c.err
}

func (c *commandContext) applyOverrides(cfg *config.Config) error {
	if dir := strings.TrimSpace(c.flags.cacheDir); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("无法解析缓存目录: %w", err)
		}
		cfg.Global.CacheDir = abs
	}
	if level := strings.TrimSpace(c.flags.logLevel); level != "" {
		if _, err := logrus.ParseLevel(level); err != nil {
			return fmt.Errorf("无法解析日志级别: %w", err)
		}
		cfg.Global.LogLevel = level
	}
	return nil
}

// newManager 组装“磁盘缓存 → 获取器 → Manager”，s3 只在配置启用时接入。
func (c *commandContext) newManager(ctx context.Context) (*assets.Manager, cache.Store, error) {
	cfg, logger, err := c.ensure()
	if err != nil {
		return nil, nil, err
	}
	store, err := cache.NewStore(cfg.Global.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化缓存目录失败: %w", err)
	}

	httpFetcher := fetch.NewHTTPFetcher(fetch.HTTPOptions{
		FetchTimeout: cfg.Global.FetchTimeout.DurationValue(),
		ProbeTimeout: cfg.Global.ProbeTimeout.DurationValue(),
		UserAgent:    version.UserAgent(),
	})
	var s3Fetcher fetch.Fetcher
	if cfg.S3.Enabled {
		f, err := fetch.NewS3Fetcher(ctx, fetch.S3Options{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
			FetchTimeout: cfg.Global.FetchTimeout.DurationValue(),
			ProbeTimeout: cfg.Global.ProbeTimeout.DurationValue(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("初始化 S3 客户端失败: %w", err)
		}
		s3Fetcher = f
	}

	manager, err := assets.NewManager(assets.Options{
		Store:       store,
		Source:      fetch.NewRouter(httpFetcher, s3Fetcher),
		Logger:      logger,
		Metrics:     c.metrics,
		HashLength:  cfg.Global.HashLength,
		Concurrency: cfg.Global.Concurrency,
		HeadCheck:   cfg.Global.EnableHeadCheck,
	})
	if err != nil {
		return nil, nil, err
	}
	return manager, store, nil
}

// namespace 返回配置中的命名空间；未配置时返回只有名称的空配置，便于纯 URL 调用。
func (c *commandContext) namespace(name string) config.NamespaceConfig {
	if ns, ok := c.cfg.Namespace(name); ok {
		return ns
	}
	return config.NamespaceConfig{Name: name}
}

// slotDescriptors 把配置中的槽位转换为缓存描述符。
func slotDescriptors(ns config.NamespaceConfig) []assets.Descriptor {
	out := make([]assets.Descriptor, 0, len(ns.Slots))
	for _, slot := range ns.Slots {
		out = append(out, assets.Descriptor{
			Slot:        slot.Name,
			Kind:        slot.EffectiveKind(),
			URL:         slot.URL,
			FallbackExt: slot.FallbackExt,
			Validation:  assetkind.ValidationMode(slot.Validation),
		})
	}
	return out
}
