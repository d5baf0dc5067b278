package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/modcache/internal/cache"
	"github.com/any-hub/modcache/internal/config"
	"github.com/any-hub/modcache/internal/deps"
	"github.com/any-hub/modcache/internal/fetch"
	"github.com/any-hub/modcache/internal/importmap"
	"github.com/any-hub/modcache/internal/logging"
	"github.com/any-hub/modcache/internal/traverse"
)

const (
	configEnv         = config.EnvPrefix + "_CONFIG"
	defaultConfigFile = "modcache.toml"
)

// resolveConfigPath 计算最终的配置路径：--config > MODCACHE_CONFIG > ./modcache.toml（存在时）。
// 返回空串表示只使用默认值与环境变量。
func resolveConfigPath(flagValue string) string {
	if path := strings.TrimSpace(flagValue); path != "" {
		return path
	}
	if path := strings.TrimSpace(os.Getenv(configEnv)); path != "" {
		return path
	}
	// 文件存在（或无法判断）时交给 config.Load 报告具体错误。
	if _, err := os.Stat(defaultConfigFile); !errors.Is(err, fs.ErrNotExist) {
		return defaultConfigFile
	}
	return ""
}

// appRuntime 汇总一次 CLI 调用共享的配置与日志实例。
type appRuntime struct {
	cfg        *config.Config
	logger     *logrus.Logger
	configPath string
}

func bootstrap(opts *rootOptions) (*appRuntime, error) {
	path := resolveConfigPath(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &appRuntime{cfg: cfg, logger: logger, configPath: path}, nil
}

// components 是缓存遍历所需的全部协作者。
type components struct {
	store     cache.Store
	engine    *traverse.Engine
	importMap *importmap.ImportMap
}

// buildComponents 遵循“缓存目录 → HTTP client → Fetcher → Engine”顺序，
// 所有遍历共享同一个 Store 与 client。importMapPath 为空时使用配置中的 ImportMap。
func (rt *appRuntime) buildComponents(importMapPath string) (*components, error) {
	store, err := cache.NewStore(rt.cfg.CacheRoot())
	if err != nil {
		return nil, fmt.Errorf("init cache dir: %w", err)
	}

	fetcher, err := fetch.New(fetch.Options{
		Client:    fetch.NewClient(rt.cfg.Global.UpstreamTimeout.DurationValue()),
		Store:     store,
		Logger:    rt.logger,
		Progress:  stdErr,
		UserAgent: rt.cfg.Global.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	engine, err := traverse.NewEngine(traverse.Options{
		Store:     store,
		Fetcher:   fetcher,
		Extractor: deps.NewExtractor(),
		Resolver:  deps.NewResolver(),
		Logger:    rt.logger,
	})
	if err != nil {
		return nil, err
	}

	if importMapPath == "" {
		importMapPath = rt.cfg.Global.ImportMap
	}
	var im *importmap.ImportMap
	if importMapPath != "" {
		im, err = importmap.Load(importMapPath)
		if err != nil {
			return nil, err
		}
	}

	return &components{store: store, engine: engine, importMap: im}, nil
}
