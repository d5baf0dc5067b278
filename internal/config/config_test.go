package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !filepath.IsAbs(cfg.CacheRoot()) {
		t.Fatalf("CacheDir 应被转换为绝对路径，得到 %s", cfg.CacheRoot())
	}
	if filepath.Base(cfg.CacheRoot()) != "cache" {
		t.Fatalf("CacheDir 应保留配置值，得到 %s", cfg.CacheRoot())
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 15*time.Second {
		t.Fatalf("UpstreamTimeout 解析错误: %v", cfg.Global.UpstreamTimeout.DurationValue())
	}
	if cfg.Global.LogFormat != "text" {
		t.Fatalf("LogFormat 解析错误: %s", cfg.Global.LogFormat)
	}
	if cfg.Global.LogMaxBackups != 10 {
		t.Fatalf("LogMaxBackups 应使用默认值")
	}
}

func TestLoadWithoutFileUsesEnvCacheDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CacheDirEnv, dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.CacheRoot() != dir {
		t.Fatalf("应使用 %s 指定的目录，得到 %s", CacheDirEnv, cfg.CacheRoot())
	}
	if cfg.Global.ListenAddr == "" || cfg.Global.LogLevel != "info" {
		t.Fatalf("默认值未生效: %+v", cfg.Global)
	}
}

func TestExplicitCacheDirBeatsEnv(t *testing.T) {
	t.Setenv(CacheDirEnv, t.TempDir())
	explicit := t.TempDir()
	path := writeTempConfig(t, `CacheDir = "`+filepath.ToSlash(explicit)+`"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.CacheRoot() != explicit {
		t.Fatalf("显式 CacheDir 应优先，得到 %s", cfg.CacheRoot())
	}
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	if _, err := Load(testConfigPath(t, "invalid.toml")); err == nil {
		t.Fatalf("不支持的 LogFormat 应返回错误")
	}
}

func TestValidateEnforcesListenAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenAddr = "localhost"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("缺少端口的 ListenAddr 应当报错")
	}
	fieldErr, ok := err.(FieldError)
	if !ok || fieldErr.Field != "Global.ListenAddr" {
		t.Fatalf("应返回 ListenAddr 的 FieldError，得到 %v", err)
	}
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Global.UpstreamTimeout = Duration(0)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("UpstreamTimeout 为 0 时应报错")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Global.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("非法 LogLevel 应报错")
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			CacheDir:        "./cache",
			ListenAddr:      "127.0.0.1:5080",
			LogLevel:        "info",
			LogFormat:       "json",
			UpstreamTimeout: Duration(time.Second),
		},
	}
}
