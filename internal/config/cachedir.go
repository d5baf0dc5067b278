package config

import (
	"path/filepath"
)

// CacheDirEnv 覆盖缓存根目录的环境变量，与 Deno 的 DENO_DIR 保持一致以共享磁盘布局。
const CacheDirEnv = "DENO_DIR"

const fallbackCacheDir = ".deno"

// ResolveCacheRoot 计算缓存根目录，优先级：显式配置 → DENO_DIR → 平台约定目录 → ".deno"。
// 该函数只在启动阶段调用一次，之后根目录作为参数传递给 Deriver，不再读取环境。
func ResolveCacheRoot(explicit string, getenv func(string) string, goos string) string {
	if explicit != "" {
		return explicit
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if dir := getenv(CacheDirEnv); dir != "" {
		return dir
	}

	var home, sub string
	switch goos {
	case "darwin":
		home = getenv("HOME")
		sub = filepath.Join("Library", "Caches", "deno")
	case "windows":
		home = getenv("LOCALAPPDATA")
		if home == "" {
			home = getenv("USERPROFILE")
		}
		sub = "deno"
	default:
		if xdg := getenv("XDG_CACHE_HOME"); xdg != "" {
			home = xdg
			sub = "deno"
		} else {
			home = getenv("HOME")
			sub = filepath.Join(".cache", "deno")
		}
	}

	if home == "" {
		return fallbackCacheDir
	}
	return filepath.Join(home, sub)
}
