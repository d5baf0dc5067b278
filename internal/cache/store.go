package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<CacheRoot>/deps/<scheme>/<host>/<hash>                  # 模块正文
//	<CacheRoot>/deps/<scheme>/<host>/<hash>.metadata.json    # {url, headers}
//
// 所有方法均以已解析（import map 替换之后）的远程 URL 作为 locator。
type Store interface {
	// Stat 返回正文文件信息，不检查 metadata 是否存在。若不存在则返回 ErrNotFound。
	Stat(ctx context.Context, locator string) (*Entry, error)

	// Get 返回一个可流式读取的缓存正文。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, locator string) (*ReadResult, error)

	// Metadata 读取 sidecar 记录，缺失时返回 ErrNotFound。
	Metadata(ctx context.Context, locator string) (*Metadata, error)

	// Put 先写正文再写 metadata，两个文件各自通过临时文件 + rename 落盘，
	// 但二者之间不保证原子性：中断后可能只存在正文。
	Put(ctx context.Context, locator string, body []byte, meta Metadata) (*Entry, error)

	// Remove 同时删除正文与 metadata 文件。
	Remove(ctx context.Context, locator string) error

	// Deriver 返回 Store 使用的路径推导器。
	Deriver() Deriver
}

// Metadata 是写入 .metadata.json 的记录。
type Metadata struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// Entry 表示一次缓存命中结果，包含绝对文件路径及文件信息。
type Entry struct {
	Locator   string    `json:"url"`
	FilePath  string    `json:"file_path"`
	MetaPath  string    `json:"meta_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader，便于 serve 模式直接将 Body 流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

// ReadAll 读取完整正文，供依赖提取使用。
func ReadAll(ctx context.Context, store Store, locator string) ([]byte, error) {
	result, err := store.Get(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer result.Reader.Close()

	body, err := io.ReadAll(result.Reader)
	if err != nil {
		return nil, fmt.Errorf("read cached body %s: %w", result.Entry.FilePath, err)
	}
	return body, nil
}
