package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
)

// NewStore 以 root 为缓存根目录构建磁盘缓存，整个进程复用一份实例。
func NewStore(root string) (Store, error) {
	if root == "" {
		return nil, errors.New("cache root required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}

	return &fileStore{
		deriver: NewDeriver(abs),
		locks:   make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 避免同一进程内对同一 locator 的并发写入。
// 跨进程不加锁，多个进程同时写同一路径时由 rename 决定最终内容。
type fileStore struct {
	deriver Deriver

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Deriver() Deriver {
	return s.deriver
}

func (s *fileStore) Stat(ctx context.Context, locator string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.deriver.Path(locator)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	return &Entry{
		Locator:   locator,
		FilePath:  filePath,
		MetaPath:  filePath + MetadataSuffix,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func (s *fileStore) Get(ctx context.Context, locator string) (*ReadResult, error) {
	entry, err := s.Stat(ctx, locator)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(entry.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry:  *entry,
		Reader: f,
	}, nil
}

func (s *fileStore) Metadata(ctx context.Context, locator string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metaPath, err := s.deriver.MetaPath(locator)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", metaPath, err)
	}
	return &meta, nil
}

func (s *fileStore) Put(ctx context.Context, locator string, body []byte, meta Metadata) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := s.lockEntry(locator)
	defer unlock()

	filePath, err := s.deriver.Path(locator)
	if err != nil {
		return nil, err
	}
	metaPath := filePath + MetadataSuffix

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	if err := renameio.WriteFile(filePath, body, 0o644); err != nil {
		return nil, fmt.Errorf("write cache body %s: %w", filePath, err)
	}

	encoded, err := encodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	if err := renameio.WriteFile(metaPath, encoded, 0o644); err != nil {
		return nil, fmt.Errorf("write cache metadata %s: %w", metaPath, err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Locator:   locator,
		FilePath:  filePath,
		MetaPath:  metaPath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func (s *fileStore) Remove(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lockEntry(locator)
	defer unlock()

	filePath, err := s.deriver.Path(locator)
	if err != nil {
		return err
	}
	for _, p := range []string{filePath, filePath + MetadataSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// encodeMetadata 以两空格缩进输出 JSON，并追加换行，保持文件可 diff。
func encodeMetadata(meta Metadata) ([]byte, error) {
	if meta.Headers == nil {
		meta.Headers = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *fileStore) lockEntry(locator string) func() {
	s.mu.Lock()
	lock := s.locks[locator]
	if lock == nil {
		lock = &entryLock{}
		s.locks[locator] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, locator)
		}
		s.mu.Unlock()
	}
}
