package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/modcache/internal/cache"
	"github.com/any-hub/modcache/internal/metrics"
	"github.com/any-hub/modcache/internal/version"
)

// ErrUpstreamStatus 表示上游返回了非 2xx 状态码。
var ErrUpstreamStatus = errors.New("upstream returned non-success status")

// Options 汇总 Fetcher 的依赖，Client/Store 为必填项。
type Options struct {
	Client    *http.Client
	Store     cache.Store
	Logger    *logrus.Logger
	Progress  io.Writer
	UserAgent string
}

// Fetcher 负责回源下载单个模块，并把正文与响应头写入缓存。
type Fetcher struct {
	client    *http.Client
	store     cache.Store
	logger    *logrus.Logger
	progress  io.Writer
	userAgent string
	color     bool
}

// New constructs a fetcher. Progress notices go to opts.Progress (nil disables them).
func New(opts Options) (*Fetcher, error) {
	if opts.Client == nil {
		return nil, errors.New("http client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return &Fetcher{
		client:    opts.Client,
		store:     opts.Store,
		logger:    logger,
		progress:  opts.Progress,
		userAgent: userAgent,
		color:     isTerminal(opts.Progress),
	}, nil
}

// FetchAndStore 下载 locator 并写入缓存，返回解码后的正文。
// metadata 的 url 字段记录请求的 locator（重定向目标不单独记录），headers 取最终响应。
// 任意传输、解码或写盘错误都会原样向上返回，调用方据此终止整次遍历。
func (f *Fetcher) FetchAndStore(ctx context.Context, locator string) ([]byte, error) {
	f.notify(locator)
	started := time.Now()

	body, headers, err := f.download(ctx, locator)
	if err != nil {
		metrics.RecordFetch("error", 0)
		f.logger.WithError(err).WithFields(logrus.Fields{
			"action": "fetch",
			"url":    locator,
		}).Error("fetch_failed")
		return nil, err
	}

	entry, err := f.store.Put(ctx, locator, body, cache.Metadata{URL: locator, Headers: headers})
	if err != nil {
		metrics.RecordFetch("error", 0)
		return nil, fmt.Errorf("store %s: %w", locator, err)
	}

	metrics.RecordFetch("ok", len(body))
	f.logger.WithFields(logrus.Fields{
		"action":     "fetch",
		"url":        locator,
		"file_path":  entry.FilePath,
		"size_bytes": entry.SizeBytes,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Debug("fetch_complete")
	return body, nil
}

func (f *Fetcher) download(ctx context.Context, locator string) ([]byte, map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request %s: %w", locator, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, nil, fmt.Errorf("%w: GET %s: %s", ErrUpstreamStatus, locator, resp.Status)
	}

	reader, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", locator, err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("read body %s: %w", locator, err)
	}

	return body, flattenHeaders(resp.Header), nil
}

// flattenHeaders 将响应头转换为小写键的扁平映射，多值头仅保留最后一个值。
func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		flat[strings.ToLower(key)] = values[len(values)-1]
	}
	return flat
}

func (f *Fetcher) notify(locator string) {
	if f.progress == nil {
		return
	}
	label := "Download"
	if f.color {
		label = "\x1b[32mDownload\x1b[0m"
	}
	fmt.Fprintf(f.progress, "%s %s\n", label, locator)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
