package fetch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding 是回源时声明支持的压缩格式；显式设置后 net/http 不再自动解压，
// 因此响应体统一经 decodeBody 处理。
const acceptEncoding = "gzip, deflate, zstd"

// ErrUnsupportedEncoding 表示上游返回了无法解码的 Content-Encoding。
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// decodeBody 按 Content-Encoding 包装解码器，返回的 ReadCloser 只关闭解码器本身。
func decodeBody(encoding string, body io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		return zr, nil
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}
}
