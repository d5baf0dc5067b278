package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
)

const (
	depsDir = "deps"

	// MetadataSuffix 追加在正文路径之后构成 metadata 文件名。
	MetadataSuffix = ".metadata.json"
)

// ErrNotRemote 表示标识符不是可缓存的远程 URL。
var ErrNotRemote = errors.New("identifier is not a remote locator")

// IsRemote 判断标识符是否为带 host 的 http/https URL，只有这类标识符参与缓存。
func IsRemote(identifier string) bool {
	u, err := url.Parse(identifier)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Deriver 把已解析的远程 URL 映射为缓存根目录下的确定性路径。
type Deriver struct {
	root string
}

// NewDeriver 以 root 为缓存根目录构建 Deriver，root 应在启动时一次性解析。
func NewDeriver(root string) Deriver {
	return Deriver{root: root}
}

// Root 返回缓存根目录。
func (d Deriver) Root() string {
	return d.root
}

// Path 计算 <root>/deps/<scheme>/<host>/<sha256(path)>。
// 哈希只覆盖 URL 的 path 部分，scheme 与 host 作为目录层级；不做任何规范化。
func (d Deriver) Path(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotRemote, locator, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrNotRemote, locator)
	}

	pathname := u.EscapedPath()
	if pathname == "" {
		pathname = "/"
	}
	sum := sha256.Sum256([]byte(pathname))

	return filepath.Join(d.root, depsDir, u.Scheme, hostDir(u), hex.EncodeToString(sum[:])), nil
}

// MetaPath 返回 locator 对应的 metadata 文件路径。
func (d Deriver) MetaPath(locator string) (string, error) {
	p, err := d.Path(locator)
	if err != nil {
		return "", err
	}
	return p + MetadataSuffix, nil
}

// Resolve 对本地或非 URL 标识符原样返回，远程 URL 返回其缓存路径，
// 方便 loader 在不回源的情况下找到缓存文件。
func (d Deriver) Resolve(identifier string) string {
	if !IsRemote(identifier) {
		return identifier
	}
	p, err := d.Path(identifier)
	if err != nil {
		return identifier
	}
	return p
}

// hostDir 返回 host 目录名；显式端口以 "_PORT" 追加，避免不同端口的同名主机互相覆盖。
func hostDir(u *url.URL) string {
	host := u.Hostname()
	if port := u.Port(); port != "" {
		return host + "_PORT" + port
	}
	return host
}
