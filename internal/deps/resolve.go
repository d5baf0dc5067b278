package deps

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrUnresolvable 表示说明符无法解析为可下载的标识符。
var ErrUnresolvable = errors.New("unresolvable specifier")

// Resolver 把依赖说明符相对于引用方解析为绝对标识符。
type Resolver struct{}

// NewResolver returns a URL-reference resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve 解析规则：
//   - 带 scheme 的说明符（https:、npm:、node: ...）原样返回；
//   - "/"、"./"、"../" 开头的相对说明符按 URL 引用规则相对 referrer 解析；
//   - 其余裸说明符（如 "react"、"std/path/mod.ts"）原样返回，交给 import map 替换。
func (r *Resolver) Resolve(referrer, specifier string) (string, error) {
	if specifier == "" {
		return "", fmt.Errorf("%w: empty specifier imported by %s", ErrUnresolvable, referrer)
	}
	if HasScheme(specifier) {
		return specifier, nil
	}
	if !IsRelative(specifier) {
		return specifier, nil
	}

	base, err := url.Parse(referrer)
	if err != nil {
		return "", fmt.Errorf("%w: %q imported by %q: %v", ErrUnresolvable, specifier, referrer, err)
	}
	ref, err := url.Parse(specifier)
	if err != nil {
		return "", fmt.Errorf("%w: %q imported by %q: %v", ErrUnresolvable, specifier, referrer, err)
	}

	if base.IsAbs() {
		return base.ResolveReference(ref).String(), nil
	}

	// referrer 本身是 import map 别名（如 "std/mod.ts"）时，在别名空间内做路径拼接，
	// 让结果仍能被同一前缀映射。
	if strings.HasPrefix(specifier, "/") {
		return specifier, nil
	}
	joined := path.Join(path.Dir(referrer), specifier)
	if strings.HasPrefix(joined, "..") {
		return "", fmt.Errorf("%w: %q escapes alias %q", ErrUnresolvable, specifier, referrer)
	}
	return joined, nil
}

// IsRelative 判断说明符是否为相对引用。
func IsRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "/") ||
		strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../")
}

// HasScheme 判断说明符是否带有 URL scheme。
func HasScheme(specifier string) bool {
	u, err := url.Parse(specifier)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}
