package server

import (
	"net/textproto"
)

// hopByHopHeaders 定义 RFC 7230 中禁止代理转发的头部。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {}, // 非标准字段，但部分代理仍使用
}

// 缓存正文已经解码，且长度由本地文件决定，这两个上游头不能原样回放。
var payloadHeaders = map[string]struct{}{
	"Content-Encoding": {},
	"Content-Length":   {},
}

// ReplayHeaders 返回可以随缓存正文一起回放给客户端的头部，自动忽略 hop-by-hop 与正文相关字段。
func ReplayHeaders(stored map[string]string) map[string]string {
	out := make(map[string]string, len(stored))
	for key, value := range stored {
		canonical := textproto.CanonicalMIMEHeaderKey(key)
		if isHopByHopHeader(canonical) {
			continue
		}
		if _, ok := payloadHeaders[canonical]; ok {
			continue
		}
		out[canonical] = value
	}
	return out
}

func isHopByHopHeader(key string) bool {
	canonical := textproto.CanonicalMIMEHeaderKey(key)
	if _, ok := hopByHopHeaders[canonical]; ok {
		return true
	}

	return false
}

// IsHopByHopHeader reports whether the header should be stripped by proxies.
func IsHopByHopHeader(key string) bool {
	return isHopByHopHeader(key)
}
