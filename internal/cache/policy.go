package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ReloadMode 描述本次遍历的强制刷新范围。
type ReloadMode int

const (
	// ReloadNone 复用所有已存在的缓存。
	ReloadNone ReloadMode = iota
	// ReloadAll 把所有标识符视为未命中。
	ReloadAll
	// ReloadSet 仅对显式列出的标识符（字面值精确匹配）强制刷新。
	ReloadSet
)

// ReloadDirective 在遍历开始时确定，遍历期间不可变。
type ReloadDirective struct {
	mode ReloadMode
	set  map[string]struct{}
}

// ReloadNothing 返回“不强制刷新”的指令。
func ReloadNothing() ReloadDirective {
	return ReloadDirective{mode: ReloadNone}
}

// ReloadEverything 返回“全部刷新”的指令。
func ReloadEverything() ReloadDirective {
	return ReloadDirective{mode: ReloadAll}
}

// ReloadOnly 返回只刷新给定标识符的指令；列表为空时等价于 ReloadNothing。
func ReloadOnly(locators ...string) ReloadDirective {
	set := make(map[string]struct{}, len(locators))
	for _, locator := range locators {
		if locator == "" {
			continue
		}
		set[locator] = struct{}{}
	}
	if len(set) == 0 {
		return ReloadNothing()
	}
	return ReloadDirective{mode: ReloadSet, set: set}
}

// ParseReload 解析 CLI / HTTP 中的 reload 写法："" 或 "false" 表示不刷新，
// "true" 表示全部刷新，其余按逗号分隔为精确匹配的标识符列表。
func ParseReload(raw string) ReloadDirective {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "false":
		return ReloadNothing()
	case "true":
		return ReloadEverything()
	}

	parts := strings.Split(trimmed, ",")
	locators := make([]string, 0, len(parts))
	for _, part := range parts {
		locators = append(locators, strings.TrimSpace(part))
	}
	return ReloadOnly(locators...)
}

// Mode 返回指令类型。
func (d ReloadDirective) Mode() ReloadMode {
	return d.mode
}

// Includes 判断 locator 是否被指令强制刷新，比较的是字面值而非规范化形式。
func (d ReloadDirective) Includes(locator string) bool {
	switch d.mode {
	case ReloadAll:
		return true
	case ReloadSet:
		_, ok := d.set[locator]
		return ok
	default:
		return false
	}
}

// String 输出与 ParseReload 互逆的文本形式。
func (d ReloadDirective) String() string {
	switch d.mode {
	case ReloadAll:
		return "true"
	case ReloadSet:
		items := make([]string, 0, len(d.set))
		for locator := range d.set {
			items = append(items, locator)
		}
		sort.Strings(items)
		return strings.Join(items, ",")
	default:
		return "false"
	}
}

// UnmarshalJSON 接受布尔值或逗号分隔字符串。
func (d *ReloadDirective) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		if flag {
			*d = ReloadEverything()
		} else {
			*d = ReloadNothing()
		}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("reload must be a boolean or a comma separated string: %w", err)
	}
	*d = ParseReload(raw)
	return nil
}

// MarshalJSON 把全部/不刷新编码为布尔值，集合编码为字符串。
func (d ReloadDirective) MarshalJSON() ([]byte, error) {
	switch d.mode {
	case ReloadAll:
		return []byte("true"), nil
	case ReloadSet:
		return json.Marshal(d.String())
	default:
		return []byte("false"), nil
	}
}

// Policy 结合 ReloadDirective 与磁盘状态决定是否需要回源。
type Policy struct {
	store     Store
	directive ReloadDirective
}

// NewPolicy 构造新鲜度策略。
func NewPolicy(store Store, directive ReloadDirective) Policy {
	return Policy{store: store, directive: directive}
}

// Directive 返回策略使用的刷新指令。
func (p Policy) Directive() ReloadDirective {
	return p.directive
}

// ShouldRefetch 在指令命中或正文不存在时返回 true；从不读取 metadata 或响应头，
// 也不做 ETag 等条件再验证。
func (p Policy) ShouldRefetch(ctx context.Context, locator string) (bool, error) {
	if p.directive.Includes(locator) {
		return true, nil
	}
	if p.store == nil {
		return true, nil
	}
	_, err := p.store.Stat(ctx, locator)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrNotFound):
		return true, nil
	default:
		return false, err
	}
}
