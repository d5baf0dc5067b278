package deps

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	gotreesitter "github.com/odvcencio/gotreesitter"
	"github.com/odvcencio/gotreesitter/grammars"
)

// fallbackFilename 用于没有扩展名的 URL（如 https://esm.sh/react），按 TypeScript 解析。
const fallbackFilename = "module.ts"

// referenceDirective matches /// <reference path="..." /> and /// <reference types="..." />.
var referenceDirective = regexp.MustCompile(`^///\s*<reference\s+(?:path|types)\s*=\s*["']([^"']+)["']`)

// Extractor 基于 tree-sitter 语法树提取 import/export/动态 import 及 reference 指令中的说明符。
type Extractor struct{}

// NewExtractor returns a tree-sitter backed extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the specifiers referenced by source in order of appearance,
// without duplicates. Languages with no grammar (css, wasm, ...) are leaves.
func (e *Extractor) Extract(specifier string, source []byte) ([]string, error) {
	if len(source) == 0 {
		return nil, nil
	}

	filename, ok := grammarFilename(specifier)
	if !ok {
		return nil, nil
	}

	bt, err := grammars.ParseFile(filename, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", specifier, err)
	}
	defer bt.Release()

	c := &collector{bt: bt, seen: map[string]struct{}{}}
	c.walk(bt.RootNode())
	return c.out, nil
}

type collector struct {
	bt   *gotreesitter.BoundTree
	out  []string
	seen map[string]struct{}
}

func (c *collector) add(spec string) {
	if spec == "" {
		return
	}
	if _, dup := c.seen[spec]; dup {
		return
	}
	c.seen[spec] = struct{}{}
	c.out = append(c.out, spec)
}

func (c *collector) walk(node *gotreesitter.Node) {
	if node == nil {
		return
	}

	switch c.bt.NodeType(node) {
	case "import_statement", "export_statement":
		// export 语句只有 `export ... from "x"` 形式才带 string 子节点。
		if src := c.childOfType(node, "string"); src != nil {
			c.add(unquote(c.bt.NodeText(src)))
		}
	case "call_expression":
		if spec, ok := c.dynamicImport(node); ok {
			c.add(spec)
		}
	case "comment":
		if m := referenceDirective.FindStringSubmatch(c.bt.NodeText(node)); m != nil {
			c.add(m[1])
		}
		return
	}

	for i := 0; i < node.ChildCount(); i++ {
		c.walk(node.Child(i))
	}
}

// dynamicImport 识别 import("literal")；模板字符串或变量参数无法静态确定，忽略。
func (c *collector) dynamicImport(node *gotreesitter.Node) (string, bool) {
	if node.ChildCount() == 0 {
		return "", false
	}
	callee := node.Child(0)
	if callee == nil || c.bt.NodeType(callee) != "import" {
		return "", false
	}
	args := c.childOfType(node, "arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	first := args.NamedChild(0)
	if first == nil || c.bt.NodeType(first) != "string" {
		return "", false
	}
	return unquote(c.bt.NodeText(first)), true
}

func (c *collector) childOfType(node *gotreesitter.Node, nodeType string) *gotreesitter.Node {
	for i := 0; i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && c.bt.NodeType(child) == nodeType {
			return child
		}
	}
	return nil
}

func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

// grammarFilename 从 URL path 推断用于选择语法的文件名；无扩展名时按 TypeScript 处理，
// 有扩展名但无对应语法时返回 false。
func grammarFilename(specifier string) (string, bool) {
	name := specifier
	if u, err := url.Parse(specifier); err == nil {
		name = u.Path
	}
	base := path.Base(name)
	if base == "." || base == "/" || path.Ext(base) == "" {
		return fallbackFilename, true
	}
	if grammars.DetectLanguage(base) == nil {
		return "", false
	}
	return base, true
}
