package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// StandardOptions goldmark 扩展配置（删除线等 GFM 语法）
var StandardOptions = []goldmark.Option{
	goldmark.WithExtensions(
		extension.GFM,
	),
}

// Plain 将 Markdown 转换为去掉格式标记的纯文本
//
// 用于日志预览和附件说明：强调、链接等只保留文字，代码块保留原始内容。
func Plain(markdown string) string {
	source := []byte(markdown)
	md := goldmark.New(StandardOptions...)
	node := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(n.Segment.Value(source))
				if n.SoftLineBreak() || n.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil

		case *ast.String:
			if entering {
				b.Write(n.Value)
			}
			return ast.WalkContinue, nil

		case *ast.CodeSpan:
			if entering {
				for c := n.FirstChild(); c != nil; c = c.NextSibling() {
					if t, ok := c.(*ast.Text); ok {
						b.Write(t.Segment.Value(source))
					}
				}
			}
			return ast.WalkSkipChildren, nil

		case *ast.AutoLink:
			if entering {
				b.Write(n.URL(source))
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
				endLine(&b)
			}
			return ast.WalkSkipChildren, nil
		}

		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			endLine(&b)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// Preview returns Plain(markdown) cut to at most limit runes, with an ellipsis
// when something was cut.
func Preview(markdown string, limit int) string {
	plain := strings.Join(strings.Fields(Plain(markdown)), " ")
	runes := []rune(plain)
	if limit <= 0 || len(runes) <= limit {
		return plain
	}
	return string(runes[:limit]) + "…"
}

func endLine(b *strings.Builder) {
	s := b.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}
