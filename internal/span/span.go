// Package span 扫描 Markdown 文本并计算结尾处仍未闭合的格式标记
//
// 只识别聊天平台常用的几种标记：代码围栏（三个及以上反引号）、行内代码（单个反引号）、
// 星号强调（1-3 个）和下划线强调（1-2 个）。扫描是单遍的，状态只有一个栈，
// 栈顶是反引号标记时即处于代码模式。
package span

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	tick      = "`"
	maxStars  = 3
	maxUnders = 2
	minFence  = 3
)

// Unclosed 返回 text 末尾仍未闭合的标记栈（栈底在前）
//
// 规则：
//   - 在围栏内，只有与栈顶完全相同的围栏标记才会出栈
//   - 在行内代码内，只有单个反引号才会出栈
//   - 其它情况下，栈顶等于该标记则出栈；后面紧跟空白的标记视为普通字符，否则入栈
func Unclosed(text string) []string {
	return UnclosedFrom(nil, text)
}

// UnclosedFrom 与 Unclosed 相同，但扫描从已打开的 open 栈开始
//
// open 中的标记视为已确认的开启标记，不会因为 text 开头的字符被重新解释。
// 返回的栈不与 open 共享底层数组。
func UnclosedFrom(open []string, text string) []string {
	stack := append(make([]string, 0, len(open)+4), open...)
	i := 0
	for i < len(text) {
		switch text[i] {
		case '`':
			n := runLength(text, i, '`')
			if n >= minFence {
				stack = applyFence(stack, text[i:i+n])
				i += n
				continue
			}
			// 一或两个反引号按单个反引号逐个处理
			stack = applyTick(stack)
			i++

		case '*':
			if InCode(stack) {
				i++
				continue
			}
			k := min(runLength(text, i, '*'), maxStars)
			stack = emphasis(stack, text, i, k)
			i += k

		case '_':
			if InCode(stack) {
				i++
				continue
			}
			k := min(runLength(text, i, '_'), maxUnders)
			if midWord(text, i, k) {
				// foo_bar
				i += k
				continue
			}
			stack = emphasis(stack, text, i, k)
			i += k

		default:
			i++
		}
	}
	return stack
}

// InCode reports whether the innermost open span is a code span or fence.
func InCode(stack []string) bool {
	if len(stack) == 0 {
		return false
	}
	return strings.HasPrefix(stack[len(stack)-1], tick)
}

// Prefix joins the stack bottom-first; prepending it reopens every span in nesting order.
func Prefix(stack []string) string {
	return strings.Join(stack, "")
}

// Closing joins the stack top-first so the innermost span closes first.
func Closing(stack []string) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString(stack[i])
	}
	return b.String()
}

func applyFence(stack []string, token string) []string {
	if len(stack) > 0 && stack[len(stack)-1] == token {
		return stack[:len(stack)-1]
	}
	if InCode(stack) {
		return stack
	}
	return append(stack, token)
}

func applyTick(stack []string) []string {
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		if top == tick {
			return stack[:len(stack)-1]
		}
		if strings.HasPrefix(top, tick) {
			// 围栏内的单个反引号是普通字符
			return stack
		}
	}
	return append(stack, tick)
}

func runLength(text string, i int, ch byte) int {
	n := 0
	for i+n < len(text) && text[i+n] == ch {
		n++
	}
	return n
}

// emphasis applies the marker run text[i:i+k]. A run closes the innermost
// span when it matches it exactly; otherwise it opens a new span unless it is
// followed by whitespace, which keeps "* item" bullets literal.
func emphasis(stack []string, text string, i, k int) []string {
	token := text[i : i+k]
	if len(stack) > 0 && stack[len(stack)-1] == token {
		return stack[:len(stack)-1]
	}
	if i+k < len(text) {
		next, _ := utf8.DecodeRuneInString(text[i+k:])
		if unicode.IsSpace(next) {
			return stack
		}
	}
	return append(stack, token)
}

func midWord(text string, i, k int) bool {
	if i == 0 || i+k >= len(text) {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	next, _ := utf8.DecodeRuneInString(text[i+k:])
	return isWord(prev) && isWord(next)
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
