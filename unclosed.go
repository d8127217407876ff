package chatstream

import "github.com/riverfjs/chatstream-go/internal/span"

// ComputeUnclosed 计算 text 末尾仍未闭合的 Markdown 标记栈（栈底在前）
//
// 这是纯函数，不保留任何状态。识别的标记：代码围栏（三个及以上反引号）、
// 行内代码、1-3 个星号、1-2 个下划线。列表符号 "* item" 和单词内的下划线
// "foo_bar" 不算标记；代码内的标记被忽略。
//
// 示例：
//
//	ComputeUnclosed("**bold** and *italic*") // []
//	ComputeUnclosed("**bold _it")            // ["**", "_"]
func ComputeUnclosed(text string) []string {
	return span.Unclosed(text)
}
