package chatstream

import (
	"strings"

	"github.com/riverfjs/chatstream-go/internal/util"
)

// cut describes where the next piece ends.
//
// body is text[:end]; the buffer then drops text[:next]. next differs from
// end only when a separator is dropped or kept for the following piece.
type cut struct {
	end  int
	next int
}

// findCut 在 text 中找出下一段的切分位置
//
// text 的 UTF-16 长度为 total。不超过 limit 时整段发送；否则在前 limit 个
// code units 内按以下顺序寻找切分点：
//  1. 最后一个换行（位置 > 0）
//  2. 最后一个跟在 . ! ? 后面的空格，且位于候选文本的最后 1/sentenceWindow 内
//  3. 最后一个空格（位置 > 0）
//  4. 硬切分：不超过 limit 的最后一个字素簇边界
func findCut(text string, total, limit int, policy BoundaryPolicy) cut {
	if total <= limit {
		return cut{end: len(text), next: len(text)}
	}

	hard := util.GraphemePrefix(text, limit)
	candidate := text[:hard]

	if nl := strings.LastIndexByte(candidate, '\n'); nl > 0 {
		c := separatorCut(nl, policy)
		if policy == BoundaryDrop && c.end > 1 && text[c.end-1] == '\r' {
			c.end--
		}
		return c
	}
	if sp := lastSentenceSpace(candidate); sp > 0 && sp >= len(candidate)-len(candidate)/sentenceWindow {
		return separatorCut(sp, policy)
	}
	if sp := strings.LastIndexByte(candidate, ' '); sp > 0 {
		return separatorCut(sp, policy)
	}
	return cut{end: hard, next: hard}
}

// sentenceWindow bounds how far back a sentence end may pull the cut.
const sentenceWindow = 4

// separatorCut applies the boundary policy to a one-byte separator at idx.
func separatorCut(idx int, policy BoundaryPolicy) cut {
	switch policy {
	case BoundaryKeepTrailing:
		return cut{end: idx + 1, next: idx + 1}
	case BoundaryKeepLeading:
		return cut{end: idx, next: idx}
	default:
		return cut{end: idx, next: idx + 1}
	}
}

// lastSentenceSpace returns the index of the last space that follows
// sentence-ending punctuation, or -1.
func lastSentenceSpace(text string) int {
	for i := len(text) - 1; i > 0; i-- {
		if text[i] != ' ' {
			continue
		}
		switch text[i-1] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
