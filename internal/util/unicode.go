package util

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// UTF16Len returns the length of text measured in UTF-16 code units.
//
// Chat platforms count message length the way JavaScript strings do:
// characters outside the BMP (codepoint > 0xFFFF) take 2 code units
// (a surrogate pair); all others take 1.
func UTF16Len(text string) int {
	count := 0
	for _, r := range text {
		if r > 0xFFFF {
			count += 2
		} else {
			count++
		}
	}
	return count
}

// RunePrefix 返回不超过 limit 个 UTF-16 code units 的最长前缀的字节长度
//
// 保证不会切断一个 rune。如果第一个 rune 本身就超过 limit，仍然返回它的长度，
// 以保证调用方总能前进。
func RunePrefix(text string, limit int) int {
	units := 0
	for i, r := range text {
		n := 1
		if r > 0xFFFF {
			n = 2
		}
		if units+n > limit {
			if i == 0 {
				_, size := utf8.DecodeRuneInString(text)
				return size
			}
			return i
		}
		units += n
	}
	return len(text)
}

// GraphemePrefix 返回不超过 limit 个 UTF-16 code units 的最长前缀的字节长度，
// 并且只在字素簇边界处截断（不会拆开 emoji ZWJ 序列或国旗）
//
// 如果第一个字素簇本身就超过 limit，退回到 RunePrefix。
func GraphemePrefix(text string, limit int) int {
	end, units := 0, 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		from, to := g.Positions()
		n := UTF16Len(text[from:to])
		if units+n > limit {
			break
		}
		units += n
		end = to
	}
	if end == 0 && text != "" {
		return RunePrefix(text, limit)
	}
	return end
}
