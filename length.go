package chatstream

import "github.com/riverfjs/chatstream-go/internal/util"

// UTF16Len returns the length of text measured in UTF-16 code units.
//
// All limits in this package (ChunkLimit, PlatformLimit) use this unit.
func UTF16Len(text string) int {
	return util.UTF16Len(text)
}

// FitsPlatform reports whether message fits under PlatformLimit.
func FitsPlatform(message string) bool {
	return UTF16Len(message) <= PlatformLimit
}
