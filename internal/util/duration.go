package util

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration 把秒数格式化为 MM:SS 或 H:MM:SS
//
// 非法输入（NaN、Inf、负数）返回 "N/A"。小数部分向下取整。
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "N/A"
	}
	total := int64(math.Floor(seconds))

	hours := total / 3600
	total %= 3600
	minutes := total / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// FormatElapsed formats d with FormatDuration.
func FormatElapsed(d time.Duration) string {
	return FormatDuration(d.Seconds())
}
