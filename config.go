package chatstream

import (
	"fmt"
	"strings"
	"sync"
)

const (
	// ChunkLimit is the default body size of one piece in UTF-16 code units.
	// It stays under PlatformLimit to leave room for reopening and closing tokens.
	ChunkLimit = 1950

	// PlatformLimit is the hard message size cap of the destination platform.
	PlatformLimit = 2000
)

// BoundaryPolicy 决定在换行或空格处切分时，分隔符归属哪一段
type BoundaryPolicy int

const (
	// BoundaryDrop 丢弃分隔符：它不出现在任何一段中（消息边界本身就是换行）
	BoundaryDrop BoundaryPolicy = iota
	// BoundaryKeepTrailing 分隔符留在前一段末尾
	BoundaryKeepTrailing
	// BoundaryKeepLeading 分隔符留在后一段开头
	BoundaryKeepLeading
)

// String returns the config name of the policy.
func (p BoundaryPolicy) String() string {
	switch p {
	case BoundaryDrop:
		return "drop"
	case BoundaryKeepTrailing:
		return "trailing"
	case BoundaryKeepLeading:
		return "leading"
	default:
		return "unknown"
	}
}

// ParseBoundaryPolicy parses "drop", "trailing" or "leading".
func ParseBoundaryPolicy(name string) (BoundaryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "drop":
		return BoundaryDrop, nil
	case "trailing":
		return BoundaryKeepTrailing, nil
	case "leading":
		return BoundaryKeepLeading, nil
	default:
		return BoundaryDrop, fmt.Errorf("unknown boundary policy %q (must be drop, trailing or leading)", name)
	}
}

// Config 发送器配置
type Config struct {
	// ChunkLimit 每段正文的最大长度（UTF-16 code units）
	ChunkLimit int
	// Boundary 切分处分隔符的归属
	Boundary BoundaryPolicy
	// TrimLeadingSpace 发送前去掉每段正文开头的空白
	TrimLeadingSpace bool
}

var (
	defaultConfig     *Config
	defaultConfigOnce sync.Once
)

// DefaultConfig returns the default sender configuration (singleton).
// Callers must not modify it; copy it first.
func DefaultConfig() *Config {
	defaultConfigOnce.Do(func() {
		defaultConfig = &Config{
			ChunkLimit:       ChunkLimit,
			Boundary:         BoundaryDrop,
			TrimLeadingSpace: false,
		}
	})
	return defaultConfig
}
