package types

// Symbol 定义机器人回复中使用的状态符号
type Symbol struct {
	Error   string
	Working string
	Queued  string
}

// DefaultSymbol 返回默认符号配置
func DefaultSymbol() *Symbol {
	return &Symbol{
		Error:   "❌",
		Working: "⏳",
		Queued:  "⌛",
	}
}

// Errorf 返回带错误符号的消息
func (s *Symbol) Errorf(msg string) string {
	return join(s.Error, msg)
}

// Workingf 返回带进行中符号的消息
func (s *Symbol) Workingf(msg string) string {
	return join(s.Working, msg)
}

// Queuedf 返回带排队符号的消息
func (s *Symbol) Queuedf(msg string) string {
	return join(s.Queued, msg)
}

func join(symbol, msg string) string {
	if symbol == "" {
		return msg
	}
	return symbol + " " + msg
}

// ReplyConfig 回复渲染配置
type ReplyConfig struct {
	Symbols *Symbol
	// CaptionLimit 附件说明文字的最大长度（UTF-16 code units）
	CaptionLimit int
}

// DefaultReplyConfig 返回默认回复配置
func DefaultReplyConfig() *ReplyConfig {
	return &ReplyConfig{
		Symbols:      DefaultSymbol(),
		CaptionLimit: 2000,
	}
}
