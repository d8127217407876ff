// Package chatstream 把增量到达的 Markdown 文本流切分成聊天平台可发送的消息
//
// 这个包面向 LLM 流式输出、长 API 响应等场景：文本一边到达一边发送，
// 每条消息都不超过平台的长度上限，并且单独看也是合法的 Markdown。
//
// 核心功能：
//   - ComputeUnclosed(): 计算文本末尾未闭合的格式标记（纯函数）
//   - Sender: 缓冲文本，在安全位置切分，为跨段的格式补上闭合/重开标记
//   - SendAll() / Pipe() / Copy(): 常见输入形式的便捷封装
//
// 示例：
//
//	sink := chatstream.SinkFunc(func(ctx context.Context, msg string) error {
//	    return channel.Post(ctx, msg)
//	})
//	s := chatstream.NewSender(sink)
//	for token := range tokens {
//	    if err := s.Write(ctx, token); err != nil {
//	        return err
//	    }
//	}
//	return s.Flush(ctx)
package chatstream
