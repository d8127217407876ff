package chatstream

import (
	"context"
	"io"
	"unicode/utf8"
)

// SendAll 一次性把完整文本切分投递，返回投递的消息数
//
// 适用于非流式的长回复（队列列表、帮助信息等）。
func SendAll(ctx context.Context, sink Sink, text string, opts ...Option) (int, error) {
	s := NewSender(sink, opts...)
	if err := s.Send(ctx, text, true); err != nil {
		return s.Pieces(), err
	}
	return s.Pieces(), nil
}

// Pipe 从 fragments 读取文本片段并投递，通道关闭后强制刷新
//
// ctx 取消时停止读取并返回 ctx.Err()，已缓冲但未投递的文本不会发送。
func Pipe(ctx context.Context, sink Sink, fragments <-chan string, opts ...Option) (int, error) {
	s := NewSender(sink, opts...)
	for {
		select {
		case <-ctx.Done():
			return s.Pieces(), ctx.Err()
		case fragment, ok := <-fragments:
			if !ok {
				err := s.Flush(ctx)
				return s.Pieces(), err
			}
			if err := s.Write(ctx, fragment); err != nil {
				return s.Pieces(), err
			}
		}
	}
}

// Copy reads r until EOF and delivers its content through a Sender.
//
// Reads may end in the middle of a multi-byte character; the incomplete tail
// is held back until the next read completes it.
func Copy(ctx context.Context, sink Sink, r io.Reader, opts ...Option) (int, error) {
	s := NewSender(sink, opts...)
	buf := make([]byte, 4096)
	var carry []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			cut := completeRunes(data)
			carry = append([]byte(nil), data[cut:]...)
			if werr := s.Write(ctx, string(data[:cut])); werr != nil {
				return s.Pieces(), werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.Pieces(), err
		}
	}
	if err := s.Send(ctx, string(carry), true); err != nil {
		return s.Pieces(), err
	}
	return s.Pieces(), nil
}

// completeRunes returns the length of the longest prefix of data that does
// not end inside a UTF-8 sequence.
func completeRunes(data []byte) int {
	end := len(data)
	// a UTF-8 sequence is at most 4 bytes, so only the last 3 can be incomplete
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if utf8.RuneStart(b) {
			if !utf8.FullRune(data[len(data)-i:]) {
				end = len(data) - i
			}
			break
		}
	}
	return end
}
