// Package llm 提供可选的大模型润色：在规则改写之后，让模型把文本改得更适合朗读。
package llm

import "context"

// Message 是对话中的一条消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider 是一次性返回完整回复的对话接口。
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
