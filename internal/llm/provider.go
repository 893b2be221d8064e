// Package llm 封装生成式 AI 调用，所有结构化输出在边界处按 JSON Schema 校验
package llm

import (
	"context"
	"encoding/json"
)

// Provider 生成式模型的统一抽象
type Provider interface {
	// Generate 发送请求；Schema 非空时返回经过校验的 JSON
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Schema 期望的 JSON 结构，Name 同时作为编译缓存的键
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Decode 将响应内容解析到 v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &ErrInvalidResponse{Content: r.Content, Err: err}
	}
	return nil
}
