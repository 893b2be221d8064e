package llm

import (
	"careerx_backend/internal/config"
	"careerx_backend/pkg/logger"
	"careerx_backend/pkg/tracing"
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// NewProvider 根据配置创建提供方，并包裹日志与追踪
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		base, err = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return WithObservability(base), nil
}

func resolveModel(name string, aliases map[string]string, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}

type observedProvider struct {
	next Provider
}

// WithObservability 每次调用开启 span 并记录耗时与 token 用量
func WithObservability(p Provider) Provider {
	return &observedProvider{next: p}
}

func (o *observedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	schemaName := ""
	if req.Schema != nil {
		schemaName = req.Schema.Name
	}
	ctx, span := tracing.StartSpan(ctx, "llm.generate",
		attribute.String("llm.model", o.next.ModelID()),
		attribute.String("llm.schema", schemaName),
	)
	start := time.Now()
	resp, err := o.next.Generate(ctx, req)
	tracing.EndSpan(span, err)

	fields := []zap.Field{
		zap.String("model", o.next.ModelID()),
		zap.String("schema", schemaName),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		logger.Log.Warn("LLM call failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	logger.Log.Debug("LLM call succeeded", append(fields,
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)...)
	return resp, nil
}

func (o *observedProvider) ModelID() string {
	return o.next.ModelID()
}
