package providers

import "context"

// boundedProvider limits in-flight Chat calls with a semaphore so a burst of
// API requests cannot blow through the backend's rate limits.
type boundedProvider struct {
	inner LLMProvider
	sem   chan struct{}
}

// WithMaxConcurrent wraps p so at most n Chat calls run at once. Waiting
// callers respect context cancellation.
func WithMaxConcurrent(p LLMProvider, n int) LLMProvider {
	if n < 1 {
		n = 1
	}
	return &boundedProvider{inner: p, sem: make(chan struct{}, n)}
}

func (b *boundedProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any) (*LLMResponse, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-b.sem }()

	return b.inner.Chat(ctx, messages, tools, model, options)
}

func (b *boundedProvider) GetDefaultModel() string {
	return b.inner.GetDefaultModel()
}
