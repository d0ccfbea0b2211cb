package providers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type slowProvider struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any) (*LLMResponse, error) {
	cur := s.inFlight.Add(1)
	for {
		peak := s.peak.Load()
		if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	s.inFlight.Add(-1)
	return &LLMResponse{Content: "ok", FinishReason: "stop"}, nil
}

func (s *slowProvider) GetDefaultModel() string { return "test" }

func TestWithMaxConcurrent_BoundsInFlightCalls(t *testing.T) {
	inner := &slowProvider{}
	bounded := WithMaxConcurrent(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bounded.Chat(context.Background(), nil, nil, "test", nil)
		}()
	}
	wg.Wait()

	if peak := inner.peak.Load(); peak > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", peak)
	}
}

func TestWithMaxConcurrent_WaiterHonorsCancellation(t *testing.T) {
	inner := &slowProvider{}
	bounded := WithMaxConcurrent(inner, 1)

	// Occupy the only slot.
	release := make(chan struct{})
	go func() {
		bounded.Chat(context.Background(), nil, nil, "test", nil)
		close(release)
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := bounded.Chat(ctx, nil, nil, "test", nil)
	if err == nil {
		t.Error("expected context error while waiting for a slot")
	}
	<-release
}
