package transcoder

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateFetchingMetadata: "fetching_metadata",
		StateTransforming:     "transforming",
		StateStreaming:        "streaming",
		StateDone:             "done",
		StateFailed:           "failed",
		State(42):             "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateFetchingMetadata, StateTransforming, true},
		{StateFetchingMetadata, StateFailed, true},
		{StateFetchingMetadata, StateStreaming, false},
		{StateTransforming, StateStreaming, true},
		{StateTransforming, StateFailed, true},
		{StateTransforming, StateDone, false},
		{StateStreaming, StateDone, true},
		{StateStreaming, StateFailed, true},
		{StateDone, StateFailed, false},
		{StateFailed, StateTransforming, false},
		{StateFailed, StateFailed, false},
		{StateDone, StateDone, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !StateDone.Terminal() || !StateFailed.Terminal() {
		t.Error("Done and Failed must be terminal")
	}
	if StateStreaming.Terminal() {
		t.Error("Streaming must not be terminal")
	}
}

func TestAwaitResult(t *testing.T) {
	v, err := await(context.Background(), async(func() (int, error) { return 7, nil }), nil)
	if err != nil || v != 7 {
		t.Errorf("Expected 7, nil; got %d, %v", v, err)
	}

	boom := errors.New("boom")
	_, err = await(context.Background(), async(func() (int, error) { return 0, boom }), nil)
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestAwaitCanceledReleasesLateValue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gate := make(chan struct{})
	released := make(chan int, 1)

	ch := async(func() (int, error) {
		<-gate
		return 9, nil
	})

	cancel()
	if _, err := await(ctx, ch, func(v int) { released <- v }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	close(gate)
	select {
	case v := <-released:
		if v != 9 {
			t.Errorf("Expected released value 9, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Late value was not released")
	}
}
