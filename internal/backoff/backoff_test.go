package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_Grows(t *testing.T) {
	b := New(100*time.Millisecond, 400*time.Millisecond)

	want := []time.Duration{100, 200, 400, 400}
	for i, w := range want {
		w *= time.Millisecond
		if b.Current() != w {
			t.Errorf("step %d: Current() = %v, want %v", i, b.Current(), w)
		}
		d := b.Next()
		lo, hi := time.Duration(float64(w)*0.8), time.Duration(float64(w)*1.2)
		if d < lo || d > hi {
			t.Errorf("step %d: Next() = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := New(10*time.Millisecond, time.Second)
	b.Next()
	b.Next()
	b.Reset()

	if b.Current() != 10*time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 10ms", b.Current())
	}
}

func TestBackoff_WaitCanceled(t *testing.T) {
	b := New(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := b.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Wait() did not return promptly on canceled context")
	}
}

func TestBackoff_WaitElapses(t *testing.T) {
	b := New(time.Millisecond, time.Millisecond)
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
