package core

import (
	"errors"
	"testing"
	"time"
)

func newTestPolicy(slept *[]time.Duration) WritePolicy {
	return WritePolicy{
		WriteDelay:      200 * time.Millisecond,
		LargeBatchSize:  30,
		LargeBatchDelay: 100 * time.Millisecond,
		MaxAttempts:     5,
		RetryBaseDelay:  time.Second,
		sleepFunc:       func(d time.Duration) { *slept = append(*slept, d) },
	}
}

func TestWritePolicy_Pause(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		want      time.Duration
	}{
		{name: "small batch", batchSize: 10, want: 200 * time.Millisecond},
		{name: "at threshold", batchSize: 30, want: 200 * time.Millisecond},
		{name: "large batch", batchSize: 31, want: 300 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept []time.Duration
			p := newTestPolicy(&slept)

			p.Pause(tt.batchSize)

			if len(slept) != 1 || slept[0] != tt.want {
				t.Errorf("Pause() slept %v, want [%v]", slept, tt.want)
			}
		})
	}
}

func TestWritePolicy_Retry(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("success on first attempt", func(t *testing.T) {
		var slept []time.Duration
		p := newTestPolicy(&slept)

		calls := 0
		err := p.Retry(func() error { calls++; return nil })

		if err != nil {
			t.Errorf("Retry() error = %v", err)
		}
		if calls != 1 {
			t.Errorf("Retry() calls = %d, want 1", calls)
		}
		if len(slept) != 0 {
			t.Errorf("Retry() slept %v, want none", slept)
		}
	})

	t.Run("rate limit retried with doubling delay", func(t *testing.T) {
		var slept []time.Duration
		p := newTestPolicy(&slept)

		calls := 0
		err := p.Retry(func() error {
			calls++
			if calls < 3 {
				return ErrRateLimited
			}
			return nil
		})

		if err != nil {
			t.Errorf("Retry() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("Retry() calls = %d, want 3", calls)
		}
		want := []time.Duration{time.Second, 2 * time.Second}
		if len(slept) != len(want) || slept[0] != want[0] || slept[1] != want[1] {
			t.Errorf("Retry() slept %v, want %v", slept, want)
		}
	})

	t.Run("exhausted attempts return the rate limit error", func(t *testing.T) {
		var slept []time.Duration
		p := newTestPolicy(&slept)

		calls := 0
		err := p.Retry(func() error { calls++; return ErrRateLimited })

		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("Retry() error = %v, want ErrRateLimited", err)
		}
		if calls != 5 {
			t.Errorf("Retry() calls = %d, want 5", calls)
		}
		if len(slept) != 4 {
			t.Errorf("Retry() slept %d times, want 4", len(slept))
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		var slept []time.Duration
		p := newTestPolicy(&slept)

		calls := 0
		err := p.Retry(func() error { calls++; return errBoom })

		if err != errBoom {
			t.Errorf("Retry() error = %v, want %v", err, errBoom)
		}
		if calls != 1 {
			t.Errorf("Retry() calls = %d, want 1", calls)
		}
	})

	t.Run("zero attempts still run once", func(t *testing.T) {
		p := WritePolicy{}
		calls := 0
		if err := p.Retry(func() error { calls++; return nil }); err != nil {
			t.Errorf("Retry() error = %v", err)
		}
		if calls != 1 {
			t.Errorf("Retry() calls = %d, want 1", calls)
		}
	})
}
