package core

import (
	"errors"
	"time"
)

// ErrRateLimited is returned by repositories when the backing store rejects a
// write for pacing reasons. It is the only error class the writer retries.
var ErrRateLimited = errors.New("store rate limit exceeded")

type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// WritePolicy decouples write pacing and retry from business logic: services
// call Pause between writes and Retry around each one, and tests inject a
// zero-delay policy.
type WritePolicy struct {
	WriteDelay      time.Duration
	LargeBatchSize  int
	LargeBatchDelay time.Duration
	MaxAttempts     int
	RetryBaseDelay  time.Duration

	sleepFunc func(time.Duration) // mockable
}

func NewWritePolicy(conf SeederConfig) WritePolicy {
	return WritePolicy{
		WriteDelay:      conf.WriteDelay,
		LargeBatchSize:  conf.LargeBatchSize,
		LargeBatchDelay: conf.LargeBatchDelay,
		MaxAttempts:     conf.MaxWriteAttempts,
		RetryBaseDelay:  conf.RetryBaseDelay,
		sleepFunc:       time.Sleep,
	}
}

func (p WritePolicy) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if p.sleepFunc != nil {
		p.sleepFunc(d)
		return
	}
	time.Sleep(d)
}

// Pause sleeps the configured inter-write delay; batches past LargeBatchSize
// get the extra increment. Courtesy pacing, not backpressure.
func (p WritePolicy) Pause(batchSize int) {
	delay := p.WriteDelay
	if p.LargeBatchSize > 0 && batchSize > p.LargeBatchSize {
		delay += p.LargeBatchDelay
	}
	p.sleep(delay)
}

// Retry runs fn, retrying on ErrRateLimited with a doubling delay up to
// MaxAttempts. Any other error is returned as-is on the first occurrence.
func (p WritePolicy) Retry(fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.RetryBaseDelay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
		if i < attempts-1 {
			p.sleep(delay)
			delay *= 2
		}
	}
	return err
}
