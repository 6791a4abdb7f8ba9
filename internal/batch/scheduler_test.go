package batch

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/gst-invoices/internal/logging"
)

type countingRunner struct {
	calls   int
	summary Summary
}

func (r *countingRunner) Run(context.Context) (Summary, error) {
	r.calls++
	return r.summary, nil
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler("every month", &countingRunner{}, logging.WithComponent(logging.Discard(), "test")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSchedulerNextIsFirstOfMonth(t *testing.T) {
	s, err := NewScheduler("", &countingRunner{}, logging.WithComponent(logging.Discard(), "test"))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	from := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	want := time.Date(2025, 8, 1, 9, 0, 0, 0, time.Local)
	if got := s.Next(from); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestSchedulerTriggerRunsBatch(t *testing.T) {
	r := &countingRunner{summary: Summary{Processed: 2, Succeeded: 2}}
	s, err := NewScheduler(DefaultSchedule, r, logging.WithComponent(logging.Discard(), "test"))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.trigger()
	r.summary = Summary{AlreadyRunning: true}
	s.trigger()
	if r.calls != 2 {
		t.Fatalf("calls = %d, want 2", r.calls)
	}
}
