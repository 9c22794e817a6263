// README: Fan-out tests: per-target isolation, skip semantics, and concurrency timing.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"zdeliver/internal/types"
)

// stubNotifier fails for tokens carrying a "bad" prefix and sleeps for tokens
// carrying a "slow" prefix.
type stubNotifier struct {
	mu    sync.Mutex
	sent  []string
	delay time.Duration
}

func (s *stubNotifier) Send(ctx context.Context, token, _, _ string, _ map[string]string) error {
	if strings.HasPrefix(token, "bad") {
		return errors.New("transport exploded")
	}
	if strings.HasPrefix(token, "slow") && s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.sent = append(s.sent, token)
	s.mu.Unlock()
	return nil
}

func targetsFor(tokens ...string) []Target {
	out := make([]Target, len(tokens))
	for i, tok := range tokens {
		out[i] = Target{VendorID: types.ID("v" + tok), Token: tok, Title: "t", Body: "b"}
	}
	return out
}

func countOutcome(results []Result, o Outcome) int {
	n := 0
	for _, r := range results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

func TestNotifyAll_PartialFailure(t *testing.T) {
	f := NewFanout(&stubNotifier{}, nil, time.Second)
	results := f.NotifyAll(context.Background(), targetsFor("ok1", "bad1", "ok2", "bad2", "ok3"))

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if got := countOutcome(results, OutcomeSent); got != 3 {
		t.Errorf("expected 3 sent, got %d", got)
	}
	if got := countOutcome(results, OutcomeFailed); got != 2 {
		t.Errorf("expected 2 failed, got %d", got)
	}
}

func TestNotifyAll_SkipsMissingTokens(t *testing.T) {
	f := NewFanout(&stubNotifier{}, nil, time.Second)
	targets := targetsFor("ok1")
	targets = append(targets, Target{VendorID: "v_tokenless"})

	results := f.NotifyAll(context.Background(), targets)
	if results[1].Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", results[1].Outcome)
	}
	if results[0].Outcome != OutcomeSent {
		t.Fatalf("expected sent, got %s", results[0].Outcome)
	}
}

// TestNotifyAll_RunsConcurrently checks the fan-out completes in roughly the
// time of the slowest single send, not the sum.
func TestNotifyAll_RunsConcurrently(t *testing.T) {
	const delay = 100 * time.Millisecond
	f := NewFanout(&stubNotifier{delay: delay}, nil, time.Second)

	start := time.Now()
	results := f.NotifyAll(context.Background(), targetsFor("slow1", "slow2", "slow3", "slow4", "slow5"))
	elapsed := time.Since(start)

	if got := countOutcome(results, OutcomeSent); got != 5 {
		t.Fatalf("expected 5 sent, got %d", got)
	}
	if elapsed > 3*delay {
		t.Errorf("fan-out took %v; looks serial for 5 sends of %v each", elapsed, delay)
	}
}

func TestNotifyAll_TimeoutCutsHungSend(t *testing.T) {
	f := NewFanout(&stubNotifier{delay: 500 * time.Millisecond}, nil, 50*time.Millisecond)

	results := f.NotifyAll(context.Background(), targetsFor("slow1", "ok1"))
	if results[0].Outcome != OutcomeFailed {
		t.Errorf("expected hung send to fail by timeout, got %s", results[0].Outcome)
	}
	if results[1].Outcome != OutcomeSent {
		t.Errorf("expected fast send to succeed, got %s", results[1].Outcome)
	}
}

func TestNotifyAll_EmptyTargets(t *testing.T) {
	f := NewFanout(&stubNotifier{}, nil, time.Second)
	results := f.NotifyAll(context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("expected empty result list, got %d", len(results))
	}
}
