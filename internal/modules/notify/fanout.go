// README: Concurrent best-effort push fan-out; one failing target never blocks the rest.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"zdeliver/internal/types"
)

// Notifier abstracts the push transport. The core never sees protocol detail.
type Notifier interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Recorder persists delivered notifications (the notifications table).
// Optional; a nil Recorder disables persistence.
type Recorder interface {
	Record(ctx context.Context, n Record) error
}

type Target struct {
	VendorID types.ID
	UserID   types.ID
	Token    string
	Title    string
	Body     string
	Data     map[string]string
}

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type Result struct {
	VendorID types.ID
	Outcome  Outcome
	Reason   string
}

type Record struct {
	ReceiverType string // "vendor" or "user"
	UserID       types.ID
	VendorID     types.ID
	BookingID    types.ID
	Title        string
	Description  string
}

type Fanout struct {
	notifier Notifier
	recorder Recorder
	timeout  time.Duration
}

func NewFanout(notifier Notifier, recorder Recorder, timeout time.Duration) *Fanout {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fanout{notifier: notifier, recorder: recorder, timeout: timeout}
}

// NotifyAll sends to every target concurrently and always returns one result
// per target, in input order. A hung transport call is cut off by the per-send
// timeout; errors are isolated per target.
func (f *Fanout) NotifyAll(ctx context.Context, targets []Target) []Result {
	results := make([]Result, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		if t.Token == "" {
			results[i] = Result{VendorID: t.VendorID, Outcome: OutcomeSkipped, Reason: "no push token"}
			continue
		}
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			results[i] = f.sendOne(ctx, t)
		}(i, t)
	}
	wg.Wait()

	return results
}

// NotifyUser is the single-recipient variant used for post-acceptance and
// rejection notices.
func (f *Fanout) NotifyUser(ctx context.Context, bookingID, userID, vendorID types.ID, token, title, body string, data map[string]string) error {
	if token == "" {
		log.Printf("notify: user %s has no push token, skipping", userID)
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.notifier.Send(sendCtx, token, title, body, data); err != nil {
		return err
	}
	f.record(ctx, Record{
		ReceiverType: "user",
		UserID:       userID,
		VendorID:     vendorID,
		BookingID:    bookingID,
		Title:        title,
		Description:  body,
	})
	return nil
}

func (f *Fanout) sendOne(ctx context.Context, t Target) Result {
	sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.notifier.Send(sendCtx, t.Token, t.Title, t.Body, t.Data); err != nil {
		log.Printf("notify: send to vendor %s failed: %v", t.VendorID, err)
		return Result{VendorID: t.VendorID, Outcome: OutcomeFailed, Reason: err.Error()}
	}
	f.record(ctx, Record{
		ReceiverType: "vendor",
		UserID:       t.UserID,
		VendorID:     t.VendorID,
		BookingID:    types.ID(t.Data["booking_id"]),
		Title:        t.Title,
		Description:  t.Body,
	})
	return Result{VendorID: t.VendorID, Outcome: OutcomeSent}
}

func (f *Fanout) record(ctx context.Context, r Record) {
	if f.recorder == nil {
		return
	}
	if err := f.recorder.Record(ctx, r); err != nil {
		log.Printf("notify: record notification: %v", err)
	}
}

// CountSent is a convenience for dispatch summaries.
func CountSent(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Outcome == OutcomeSent {
			n++
		}
	}
	return n
}
