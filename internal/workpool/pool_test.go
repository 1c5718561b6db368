package workpool_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"briefcast/internal/workpool"
)

type session struct {
	id     int
	closed atomic.Bool
	used   atomic.Int32
}

type outcome struct {
	item    int
	session int
	err     error
}

func newPool(size int, sessions *sync.Map, created *atomic.Int32) *workpool.Pool[int, outcome, *session] {
	return &workpool.Pool[int, outcome, *session]{
		Size: size,
		NewWorker: func(ctx context.Context, worker int) (*session, error) {
			created.Add(1)
			s := &session{id: worker}
			sessions.Store(worker, s)
			return s, nil
		},
		CloseWorker: func(s *session) { s.closed.Store(true) },
		OnPanic: func(item int, recovered error) outcome {
			return outcome{item: item, err: recovered}
		},
	}
}

func TestRunNeverExceedsPoolSize(t *testing.T) {
	var (
		sessions sync.Map
		created  atomic.Int32
		inFlight atomic.Int32
		maxSeen  atomic.Int32
	)
	pool := newPool(2, &sessions, &created)
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}

	var got []outcome
	pool.Run(context.Background(), items, func(ctx context.Context, s *session, item int) outcome {
		n := inFlight.Add(1)
		for {
			prev := maxSeen.Load()
			if n <= prev || maxSeen.CompareAndSwap(prev, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		s.used.Add(1)
		return outcome{item: item, session: s.id}
	}, func(o outcome) {
		got = append(got, o)
	})

	if len(got) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(got))
	}
	if maxSeen.Load() > 2 {
		t.Fatalf("observed %d concurrent items, limit is 2", maxSeen.Load())
	}
	workers := pool.Workers(len(items))
	if int(created.Load()) > workers {
		t.Fatalf("created %d sessions for %d workers", created.Load(), workers)
	}
	var total int32
	sessions.Range(func(_, v any) bool {
		s := v.(*session)
		if !s.closed.Load() {
			t.Errorf("session %d was not closed", s.id)
		}
		total += s.used.Load()
		return true
	})
	if total != int32(len(items)) {
		t.Fatalf("sessions handled %d items, expected %d", total, len(items))
	}
}

func TestRunConvertsPanicsToResults(t *testing.T) {
	var (
		sessions sync.Map
		created  atomic.Int32
	)
	pool := newPool(3, &sessions, &created)

	failures := 0
	successes := 0
	pool.Run(context.Background(), []int{1, 2, 3}, func(ctx context.Context, s *session, item int) outcome {
		if item == 2 {
			panic("boom")
		}
		return outcome{item: item}
	}, func(o outcome) {
		if o.err != nil {
			failures++
			if !strings.Contains(o.err.Error(), "boom") {
				t.Errorf("unexpected panic error %v", o.err)
			}
			return
		}
		successes++
	})

	if failures != 1 || successes != 2 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", successes, failures)
	}
}

func TestRunReportsWorkerSetupFailure(t *testing.T) {
	pool := &workpool.Pool[int, error, struct{}]{
		Size: 1,
		NewWorker: func(ctx context.Context, worker int) (struct{}, error) {
			return struct{}{}, errors.New("model not installed")
		},
		OnPanic: func(item int, recovered error) error { return recovered },
		OnWorkerError: func(item int, err error) error {
			return fmt.Errorf("item %d: %w", item, err)
		},
	}

	var errs []error
	pool.Run(context.Background(), []int{1, 2}, func(ctx context.Context, _ struct{}, item int) error {
		t.Error("fn must not run when worker setup fails")
		return nil
	}, func(err error) { errs = append(errs, err) })

	if len(errs) != 2 {
		t.Fatalf("expected every item to fail, got %v", errs)
	}
}

func TestWorkersBounds(t *testing.T) {
	pool := &workpool.Pool[int, int, struct{}]{Size: 0}
	if got := pool.Workers(5); got != 1 {
		t.Fatalf("expected at least one worker, got %d", got)
	}
	pool.Size = 64
	if got := pool.Workers(2); got > 2 {
		t.Fatalf("workers must not exceed item count, got %d", got)
	}
}
