package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/squad/internal/domain/model"
)

func batch(id string, period int) model.PeriodBatch {
	return model.PeriodBatch{BatchID: id, Period: period}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, batch("b1", 1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.BatchID != "b1" || j.Period != 1 {
		t.Errorf("expected b1/1, got %s/%d", j.BatchID, j.Period)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithBufferSize(4))
	ctx := context.Background()

	if !q.Enqueue(ctx, batch("b1", 1)) || !q.Enqueue(ctx, batch("b2", 2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, batch("b3", 3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_OrderPreserved(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for p := 1; p <= 5; p++ {
		if !q.Enqueue(ctx, batch(fmt.Sprintf("b%d", p), p)) {
			t.Fatalf("enqueue %d failed", p)
		}
	}
	_ = q.Close()

	want := 1
	for j := range q.Dequeue(ctx) {
		if j.Period != want {
			t.Errorf("expected period %d, got %d", want, j.Period)
		}
		want++
	}
	if want != 6 {
		t.Errorf("expected 5 jobs, got %d", want-1)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16), WithBufferSize(16))
	ctx := context.Background()
	const producers, perProducer = 4, 25

	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	go func() {
		for range q.Dequeue(ctx) {
			consumed.Done()
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, batch(fmt.Sprintf("b%d_%d", id, j), j+1)) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	wg.Wait()

	done := make(chan struct{})
	go func() {
		consumed.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumers")
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, batch("b1", 1)) {
		t.Fatal("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, batch("b2", 2)) {
		t.Error("expected enqueue to fail after close")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	var got []string
	for j := range q.Dequeue(ctx) {
		got = append(got, j.BatchID)
	}
	if len(got) != 1 || got[0] != "b1" {
		t.Errorf("expected queued job to drain, got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1), WithBufferSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a full buffer forces the select to observe ctx or default
	if !q.Enqueue(context.Background(), batch("b1", 1)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, batch("b2", 2)) {
		t.Error("expected enqueue to fail")
	}
}
