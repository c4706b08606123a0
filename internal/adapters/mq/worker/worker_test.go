package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/squad/internal/adapters/mq/queue"
	worker "github.com/okian/squad/internal/adapters/mq/worker"
	model "github.com/okian/squad/internal/domain/model"
	logging "github.com/okian/squad/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockFinalizer struct {
	mu      sync.Mutex
	periods []int
	fail    map[int]error
}

func newMockFinalizer() *mockFinalizer {
	return &mockFinalizer{fail: map[int]error{}}
}

func (m *mockFinalizer) ProcessBatch(ctx context.Context, b model.PeriodBatch) (model.FinalizationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods = append(m.periods, b.Period)
	if err, ok := m.fail[b.Period]; ok {
		return model.FinalizationRecord{}, err
	}
	return model.FinalizationRecord{Period: b.Period, BatchID: b.BatchID}, nil
}

func (m *mockFinalizer) seen() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.periods...)
}

// recordingLogger keeps the names and messages it was asked to log.
type recordingLogger struct {
	mu    *sync.Mutex
	name  string
	lines *[]string
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{mu: &sync.Mutex{}, lines: &[]string{}}
}

func (l recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.lines = append(*l.lines, l.name+": "+msg)
}

func (l recordingLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), *l.lines...)
}

func (l recordingLogger) Info(_ context.Context, msg string, _ ...logging.Field)  { l.record(msg) }
func (l recordingLogger) Error(_ context.Context, msg string, _ ...logging.Field) { l.record(msg) }
func (l recordingLogger) Debug(_ context.Context, msg string, _ ...logging.Field) { l.record(msg) }
func (l recordingLogger) Warn(_ context.Context, msg string, _ ...logging.Field)  { l.record(msg) }
func (l recordingLogger) Fatal(_ context.Context, msg string, _ ...logging.Field) { l.record(msg) }
func (l recordingLogger) With(...logging.Field) logging.Logger                    { return l }

func (l recordingLogger) Named(name string) logging.Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return recordingLogger{mu: l.mu, name: name, lines: l.lines}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		f := newMockFinalizer()
		w := worker.NewInMemoryWorker(q, f, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a batch is queued", func() {
			q.jobs <- model.PeriodBatch{Period: 1, BatchID: "b1"}

			convey.Convey("Then it is finalized", func() {
				convey.So(eventually(func() bool { return len(f.seen()) == 1 }), convey.ShouldBeTrue)
				convey.So(f.seen()[0], convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a finalization fails", func() {
			f.fail[2] = errors.New("boom")
			q.jobs <- model.PeriodBatch{Period: 2}
			q.jobs <- model.PeriodBatch{Period: 3}

			convey.Convey("Then the worker keeps going", func() {
				convey.So(eventually(func() bool { return len(f.seen()) == 2 }), convey.ShouldBeTrue)
				convey.So(f.seen(), convey.ShouldResemble, []int{2, 3})
			})
		})

		convey.Convey("When the worker is shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops cleanly", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, newMockFinalizer())
		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()
		_ = q.Close()

		convey.Convey("Then Run returns", func() {
			select {
			case <-done:
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		f := newMockFinalizer()
		p := worker.NewPool(2, q, f)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		convey.So(p.Size(), convey.ShouldEqual, 2)

		convey.Convey("When batches are enqueued", func() {
			for period := 1; period <= 4; period++ {
				convey.So(q.Enqueue(ctx, model.PeriodBatch{Period: period}), convey.ShouldBeTrue)
			}

			convey.Convey("Then every batch is processed once", func() {
				convey.So(eventually(func() bool { return len(f.seen()) == 4 }), convey.ShouldBeTrue)
				convey.So(f.seen(), convey.ShouldHaveLength, 4)
			})

			convey.Convey("And Shutdown closes the queue", func() {
				convey.So(eventually(func() bool { return len(f.seen()) == 4 }), convey.ShouldBeTrue)
				convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with a caller's logger", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		f := newMockFinalizer()
		rec := newRecordingLogger()
		p := worker.NewPool(1, q, f, worker.WithLogger(rec.Named("service.worker")))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		convey.So(q.Enqueue(ctx, model.PeriodBatch{Period: 1, BatchID: "b1"}), convey.ShouldBeTrue)

		convey.Convey("Then workers log through it under their own name", func() {
			convey.So(eventually(func() bool {
				for _, line := range rec.all() {
					if line == "service.worker.worker-0: period finalized" {
						return true
					}
				}
				return false
			}), convey.ShouldBeTrue)
			convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		p := worker.NewPool(0, newMockQueue(), newMockFinalizer())

		convey.Convey("Then one worker per CPU is created", func() {
			convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
