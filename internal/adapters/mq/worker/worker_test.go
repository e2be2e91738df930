package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/squadron/internal/adapters/mq/worker"
	"github.com/okian/squadron/internal/adapters/repository"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type chanQueue struct {
	ch chan model.Job
}

func newChanQueue() *chanQueue { return &chanQueue{ch: make(chan model.Job, 10)} }

func (q *chanQueue) Dequeue(context.Context) <-chan model.Job { return q.ch }

func (q *chanQueue) Close() error {
	close(q.ch)
	return nil
}

type fakeRunner struct {
	mu      sync.Mutex
	fail    map[string]error
	calls   []string
	delay   time.Duration
	started chan string
}

func (r *fakeRunner) Execute(ctx context.Context, job model.Job) (*model.Run, error) {
	r.mu.Lock()
	r.calls = append(r.calls, job.RunID)
	err := r.fail[job.RunID]
	r.mu.Unlock()

	if r.started != nil {
		r.started <- job.RunID
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.Run{
		Params: job.Params,
		Teams:  []model.TeamRecord{{TeamID: "Team_a1", Tag: "a", Members: []string{"1", "2"}, Total: 400}},
		Halt:   model.HaltPoolExhausted,
	}, nil
}

func waitFor(ctx context.Context, store repository.Store, id string) *model.Run {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := store.Get(ctx, id)
		if err == nil && run.Status.Finished() {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func TestWorker(t *testing.T) {
	Convey("Given a worker with a queue, runner and store", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := newChanQueue()
		runner := &fakeRunner{fail: map[string]error{"bad": errors.New("input unreadable")}}
		store := repository.NewMemoryStore()
		finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		created := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)

		w := worker.NewInMemoryWorker(q, runner, store,
			worker.WithName("w0"),
			worker.WithLogger(logger.Nop()),
			worker.WithClock(func() time.Time { return finished }),
		)
		go w.Run(ctx)

		queued := func(id string) {
			So(store.Save(ctx, &model.Run{ID: id, Status: model.RunQueued, CreatedAt: created}), ShouldBeNil)
			q.ch <- model.Job{RunID: id, Params: model.Params{ScoreThreshold: 300, ChunkSize: 2}}
		}

		Convey("When a job succeeds", func() {
			queued("ok")
			run := waitFor(ctx, store, "ok")

			Convey("Then the run should be stored as done with its result", func() {
				So(run, ShouldNotBeNil)
				So(run.Status, ShouldEqual, model.RunDone)
				So(run.ID, ShouldEqual, "ok")
				So(run.CreatedAt, ShouldEqual, created)
				So(run.FinishedAt, ShouldEqual, finished)
				So(run.Teams, ShouldHaveLength, 1)
				So(run.Halt, ShouldEqual, model.HaltPoolExhausted)
			})
		})

		Convey("When a job fails", func() {
			queued("bad")
			run := waitFor(ctx, store, "bad")

			Convey("Then the run should be stored as failed with the error", func() {
				So(run, ShouldNotBeNil)
				So(run.Status, ShouldEqual, model.RunFailed)
				So(run.Error, ShouldEqual, "input unreadable")
				So(run.Teams, ShouldBeEmpty)
			})
		})

		Convey("When the run record is missing", func() {
			q.ch <- model.Job{RunID: "ghost"}
			queued("after")

			Convey("Then the worker should skip it and keep going", func() {
				So(waitFor(ctx, store, "after"), ShouldNotBeNil)
			})
		})

		Convey("When shut down after its queue is closed", func() {
			sctx, scancel := context.WithTimeout(ctx, time.Second)
			defer scancel()
			So(q.Close(), ShouldBeNil)

			Convey("Then it should stop and tolerate a second call", func() {
				So(w.Shutdown(sctx), ShouldBeNil)
				So(w.Shutdown(sctx), ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of three workers", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()

		q := newChanQueue()
		runner := &fakeRunner{}
		store := repository.NewMemoryStore()
		pool := worker.NewPool(3, q, runner, store, worker.WithLogger(logger.Nop()))
		So(pool.Size(), ShouldEqual, 3)
		pool.Start(ctx)

		for _, id := range []string{"a", "b", "c", "d"} {
			So(store.Save(ctx, &model.Run{ID: id, Status: model.RunQueued}), ShouldBeNil)
			q.ch <- model.Job{RunID: id}
		}

		Convey("Then every job should complete", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				run := waitFor(ctx, store, id)
				So(run, ShouldNotBeNil)
				So(run.Status, ShouldEqual, model.RunDone)
			}

			Convey("And shutdown should close the queue", func() {
				So(pool.Shutdown(ctx), ShouldBeNil)
				_, open := <-q.ch
				So(open, ShouldBeFalse)
			})
		})
	})
}

func TestPoolDefaultSize(t *testing.T) {
	Convey("Given a non-positive worker count", t, func() {
		So(logger.Init(), ShouldBeNil)
		pool := worker.NewPool(0, newChanQueue(), &fakeRunner{}, repository.NewMemoryStore())

		Convey("Then the pool should still have workers", func() {
			So(pool.Size(), ShouldBeGreaterThan, 0)
		})
	})
}

func TestPoolShutdownDrainsQueue(t *testing.T) {
	Convey("Given one slow worker with four queued runs", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		ids := []string{"r1", "r2", "r3", "r4"}

		q := newChanQueue()
		runner := &fakeRunner{delay: 50 * time.Millisecond, started: make(chan string, len(ids))}
		store := repository.NewMemoryStore()
		pool := worker.NewPool(1, q, runner, store, worker.WithLogger(logger.Nop()))
		for _, id := range ids {
			So(store.Save(ctx, &model.Run{ID: id, Status: model.RunQueued}), ShouldBeNil)
			q.ch <- model.Job{RunID: id}
		}
		pool.Start(ctx)

		Convey("When the pool shuts down during the first run", func() {
			So(<-runner.started, ShouldEqual, "r1")
			err := pool.Shutdown(ctx)

			Convey("Then every queued run should still be executed", func() {
				So(err, ShouldBeNil)
				for _, id := range ids {
					run, gerr := store.Get(ctx, id)
					So(gerr, ShouldBeNil)
					So(run.Status, ShouldEqual, model.RunDone)
				}
			})
		})
	})
}

func TestPoolShutdownTimeout(t *testing.T) {
	Convey("Given one worker stuck on a long run with more runs queued", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		ids := []string{"s1", "s2", "s3"}

		q := newChanQueue()
		runner := &fakeRunner{delay: time.Minute, started: make(chan string, len(ids))}
		store := repository.NewMemoryStore()
		pool := worker.NewPool(1, q, runner, store, worker.WithLogger(logger.Nop()))
		for _, id := range ids {
			So(store.Save(ctx, &model.Run{ID: id, Status: model.RunQueued}), ShouldBeNil)
			q.ch <- model.Job{RunID: id}
		}
		pool.Start(ctx)

		Convey("When shutdown times out", func() {
			So(<-runner.started, ShouldEqual, "s1")
			sctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(sctx)

			Convey("Then no run should be left queued", func() {
				So(err, ShouldNotBeNil)

				first, gerr := store.Get(ctx, "s1")
				So(gerr, ShouldBeNil)
				So(first.Status, ShouldEqual, model.RunFailed)
				So(first.Error, ShouldContainSubstring, "context canceled")

				for _, id := range ids[1:] {
					run, gerr := store.Get(ctx, id)
					So(gerr, ShouldBeNil)
					So(run.Status, ShouldEqual, model.RunFailed)
					So(run.Error, ShouldEqual, "not processed: shutdown")
					So(run.FinishedAt.IsZero(), ShouldBeFalse)
				}
				So(runner.calls, ShouldResemble, []string{"s1"})
			})
		})
	})
}
