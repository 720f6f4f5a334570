// Package watcher polls charges until their payment clears.
//
// The sync engine itself never blocks waiting for a payment; callers
// that want "tell me when this invoice is paid" register the charge
// here and read the event channel.
package watcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/strike-client/charge"
	"github.com/nimasrn/strike-client/pkg/logger"
	"github.com/nimasrn/strike-client/pkg/worker"
)

// Event reports the outcome of one watch. Exactly one event is emitted
// per Watch call: Paid true on settlement, or Err set when polling
// stopped early.
type Event struct {
	WatchID string
	Charge  *charge.Charge
	Paid    bool
	Err     error
}

type Config struct {
	PollInterval time.Duration
	Workers      int
	Buffer       int
}

type Watcher struct {
	config  Config
	manager *worker.WorkerManager
	events  chan Event
	stop    chan struct{}
}

type watchJob struct {
	id  string
	ctx context.Context
	ch  *charge.Charge
}

func New(config Config) *Watcher {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Workers == 0 {
		config.Workers = 4
	}
	if config.Buffer == 0 {
		config.Buffer = 64
	}

	w := &Watcher{
		config: config,
		events: make(chan Event, config.Buffer),
		stop:   make(chan struct{}),
	}
	w.manager = worker.NewWorkerManager(config.Buffer, config.Workers, nil)
	w.manager.SetWorker(w.watch)
	w.manager.Start()

	return w
}

// Watch registers a charge for payment polling and returns the watch
// id its event will carry. The charge is owned by a single worker for
// the duration of the watch; the caller must not touch it until the
// event arrives.
func (w *Watcher) Watch(ctx context.Context, ch *charge.Charge) string {
	id := uuid.New().String()
	w.manager.Enqueue(&watchJob{id: id, ctx: ctx, ch: ch})
	logger.Debug("charge watch registered", "watch_id", id)
	return id
}

func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops all workers and closes the event channel. Watches still
// in flight emit no event.
func (w *Watcher) Close() {
	close(w.stop)
	w.manager.Exit()
	close(w.events)
}

func (w *Watcher) watch(workerIndex int, job interface{}) {
	j := job.(*watchJob)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		paid, err := j.ch.Paid(j.ctx)
		if err != nil {
			w.emit(Event{WatchID: j.id, Charge: j.ch, Err: err})
			return
		}
		if paid {
			w.emit(Event{WatchID: j.id, Charge: j.ch, Paid: true})
			return
		}

		select {
		case <-j.ctx.Done():
			w.emit(Event{WatchID: j.id, Charge: j.ch, Err: j.ctx.Err()})
			return
		case <-w.stop:
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	case <-w.stop:
	}
}
