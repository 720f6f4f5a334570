package worker

import (
	"sync"

	"github.com/nimasrn/strike-client/pkg/logger"
)

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager is a job manager based on go routines. Define the
// number of internal workers and start publishing jobs with Enqueue();
// jobs are distributed among the internal pool. Workers run until
// Exit() is called. The job channel is NOT closed on exit because it
// can be externally passed in, and other processes might still be
// using it.
type WorkerManager struct {
	bufferSize     int
	jobChannel     chan interface{}
	numberOfWorker int
	stop           chan struct{}
	stopOnce       sync.Once
	do             WorkerHandler
	waiter         *sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}

	return &WorkerManager{
		bufferSize:     bufferSize,
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		stop:           make(chan struct{}),
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	if w.jobChannel == nil {
		return 0
	}
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) JobEvents() chan interface{} {
	return w.jobChannel
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue
// Publishes a job onto the channel
func (w *WorkerManager) Enqueue(val interface{}) {
	w.jobChannel <- val
}

// Start
// starts off the workers as many as defined by w.numberOfWorker and
// returns immediately. Use Exit() to stop them and wait for drain.
func (w *WorkerManager) Start() {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.stop:
					return
				}
			}
		}(i)
	}
}

// Exit
// stops all workers and blocks until each one has returned
func (w *WorkerManager) Exit() {
	logger.Info("Exit() is called and worker manager is going to be shutdown")
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	w.waiter.Wait()
}
