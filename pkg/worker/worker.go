package worker

import "github.com/snagd/snagd/pkg/logger"

var workerLogger = logger.Get("Worker")

type (
	WakeupChan   chan int
	WorkerStatus int

	// Task is the function a worker runs each time it wakes. The boolean
	// return indicates whether any work was claimed; a worker whose task
	// reports no work goes back to sleep until woken.
	Task func(Worker) (bool, error)

	Worker interface {
		Start()
		Status() WorkerStatus
		WakeupChan() WakeupChan
		Label() string
		Sleep() bool
		Close()
	}

	taskWorker struct {
		label         string
		task          Task
		wakeupChan    WakeupChan
		currentStatus WorkerStatus
	}
)

const (
	SLEEPING WorkerStatus = iota
	WORKING
	FINISHED
)

func NewWorker(label string, task Task) *taskWorker {
	return &taskWorker{
		label:         label,
		task:          task,
		wakeupChan:    make(WakeupChan),
		currentStatus: SLEEPING,
	}
}

// Start runs the workers task in a loop. Each iteration that reports
// no claimed work puts the worker to sleep; the loop ends when the
// wakeup channel is closed.
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.NEW, "Starting worker %s\n", worker.label)
	worker.currentStatus = WORKING

	for {
		claimed, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker %s task reported error (%T): %v\n", worker.label, err, err)
		}

		if !claimed {
			if !worker.Sleep() {
				return
			}
		}
	}
}

func (worker *taskWorker) Status() WorkerStatus { return worker.currentStatus }

func (worker *taskWorker) WakeupChan() WakeupChan { return worker.wakeupChan }

func (worker *taskWorker) Label() string { return worker.label }

// Close closes the worker by closing the wakeup channel. Note that this
// does not interrupt an in-flight task.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// Sleep blocks until the wakeup channel is signalled from another
// goroutine. Returns false if the channel was closed, indicating the
// worker should quit.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.currentStatus = SLEEPING

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.currentStatus = WORKING
	} else {
		workerLogger.Emit(logger.STOP, "Wakeup channel for worker '%s' closed - worker is exiting\n", worker.label)
		worker.currentStatus = FINISHED
	}

	return isAlive
}
