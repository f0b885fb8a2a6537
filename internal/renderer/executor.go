package renderer

// executor decides where session callbacks and blocking work run.
type executor interface {
	// post queues fn to run on the session goroutine.
	post(fn func())
	// spawn runs blocking work off the session goroutine.
	spawn(fn func())
}

// loopExecutor feeds the inbox drained by Session.Run.
type loopExecutor struct {
	inbox chan func()
	quit  <-chan struct{}
}

func (e *loopExecutor) post(fn func()) {
	select {
	case e.inbox <- fn:
	case <-e.quit:
	}
}

func (e *loopExecutor) spawn(fn func()) {
	go fn()
}
