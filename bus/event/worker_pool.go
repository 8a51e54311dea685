package event

import (
	"context"
	"sync"
)

// task - задача для асинхронного выполнения: событие и его обработчик.
type task[T Event] struct {
	ctx   context.Context
	event T
	sub   *subscription[T]
}

// workerPool - фиксированный пул горутин для асинхронной обработки событий.
type workerPool[T Event] struct {
	tasks   chan task[T]
	run     func(task[T])
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// newWorkerPool создает и запускает пул воркеров.
func newWorkerPool[T Event](workers, queueSize int, run func(task[T])) *workerPool[T] {
	p := &workerPool[T]{
		tasks: make(chan task[T], queueSize),
		run:   run,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// submit ставит задачу в очередь, ожидая свободного места не дольше,
// чем живет ctx.
func (p *workerPool[T]) submit(ctx context.Context, t task[T]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrBusClosed
	}

	select {
	case p.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop закрывает очередь и дожидается обработки уже принятых задач.
func (p *workerPool[T]) stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker - основная функция горутины-воркера.
func (p *workerPool[T]) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}
