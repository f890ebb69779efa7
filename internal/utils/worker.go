// Package utils holds ambient infrastructure shared across the façade and
// net layers that isn't itself part of the matching engine's domain.
package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	TASK_CHAN_SIZE = 100
)

type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool maintains a bounded number of goroutines, each draining tasks
// off a shared channel and applying work to them until the tomb dies.
type WorkerPool struct {
	n     int            // number of workers
	tasks chan any       // task connection pool
	work  WorkerFunction // do work method
}

func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, TASK_CHAN_SIZE),
		n:     size,
	}
}

// AddTask enqueues task for the next free worker to pick up.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup spawns pool.n workers under t, each looping on tasks until the tomb
// dies, and blocks until t does.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	for i := 0; i < pool.n; i++ {
		t.Go(func() error {
			return pool.worker(t, work)
		})
	}
	<-t.Dying()
}

// worker drains tasks until the tomb dies or work returns an error.
func (pool *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	log.Info().Msg("worker starting")
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
