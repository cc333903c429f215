// Package worker runs recognition jobs off the UI thread. The queue holds a
// single slot so a capture fired while another is still recognizing gets
// dropped instead of piling up.
package worker

import (
	"context"
	"sync"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

// RecognizeFunc turns PNG pixels into text.
type RecognizeFunc func(ctx context.Context, png []byte) (string, error)

// ResultCallback fires from a worker goroutine when a job finishes.
type ResultCallback func(text string, err error)

type job struct {
	ctx context.Context
	png []byte
	cb  ResultCallback
}

// Pool is a fixed-size recognition pool with strict single-slot back-pressure.
type Pool struct {
	recognize RecognizeFunc
	jobs      chan job
	wg        sync.WaitGroup
}

// New starts size workers around the recognize function. Size defaults to 1:
// the engine process serializes requests anyway.
func New(size int, recognize RecognizeFunc) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{recognize: recognize, jobs: make(chan job, 1)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		text, err := p.recognizeWithContext(j.ctx, j.png)
		j.cb(text, err)
	}
}

// Submit enqueues a job if the slot is free. Returns false when the job was
// dropped because a recognition is already queued or running.
func (p *Pool) Submit(ctx context.Context, png []byte, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, png: png, cb: cb}:
		return true
	default:
		logutil.Debugf("worker: queue full, dropping job (%d bytes)", len(png))
		return false
	}
}

// Close drains queued work and stops the workers.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// recognizeWithContext returns early on ctx expiry; the underlying engine
// call keeps running and its stale result is discarded.
func (p *Pool) recognizeWithContext(ctx context.Context, png []byte) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		return p.recognize(ctx, png)
	}

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := p.recognize(ctx, png)
		ch <- result{text, err}
	}()
	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
