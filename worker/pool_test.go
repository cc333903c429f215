package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJob(t *testing.T) {
	p := New(1, func(ctx context.Context, png []byte) (string, error) {
		return "テスト", nil
	})
	defer p.Close()

	done := make(chan struct{})
	var got string
	ok := p.Submit(context.Background(), []byte("png"), func(text string, err error) {
		if err != nil {
			t.Errorf("callback err: %v", err)
		}
		got = text
		close(done)
	})
	if !ok {
		t.Fatal("Submit returned false on an idle pool")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
	if got != "テスト" {
		t.Errorf("text = %q", got)
	}
}

func TestPoolDropsWhenBusy(t *testing.T) {
	block := make(chan struct{})
	var calls atomic.Int32
	p := New(1, func(ctx context.Context, png []byte) (string, error) {
		calls.Add(1)
		<-block
		return "", nil
	})
	defer p.Close()

	first := make(chan struct{})
	if !p.Submit(context.Background(), nil, func(string, error) { close(first) }) {
		t.Fatal("first Submit dropped")
	}

	// Wait until the worker picks the first job up, then fill the slot.
	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never started first job")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if !p.Submit(context.Background(), nil, func(string, error) {}) {
		t.Fatal("second Submit should occupy the single queue slot")
	}
	if p.Submit(context.Background(), nil, func(string, error) {
		t.Error("dropped job callback must not fire")
	}) {
		t.Error("third Submit should be dropped while slot is full")
	}

	close(block)
	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first job never completed")
	}
}

func TestPoolHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := New(1, func(ctx context.Context, png []byte) (string, error) {
		<-release
		return "late", nil
	})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	p.Submit(ctx, nil, func(text string, err error) { errCh <- err })

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want DeadlineExceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
}
