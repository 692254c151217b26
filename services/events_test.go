package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	mu        sync.Mutex
	closed    bool
	published []amqp.Publishing
	// block, when set, holds the first publish until it is closed.
	block   chan struct{}
	started chan struct{}
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	first := len(f.published) == 0
	f.published = append(f.published, msg)
	block := f.block
	f.mu.Unlock()

	if first && block != nil {
		close(f.started)
		<-block
	}
	return nil
}

func (f *fakeChannel) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newTestEventService(channels ...*fakeChannel) (*EventService, *int) {
	dials := 0
	svc := &EventService{url: "amqp://test", queue: "study.events"}
	svc.dial = func(url, queue string) (eventChannel, io.Closer, error) {
		if dials >= len(channels) {
			return nil, nil, errors.New("broker down")
		}
		ch := channels[dials]
		dials++
		return ch, nopCloser{}, nil
	}
	return svc, &dials
}

func TestEventPublishDoesNotSerializeCallers(t *testing.T) {
	ch := &fakeChannel{block: make(chan struct{}), started: make(chan struct{})}
	svc, _ := newTestEventService(ch)
	ctx := context.Background()

	go svc.Publish(ctx, Event{Type: EventQuizGenerated, DeviceID: "dev-1"})
	<-ch.started

	done := make(chan struct{})
	go func() {
		svc.Publish(ctx, Event{Type: EventQuizSubmitted, DeviceID: "dev-2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("second publish waited on the first")
	}
	close(ch.block)

	if n := ch.count(); n != 2 {
		t.Fatalf("published %d events, want 2", n)
	}
}

func TestEventPublishRedialsClosedChannel(t *testing.T) {
	first, second := &fakeChannel{}, &fakeChannel{}
	svc, dials := newTestEventService(first, second)
	ctx := context.Background()

	svc.Publish(ctx, Event{Type: EventQuizGenerated})
	if first.count() != 1 || *dials != 1 {
		t.Fatalf("first publish: count=%d dials=%d", first.count(), *dials)
	}

	_ = first.Close()
	svc.Publish(ctx, Event{Type: EventQuizGenerated})
	if *dials != 1 {
		t.Fatalf("redial inside the interval: dials=%d", *dials)
	}

	svc.mu.Lock()
	svc.lastDial = time.Now().Add(-redialInterval)
	svc.mu.Unlock()

	svc.Publish(ctx, Event{Type: EventPaymentCompleted})
	if *dials != 2 || second.count() != 1 {
		t.Fatalf("after redial: dials=%d second=%d", *dials, second.count())
	}
}

func TestEventPublishWithoutURLIsNoop(t *testing.T) {
	svc, dials := newTestEventService(&fakeChannel{})
	svc.url = ""

	svc.Publish(context.Background(), Event{Type: EventQuizGenerated})
	if *dials != 0 {
		t.Fatalf("dialed %d times without a url", *dials)
	}
}
