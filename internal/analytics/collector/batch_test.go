package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestFlushPublishesBuffered(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 10, 100, time.Hour)
	bc.Track("search", 1)
	bc.Track("search", 2)
	bc.Flush(context.Background())
	if pub.count() != 2 || bc.BufferLen() != 0 {
		t.Errorf("published %d, buffered %d", pub.count(), bc.BufferLen())
	}
}

func TestFailedFlushRequeues(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	bc := NewBatchCollector(pub, 2, 4, time.Hour)
	for i := 0; i < 3; i++ {
		bc.Track("k", i)
	}
	bc.Flush(context.Background())
	if bc.BufferLen() != 3 {
		t.Fatalf("buffered %d after failed flush", bc.BufferLen())
	}
	for i := 0; i < 3; i++ {
		bc.Track("k", i)
	}
	if bc.BufferLen() != 4 || bc.Dropped() != 2 {
		t.Errorf("buffered %d, dropped %d", bc.BufferLen(), bc.Dropped())
	}
}

func TestStartFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 100, 1000, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	bc.Track("k", "v")
	cancel()
	bc.Close()
	if pub.count() != 1 {
		t.Errorf("published %d on shutdown", pub.count())
	}
}

func TestFullBatchFlushesEarly(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 2, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bc.Start(ctx)
	bc.Track("k", 1)
	bc.Track("k", 2)

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if pub.count() != 2 {
		t.Errorf("published %d before interval", pub.count())
	}
}
