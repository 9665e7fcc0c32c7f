package app

import (
	"fmt"
	"testing"

	"github.com/jaakkos/loomwork/internal/domain"
)

func TestBroadcasterDelivery(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Publish(domain.Event{Kind: domain.EventPhaseChanged, Detail: "design"})

	ev := <-ch
	if ev.Kind != domain.EventPhaseChanged || ev.Detail != "design" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestBroadcasterDropsSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(2)
	defer cancel()

	// Fill the buffer and then overflow it without draining.
	for i := 0; i < 3; i++ {
		b.Publish(domain.Event{Kind: domain.EventTaskAdded, TaskID: fmt.Sprintf("%d", i)})
	}

	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("slow subscriber should have been dropped, %d remain", got)
	}

	// Buffered events are still readable, then the channel closes.
	var received int
	for range ch {
		received++
	}
	if received != 2 {
		t.Errorf("expected 2 buffered events before close, got %d", received)
	}
}

func TestBroadcasterCancelIdempotent(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe(1)
	cancel()
	cancel() // must not panic on double close

	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}
}

func TestBroadcasterHistoryBounded(t *testing.T) {
	b := NewBroadcaster()
	for i := 0; i < defaultHistoryCap+50; i++ {
		b.Publish(domain.Event{Kind: domain.EventTaskAdded, TaskID: fmt.Sprintf("%d", i)})
	}

	all := b.Recent(0)
	if len(all) != defaultHistoryCap {
		t.Fatalf("expected history capped at %d, got %d", defaultHistoryCap, len(all))
	}
	// Oldest entries are evicted first.
	if all[0].TaskID != "50" {
		t.Errorf("expected oldest retained event 50, got %s", all[0].TaskID)
	}
	if all[len(all)-1].TaskID != fmt.Sprintf("%d", defaultHistoryCap+49) {
		t.Errorf("expected newest event last, got %s", all[len(all)-1].TaskID)
	}
}

func TestBroadcasterRecentLimit(t *testing.T) {
	b := NewBroadcaster()
	for i := 0; i < 10; i++ {
		b.Publish(domain.Event{TaskID: fmt.Sprintf("%d", i)})
	}

	recent := b.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].TaskID != "7" || recent[2].TaskID != "9" {
		t.Errorf("expected chronological tail [7 8 9], got %v", recent)
	}
}
