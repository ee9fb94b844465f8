package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/selfhq/self/internal/archive"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishItemEventDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishItemEvent("created", "item-1")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: item.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"item-1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestProgressThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The first tick of a phase goes out; the second immediate tick within
	// the same phase is throttled; a phase change always goes out.
	b.PublishProgress(archive.Progress{Phase: archive.PhaseCreatingItems, Current: 1, Total: 10})
	b.PublishProgress(archive.Progress{Phase: archive.PhaseCreatingItems, Current: 2, Total: 10})
	b.PublishProgress(archive.Progress{Phase: archive.PhaseUploadingFiles, Current: 1, Total: 10})

	time.Sleep(50 * time.Millisecond)
	count := 0
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "backup.progress") {
				count++
			}
		default:
			break loop
		}
	}

	if count != 2 {
		t.Errorf("progress events = %d, want 2 (middle tick throttled)", count)
	}
}

func TestProgressTerminalTickAlwaysDelivered(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishProgress(archive.Progress{Phase: archive.PhaseCreatingZip, Current: 10, Total: 100})
	b.PublishProgress(archive.Progress{Phase: archive.PhaseCreatingZip, Current: 50, Total: 100})
	b.PublishProgress(archive.Progress{Phase: archive.PhaseCreatingZip, Current: 100, Total: 100})

	time.Sleep(50 * time.Millisecond)
	var last string
	count := 0
loop:
	for {
		select {
		case msg := <-ch:
			last = string(msg)
			count++
		default:
			break loop
		}
	}

	if count != 2 {
		t.Fatalf("progress events = %d, want first and terminal only", count)
	}
	if !strings.Contains(last, `"current":100`) {
		t.Errorf("terminal tick missing: %q", last)
	}
}

func TestProgressTerminalTickSurvivesBurst(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Flood with intermediate ticks faster than the loop can drain; those may
	// be dropped, but the terminal tick must still reach the subscriber.
	for i := 1; i < 1000; i++ {
		b.PublishProgress(archive.Progress{Phase: archive.PhaseUploadingFiles, Current: i, Total: 1000})
	}
	b.PublishProgress(archive.Progress{Phase: archive.PhaseUploadingFiles, Current: 1000, Total: 1000})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), `"current":1000`) {
				return
			}
		case <-deadline:
			t.Fatal("terminal progress tick never delivered")
		}
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishItemEvent("updated", "item-9")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: item.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then some; must not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Publish(Event{Type: "item.updated", Data: map[string]string{"id": "x"}})
	b.PublishItemEvent("updated", "x")
	b.PublishProgress(archive.Progress{Phase: archive.PhaseFetchingItems})
}
