package progress

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func drain(t *testing.T, sub *Subscription, n int) []Stage {
	t.Helper()
	var got []Stage
	for range n {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("channel closed after %d events", len(got))
			}
			got = append(got, ev.Stage)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d events", len(got))
		}
	}
	return got
}

func TestBroker_CatchUpThenLiveOrder(t *testing.T) {
	b := NewBroker(0)
	for _, s := range []Stage{StageInitializing, StageBrowserStart, StageLoggingIn, StageNavigating, StageSearching} {
		b.Publish("s1", s, "")
	}

	sub := b.Subscribe("s1")
	defer b.Unsubscribe(sub)

	b.Publish("s1", StageExtracting, "1/1")
	b.Publish("s1", StageProcessing, "")
	b.Publish("s1", StageComplete, "Successfully processed 1 listings!")

	got := drain(t, sub, 4)
	want := []Stage{StageSearching, StageExtracting, StageProcessing, StageComplete}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	select {
	case ev := <-sub.Events():
		t.Errorf("unexpected extra event %v", ev.Stage)
	default:
	}
}

func TestBroker_NoCatchUpForNewSession(t *testing.T) {
	b := NewBroker(0)
	b.Publish("other", StageComplete, "")

	sub := b.Subscribe("fresh")
	defer b.Unsubscribe(sub)

	select {
	case ev := <-sub.Events():
		t.Errorf("received %v from another session", ev.Stage)
	default:
	}
}

func TestBroker_FanOut(t *testing.T) {
	b := NewBroker(0)
	a := b.Subscribe("s")
	c := b.Subscribe("s")
	defer b.Unsubscribe(a)
	defer b.Unsubscribe(c)

	b.Publish("s", StageNavigating, "")

	for _, sub := range []*Subscription{a, c} {
		if got := drain(t, sub, 1); got[0] != StageNavigating {
			t.Errorf("got %v, want %v", got[0], StageNavigating)
		}
	}
}

func TestBroker_SlowObserverDetached(t *testing.T) {
	b := NewBroker(1)
	slow := b.Subscribe("s")
	fast := b.Subscribe("s")

	b.Publish("s", StageInitializing, "")
	<-fast.Events()
	b.Publish("s", StageBrowserStart, "")

	if n := b.Observers("s"); n != 1 {
		t.Fatalf("Observers() = %d, want 1", n)
	}
	if got := drain(t, fast, 1); got[0] != StageBrowserStart {
		t.Errorf("fast observer got %v", got[0])
	}

	<-slow.Events()
	if _, ok := <-slow.Events(); ok {
		t.Error("slow observer channel should be closed")
	}
	// Unsubscribing a detached observer is harmless.
	b.Unsubscribe(slow)
	b.Unsubscribe(fast)
}

func TestBroker_UnsubscribeIdempotent(t *testing.T) {
	b := NewBroker(0)
	sub := b.Subscribe("s")
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)

	b.Publish("s", StageComplete, "")
	if n := b.Observers("s"); n != 0 {
		t.Errorf("Observers() = %d, want 0", n)
	}
	if ev, ok := b.Latest("s"); !ok || ev.Stage != StageComplete {
		t.Errorf("Latest() = %v, %v", ev, ok)
	}
}

func TestBroker_ConcurrentSubscribers(t *testing.T) {
	b := NewBroker(0)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := b.Subscribe("s")
			b.Unsubscribe(sub)
		}()
	}
	for range 50 {
		b.Publish("s", StageExtracting, "")
	}
	wg.Wait()
	if n := b.Observers("s"); n != 0 {
		t.Errorf("Observers() = %d, want 0", n)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(0)
	b.Publish("abc", StageSearching, "Looking for Miatas")

	mux := http.NewServeMux()
	mux.Handle("GET /progress/{session}", SSEHandler(b))
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/progress/abc")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	// The handler subscribes after writing headers; wait until it is attached
	// before publishing live events.
	deadline := time.Now().Add(2 * time.Second)
	for b.Observers("abc") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.Publish("abc", StageComplete, "done")

	var stages []Stage
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		stages = append(stages, ev.Stage)
	}

	if len(stages) != 2 || stages[0] != StageSearching || stages[1] != StageComplete {
		t.Errorf("stages = %v, want [searching complete]", stages)
	}
}

func TestSSEHandler_MissingSession(t *testing.T) {
	rec := httptest.NewRecorder()
	SSEHandler(NewBroker(0)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestBroker_Forget(t *testing.T) {
	b := NewBroker(0)
	b.Publish("s1", StageComplete, "done")
	b.Publish("s2", StageSearching, "")

	b.Forget("s1")
	if _, ok := b.Latest("s1"); ok {
		t.Error("Latest(s1) should be empty after Forget")
	}
	if _, ok := b.Latest("s2"); !ok {
		t.Error("Forget(s1) dropped another session's event")
	}

	sub := b.Subscribe("s1")
	defer b.Unsubscribe(sub)
	select {
	case ev := <-sub.Events():
		t.Errorf("late observer got stale catch-up %+v", ev)
	default:
	}
}
