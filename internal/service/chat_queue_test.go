package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedGen is a Generator that records call order and timing and
// can be told to fail or stall
type scriptedGen struct {
	mu     sync.Mutex
	calls  []string
	starts []time.Time
	ends   []time.Time
	delay  time.Duration
	failOn string
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, prompt)
	g.starts = append(g.starts, time.Now())
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			g.recordEnd()
			return "", ctx.Err()
		}
	}

	g.recordEnd()

	if prompt == g.failOn {
		return "", errors.New("upstream exploded")
	}

	return "re: " + prompt, nil
}

func (g *scriptedGen) recordEnd() {
	g.mu.Lock()
	g.ends = append(g.ends, time.Now())
	g.mu.Unlock()
}

func TestChatQueue_FIFOOrder(t *testing.T) {
	gen := &scriptedGen{}
	q := NewChatQueue(gen, 0, time.Second)

	chA := q.Enqueue("A")
	chB := q.Enqueue("B")
	chC := q.Enqueue("C")

	resA := <-chA
	resB := <-chB
	resC := <-chC

	if resA.Err != nil || resB.Err != nil || resC.Err != nil {
		t.Fatalf("unexpected errors: %v %v %v", resA.Err, resB.Err, resC.Err)
	}

	if resA.Text != "re: A" || resB.Text != "re: B" || resC.Text != "re: C" {
		t.Fatalf("responses routed to wrong callers: %q %q %q", resA.Text, resB.Text, resC.Text)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()

	want := []string{"A", "B", "C"}
	for i, p := range want {
		if gen.calls[i] != p {
			t.Fatalf("call order %v, want %v", gen.calls, want)
		}
	}
}

func TestChatQueue_SingleInFlight(t *testing.T) {
	gen := &scriptedGen{delay: 50 * time.Millisecond}
	q := NewChatQueue(gen, 0, time.Second)

	var chans []<-chan ChatResult
	for _, p := range []string{"a", "b", "c", "d"} {
		chans = append(chans, q.Enqueue(p))
	}

	for _, ch := range chans {
		if res := <-ch; res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()

	// Call N+1 must not start before call N ended
	for i := 1; i < len(gen.starts); i++ {
		if gen.starts[i].Before(gen.ends[i-1]) {
			t.Fatalf("call %d started before call %d finished", i, i-1)
		}
	}
}

func TestChatQueue_CooldownBetweenCalls(t *testing.T) {
	const cooldown = 100 * time.Millisecond

	gen := &scriptedGen{}
	q := NewChatQueue(gen, cooldown, time.Second)

	ch1 := q.Enqueue("one")
	ch2 := q.Enqueue("two")
	<-ch1
	<-ch2

	gen.mu.Lock()
	defer gen.mu.Unlock()

	gap := gen.starts[1].Sub(gen.ends[0])
	if gap < cooldown {
		t.Fatalf("gap between completion and next start was %v, want at least %v", gap, cooldown)
	}
}

func TestChatQueue_FailureSurfacedNotRetried(t *testing.T) {
	gen := &scriptedGen{failOn: "bad"}
	q := NewChatQueue(gen, 0, time.Second)

	res := <-q.Enqueue("bad")
	if res.Err == nil {
		t.Fatal("expected an error for the failing prompt")
	}

	// The lane keeps draining after a failure
	res = <-q.Enqueue("good")
	if res.Err != nil {
		t.Fatalf("queue stalled after a failure: %v", res.Err)
	}
	if res.Text != "re: good" {
		t.Fatalf("unexpected response %q", res.Text)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()

	// Exactly one call for the failed prompt, no automatic retry
	count := 0
	for _, p := range gen.calls {
		if p == "bad" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("failing prompt was called %d times, want 1", count)
	}
}

func TestChatQueue_TimeoutBoundsHungCalls(t *testing.T) {
	gen := &scriptedGen{delay: time.Minute}
	q := NewChatQueue(gen, 0, 50*time.Millisecond)

	select {
	case res := <-q.Enqueue("slow"):
		if res.Err == nil {
			t.Fatal("expected a timeout error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hung call was not bounded by the timeout")
	}
}

func TestChatQueue_EnqueueWhileDraining(t *testing.T) {
	gen := &scriptedGen{delay: 50 * time.Millisecond}
	q := NewChatQueue(gen, 0, time.Second)

	ch1 := q.Enqueue("first")

	// Lands while the first call is in flight, must not start a
	// second drain
	time.Sleep(10 * time.Millisecond)
	ch2 := q.Enqueue("second")

	res1 := <-ch1
	res2 := <-ch2

	if res1.Text != "re: first" || res2.Text != "re: second" {
		t.Fatalf("responses out of order: %q %q", res1.Text, res2.Text)
	}
}
