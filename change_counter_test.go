package waitgen

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/waitgen/internal/opt"
)

func TestChangeCounter_ThreeWaitersOneSignal(t *testing.T) {
	var c ChangeCounter

	results := make(chan uint64, 3)
	for range 3 {
		go func() {
			results <- c.Wait(0)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	select {
	case g := <-results:
		t.Fatalf("Wait returned %d before Signal", g)
	default:
	}

	if g := c.Signal(); g != 1 {
		t.Fatalf("Signal = %d, want 1", g)
	}
	for range 3 {
		select {
		case g := <-results:
			if g != 1 {
				t.Errorf("waiter saw %d, want 1", g)
			}
		case <-time.After(time.Second):
			t.Fatal("waiter not released by Signal")
		}
	}
}

func TestChangeCounter_StaleKnownDoesNotPark(t *testing.T) {
	c := NewChangeCounter(7)
	if g := c.Generation(); g != 7 {
		t.Fatalf("Generation = %d, want 7", g)
	}

	done := make(chan uint64, 1)
	go func() {
		done <- c.Wait(3)
	}()
	select {
	case g := <-done:
		if g != 7 {
			t.Fatalf("Wait = %d, want 7", g)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait parked although known was stale")
	}

	start := time.Now()
	if g := c.WaitTimeout(6, time.Hour); g != 7 {
		t.Fatalf("WaitTimeout = %d, want 7", g)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("WaitTimeout with a stale generation was not immediate")
	}
}

func TestChangeCounter_TimeoutDoesNotLeak(t *testing.T) {
	var c ChangeCounter

	start := time.Now()
	if g := c.WaitTimeout(0, 30*time.Millisecond); g != 0 {
		t.Fatalf("WaitTimeout = %d, want 0", g)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("WaitTimeout returned after %v, want ~30ms", elapsed)
	}

	// Same epoch: the timed-out waiter must not have broken its accounting.
	done := make(chan uint64, 1)
	go func() {
		done <- c.Wait(0)
	}()
	time.Sleep(20 * time.Millisecond)
	c.Signal()

	select {
	case g := <-done:
		if g != 1 {
			t.Fatalf("Wait = %d, want 1", g)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released after an earlier timeout on the same epoch")
	}
}

func TestChangeCounter_WaitContextCancel(t *testing.T) {
	var c ChangeCounter
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan uint64, 1)
	go func() {
		done <- c.WaitContext(ctx, 0)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case g := <-done:
		if g != 0 {
			t.Fatalf("WaitContext = %d, want 0", g)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitContext ignored cancellation")
	}

	if g := c.Signal(); g != 1 {
		t.Fatalf("Signal = %d, want 1", g)
	}
}

func TestChangeCounter_SignalWithoutWaiters(t *testing.T) {
	var c ChangeCounter
	for i := uint64(1); i <= 500; i++ {
		if g := c.Signal(); g != i {
			t.Fatalf("Signal = %d, want %d", g, i)
		}
	}
	if g := c.Generation(); g != 500 {
		t.Fatalf("Generation = %d, want 500", g)
	}
}

func TestChangeCounter_ManyRounds(t *testing.T) {
	var c ChangeCounter
	waiters := 50
	rounds := 50
	if opt.Race_ {
		rounds = 10
	}

	for round := range rounds {
		known := uint64(round)
		var parked sync.WaitGroup
		var g errgroup.Group
		parked.Add(waiters)
		for range waiters {
			g.Go(func() error {
				parked.Done()
				if got := c.Wait(known); got != known+1 {
					t.Errorf("round %d: Wait = %d, want %d", round, got, known+1)
				}
				return nil
			})
		}
		parked.Wait()
		time.Sleep(time.Millisecond)
		c.Signal()

		done := make(chan struct{})
		go func() {
			_ = g.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			// Release stragglers caught by the swap/update window.
			c.Signal()
			<-done
			t.Fatalf("round %d: waiters not released", round)
		}
	}
}

func TestChangeCounter_WaitAtLeast(t *testing.T) {
	var c ChangeCounter
	ctx := context.Background()

	done := make(chan uint64, 1)
	go func() {
		g, ok := c.WaitAtLeast(ctx, 3)
		if !ok {
			t.Error("WaitAtLeast reported failure")
		}
		done <- g
	}()

	time.Sleep(10 * time.Millisecond)
	c.Signal()
	c.Signal()
	select {
	case g := <-done:
		t.Fatalf("WaitAtLeast returned %d before the target", g)
	case <-time.After(20 * time.Millisecond):
	}

	c.Signal()
	select {
	case g := <-done:
		if g < 3 {
			t.Fatalf("WaitAtLeast = %d, want >= 3", g)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitAtLeast did not return at the target")
	}

	// Already reached.
	if g, ok := c.WaitAtLeast(ctx, 2); !ok || g != 3 {
		t.Fatalf("WaitAtLeast = %d, %v; want 3, true", g, ok)
	}
}

func TestChangeCounter_WaitAtLeastGivesUp(t *testing.T) {
	var c ChangeCounter

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if g, ok := c.WaitAtLeast(ctx, 5); ok || g != 0 {
		t.Fatalf("WaitAtLeast = %d, %v; want 0, false", g, ok)
	}

	c.Signal()
	c.Dispose()
	if g, ok := c.WaitAtLeast(context.Background(), 5); ok || g != 1 {
		t.Fatalf("WaitAtLeast on disposed = %d, %v; want 1, false", g, ok)
	}
}

func TestChangeCounter_ConcurrentProducers(t *testing.T) {
	var c ChangeCounter
	producers := 8
	signals := 1000
	if opt.Race_ {
		signals = 100
	}

	var woken atomic.Int64
	stop := make(chan struct{})
	var watchers sync.WaitGroup
	watchers.Add(4)
	for range 4 {
		go func() {
			defer watchers.Done()
			gen := c.Generation()
			for {
				select {
				case <-stop:
					return
				default:
				}
				next := c.WaitTimeout(gen, 10*time.Millisecond)
				if next != gen {
					woken.Add(1)
				}
				gen = next
			}
		}()
	}

	var g errgroup.Group
	for range producers {
		g.Go(func() error {
			for range signals {
				c.Signal()
			}
			return nil
		})
	}
	_ = g.Wait()
	close(stop)
	watchers.Wait()

	if got, want := c.Generation(), uint64(producers*signals); got != want {
		t.Fatalf("Generation = %d, want %d", got, want)
	}
	if woken.Load() == 0 {
		t.Fatal("watchers never observed a change")
	}
}
