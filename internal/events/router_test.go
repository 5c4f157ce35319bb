package events

import (
	"sync"
	"testing"
	"time"

	"github.com/npratt/vtree/internal/tree"
)

func clickEvent(id tree.NodeID) *NodeClickEvent {
	return &NodeClickEvent{
		BaseEvent: NewControllerEvent(EventNodeClick),
		Node:      tree.FlattenedNode{ID: id, Name: "node " + string(id)},
	}
}

func TestNewRouter(t *testing.T) {
	t.Run("default buffer size", func(t *testing.T) {
		r := NewRouter(0)
		if r.bufferSize != DefaultBufferSize {
			t.Errorf("expected buffer size %d, got %d", DefaultBufferSize, r.bufferSize)
		}
	})

	t.Run("custom buffer size", func(t *testing.T) {
		r := NewRouter(50)
		if r.bufferSize != 50 {
			t.Errorf("expected buffer size 50, got %d", r.bufferSize)
		}
	})
}

func TestRouterEmitSubscribe(t *testing.T) {
	t.Run("single subscriber receives event", func(t *testing.T) {
		r := NewRouter(10)
		defer r.Close()

		ch := r.Subscribe()
		r.Emit(clickEvent("a"))

		select {
		case received := <-ch:
			click, ok := received.(*NodeClickEvent)
			if !ok {
				t.Fatalf("expected *NodeClickEvent, got %T", received)
			}
			if click.Node.ID != "a" {
				t.Errorf("expected node a, got %q", click.Node.ID)
			}
		case <-time.After(time.Second):
			t.Error("timeout waiting for event")
		}
	})

	t.Run("multiple subscribers each receive all events", func(t *testing.T) {
		r := NewRouter(10)
		defer r.Close()

		ch1 := r.Subscribe()
		ch2 := r.Subscribe()

		for _, id := range []tree.NodeID{"a", "b", "c"} {
			r.Emit(clickEvent(id))
		}

		for _, ch := range []<-chan Event{ch1, ch2} {
			for i := 0; i < 3; i++ {
				select {
				case <-ch:
				case <-time.After(time.Second):
					t.Errorf("timeout waiting for event %d", i)
				}
			}
		}
	})
}

func TestRouterSubscribeTypes(t *testing.T) {
	r := NewRouter(10)
	defer r.Close()

	ch := r.SubscribeTypes(EventExpandChanged)

	r.Emit(clickEvent("a"))
	r.Emit(&ExpandChangedEvent{BaseEvent: NewControllerEvent(EventExpandChanged), Expanded: true})

	select {
	case e := <-ch:
		if e.Type() != EventExpandChanged {
			t.Errorf("expected %s, got %s", EventExpandChanged, e.Type())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case e := <-ch:
		t.Errorf("unexpected event %s", e.Type())
	default:
	}
}

func TestRouterDropsWhenFull(t *testing.T) {
	r := NewRouter(10)
	defer r.Close()

	ch := r.SubscribeBuffered(2)
	for i := 0; i < 5; i++ {
		r.Emit(clickEvent("a"))
	}

	if got := len(ch); got != 2 {
		t.Errorf("expected 2 buffered events, got %d", got)
	}
	if got := r.Dropped(); got != 3 {
		t.Errorf("expected 3 dropped events, got %d", got)
	}
}

func TestRouterUnsubscribe(t *testing.T) {
	r := NewRouter(10)
	defer r.Close()

	ch1 := r.Subscribe()
	ch2 := r.Subscribe()

	r.Unsubscribe(ch1)
	r.Emit(clickEvent("a"))

	select {
	case _, ok := <-ch1:
		if ok {
			t.Error("expected ch1 to be closed")
		}
	default:
		t.Error("ch1 should be readable (closed)")
	}

	select {
	case <-ch2:
	case <-time.After(time.Second):
		t.Error("timeout waiting for event on ch2")
	}

	r.Unsubscribe(make(chan Event))
}

func TestRouterClose(t *testing.T) {
	r := NewRouter(10)
	ch := r.Subscribe()
	r.Close()
	r.Close()

	r.Emit(clickEvent("a"))

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}

	late := r.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribe after close should return a closed channel")
	}
}

func TestRouterConcurrentEmit(t *testing.T) {
	r := NewRouter(1000)
	defer r.Close()

	ch := r.Subscribe()
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Emit(clickEvent("a"))
			}
		}()
	}
	wg.Wait()

	if got := len(ch); got != 500 {
		t.Errorf("expected 500 events, got %d", got)
	}
}
