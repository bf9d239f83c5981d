package dispatch

import (
	"errors"
	"reflect"
	"testing"
)

// drain pulls every queued action through Invoke, the way the application
// run loop does.
func drain(d *Dispatcher) {
	for {
		select {
		case a := <-d.Actions():
			d.Invoke(a)
		default:
			return
		}
	}
}

func TestActionsProcessedInSubmissionOrder(t *testing.T) {
	d := New()
	var seen []Action
	d.Register(func(a Action) { seen = append(seen, a) })

	actions := []Action{
		Login{Nickname: "alice"},
		SendMessage{Text: "one"},
		SendMessage{Text: "two"},
		Logout{},
	}
	for _, a := range actions {
		if err := d.Dispatch(a); err != nil {
			t.Fatalf("Dispatch(%v): %v", a, err)
		}
	}
	drain(d)

	if !reflect.DeepEqual(seen, actions) {
		t.Errorf("seen = %v, want %v", seen, actions)
	}
}

func TestAllHandlersRunBeforeNextAction(t *testing.T) {
	d := New()
	var trace []string
	d.Register(func(a Action) {
		if _, ok := a.(SendMessage); ok {
			trace = append(trace, "h1:"+a.(SendMessage).Text)
		}
	})
	d.Register(func(a Action) {
		if _, ok := a.(SendMessage); ok {
			trace = append(trace, "h2:"+a.(SendMessage).Text)
		}
	})

	d.Dispatch(SendMessage{Text: "a"})
	d.Dispatch(SendMessage{Text: "b"})
	drain(d)

	want := []string{"h1:a", "h2:a", "h1:b", "h2:b"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestQueueFull(t *testing.T) {
	d := New()
	var err error
	for i := 0; i <= defaultQueueSize; i++ {
		err = d.Dispatch(Logout{})
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestReentrantDispatchPanics(t *testing.T) {
	d := New()
	d.Register(func(Action) {
		d.Dispatch(Logout{})
	})
	d.Dispatch(Login{Nickname: "alice"})

	defer func() {
		if recover() == nil {
			t.Error("re-entrant dispatch did not panic")
		}
	}()
	drain(d)
}

func TestDispatchFromOtherGoroutineDuringInvokeIsQueued(t *testing.T) {
	d := New()
	entered := make(chan struct{})
	release := make(chan struct{})
	var got []Action
	d.Register(func(a Action) {
		got = append(got, a)
		if _, ok := a.(Login); ok {
			close(entered)
			<-release
		}
	})

	d.Dispatch(Login{Nickname: "alice"})
	go func() {
		<-entered
		// Legal: concurrent dispatch from another goroutine just queues.
		if err := d.Dispatch(Logout{}); err != nil {
			t.Errorf("concurrent Dispatch: %v", err)
		}
		close(release)
	}()
	drain(d)

	want := []Action{Login{Nickname: "alice"}, Logout{}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got = %v, want %v", got, want)
	}
}
