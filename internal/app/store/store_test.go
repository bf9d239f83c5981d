package store

import (
	"reflect"
	"testing"
)

func TestCurrentHoldsLatestSnapshot(t *testing.T) {
	s := New("initial")
	if got := s.Current(); got != "initial" {
		t.Fatalf("Current = %q, want initial", got)
	}
	s.Set("updated")
	if got := s.Current(); got != "updated" {
		t.Fatalf("Current = %q, want updated", got)
	}
}

func TestListenersFireInRegistrationOrderExactlyOnce(t *testing.T) {
	s := New(0)
	var order []string
	s.Subscribe(func(int) { order = append(order, "first") })
	s.Subscribe(func(int) { order = append(order, "second") })
	s.Subscribe(func(int) { order = append(order, "third") })

	s.Set(1)

	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestCancelledListenerNeverFires(t *testing.T) {
	s := New(0)
	fired := 0
	sub := s.Subscribe(func(int) { fired++ })
	s.Set(1)
	sub.Cancel()
	s.Set(2)
	s.Set(3)
	if fired != 1 {
		t.Errorf("fired %d times, want 1", fired)
	}
}

func TestCancelDuringNotification(t *testing.T) {
	s := New(0)
	var second *Subscription[int]
	secondFired := 0
	s.Subscribe(func(int) { second.Cancel() })
	second = s.Subscribe(func(int) { secondFired++ })

	s.Set(1)

	if secondFired != 0 {
		t.Errorf("listener cancelled before firing still fired %d times", secondFired)
	}
}

func TestSubscribeDuringNotificationTakesEffectNextSet(t *testing.T) {
	s := New(0)
	lateFired := 0
	s.Subscribe(func(v int) {
		if v == 1 {
			s.Subscribe(func(int) { lateFired++ })
		}
	})

	s.Set(1)
	if lateFired != 0 {
		t.Fatalf("late listener fired during the Set that registered it")
	}
	s.Set(2)
	if lateFired != 1 {
		t.Errorf("late listener fired %d times after second Set, want 1", lateFired)
	}
}
