package collect

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_AddTask(t *testing.T) {
	reg := NewRegistry()

	task, created := reg.AddTask("btc", " usd ", 30)
	if !created {
		t.Fatal("AddTask() created = false, want true")
	}
	want := Task{From: "BTC", To: "USD", Interval: 30}
	if task != want {
		t.Errorf("AddTask() = %+v, want %+v", task, want)
	}

	again, created := reg.AddTask("BTC", "USD", 90)
	if created {
		t.Error("second AddTask() created = true, want false")
	}
	if again != want {
		t.Errorf("second AddTask() = %+v, want the existing %+v", again, want)
	}
}

func TestRegistry_DefaultInterval(t *testing.T) {
	reg := NewRegistry()

	for _, interval := range []int64{0, -5} {
		reg.RemoveTask("BTC", "USD")
		task, _ := reg.AddTask("BTC", "USD", interval)
		if task.Interval != DefaultInterval {
			t.Errorf("AddTask(interval=%d).Interval = %d, want %d", interval, task.Interval, DefaultInterval)
		}
	}
}

func TestRegistry_UpdateTask(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.UpdateTask("BTC", "USD", 10); ok {
		t.Error("UpdateTask() on missing pair ok = true, want false")
	}

	reg.AddTask("BTC", "USD", 60)
	task, ok := reg.UpdateTask("btc", "usd", 10)
	if !ok {
		t.Fatal("UpdateTask() ok = false, want true")
	}
	if task.Interval != 10 {
		t.Errorf("Interval = %d, want 10", task.Interval)
	}
	if got, _ := reg.Task("BTC", "USD"); got.Interval != 10 {
		t.Errorf("stored Interval = %d, want 10", got.Interval)
	}
}

func TestRegistry_RemoveTask(t *testing.T) {
	reg := NewRegistry()

	if reg.RemoveTask("BTC", "USD") {
		t.Error("RemoveTask() on missing pair = true, want false")
	}
	reg.AddTask("BTC", "USD", 60)
	if !reg.RemoveTask("btc", "usd") {
		t.Error("RemoveTask() = false, want true")
	}
	if _, ok := reg.Task("BTC", "USD"); ok {
		t.Error("task still present after RemoveTask()")
	}
}

func TestRegistry_Subscriptions(t *testing.T) {
	reg := NewRegistry()

	sub, err := reg.Subscribe("eth", "usd")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub != (Subscription{From: "ETH", To: "USD"}) {
		t.Errorf("Subscribe() = %+v", sub)
	}

	if _, err := reg.Subscribe("ETH", "USD"); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("second Subscribe() error = %v, want ErrAlreadySubscribed", err)
	}

	if err := reg.Unsubscribe("ETH", "USD"); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if err := reg.Unsubscribe("ETH", "USD"); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("second Unsubscribe() error = %v, want ErrNotSubscribed", err)
	}
}

func TestRegistry_ListsAreOrdered(t *testing.T) {
	reg := NewRegistry()
	reg.AddTask("ETH", "USD", 60)
	reg.AddTask("BTC", "USD", 60)
	reg.AddTask("BTC", "EUR", 60)

	tasks := reg.ListTasks()
	want := []string{"BTC:EUR", "BTC:USD", "ETH:USD"}
	if len(tasks) != len(want) {
		t.Fatalf("len(ListTasks()) = %d, want %d", len(tasks), len(want))
	}
	for i, w := range want {
		if got := tasks[i].From + ":" + tasks[i].To; got != w {
			t.Errorf("ListTasks()[%d] = %s, want %s", i, got, w)
		}
	}
}

func TestRegistry_StatusEmpty(t *testing.T) {
	if status := NewRegistry().Status(); status != nil {
		t.Errorf("Status() = %v, want nil", status)
	}
}

func TestRegistry_StatusMergesJobs(t *testing.T) {
	reg := NewRegistry()
	reg.AddTask("BTC", "USD", 60)
	reg.AddTask("ETH", "USD", 30)
	reg.Subscribe("BTC", "EUR")
	reg.AddTask("ETH", "BTC", 60)
	reg.Subscribe("ETH", "BTC")

	status := reg.Status()
	if len(status) != 2 {
		t.Fatalf("len(Status()) = %d, want 2", len(status))
	}
	if _, ok := status["BTC"]["USD"].(Task); !ok {
		t.Errorf("BTC/USD = %T, want Task", status["BTC"]["USD"])
	}
	if _, ok := status["BTC"]["EUR"].(Subscription); !ok {
		t.Errorf("BTC/EUR = %T, want Subscription", status["BTC"]["EUR"])
	}
	// a subscription wins over a task for the same pair
	if _, ok := status["ETH"]["BTC"].(Subscription); !ok {
		t.Errorf("ETH/BTC = %T, want Subscription", status["ETH"]["BTC"])
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.AddTask("BTC", "USD", 60)
			reg.Status()
			reg.UpdateTask("BTC", "USD", 10)
		}()
	}
	wg.Wait()

	if n := len(reg.ListTasks()); n != 1 {
		t.Errorf("len(ListTasks()) = %d, want 1", n)
	}
}
