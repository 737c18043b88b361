package tasks

import (
	"fmt"
	"testing"
	"time"

	"site-crawler/pkg/config"
	"site-crawler/pkg/models"
)

func testTaskConfig() *config.TaskConfig {
	return &config.TaskConfig{SeedURL: "https://example.com/"}
}

func TestLifecycleTransitions(t *testing.T) {
	r := NewRegistry(10)
	task := r.Create(testTaskConfig())

	if task.Status != models.TaskStatusPending {
		t.Fatalf("new task status = %s", task.Status)
	}
	if !r.MarkRunning(task.ID) {
		t.Fatal("MarkRunning on pending task failed")
	}
	if r.MarkRunning(task.ID) {
		t.Fatal("MarkRunning on running task should be refused")
	}
	if !r.MarkTerminal(task.ID, models.TaskStatusCompleted, "") {
		t.Fatal("MarkTerminal failed")
	}
	if r.MarkTerminal(task.ID, models.TaskStatusFailed, "late") {
		t.Fatal("terminal status must be a sink")
	}

	got, _ := r.Get(task.ID)
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
}

func TestMarkTerminalRejectsNonTerminalStatus(t *testing.T) {
	r := NewRegistry(10)
	task := r.Create(testTaskConfig())
	if r.MarkTerminal(task.ID, models.TaskStatusRunning, "") {
		t.Fatal("MarkTerminal accepted a non-terminal status")
	}
}

func TestCancelPendingTask(t *testing.T) {
	r := NewRegistry(10)
	task := r.Create(testTaskConfig())

	if !r.Cancel(task.ID) {
		t.Fatal("Cancel on pending task failed")
	}
	got, _ := r.Get(task.ID)
	if got.Status != models.TaskStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	// A cancelled-before-start task never runs.
	if r.MarkRunning(task.ID) {
		t.Error("cancelled task became running")
	}
}

func TestCancelRunningTaskSignalsContext(t *testing.T) {
	r := NewRegistry(10)
	task := r.Create(testTaskConfig())
	r.MarkRunning(task.ID)

	ctx := r.Context(task.ID)
	if !r.Cancel(task.ID) {
		t.Fatal("Cancel on running task failed")
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("task context not cancelled")
	}

	// Status flips to cancelled only when the orchestrator confirms.
	got, _ := r.Get(task.ID)
	if got.Status != models.TaskStatusRunning {
		t.Errorf("status = %s, want running until orchestrator observes cancel", got.Status)
	}
	r.MarkTerminal(task.ID, models.TaskStatusCancelled, "")
	got, _ = r.Get(task.ID)
	if got.Status != models.TaskStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestEvictionKeepsMostRecentTerminal(t *testing.T) {
	const retain = 3
	r := NewRegistry(retain)

	var ids []string
	for i := 0; i < retain+2; i++ {
		task := r.Create(testTaskConfig())
		ids = append(ids, task.ID)
		r.MarkRunning(task.ID)
		r.MarkTerminal(task.ID, models.TaskStatusCompleted, "")
		time.Sleep(2 * time.Millisecond) // Distinct CompletedAt ordering
	}
	running := r.Create(testTaskConfig())
	r.MarkRunning(running.ID)

	for _, id := range ids[:2] {
		if _, ok := r.Get(id); ok {
			t.Errorf("oldest terminal task %s not evicted", id)
		}
	}
	for _, id := range ids[2:] {
		if _, ok := r.Get(id); !ok {
			t.Errorf("recent terminal task %s evicted", id)
		}
	}
	if _, ok := r.Get(running.ID); !ok {
		t.Error("running task evicted")
	}
}

func TestEventLogPushPullDuality(t *testing.T) {
	l := NewEventLog()

	for i := 0; i < 3; i++ {
		l.Append(models.TaskEvent{Kind: models.EventLog, Message: fmt.Sprintf("m%d", i)})
	}

	// Pull: everything after index 0.
	pulled := l.EventsSince(0)
	if len(pulled) != 2 || pulled[0].Index != 1 || pulled[1].Index != 2 {
		t.Fatalf("EventsSince(0) = %+v", pulled)
	}

	// Push: subscribe from the beginning replays history then streams.
	ch, cancel := l.Subscribe(-1, 16)
	defer cancel()

	l.Append(models.TaskEvent{Kind: models.EventDone, FinalStatus: models.TaskStatusCompleted})

	var got []models.TaskEvent
	timeout := time.After(time.Second)
	for len(got) < 4 {
		select {
		case ev := <-ch:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("received %d events, want 4", len(got))
		}
	}
	for i, ev := range got {
		if ev.Index != i {
			t.Errorf("event %d has index %d", i, ev.Index)
		}
	}
	if got[3].Kind != models.EventDone {
		t.Errorf("last event kind = %s", got[3].Kind)
	}

	// Pull and push saw identical history.
	all := l.EventsSince(-1)
	if len(all) != 4 {
		t.Fatalf("EventsSince(-1) = %d events", len(all))
	}
	for i := range all {
		if all[i].Index != got[i].Index || all[i].Kind != got[i].Kind {
			t.Errorf("event %d differs between pull and push", i)
		}
	}
}

func TestEventLogCloseStopsSubscribers(t *testing.T) {
	l := NewEventLog()
	ch, cancel := l.Subscribe(-1, 16)
	defer cancel()

	l.Append(models.TaskEvent{Kind: models.EventLog, Message: "one"})
	l.Close()

	var closed bool
	timeout := time.After(time.Second)
	for !closed {
		select {
		case _, ok := <-ch:
			if !ok {
				closed = true
			}
		case <-timeout:
			t.Fatal("subscriber channel never closed")
		}
	}

	// History stays readable after close; appends are refused.
	l.Append(models.TaskEvent{Kind: models.EventLog, Message: "late"})
	if got := l.EventsSince(-1); len(got) != 1 {
		t.Errorf("history after close = %d events, want 1", len(got))
	}
}
