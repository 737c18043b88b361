// Package tasks tracks crawl tasks through their lifecycle and owns each
// task's event log. The registry is the single writer of task status, so the
// pending -> running -> terminal state machine cannot be bypassed.
package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"site-crawler/pkg/config"
	"site-crawler/pkg/models"
)

// Task is one submitted crawl.
type Task struct {
	ID           string             `json:"id"`
	Config       *config.TaskConfig `json:"config"`
	Status       models.TaskStatus  `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	StartedAt    time.Time          `json:"started_at,omitempty"`
	CompletedAt  time.Time          `json:"completed_at,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Stats        models.Stats       `json:"stats"`

	Events *EventLog `json:"-"`

	ctx    context.Context
	cancel context.CancelFunc
}

// Registry manages all tasks in the process. Terminal tasks beyond the
// retention limit are evicted oldest-first; running and pending tasks are
// never evicted.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	retain int
}

func NewRegistry(retain int) *Registry {
	if retain <= 0 {
		retain = 50
	}
	return &Registry{
		tasks:  make(map[string]*Task),
		retain: retain,
	}
}

// Create registers a new pending task for an already-validated config.
func (r *Registry) Create(cfg *config.TaskConfig) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{
		ID:        uuid.New().String(),
		Config:    cfg,
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
		Events:    NewEventLog(),
		ctx:       ctx,
		cancel:    cancel,
	}

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()
	return task
}

// Get retrieves a task by ID.
func (r *Registry) Get(taskID string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	return task, ok
}

// List returns all known tasks, newest first.
func (r *Registry) List() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// MarkRunning transitions pending -> running. Any other starting state is
// refused; in particular a task cancelled before start stays cancelled.
func (r *Registry) MarkRunning(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok || task.Status != models.TaskStatusPending {
		return false
	}
	task.Status = models.TaskStatusRunning
	task.StartedAt = time.Now()
	return true
}

// MarkTerminal moves a task into a terminal status and evicts old terminal
// tasks beyond the retention limit. Calling it on an already-terminal task
// is a no-op: terminal states are sinks.
func (r *Registry) MarkTerminal(taskID string, status models.TaskStatus, errorMsg string) bool {
	if !status.Terminal() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok || task.Status.Terminal() {
		return false
	}
	task.Status = status
	task.CompletedAt = time.Now()
	if errorMsg != "" {
		task.ErrorMessage = errorMsg
	}
	task.cancel()

	r.evictLocked()
	return true
}

// UpdateStats stores the latest stats snapshot on the task.
func (r *Registry) UpdateStats(taskID string, stats models.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[taskID]; ok {
		task.Stats = stats
	}
}

// Cancel requests cancellation of a pending or running task. The task's
// context is cancelled immediately; the orchestrator observes it and moves
// the task to cancelled. A pending task that never starts is moved here
// directly.
func (r *Registry) Cancel(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok || task.Status.Terminal() {
		return false
	}

	task.cancel()
	if task.Status == models.TaskStatusPending {
		task.Status = models.TaskStatusCancelled
		task.CompletedAt = time.Now()
		r.evictLocked()
	}
	return true
}

// CancelAll cancels every non-terminal task. Used at shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range r.tasks {
		if !task.Status.Terminal() {
			task.cancel()
			if task.Status == models.TaskStatusPending {
				task.Status = models.TaskStatusCancelled
				task.CompletedAt = time.Now()
			}
		}
	}
}

// Context returns the cancellation context for a task.
func (r *Registry) Context(taskID string) context.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if task, ok := r.tasks[taskID]; ok {
		return task.ctx
	}
	return context.Background()
}

// evictLocked drops the oldest terminal tasks beyond the retention limit.
// Caller holds r.mu.
func (r *Registry) evictLocked() {
	var terminal []*Task
	for _, task := range r.tasks {
		if task.Status.Terminal() {
			terminal = append(terminal, task)
		}
	}
	if len(terminal) <= r.retain {
		return
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].CompletedAt.Before(terminal[j].CompletedAt)
	})
	for _, task := range terminal[:len(terminal)-r.retain] {
		task.Events.Close()
		delete(r.tasks, task.ID)
	}
}
