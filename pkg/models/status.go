package models

// TaskStatus represents the lifecycle state of a crawl task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is a sink state: no transition
// ever leaves completed, failed or cancelled.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// String implements fmt.Stringer for logging
func (s TaskStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// URLStatus represents the frontier-side state of a discovered URL
type URLStatus string

const (
	URLStatusDiscovered  URLStatus = "discovered"
	URLStatusQueued      URLStatus = "queued"
	URLStatusFetching    URLStatus = "fetching"
	URLStatusFetched     URLStatus = "fetched"
	URLStatusFilteredOut URLStatus = "filtered-out"
	URLStatusFailed      URLStatus = "failed"
)

// String implements fmt.Stringer for logging
func (s URLStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// Done reports whether the URL needs no further work from the frontier.
func (s URLStatus) Done() bool {
	switch s {
	case URLStatusFetched, URLStatusFilteredOut, URLStatusFailed:
		return true
	}
	return false
}
