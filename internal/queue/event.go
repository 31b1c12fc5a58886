// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into notification log lines.
package queue

// Queue names. Each event type travels on its own durable queue.
const (
	PlanSharedQueue      = "plan.shared"
	ImportCompletedQueue = "import.completed"
	DailyBriefingQueue   = "briefing.daily"
)

// Queues lists every queue the notification consumer listens on.
var Queues = []string{PlanSharedQueue, ImportCompletedQueue, DailyBriefingQueue}

// PlanSharedEvent is published when an owner grants or changes a share.
type PlanSharedEvent struct {
	OwnerID         uint64 `json:"owner_id"`
	OwnerEmail      string `json:"owner_email"`
	SharedWithEmail string `json:"shared_with_email"`
	Permission      string `json:"permission"`
	SharedAt        string `json:"shared_at"`
}

// ImportCompletedEvent summarises a finished spreadsheet import.
type ImportCompletedEvent struct {
	UserID             uint64 `json:"user_id"`
	TasksImported      int64  `json:"tasks_imported"`
	TasksSkipped       int    `json:"tasks_skipped"`
	TasksDuplicate     int    `json:"tasks_duplicate"`
	StrategiesImported int64  `json:"strategies_imported"`
	StrategiesSkipped  int    `json:"strategies_skipped"`
	CompletedAt        string `json:"completed_at"`
}

// BriefingTask is one line of a daily briefing.
type BriefingTask struct {
	ID          uint64 `json:"id"`
	Description string `json:"descricao"`
	Priority    string `json:"prioridade"`
	Status      string `json:"status"`
}

// DailyBriefingEvent lists a user's open tasks for one day, most
// urgent first.
type DailyBriefingEvent struct {
	UserID uint64         `json:"user_id"`
	Email  string         `json:"email"`
	Date   string         `json:"date"`
	Tasks  []BriefingTask `json:"tasks"`
}
