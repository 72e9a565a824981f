package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      Status    `json:"status" db:"status"`
	Priority    Priority  `json:"priority" db:"priority"`
	DueDate     time.Time `json:"due_date" db:"due_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
}

// Status хранится в БД как smallint, порядок значений менять нельзя
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusPending:    "Pending",
	StatusInProgress: "InProgress",
	StatusCompleted:  "Completed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus принимает имя без учёта регистра или числовое значение
func ParseStatus(raw string) (Status, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for status, name := range statusNames {
		if strings.EqualFold(name, raw) {
			return status, true
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && Status(n).Valid() {
		return Status(n), true
	}
	return 0, false
}

// Priority хранится в БД как smallint, сортировка идёт по числовому значению
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

var priorityNames = map[Priority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func ParsePriority(raw string) (Priority, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for priority, name := range priorityNames {
		if strings.EqualFold(name, raw) {
			return priority, true
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && Priority(n).Valid() {
		return Priority(n), true
	}
	return 0, false
}

// OwnerCount - количество задач одного владельца
type OwnerCount struct {
	OwnerID   string `json:"owner_id" db:"owner_id"`
	TaskCount int    `json:"task_count" db:"task_count"`
}
