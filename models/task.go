// ABOUTME: CRM task model with status transitions and appointment classification
// ABOUTME: Tasks classified as appointments feed the calendar aggregator
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task statuses.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusCancelled  = "cancelled"
)

// Task sources. CRM tasks and general tasks live in separate collections upstream.
const (
	TaskSourceCRM     = "crm"
	TaskSourceGeneral = "general"
)

const classificationAppointment = "appointment"

type Task struct {
	ID             uuid.UUID    `json:"id"`
	TenantID       string       `json:"tenant_id"`
	Title          string       `json:"title"`
	Type           string       `json:"type,omitempty"`
	Classification string       `json:"classification,omitempty"`
	Status         string       `json:"status"`
	Source         string       `json:"source"`
	AssigneeID     string       `json:"assignee_id,omitempty"`
	StartAt        *time.Time   `json:"start_at,omitempty"`
	EndAt          *time.Time   `json:"end_at,omitempty"`
	DueAt          *time.Time   `json:"due_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Associations   Associations `json:"associations"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsAppointment reports whether the task should show on the calendar.
func (t Task) IsAppointment() bool {
	return strings.EqualFold(t.Classification, classificationAppointment) ||
		strings.EqualFold(t.Type, classificationAppointment)
}

// TransitionStatus validates and applies a status change, tracking completion.
func (t *Task) TransitionStatus(newStatus string, now time.Time) error {
	switch newStatus {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled:
	default:
		return fmt.Errorf("invalid task status: %s", newStatus)
	}

	old := t.Status
	t.Status = newStatus
	t.UpdatedAt = now

	if newStatus == TaskStatusDone && old != TaskStatusDone {
		done := now
		t.CompletedAt = &done
	} else if newStatus != TaskStatusDone {
		t.CompletedAt = nil
	}
	return nil
}

// Window returns the start and end of the task on a calendar.
// Appointments without an end are treated as one hour long; tasks with only
// a due date are placed at the due time.
func (t Task) Window() (time.Time, time.Time, bool) {
	var start time.Time
	switch {
	case t.StartAt != nil:
		start = *t.StartAt
	case t.DueAt != nil:
		start = *t.DueAt
	default:
		return time.Time{}, time.Time{}, false
	}

	end := start.Add(time.Hour)
	if t.EndAt != nil && t.EndAt.After(start) {
		end = *t.EndAt
	}
	return start, end, true
}
