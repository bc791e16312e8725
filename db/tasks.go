// ABOUTME: Task database operations for CRM and general task lists
// ABOUTME: Appointment-classified tasks feed the calendar
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

const taskColumns = `id, tenant_id, title, type, classification, status, source, assignee_id,
	start_at, end_at, due_at, completed_at, associations, created_at, updated_at`

func CreateTask(db *sql.DB, task *models.Task) error {
	if err := checkTenant(task.TenantID); err != nil {
		return err
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Source == "" {
		task.Source = models.TaskSourceCRM
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	assoc, err := toJSON(task.Associations)
	if err != nil {
		return fmt.Errorf("failed to encode associations: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID.String(), task.TenantID, task.Title, task.Type, task.Classification, task.Status, task.Source,
		task.AssigneeID, task.StartAt, task.EndAt, task.DueAt, task.CompletedAt, assoc, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var assoc sql.NullString
	var startAt, endAt, dueAt, completedAt sql.NullTime

	err := row.Scan(
		&t.ID,
		&t.TenantID,
		&t.Title,
		&t.Type,
		&t.Classification,
		&t.Status,
		&t.Source,
		&t.AssigneeID,
		&startAt,
		&endAt,
		&dueAt,
		&completedAt,
		&assoc,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.StartAt = timePtr(startAt)
	t.EndAt = timePtr(endAt)
	t.DueAt = timePtr(dueAt)
	t.CompletedAt = timePtr(completedAt)
	if err := fromJSON(assoc, &t.Associations); err != nil {
		return nil, fmt.Errorf("task %s: bad associations: %w", t.ID, err)
	}
	return &t, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// GetTask returns nil, nil when the task does not exist in the tenant.
func GetTask(db *sql.DB, tenantID string, id uuid.UUID) (*models.Task, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	task, err := scanTask(db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE tenant_id = ? AND id = ?`, tenantID, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func UpdateTask(db *sql.DB, task *models.Task) error {
	if err := checkTenant(task.TenantID); err != nil {
		return err
	}
	task.UpdatedAt = time.Now()

	assoc, err := toJSON(task.Associations)
	if err != nil {
		return fmt.Errorf("failed to encode associations: %w", err)
	}

	res, err := db.Exec(`
		UPDATE tasks
		SET title = ?, type = ?, classification = ?, status = ?, source = ?, assignee_id = ?,
			start_at = ?, end_at = ?, due_at = ?, completed_at = ?, associations = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, task.Title, task.Type, task.Classification, task.Status, task.Source, task.AssigneeID,
		task.StartAt, task.EndAt, task.DueAt, task.CompletedAt, assoc, task.UpdatedAt, task.TenantID, task.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return rowsAffected(res)
}

// ListTasks returns tasks from one source list, or all when source is empty.
func ListTasks(db *sql.DB, tenantID, source string) ([]models.Task, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	return queryTasks(db, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE tenant_id = ? AND (? = '' OR source = ?)
		ORDER BY COALESCE(start_at, due_at, created_at)
	`, tenantID, source, source)
}

// ListAppointmentTasks returns appointment-classified tasks whose start or
// due time falls in [from, to). A zero bound is open.
func ListAppointmentTasks(db *sql.DB, tenantID string, from, to time.Time) ([]models.Task, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	tasks, err := queryTasks(db, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE tenant_id = ?
			AND (LOWER(classification) = 'appointment' OR LOWER(type) = 'appointment')
			AND status != 'cancelled'
		ORDER BY COALESCE(start_at, due_at, created_at)
	`, tenantID)
	if err != nil {
		return nil, err
	}

	var out []models.Task
	for _, t := range tasks {
		start, _, ok := t.Window()
		if !ok {
			continue
		}
		if !from.IsZero() && start.Before(from) {
			continue
		}
		if !to.IsZero() && !start.Before(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func queryTasks(db *sql.DB, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
