// ABOUTME: Tests for CRM task status transitions and calendar windows
// ABOUTME: Verifies completion tracking and appointment classification
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTransitionStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	task := &Task{Status: TaskStatusTodo}

	require.NoError(t, task.TransitionStatus(TaskStatusDone, now))
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	require.NoError(t, task.TransitionStatus(TaskStatusInProgress, now.Add(time.Hour)))
	assert.Nil(t, task.CompletedAt)

	assert.Error(t, task.TransitionStatus("archived", now))
	assert.Equal(t, TaskStatusInProgress, task.Status)
}

func TestTaskIsAppointment(t *testing.T) {
	assert.True(t, Task{Classification: "Appointment"}.IsAppointment())
	assert.True(t, Task{Type: "appointment"}.IsAppointment())
	assert.False(t, Task{Type: "call"}.IsAppointment())
}

func TestTaskWindow(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	s, e, ok := Task{StartAt: &start}.Window()
	require.True(t, ok)
	assert.Equal(t, start, s)
	assert.Equal(t, start.Add(time.Hour), e)

	end := start.Add(30 * time.Minute)
	_, e, ok = Task{StartAt: &start, EndAt: &end}.Window()
	require.True(t, ok)
	assert.Equal(t, end, e)

	s, _, ok = Task{DueAt: &start}.Window()
	require.True(t, ok)
	assert.Equal(t, start, s)

	_, _, ok = Task{}.Window()
	assert.False(t, ok)
}
